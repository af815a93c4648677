// Package snapshot persists trained cluster-centre sets to a
// blobstore.BlobStore so labelling can run in a different process than
// clustering.
//
// Files are self-describing: a fixed header records the format version,
// the codec that encoded the centre records, and the compression applied
// to the payload, so a reader needs no out-of-band configuration.
package snapshot

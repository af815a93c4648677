// Package s3 provides an S3 implementation of the blobstore.BlobStore
// interface, used to keep trained cluster-centre files in object storage.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", "centres/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = snapshot.Save(ctx, store, "landsat.centres", set)
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads for large centre files
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3

// Package minio provides a blobstore.BlobStore implementation using the
// MinIO client, for keeping cluster-centre files in S3-compatible storage
// without pulling in the AWS SDK.
//
// # Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "centres/")
//
// Works with MinIO itself and other S3-compatible systems such as Ceph,
// SeaweedFS, and Garage.
package minio

// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("landsat/qa/"),
//	    s3.WithRegion("us-west-2"),
//	)
//
//	qa, err := raster.Read(ctx, store, "LC08_L2SP_044034_QA_PIXEL.uqa", nil)
//
// Blobs are read with HTTP range requests and written with multipart
// uploads carrying CRC32-C checksums. Any client implementing Client can be
// used, which keeps the store testable without AWS.
package s3

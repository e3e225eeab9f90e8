// Package blobstore provides storage for encoded QA rasters and masks.
//
// BlobStore is the interface for reading and writing immutable blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, mmap reads and atomic rename writes
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// Cloud blobs implement ReadRange with HTTP range requests, so readers can
// fetch a header before deciding how much of a raster to pull.
package blobstore

// Package hash provides CRC32-Castagnoli checksums.
//
// CRC32C is used for container payloads and for S3 upload integrity
// checks. Go's crc32 package uses hardware instructions (SSE4.2, ARM CRC)
// when available.
//
//	checksum := hash.CRC32C(data)
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash

// Package minio stores rasters in MinIO or any S3-compatible object store
// (Ceph, Garage, SeaweedFS) through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "modis/",
//	    minioblob.WithPartSize(16<<20))
//	qa, err := raster.Read(ctx, store, "MOD09GA_state_1km.uqa", nil)
//
// Blobs ending in ".uqa" are uploaded with ContentType. Streaming uploads
// started by Create are canceled by Abort and never become visible.
package minio

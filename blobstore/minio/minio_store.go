package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/unpackqa/blobstore"
	"github.com/minio/minio-go/v7"
)

var _ blobstore.BlobStore = (*Store)(nil)

// ContentType is attached to ".uqa" raster blobs.
const ContentType = "application/vnd.unpackqa.uqa"

// ErrAborted is returned by Close after Abort.
var ErrAborted = errors.New("minio: upload aborted")

// Options configures a Store.
type Options struct {
	// PartSize is the multipart chunk size for streaming uploads.
	// Zero lets the client choose.
	PartSize uint64

	// UserMetadata is attached to every uploaded object.
	UserMetadata map[string]string
}

// Option configures a Store.
type Option func(*Options)

// WithPartSize sets the multipart chunk size for streaming uploads.
func WithPartSize(n uint64) Option {
	return func(o *Options) { o.PartSize = n }
}

// WithUserMetadata attaches md to every uploaded object.
func WithUserMetadata(md map[string]string) Option {
	return func(o *Options) { o.UserMetadata = md }
}

// Store implements blobstore.BlobStore on a MinIO or S3-compatible bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	opts   Options
}

// NewStore creates a store for bucket. rootPrefix is prepended to all
// names (e.g. "modis/").
func NewStore(client *minio.Client, bucket, rootPrefix string, optFns ...Option) *Store {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(rootPrefix, "/"),
		opts:   opts,
	}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// name is the inverse of key.
func (s *Store) name(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
}

func (s *Store) putOptions(name string) minio.PutObjectOptions {
	opts := minio.PutObjectOptions{
		PartSize:     s.opts.PartSize,
		UserMetadata: s.opts.UserMetadata,
	}
	if path.Ext(name) == ".uqa" {
		opts.ContentType = ContentType
	}
	return opts
}

// Open stats the object and returns a ranged reader over it.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return &minioBlob{store: s, key: key, size: info.Size}, nil
}

// Put uploads data in one request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), s.putOptions(name))
	return err
}

// Create starts a streaming upload. The object becomes visible when Close
// returns nil. Abort cancels the upload.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	w := &minioWritableBlob{pw: pw, cancel: cancel, done: make(chan error, 1)}
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, s.putOptions(name))
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns the sorted names below prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	full := s.key(prefix)
	if full != "" && (prefix == "" || strings.HasSuffix(prefix, "/")) {
		full += "/"
	}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: full, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if name := s.name(obj.Key); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	default:
		return false
	}
}

type minioBlob struct {
	store *Store
	key   string
	size  int64
}

func (b *minioBlob) Size() int64 { return b.size }

func (b *minioBlob) Close() error { return nil }

func (b *minioBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 && off >= 0 && off < b.size {
		return 0, nil
	}
	rc, err := b.ReadRange(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	want := min(int64(len(p)), b.size-off)
	n, err := io.ReadFull(rc, p[:want])
	if err == nil && want < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

func (b *minioBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, blobstore.ErrInvalidOffset
	}
	if off >= b.size {
		return nil, io.EOF
	}

	var opts minio.GetObjectOptions
	if err := opts.SetRange(off, min(off+length, b.size)-1); err != nil {
		return nil, err
	}
	obj, err := b.store.client.GetObject(ctx, b.store.bucket, b.key, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

type minioWritableBlob struct {
	pw     *io.PipeWriter
	cancel context.CancelFunc
	done   chan error

	once    sync.Once
	aborted bool
	err     error
}

func (w *minioWritableBlob) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Sync is a no-op; data is flushed by the upload goroutine.
func (w *minioWritableBlob) Sync() error { return nil }

func (w *minioWritableBlob) Close() error {
	w.once.Do(func() {
		defer w.cancel()
		if err := w.pw.Close(); err != nil {
			w.err = err
			return
		}
		w.err = <-w.done
	})
	if w.aborted {
		return ErrAborted
	}
	return w.err
}

func (w *minioWritableBlob) Abort() error {
	w.once.Do(func() {
		w.aborted = true
		_ = w.pw.CloseWithError(ErrAborted)
		w.cancel()
		<-w.done
	})
	return nil
}

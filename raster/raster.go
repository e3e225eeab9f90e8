// Package raster moves QA arrays and masks between memory and a blobstore.
//
// Blobs hold UQA1 containers (see package codec). Reads and writes are
// paced by an optional resource.Controller IO limit.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/hupe1980/unpackqa"
	"github.com/hupe1980/unpackqa/blobstore"
	"github.com/hupe1980/unpackqa/codec"
	"github.com/hupe1980/unpackqa/ndarray"
	"github.com/hupe1980/unpackqa/resource"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the size of each ranged read.
const DefaultChunkSize = 4 << 20

// Ext is the file extension used by WriteMasks.
const Ext = ".uqa"

// Read loads and decodes the array stored under name.
// The blob is fetched in DefaultChunkSize ranges. ctrl may be nil.
func Read(ctx context.Context, store blobstore.BlobStore, name string, ctrl *resource.Controller) (*ndarray.Array, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("raster: open %s: %w", name, err)
	}
	defer blob.Close()

	size := blob.Size()
	var buf bytes.Buffer
	buf.Grow(int(size))

	for off := int64(0); off < size; off += DefaultChunkSize {
		rc, err := blob.ReadRange(ctx, off, DefaultChunkSize)
		if err != nil {
			return nil, fmt.Errorf("raster: read %s at %d: %w", name, off, err)
		}
		_, err = io.Copy(&buf, resource.NewRateLimitedReader(ctx, rc, ctrl))
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("raster: read %s at %d: %w", name, off, err)
		}
	}
	if int64(buf.Len()) != size {
		return nil, fmt.Errorf("raster: read %s: got %d of %d bytes", name, buf.Len(), size)
	}

	a, err := codec.Unmarshal(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("raster: decode %s: %w", name, err)
	}
	return a, nil
}

// Write encodes a and stores it under name. ctrl may be nil.
func Write(ctx context.Context, store blobstore.BlobStore, name string, a *ndarray.Array, c codec.Compression, ctrl *resource.Controller) error {
	data, err := codec.Marshal(a, c)
	if err != nil {
		return fmt.Errorf("raster: encode %s: %w", name, err)
	}

	w, err := store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("raster: create %s: %w", name, err)
	}
	if _, err := io.Copy(resource.NewRateLimitedWriter(ctx, w, ctrl), bytes.NewReader(data)); err != nil {
		if ab, ok := w.(blobstore.Abortable); ok {
			_ = ab.Abort()
		} else {
			_ = w.Close()
		}
		return fmt.Errorf("raster: write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("raster: write %s: %w", name, err)
	}
	return nil
}

// MaskName returns the blob name WriteMasks uses for flag.
func MaskName(prefix, flag string) string {
	return path.Join(prefix, flag+Ext)
}

// WriteMasks stores each mask under MaskName(prefix, flag) and returns the
// names in mask order. Up to ctrl.MaxWorkers blobs are written at once.
func WriteMasks(ctx context.Context, store blobstore.BlobStore, prefix string, masks *unpackqa.FlagMasks, c codec.Compression, ctrl *resource.Controller) ([]string, error) {
	if masks == nil {
		return nil, errors.New("raster: nil masks")
	}
	names := make([]string, 0, masks.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, ctrl.MaxWorkers()))
	for flag, mask := range masks.All() {
		name := MaskName(prefix, flag)
		names = append(names, name)
		g.Go(func() error {
			return Write(gctx, store, name, mask, c, ctrl)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return names, nil
}

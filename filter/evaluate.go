package filter

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/unpackqa"
	"github.com/hupe1980/unpackqa/internal/conv"
	"github.com/hupe1980/unpackqa/ndarray"
)

// ErrTooManyPixels is returned for rasters whose pixel indices do not fit in uint32.
var ErrTooManyPixels = errors.New("raster exceeds 2^32 pixels")

const addBatch = 4096

// Bitmap returns the pixels where mask is non-zero.
func Bitmap(mask *ndarray.Array) (*roaring.Bitmap, error) {
	return scan(mask, func(v uint64) bool { return v != 0 })
}

// Evaluate returns the pixels of masks matching cond.
// Every flag referenced by cond must be present in masks.
func Evaluate(masks *unpackqa.FlagMasks, cond Condition) (*roaring.Bitmap, error) {
	if cond == nil {
		return nil, fmt.Errorf("%w: nil condition", ErrInvalidCondition)
	}
	if masks == nil {
		return eval(nil, cond, 0)
	}

	n := -1
	for _, mask := range masks.All() {
		if n >= 0 && mask.Size() != n {
			return nil, fmt.Errorf("%w: masks differ in size", ndarray.ErrShapeMismatch)
		}
		n = mask.Size()
	}
	if n < 0 {
		// No masks: only flag-free conditions such as And() can be evaluated.
		n = 0
	}
	if err := checkPixels(n); err != nil {
		return nil, err
	}
	return eval(masks, cond, uint64(n))
}

// Select unpacks the flags cond references from qa and evaluates cond.
func Select(ctx context.Context, u *unpackqa.Unpacker, qa *ndarray.Array, cond Condition) (*roaring.Bitmap, error) {
	if cond == nil {
		return nil, fmt.Errorf("%w: nil condition", ErrInvalidCondition)
	}
	if qa != nil {
		if err := checkPixels(qa.Size()); err != nil {
			return nil, err
		}
	}

	flags := cond.Flags()
	if len(flags) == 0 {
		if err := u.Validate(qa); err != nil {
			return nil, err
		}
		return eval(nil, cond, uint64(qa.Size()))
	}

	masks, err := u.UnpackToDict(ctx, qa, unpackqa.Named(flags...))
	if err != nil {
		return nil, err
	}
	return eval(masks, cond, uint64(qa.Size()))
}

func eval(masks *unpackqa.FlagMasks, cond Condition, n uint64) (*roaring.Bitmap, error) {
	switch c := cond.(type) {
	case *Filter:
		if err := c.validate(); err != nil {
			return nil, err
		}
		var mask *ndarray.Array
		if masks != nil {
			mask, _ = masks.Get(c.Flag)
		}
		if mask == nil {
			return nil, fmt.Errorf("%w: %q has no mask", unpackqa.ErrUnknownFlag, c.Flag)
		}
		return scan(mask, c.match)

	case *andCond:
		if len(c.conds) == 0 {
			return fullRange(n), nil
		}
		bms := make([]*roaring.Bitmap, 0, len(c.conds))
		for _, sub := range c.conds {
			bm, err := eval(masks, sub, n)
			if err != nil {
				return nil, err
			}
			bms = append(bms, bm)
		}
		return roaring.FastAnd(bms...), nil

	case *orCond:
		bms := make([]*roaring.Bitmap, 0, len(c.conds))
		for _, sub := range c.conds {
			bm, err := eval(masks, sub, n)
			if err != nil {
				return nil, err
			}
			bms = append(bms, bm)
		}
		return roaring.FastOr(bms...), nil

	case *notCond:
		bm, err := eval(masks, c.cond, n)
		if err != nil {
			return nil, err
		}
		bm.Flip(0, n)
		return bm, nil

	default:
		return nil, fmt.Errorf("%w: unsupported condition %T", ErrInvalidCondition, cond)
	}
}

func fullRange(n uint64) *roaring.Bitmap {
	bm := roaring.New()
	bm.AddRange(0, n)
	return bm
}

func checkPixels(n int) error {
	if n == 0 {
		return nil
	}
	if _, err := conv.IntToUint32(n - 1); err != nil {
		return fmt.Errorf("%w: %w", ErrTooManyPixels, err)
	}
	return nil
}

func scan(mask *ndarray.Array, pred func(uint64) bool) (*roaring.Bitmap, error) {
	if mask == nil {
		return nil, unpackqa.ErrNilArray
	}
	if err := checkPixels(mask.Size()); err != nil {
		return nil, err
	}

	switch v := mask.Data().(type) {
	case []uint8:
		return scanValues(v, pred), nil
	case []uint16:
		return scanValues(v, pred), nil
	case []uint32:
		return scanValues(v, pred), nil
	case []uint64:
		return scanValues(v, pred), nil
	default:
		return nil, &unpackqa.ErrInvalidType{DType: mask.DType()}
	}
}

func scanValues[M ndarray.Unsigned](values []M, pred func(uint64) bool) *roaring.Bitmap {
	bm := roaring.New()
	buf := make([]uint32, 0, addBatch)
	for i, v := range values {
		if !pred(uint64(v)) {
			continue
		}
		buf = append(buf, uint32(i))
		if len(buf) == addBatch {
			bm.AddMany(buf)
			buf = buf[:0]
		}
	}
	bm.AddMany(buf)
	bm.RunOptimize()
	return bm
}

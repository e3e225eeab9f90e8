// Package filter selects pixels by flag values.
//
// A Condition combines comparisons on decoded flags:
//
//	clear := filter.And(
//	    filter.Eq("cloud", 0),
//	    filter.Eq("cloud_shadow", 0),
//	    filter.Lt("cloud_confidence", 2),
//	)
//	pixels, err := filter.Select(ctx, u, qa, clear)
//
// Results are roaring bitmaps of flat (row-major) pixel indices, so rasters
// are limited to 2^32 pixels. Select decodes only the flags the condition
// references.
package filter

package unpackqa_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/unpackqa"
	"github.com/hupe1980/unpackqa/ndarray"
	"github.com/hupe1980/unpackqa/registry"
	"github.com/hupe1980/unpackqa/resource"
	"github.com/hupe1980/unpackqa/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toyProduct(t *testing.T) unpackqa.Product {
	t.Helper()
	p, err := unpackqa.NewProduct("toy", 3,
		registry.Flag{Name: "cloud", Bits: []int{0}},
		registry.Flag{Name: "confidence", Bits: []int{1, 2}},
	)
	require.NoError(t, err)
	return p
}

func wideProduct(t *testing.T) unpackqa.Product {
	t.Helper()
	p, err := unpackqa.NewProduct("wide", 16,
		registry.Flag{Name: "a", Bits: []int{0}},
		registry.Flag{Name: "b", Bits: []int{5}},
		registry.Flag{Name: "pair", Bits: []int{6, 2}},
		registry.Flag{Name: "triple", Bits: []int{9, 10, 11}},
		registry.Flag{Name: "high", Bits: []int{15}},
	)
	require.NoError(t, err)
	return p
}

func newUnpacker(t *testing.T, p unpackqa.Product, opts ...unpackqa.Option) *unpackqa.Unpacker {
	t.Helper()
	u, err := unpackqa.New(p, opts...)
	require.NoError(t, err)
	return u
}

func TestUnpackToDict_EndToEnd(t *testing.T) {
	u := newUnpacker(t, toyProduct(t))

	// 5 = 0b101: cloud (bit 0) = 1, confidence (bits 1,2 = 0,1) = 2
	qa := ndarray.MustNew([]uint8{5})
	masks, err := u.UnpackToDict(context.Background(), qa, unpackqa.All())
	require.NoError(t, err)

	assert.Equal(t, []string{"cloud", "confidence"}, masks.Names())

	cloud, ok := masks.Get("cloud")
	require.True(t, ok)
	assert.Equal(t, []int{1}, cloud.Shape())
	assert.Equal(t, []uint64{1}, cloud.Uint64s())

	confidence, ok := masks.Get("confidence")
	require.True(t, ok)
	assert.Equal(t, []uint64{2}, confidence.Uint64s())
}

func TestUnpackToArray_ShapeInvariant(t *testing.T) {
	u := newUnpacker(t, wideProduct(t))
	rng := testutil.NewRNG(42)

	shapes := [][]int{{1}, {7}, {3, 4}, {2, 3, 5}, {0, 4}}
	selectors := []unpackqa.FlagSelector{
		unpackqa.All(),
		unpackqa.Named("pair"),
		unpackqa.Named("high", "a"),
	}

	for _, shape := range shapes {
		qa := rng.QAArray(16, shape...)
		for _, sel := range selectors {
			out, err := u.UnpackToArray(context.Background(), qa, sel)
			require.NoError(t, err)

			flags, err := u.ResolveFlags(sel)
			require.NoError(t, err)
			assert.Equal(t, append(append([]int{}, shape...), len(flags)), out.Shape(), "shape %v sel %s", shape, sel)
		}
	}
}

func TestUnpackToArray_MatchesScalarDecode(t *testing.T) {
	p := wideProduct(t)
	u := newUnpacker(t, p)
	rng := testutil.NewRNG(7)

	qa := rng.QAArray(16, 32, 16)
	out, err := u.UnpackToArray(context.Background(), qa, unpackqa.All())
	require.NoError(t, err)

	flags := u.AvailableFlags()
	for i := 0; i < qa.Size(); i++ {
		code := qa.Uint64(i)
		for f, name := range flags {
			bits, _ := p.Flags.Lookup(name)
			require.Equal(t, testutil.DecodeFlag(code, bits), out.Uint64(i*len(flags)+f), "code %d flag %s", code, name)
		}
	}
}

func TestUnpack_SingleBitIdentity(t *testing.T) {
	u := newUnpacker(t, wideProduct(t))

	values := make([]uint16, 1<<16)
	for i := range values {
		values[i] = uint16(i)
	}
	qa := ndarray.MustNew(values)

	masks, err := u.UnpackToDict(context.Background(), qa, unpackqa.Named("b", "high"))
	require.NoError(t, err)

	b, _ := masks.Get("b")
	high, _ := masks.Get("high")
	for i, v := range values {
		require.Equal(t, uint64((v>>5)&1), b.Uint64(i))
		require.Equal(t, uint64((v>>15)&1), high.Uint64(i))
	}
}

func TestUnpack_MultiBitListOrder(t *testing.T) {
	u := newUnpacker(t, wideProduct(t))

	values := make([]uint16, 256)
	for i := range values {
		values[i] = uint16(i)
	}
	qa := ndarray.MustNew(values)

	// "pair" is defined as [6, 2]: bit 6 is the low bit of the result.
	masks, err := u.UnpackToDict(context.Background(), qa, unpackqa.Named("pair"))
	require.NoError(t, err)
	pair, _ := masks.Get("pair")

	for i, v := range values {
		want := uint64((v>>6)&1) | uint64((v>>2)&1)<<1
		require.Equal(t, want, pair.Uint64(i), "value %d", v)
	}

	// 0b0100_0000: only bit 6 set -> 1, not 2.
	assert.Equal(t, uint64(1), pair.Uint64(64))
	// 0b0000_0100: only bit 2 set -> 2.
	assert.Equal(t, uint64(2), pair.Uint64(4))
}

func TestUnpack_OrderPreservation(t *testing.T) {
	p, err := unpackqa.NewProduct("ab", 2,
		registry.Flag{Name: "a", Bits: []int{0}},
		registry.Flag{Name: "b", Bits: []int{1}},
	)
	require.NoError(t, err)
	u := newUnpacker(t, p)

	qa := ndarray.MustNew([]uint8{1, 2})

	out, err := u.UnpackToArray(context.Background(), qa, unpackqa.Named("b", "a"))
	require.NoError(t, err)
	// element 0 (value 1): b=0, a=1; element 1 (value 2): b=1, a=0
	assert.Equal(t, []uint64{0, 1, 1, 0}, out.Uint64s())

	masks, err := u.UnpackToDict(context.Background(), qa, unpackqa.Named("b", "a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, masks.Names())

	var order []string
	for name := range masks.All() {
		order = append(order, name)
	}
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestResolveFlags(t *testing.T) {
	u := newUnpacker(t, toyProduct(t))

	flags, err := u.ResolveFlags(unpackqa.All())
	require.NoError(t, err)
	assert.Equal(t, []string{"cloud", "confidence"}, flags)

	flags, err = u.ResolveFlags(unpackqa.FlagSelector{})
	require.NoError(t, err)
	assert.Equal(t, []string{"cloud", "confidence"}, flags)

	flags, err = u.ResolveFlags(unpackqa.Named("confidence", "cloud"))
	require.NoError(t, err)
	assert.Equal(t, []string{"confidence", "cloud"}, flags)

	_, err = u.ResolveFlags(unpackqa.Named("cloud", "snow", "ice"))
	var ifn *unpackqa.ErrInvalidFlagName
	require.ErrorAs(t, err, &ifn)
	assert.Equal(t, []string{"snow", "ice"}, ifn.Names)
	assert.Equal(t, "toy", ifn.Product)
	assert.ErrorIs(t, err, unpackqa.ErrUnknownFlag)
	assert.Contains(t, err.Error(), "snow, ice")

	_, err = u.ResolveFlags(unpackqa.Named())
	assert.ErrorIs(t, err, unpackqa.ErrNoFlags)
}

func TestUnpack_InvalidFlagBeforeValidation(t *testing.T) {
	u := newUnpacker(t, toyProduct(t))

	// Both the flag name and the input are bad; the flag error wins.
	qa := ndarray.MustNew([]float32{1.5})
	_, err := u.UnpackToArray(context.Background(), qa, unpackqa.Named("snow"))
	assert.ErrorIs(t, err, unpackqa.ErrUnknownFlag)
}

func TestValidate(t *testing.T) {
	u := newUnpacker(t, toyProduct(t)) // max value 7
	ctx := context.Background()

	t.Run("float rejected", func(t *testing.T) {
		for _, qa := range []*ndarray.Array{
			ndarray.MustNew([]float32{1}),
			ndarray.MustNew([]float64{1, 2}),
		} {
			_, err := u.UnpackToArray(ctx, qa, unpackqa.All())
			var it *unpackqa.ErrInvalidType
			require.ErrorAs(t, err, &it)
			assert.Equal(t, qa.DType(), it.DType)
			assert.ErrorIs(t, err, unpackqa.ErrType)
		}
	})

	t.Run("negative rejected", func(t *testing.T) {
		qa := ndarray.MustNew([]int16{3, -1, 2})
		_, err := u.UnpackToDict(ctx, qa, unpackqa.All())
		var oor *unpackqa.ErrValueOutOfRange
		require.ErrorAs(t, err, &oor)
		assert.Equal(t, unpackqa.BoundMin, oor.Bound)
		assert.Equal(t, int64(-1), oor.Min)
		assert.Equal(t, uint64(7), oor.MaxValue)
		assert.ErrorIs(t, err, unpackqa.ErrRange)
		assert.Contains(t, err.Error(), "min value was -1")
	})

	t.Run("above max rejected", func(t *testing.T) {
		qa := ndarray.MustNew([]uint32{0, 8, 3})
		_, err := u.UnpackToArray(ctx, qa, unpackqa.All())
		var oor *unpackqa.ErrValueOutOfRange
		require.ErrorAs(t, err, &oor)
		assert.Equal(t, unpackqa.BoundMax, oor.Bound)
		assert.Equal(t, uint64(8), oor.Max)
		assert.Contains(t, err.Error(), "max value was 8 and the valid range is 0-7")
	})

	t.Run("max checked before min", func(t *testing.T) {
		qa := ndarray.MustNew([]int64{-5, 100})
		err := u.Validate(qa)
		var oor *unpackqa.ErrValueOutOfRange
		require.ErrorAs(t, err, &oor)
		assert.Equal(t, unpackqa.BoundMax, oor.Bound)
		assert.Equal(t, uint64(100), oor.Max)
	})

	t.Run("boundaries accepted", func(t *testing.T) {
		require.NoError(t, u.Validate(ndarray.MustNew([]int8{0, 7})))
		require.NoError(t, u.Validate(ndarray.MustNew([]uint64{7})))
		require.NoError(t, u.Validate(ndarray.MustNew([]uint16{})))
	})

	t.Run("nil rejected", func(t *testing.T) {
		_, err := u.UnpackToArray(ctx, nil, unpackqa.All())
		assert.ErrorIs(t, err, unpackqa.ErrNilArray)
	})

	t.Run("input untouched", func(t *testing.T) {
		data := []uint8{5, 7, 0}
		qa := ndarray.MustNew(data)
		_, err := u.UnpackToArray(ctx, qa, unpackqa.All())
		require.NoError(t, err)
		assert.Equal(t, []uint8{5, 7, 0}, data)
	})
}

func TestValidate_SixteenBit(t *testing.T) {
	u := newUnpacker(t, wideProduct(t))

	err := u.Validate(ndarray.MustNew([]int32{65536}))
	var oor *unpackqa.ErrValueOutOfRange
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, uint64(65536), oor.Max)
	assert.Equal(t, uint64(65535), oor.MaxValue)

	require.NoError(t, u.Validate(ndarray.MustNew([]int32{65535})))
}

func TestNewProduct_Errors(t *testing.T) {
	_, err := unpackqa.NewProduct("zero", 0, registry.Flag{Name: "a", Bits: []int{0}})
	assert.ErrorIs(t, err, unpackqa.ErrInvalidProduct)

	_, err = unpackqa.NewProduct("wide", 65, registry.Flag{Name: "a", Bits: []int{0}})
	assert.ErrorIs(t, err, unpackqa.ErrInvalidProduct)

	_, err = unpackqa.NewProduct("overflow", 4, registry.Flag{Name: "a", Bits: []int{4}})
	assert.ErrorIs(t, err, unpackqa.ErrInvalidProduct)

	_, err = unpackqa.NewProduct("dup", 4,
		registry.Flag{Name: "a", Bits: []int{0}},
		registry.Flag{Name: "a", Bits: []int{1}},
	)
	assert.ErrorIs(t, err, unpackqa.ErrInvalidProduct)
	assert.ErrorIs(t, err, registry.ErrDuplicateFlag)

	_, err = unpackqa.New(unpackqa.Product{Name: "empty", NBits: 8})
	assert.ErrorIs(t, err, unpackqa.ErrInvalidProduct)
}

func TestProduct_MaxValue(t *testing.T) {
	p := unpackqa.MustNewProduct("p", 64, registry.Flag{Name: "top", Bits: []int{63}})
	assert.Equal(t, ^uint64(0), p.MaxValue())

	u := newUnpacker(t, p)
	masks, err := u.UnpackToDict(context.Background(), ndarray.MustNew([]uint64{1 << 63, 1}), unpackqa.All())
	require.NoError(t, err)
	top, _ := masks.Get("top")
	assert.Equal(t, []uint64{1, 0}, top.Uint64s())
}

func TestUnpack_MaskDType(t *testing.T) {
	flags := make([]int, 12)
	for i := range flags {
		flags[i] = i
	}
	p := unpackqa.MustNewProduct("p", 16,
		registry.Flag{Name: "bit", Bits: []int{15}},
		registry.Flag{Name: "wide", Bits: flags},
	)
	u := newUnpacker(t, p)
	qa := ndarray.MustNew([]uint16{0x8fff})

	out, err := u.UnpackToArray(context.Background(), qa, unpackqa.Named("bit"))
	require.NoError(t, err)
	assert.Equal(t, ndarray.Uint8, out.DType())

	out, err = u.UnpackToArray(context.Background(), qa, unpackqa.All())
	require.NoError(t, err)
	assert.Equal(t, ndarray.Uint16, out.DType())
	assert.Equal(t, []uint64{1, 0xfff}, out.Uint64s())
}

func TestUnpack_SignedInput(t *testing.T) {
	u := newUnpacker(t, toyProduct(t))
	out, err := u.UnpackToArray(context.Background(), ndarray.MustNew([]int64{5, 6}, 2, 1), unpackqa.All())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 2}, out.Shape())
	assert.Equal(t, []uint64{1, 2, 0, 3}, out.Uint64s())
}

func TestUnpack_TiledMatchesUntiled(t *testing.T) {
	p := wideProduct(t)
	rng := testutil.NewRNG(99)
	qa := rng.QAArray(16, 37, 53)

	ref, err := newUnpacker(t, p).UnpackToArray(context.Background(), qa, unpackqa.All())
	require.NoError(t, err)

	configs := map[string][]unpackqa.Option{
		"small tiles":       {unpackqa.WithTileSize(7)},
		"parallel":          {unpackqa.WithTileSize(64), unpackqa.WithWorkers(4)},
		"memory bound":      {unpackqa.WithResourceController(resource.NewController(resource.Config{MemoryLimitBytes: 16 * 10, MaxWorkers: 3}))},
		"tiny memory bound": {unpackqa.WithResourceController(resource.NewController(resource.Config{MemoryLimitBytes: 4, MaxWorkers: 2}))},
	}
	for name, opts := range configs {
		t.Run(name, func(t *testing.T) {
			out, err := newUnpacker(t, p, opts...).UnpackToArray(context.Background(), qa, unpackqa.All())
			require.NoError(t, err)
			assert.True(t, ref.Equal(out))
		})
	}
}

func TestUnpack_ContextCanceled(t *testing.T) {
	u := newUnpacker(t, wideProduct(t), unpackqa.WithTileSize(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	qa := testutil.NewRNG(1).QAArray(16, 64)
	_, err := u.UnpackToArray(ctx, qa, unpackqa.All())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestUnpack_ConcurrentCallers(t *testing.T) {
	p := wideProduct(t)
	u := newUnpacker(t, p, unpackqa.WithWorkers(2), unpackqa.WithTileSize(100))
	rng := testutil.NewRNG(3)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		qa := rng.QAArray(16, 20, 30)
		wg.Add(1)
		go func() {
			defer wg.Done()
			masks, err := u.UnpackToDict(context.Background(), qa, unpackqa.Named("triple", "a"))
			assert.NoError(t, err)
			triple, _ := masks.Get("triple")
			for j := 0; j < qa.Size(); j++ {
				assert.Equal(t, testutil.DecodeFlag(qa.Uint64(j), []int{9, 10, 11}), triple.Uint64(j))
			}
		}()
	}
	wg.Wait()
}

func TestUnpackToDict_NoAliasing(t *testing.T) {
	u := newUnpacker(t, toyProduct(t))
	qa := ndarray.MustNew([]uint8{5, 3})

	m1, err := u.UnpackToDict(context.Background(), qa, unpackqa.All())
	require.NoError(t, err)
	m2, err := u.UnpackToDict(context.Background(), qa, unpackqa.All())
	require.NoError(t, err)

	c1, _ := m1.Get("cloud")
	vals, ok := ndarray.Values[uint8](c1)
	require.True(t, ok)
	vals[0] = 9

	c2, _ := m2.Get("cloud")
	assert.Equal(t, uint64(1), c2.Uint64(0))
	assert.Len(t, m1.Map(), 2)
}

func TestExpandAndExtractFlag(t *testing.T) {
	u := newUnpacker(t, toyProduct(t))

	plane, err := u.Expand(ndarray.MustNew([]uint8{5, 6}))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, plane.Shape())

	m, err := unpackqa.ExtractFlag(plane, []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, m.Uint64s())

	_, err = u.Expand(ndarray.MustNew([]uint8{8}))
	assert.ErrorIs(t, err, unpackqa.ErrRange)
}

func TestParseSelector(t *testing.T) {
	assert.True(t, unpackqa.ParseSelector("all").IsAll())
	assert.True(t, unpackqa.ParseSelector(" ALL ").IsAll())
	assert.True(t, unpackqa.ParseSelector("").IsAll())

	sel := unpackqa.ParseSelector("b, a,,c")
	assert.False(t, sel.IsAll())
	assert.Equal(t, []string{"b", "a", "c"}, sel.Names())
	assert.Equal(t, "[b, a, c]", sel.String())
	assert.Equal(t, "all", unpackqa.All().String())
}

func TestMetricsCollector(t *testing.T) {
	metrics := &unpackqa.BasicMetricsCollector{}
	u := newUnpacker(t, toyProduct(t), unpackqa.WithMetricsCollector(metrics), unpackqa.WithLogger(nil))
	ctx := context.Background()

	_, err := u.UnpackToArray(ctx, ndarray.MustNew([]uint8{1, 2, 3}), unpackqa.All())
	require.NoError(t, err)
	_, err = u.UnpackToArray(ctx, ndarray.MustNew([]uint8{9}), unpackqa.All())
	require.Error(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.UnpackCount)
	assert.Equal(t, int64(1), stats.UnpackErrors)
	assert.Equal(t, int64(3), stats.ElementsDecoded)
	assert.Equal(t, int64(2), stats.FlagsDecoded)
	assert.Equal(t, int64(1), stats.ValidationFailures)
}

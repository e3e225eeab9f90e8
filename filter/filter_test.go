package filter

import (
	"context"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/unpackqa"
	"github.com/hupe1980/unpackqa/ndarray"
	"github.com/hupe1980/unpackqa/registry"
	"github.com/hupe1980/unpackqa/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var toy = unpackqa.MustNewProduct("toy", 4,
	registry.Flag{Name: "cloud", Bits: []int{0}},
	registry.Flag{Name: "confidence", Bits: []int{1, 2}},
	registry.Flag{Name: "water", Bits: []int{3}},
)

func newToy(t *testing.T) *unpackqa.Unpacker {
	t.Helper()
	u, err := unpackqa.New(toy)
	require.NoError(t, err)
	return u
}

// every 4-bit code once: pixel i holds value i
func allCodes() *ndarray.Array {
	data := make([]uint8, 16)
	for i := range data {
		data[i] = uint8(i)
	}
	return ndarray.MustNew(data, 4, 4)
}

// brute-force reference: pixels whose decoded flags satisfy pred
func expected(qa *ndarray.Array, pred func(cloud, confidence, water uint64) bool) []uint32 {
	var out []uint32
	for i := 0; i < qa.Size(); i++ {
		code := qa.Uint64(i)
		if pred(code&1, (code>>1)&3, (code>>3)&1) {
			out = append(out, uint32(i))
		}
	}
	return out
}

func TestSelect(t *testing.T) {
	u := newToy(t)
	qa := allCodes()
	ctx := context.Background()

	tests := []struct {
		name string
		cond Condition
		pred func(c, conf, w uint64) bool
	}{
		{"eq", Eq("cloud", 1), func(c, _, _ uint64) bool { return c == 1 }},
		{"ne", Ne("confidence", 0), func(_, conf, _ uint64) bool { return conf != 0 }},
		{"lt", Lt("confidence", 2), func(_, conf, _ uint64) bool { return conf < 2 }},
		{"le", Le("confidence", 2), func(_, conf, _ uint64) bool { return conf <= 2 }},
		{"gt", Gt("confidence", 2), func(_, conf, _ uint64) bool { return conf > 2 }},
		{"ge", Ge("confidence", 2), func(_, conf, _ uint64) bool { return conf >= 2 }},
		{"in", In("confidence", 0, 3), func(_, conf, _ uint64) bool { return conf == 0 || conf == 3 }},
		{"and", And(Eq("cloud", 0), Eq("water", 1)), func(c, _, w uint64) bool { return c == 0 && w == 1 }},
		{"or", Or(Eq("cloud", 1), Ge("confidence", 3)), func(c, conf, _ uint64) bool { return c == 1 || conf >= 3 }},
		{"not", Not(Eq("water", 1)), func(_, _, w uint64) bool { return w != 1 }},
		{"nested", And(Not(Or(Eq("cloud", 1), Eq("water", 1))), Lt("confidence", 3)),
			func(c, conf, w uint64) bool { return !(c == 1 || w == 1) && conf < 3 }},
		{"empty and", And(), func(_, _, _ uint64) bool { return true }},
		{"empty or", Or(), func(_, _, _ uint64) bool { return false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bm, err := Select(ctx, u, qa, tt.cond)
			require.NoError(t, err)
			assert.Equal(t, expected(qa, tt.pred), nonNil(bm.ToArray()))
		})
	}
}

func nonNil(a []uint32) []uint32 {
	if len(a) == 0 {
		return nil
	}
	return a
}

func TestSelect_Random(t *testing.T) {
	u := newToy(t)
	qa := testutil.NewRNG(11).QAArray(4, 64, 64)

	cond := Or(And(Eq("cloud", 0), In("confidence", 1, 2)), Not(Lt("water", 1)))
	bm, err := Select(context.Background(), u, qa, cond)
	require.NoError(t, err)

	want := expected(qa, func(c, conf, w uint64) bool {
		return (c == 0 && (conf == 1 || conf == 2)) || w >= 1
	})
	assert.Equal(t, want, nonNil(bm.ToArray()))
}

func TestSelect_Errors(t *testing.T) {
	u := newToy(t)
	ctx := context.Background()

	_, err := Select(ctx, u, allCodes(), Eq("snow", 1))
	assert.ErrorIs(t, err, unpackqa.ErrUnknownFlag)

	_, err = Select(ctx, u, ndarray.MustNew([]uint8{16}), Eq("cloud", 1))
	assert.ErrorIs(t, err, unpackqa.ErrRange)

	_, err = Select(ctx, u, allCodes(), nil)
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = Select(ctx, u, allCodes(), &Filter{Flag: "cloud", Operator: "like"})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = Select(ctx, u, nil, And())
	assert.ErrorIs(t, err, unpackqa.ErrNilArray)
}

func TestBitmap(t *testing.T) {
	bm, err := Bitmap(ndarray.MustNew([]uint16{0, 3, 0, 1, 1}))
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 3, 4}, bm.ToArray())
	assert.Equal(t, uint64(3), bm.GetCardinality())

	_, err = Bitmap(ndarray.MustNew([]float32{1}))
	var it *unpackqa.ErrInvalidType
	assert.ErrorAs(t, err, &it)

	_, err = Bitmap(nil)
	assert.ErrorIs(t, err, unpackqa.ErrNilArray)
}

func TestEvaluate(t *testing.T) {
	u := newToy(t)
	masks, err := u.UnpackToDict(context.Background(), allCodes(), unpackqa.All())
	require.NoError(t, err)

	bm, err := Evaluate(masks, And(Eq("cloud", 1), Eq("confidence", 3), Eq("water", 1)))
	require.NoError(t, err)
	assert.Equal(t, []uint32{15}, bm.ToArray())

	// Not complements within the raster, not within uint32.
	bm, err = Evaluate(masks, Not(Ge("confidence", 0)))
	require.NoError(t, err)
	assert.True(t, bm.IsEmpty())

	bm, err = Evaluate(masks, Not(Or()))
	require.NoError(t, err)
	assert.Equal(t, uint64(16), bm.GetCardinality())

	cloud, _ := masks.Get("cloud")
	direct, err := Bitmap(cloud)
	require.NoError(t, err)
	viaCond, err := Evaluate(masks, Eq("cloud", 1))
	require.NoError(t, err)
	assert.True(t, direct.Equals(viaCond))

	// De Morgan: not(a or b) == not a and not b
	lhs, err := Evaluate(masks, Not(Or(Eq("cloud", 1), Eq("water", 0))))
	require.NoError(t, err)
	rhs, err := Evaluate(masks, And(Not(Eq("cloud", 1)), Not(Eq("water", 0))))
	require.NoError(t, err)
	assert.True(t, lhs.Equals(rhs))
	assert.True(t, roaring.AndNot(lhs, rhs).IsEmpty())
}

func TestFlags(t *testing.T) {
	cond := And(Eq("water", 1), Or(Eq("cloud", 0), Not(Lt("water", 1))), In("confidence", 1))
	assert.Equal(t, []string{"water", "cloud", "confidence"}, cond.Flags())
	assert.Empty(t, And().Flags())
}

func TestString(t *testing.T) {
	cond := And(Eq("cloud", 0), Not(In("confidence", 2, 3)), Or(Le("water", 0)))
	assert.Equal(t, "(cloud == 0 and not confidence in [2 3] and (water <= 0))", cond.String())
}

func TestParse(t *testing.T) {
	cond, err := Parse("cloud==0, cloud_confidence<2,land_water=1|2, snow >= 1, a!=3, b<=4, c>5, d=6")
	require.NoError(t, err)
	assert.Equal(t, And(
		Eq("cloud", 0),
		Lt("cloud_confidence", 2),
		In("land_water", 1, 2),
		Ge("snow", 1),
		Ne("a", 3),
		Le("b", 4),
		Gt("c", 5),
		Eq("d", 6),
	), cond)

	single, err := Parse("cloud=1")
	require.NoError(t, err)
	assert.Equal(t, Eq("cloud", 1), single)

	for _, bad := range []string{"", " , ", "cloud", "=1", "cloud<x", "cloud<1|2", "cloud=1|x"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidCondition, bad)
	}
}

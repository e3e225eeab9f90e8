package products

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/unpackqa"
	"github.com/hupe1980/unpackqa/ndarray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	assert.Equal(t, []string{"landsat8_c2_l2_qa_pixel", "mod09ga_state_1km"}, Names())

	for _, name := range Names() {
		p, err := ByName(name)
		require.NoError(t, err)
		require.NoError(t, p.Validate())
		assert.Equal(t, 16, p.NBits)
		assert.Equal(t, uint64(65535), p.MaxValue())
	}

	_, err := ByName("sentinel")
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestLandsat8_KnownCodes(t *testing.T) {
	u, err := unpackqa.New(Landsat8C2QAPixel)
	require.NoError(t, err)

	// 21824: clear land, low confidences. 22280: high-confidence cloud.
	qa := ndarray.MustNew([]uint16{21824, 22280, 1})
	masks, err := u.UnpackToDict(context.Background(), qa, unpackqa.Named("fill", "cloud", "clear", "cloud_confidence"))
	require.NoError(t, err)

	get := func(name string) []uint64 {
		m, ok := masks.Get(name)
		require.True(t, ok)
		return m.Uint64s()
	}
	assert.Equal(t, []uint64{0, 0, 1}, get("fill"))
	assert.Equal(t, []uint64{0, 1, 0}, get("cloud"))
	assert.Equal(t, []uint64{1, 0, 0}, get("clear"))
	assert.Equal(t, []uint64{1, 3, 0}, get("cloud_confidence"))
}

func TestParseJSON(t *testing.T) {
	p, err := ParseJSON([]byte(`{
		"name": "toy",
		"n_bits": 3,
		"flags": [
			{"name": "confidence", "bits": [1, 2]},
			{"name": "cloud", "bits": [0]}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "toy", p.Name)
	assert.Equal(t, 3, p.NBits)
	assert.Equal(t, []string{"confidence", "cloud"}, p.AvailableFlags())
}

func TestParseJSON_Errors(t *testing.T) {
	_, err := ParseJSON([]byte(`{not json`))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`{"name": "bad", "n_bits": 2, "flags": [{"name": "x", "bits": [2]}]}`))
	assert.ErrorIs(t, err, unpackqa.ErrInvalidProduct)

	_, err = ParseJSON([]byte(`{"name": "bad", "n_bits": 2, "flags": [{"name": "x", "bits": []}]}`))
	assert.ErrorIs(t, err, unpackqa.ErrInvalidProduct)
}

func TestMarshalJSON_RoundTrip(t *testing.T) {
	data, err := MarshalJSON(MOD09GAState1km)
	require.NoError(t, err)

	p, err := LoadJSON(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, MOD09GAState1km.Name, p.Name)
	assert.Equal(t, MOD09GAState1km.AvailableFlags(), p.AvailableFlags())

	bits, ok := p.Flags.Lookup("land_water")
	require.True(t, ok)
	assert.Equal(t, []int{3, 4, 5}, bits)
}

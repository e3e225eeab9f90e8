package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQACodes(t *testing.T) {
	rng := NewRNG(4711)

	codes := rng.QACodes(1000, 12)
	assert.Len(t, codes, 1000)
	for _, c := range codes {
		assert.Less(t, c, uint64(1<<12))
	}
}

func TestQAArray(t *testing.T) {
	rng := NewRNG(4711)

	qa := rng.QAArray(16, 4, 8)
	assert.Equal(t, []int{4, 8}, qa.Shape())
	assert.Equal(t, 32, qa.Size())
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	a := rng.QACodes(10, 16)
	rng.Reset()
	b := rng.QACodes(10, 16)
	assert.Equal(t, a, b)
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestDecodeFlag(t *testing.T) {
	assert.Equal(t, uint64(1), DecodeFlag(5, []int{0}))
	assert.Equal(t, uint64(2), DecodeFlag(5, []int{1, 2}))
	assert.Equal(t, uint64(1), DecodeFlag(5, []int{2, 1}))
	assert.Equal(t, uint64(0), DecodeFlag(0xffff, nil))
}

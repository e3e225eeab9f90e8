package unpackqa

import (
	"iter"
	"slices"

	"github.com/hupe1980/unpackqa/ndarray"
)

// FlagMasks maps flag names to mask arrays, iterating in request order.
type FlagMasks struct {
	names []string
	masks map[string]*ndarray.Array
}

func newFlagMasks(n int) *FlagMasks {
	return &FlagMasks{
		names: make([]string, 0, n),
		masks: make(map[string]*ndarray.Array, n),
	}
}

func (m *FlagMasks) set(name string, mask *ndarray.Array) {
	if _, ok := m.masks[name]; !ok {
		m.names = append(m.names, name)
	}
	m.masks[name] = mask
}

// Len returns the number of masks.
func (m *FlagMasks) Len() int { return len(m.names) }

// Names returns the flag names in request order.
func (m *FlagMasks) Names() []string { return slices.Clone(m.names) }

// Get returns the mask for name.
func (m *FlagMasks) Get(name string) (*ndarray.Array, bool) {
	a, ok := m.masks[name]
	return a, ok
}

// All iterates over name/mask pairs in request order.
func (m *FlagMasks) All() iter.Seq2[string, *ndarray.Array] {
	return func(yield func(string, *ndarray.Array) bool) {
		for _, name := range m.names {
			if !yield(name, m.masks[name]) {
				return
			}
		}
	}
}

// Map returns the masks as a plain map. Iteration order is lost.
func (m *FlagMasks) Map() map[string]*ndarray.Array {
	out := make(map[string]*ndarray.Array, len(m.masks))
	for k, v := range m.masks {
		out[k] = v
	}
	return out
}

// Package registry holds ordered flag definitions for a QA product.
//
// A registry maps flag names to the bit indices that encode them. The order
// in which flags are defined is preserved and becomes the default output
// order when all flags are requested.
//
// For multi-bit flags the order of the bit list matters: the first index is
// the least significant bit of the decoded value, the second index the next
// bit, and so on. Indices may be listed in any order, e.g. a flag defined as
// {3, 1} decodes bit 3 as the low bit and bit 1 as the high bit.
package registry

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

var (
	// ErrEmptyName is returned for a flag without a name.
	ErrEmptyName = errors.New("registry: empty flag name")

	// ErrDuplicateFlag is returned when a flag name is defined twice.
	ErrDuplicateFlag = errors.New("registry: duplicate flag name")

	// ErrNoBits is returned for a flag without bit indices.
	ErrNoBits = errors.New("registry: flag has no bits")

	// ErrInvalidBit is returned for a negative or repeated bit index.
	ErrInvalidBit = errors.New("registry: invalid bit index")
)

// Flag is a named quality attribute and the bit indices that encode it.
type Flag struct {
	Name string `json:"name"`
	Bits []int  `json:"bits"`
}

// Width returns the number of bits of the flag.
func (f Flag) Width() int { return len(f.Bits) }

// Registry is an ordered, read-only set of flags.
// It is safe for concurrent use.
type Registry struct {
	flags []Flag
	index map[string]int
}

// New validates the flags and returns a registry in the given order.
func New(flags ...Flag) (*Registry, error) {
	r := &Registry{
		flags: make([]Flag, 0, len(flags)),
		index: make(map[string]int, len(flags)),
	}

	for _, f := range flags {
		if f.Name == "" {
			return nil, ErrEmptyName
		}
		if _, ok := r.index[f.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateFlag, f.Name)
		}
		if len(f.Bits) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoBits, f.Name)
		}
		seen := make(map[int]struct{}, len(f.Bits))
		for _, b := range f.Bits {
			if b < 0 {
				return nil, fmt.Errorf("%w: %q has negative bit %d", ErrInvalidBit, f.Name, b)
			}
			if _, dup := seen[b]; dup {
				return nil, fmt.Errorf("%w: %q repeats bit %d", ErrInvalidBit, f.Name, b)
			}
			seen[b] = struct{}{}
		}

		r.index[f.Name] = len(r.flags)
		r.flags = append(r.flags, Flag{Name: f.Name, Bits: slices.Clone(f.Bits)})
	}

	return r, nil
}

// MustNew is like New but panics on error. Intended for static product tables.
func MustNew(flags ...Flag) *Registry {
	r, err := New(flags...)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of flags.
func (r *Registry) Len() int { return len(r.flags) }

// Names returns the flag names in definition order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.flags))
	for i, f := range r.flags {
		names[i] = f.Name
	}
	return names
}

// Has reports whether a flag named name exists.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Lookup returns a copy of the bit indices for name.
func (r *Registry) Lookup(name string) ([]int, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(r.flags[i].Bits), true
}

// Width returns the number of bits of name, or 0 if it does not exist.
func (r *Registry) Width(name string) int {
	i, ok := r.index[name]
	if !ok {
		return 0
	}
	return len(r.flags[i].Bits)
}

// MaxBit returns the highest bit index used by any flag, or -1 if empty.
func (r *Registry) MaxBit() int {
	hi := -1
	for _, f := range r.flags {
		hi = max(hi, slices.Max(f.Bits))
	}
	return hi
}

// Flags returns a copy of all flags in definition order.
func (r *Registry) Flags() []Flag {
	out := make([]Flag, len(r.flags))
	for i, f := range r.flags {
		out[i] = Flag{Name: f.Name, Bits: slices.Clone(f.Bits)}
	}
	return out
}

// All iterates over flag names and bit indices in definition order.
// The yielded slices must not be modified.
func (r *Registry) All() iter.Seq2[string, []int] {
	return func(yield func(string, []int) bool) {
		for _, f := range r.flags {
			if !yield(f.Name, f.Bits) {
				return
			}
		}
	}
}

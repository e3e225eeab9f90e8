package unpackqa

import (
	"fmt"

	"github.com/hupe1980/unpackqa/registry"
)

// MaxBits is the widest supported QA code.
const MaxBits = 64

// Product describes one QA layer: its bit width and flag registry.
//
// Products are plain values; the same engine decodes every product.
type Product struct {
	Name  string
	NBits int
	Flags *registry.Registry
}

// NewProduct builds and validates a product from flag definitions.
func NewProduct(name string, nBits int, flags ...registry.Flag) (Product, error) {
	reg, err := registry.New(flags...)
	if err != nil {
		return Product{}, fmt.Errorf("%w %q: %w", ErrInvalidProduct, name, err)
	}
	p := Product{Name: name, NBits: nBits, Flags: reg}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return p, nil
}

// MustNewProduct is like NewProduct but panics on error.
func MustNewProduct(name string, nBits int, flags ...registry.Flag) Product {
	p, err := NewProduct(name, nBits, flags...)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate checks the bit width and that every flag fits inside it.
func (p Product) Validate() error {
	if p.NBits < 1 || p.NBits > MaxBits {
		return fmt.Errorf("%w %q: n_bits %d outside [1, %d]", ErrInvalidProduct, p.Name, p.NBits, MaxBits)
	}
	if p.Flags == nil {
		return fmt.Errorf("%w %q: no flag registry", ErrInvalidProduct, p.Name)
	}
	for name, bits := range p.Flags.All() {
		for _, b := range bits {
			if b >= p.NBits {
				return fmt.Errorf("%w %q: flag %q uses bit %d, but n_bits is %d", ErrInvalidProduct, p.Name, name, b, p.NBits)
			}
		}
	}
	return nil
}

// MaxValue returns the largest valid QA value, 2^NBits - 1.
func (p Product) MaxValue() uint64 {
	if p.NBits >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(p.NBits) - 1
}

// AvailableFlags returns the flag names in definition order.
func (p Product) AvailableFlags() []string {
	if p.Flags == nil {
		return nil
	}
	return p.Flags.Names()
}

package products

import (
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/unpackqa"
	"github.com/hupe1980/unpackqa/codec"
	"github.com/hupe1980/unpackqa/registry"
)

type productFile struct {
	Name  string          `json:"name"`
	NBits int             `json:"n_bits"`
	Flags []registry.Flag `json:"flags"`
}

// ParseJSON decodes and validates a product definition.
func ParseJSON(data []byte) (unpackqa.Product, error) {
	var pf productFile
	if err := gojson.Unmarshal(data, &pf); err != nil {
		return unpackqa.Product{}, fmt.Errorf("products: decode json: %w", err)
	}
	return unpackqa.NewProduct(pf.Name, pf.NBits, pf.Flags...)
}

// LoadJSON reads a product definition from r.
func LoadJSON(r io.Reader) (unpackqa.Product, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return unpackqa.Product{}, err
	}
	return ParseJSON(data)
}

// MarshalJSON encodes p in the format read by ParseJSON.
func MarshalJSON(p unpackqa.Product) ([]byte, error) {
	pf := productFile{Name: p.Name, NBits: p.NBits}
	if p.Flags != nil {
		pf.Flags = p.Flags.Flags()
	}
	return codec.GoJSON{}.MarshalIndent(pf)
}

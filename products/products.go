// Package products provides QA product definitions.
//
// Built-in tables cover common layers; other products can be loaded from JSON:
//
//	{
//	  "name": "my_sensor_qa",
//	  "n_bits": 8,
//	  "flags": [
//	    {"name": "cloud", "bits": [0]},
//	    {"name": "confidence", "bits": [1, 2]}
//	  ]
//	}
//
// Flags are an array so that their order survives decoding.
package products

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/unpackqa"
	"github.com/hupe1980/unpackqa/registry"
)

// ErrUnknownProduct is returned by ByName for an unregistered product.
var ErrUnknownProduct = errors.New("unknown product")

// Landsat8C2QAPixel is the Landsat 8-9 Collection 2 Level-2 QA_PIXEL band.
var Landsat8C2QAPixel = unpackqa.MustNewProduct("landsat8_c2_l2_qa_pixel", 16,
	registry.Flag{Name: "fill", Bits: []int{0}},
	registry.Flag{Name: "dilated_cloud", Bits: []int{1}},
	registry.Flag{Name: "cirrus", Bits: []int{2}},
	registry.Flag{Name: "cloud", Bits: []int{3}},
	registry.Flag{Name: "cloud_shadow", Bits: []int{4}},
	registry.Flag{Name: "snow", Bits: []int{5}},
	registry.Flag{Name: "clear", Bits: []int{6}},
	registry.Flag{Name: "water", Bits: []int{7}},
	registry.Flag{Name: "cloud_confidence", Bits: []int{8, 9}},
	registry.Flag{Name: "cloud_shadow_confidence", Bits: []int{10, 11}},
	registry.Flag{Name: "snow_ice_confidence", Bits: []int{12, 13}},
	registry.Flag{Name: "cirrus_confidence", Bits: []int{14, 15}},
)

// MOD09GAState1km is the MODIS MOD09GA/MYD09GA state_1km QA layer.
var MOD09GAState1km = unpackqa.MustNewProduct("mod09ga_state_1km", 16,
	registry.Flag{Name: "cloud_state", Bits: []int{0, 1}},
	registry.Flag{Name: "cloud_shadow", Bits: []int{2}},
	registry.Flag{Name: "land_water", Bits: []int{3, 4, 5}},
	registry.Flag{Name: "aerosol_quantity", Bits: []int{6, 7}},
	registry.Flag{Name: "cirrus", Bits: []int{8, 9}},
	registry.Flag{Name: "internal_cloud_algorithm", Bits: []int{10}},
	registry.Flag{Name: "internal_fire_algorithm", Bits: []int{11}},
	registry.Flag{Name: "mod35_snow_ice", Bits: []int{12}},
	registry.Flag{Name: "adjacent_to_cloud", Bits: []int{13}},
	registry.Flag{Name: "brdf_corrected", Bits: []int{14}},
	registry.Flag{Name: "internal_snow_mask", Bits: []int{15}},
)

var builtin = map[string]unpackqa.Product{
	Landsat8C2QAPixel.Name: Landsat8C2QAPixel,
	MOD09GAState1km.Name:   MOD09GAState1km,
}

// ByName returns a built-in product.
func ByName(name string) (unpackqa.Product, error) {
	p, ok := builtin[name]
	if !ok {
		return unpackqa.Product{}, fmt.Errorf("%w: %q", ErrUnknownProduct, name)
	}
	return p, nil
}

// Names returns the sorted names of the built-in products.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Package testutil provides testing utilities for unpackqa.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded RNG for generating QA rasters and a scalar decoder
// that serves as ground truth for the array-based unpacker.
//
// # Random QA Generation
//
//	rng := testutil.NewRNG(seed)
//	qa := rng.QAArray(16, 512, 512)          // uint16 values in [0, 2^16)
//	codes := rng.QACodes(1000, 12)           // raw values in [0, 2^12)
//
// # Ground Truth
//
//	v := testutil.DecodeFlag(code, []int{8, 9})
package testutil

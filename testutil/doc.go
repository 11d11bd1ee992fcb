// Package testutil provides testing utilities shared across the engine's
// test suites.
//
// This package is intended for use in tests and benchmarks only. It
// provides a seeded, thread-safe random number generator for generating
// reproducible embeddings, and helpers for building fixture document
// directories for the loader's tests.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vec := make([]float32, 128)
//	rng.FillUniform(vec)
//
// # Brute-Force Ground Truth
//
//	results := testutil.BruteForceSearch(dataset, query, k)
package testutil

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"fmt"
	"strings"
)

// Algorithm identifies one supported digest algorithm.
type Algorithm string

const (
	BLAKE3   Algorithm = "blake3"
	SHA3_256 Algorithm = "sha3-256"
	SHA3_512 Algorithm = "sha3-512"
	SHA256   Algorithm = "sha256"
	SHA512   Algorithm = "sha512"
	SHA1     Algorithm = "sha1"
	MD5      Algorithm = "md5"
)

// algorithmInfo is the fixed per-algorithm metadata.
type algorithmInfo struct {
	key    string
	hexLen int
	order  int
}

var registry = map[Algorithm]algorithmInfo{
	BLAKE3:   {key: "blake3", hexLen: 64, order: 0},
	SHA3_256: {key: "sha3_256", hexLen: 64, order: 1},
	SHA3_512: {key: "sha3_512", hexLen: 128, order: 2},
	SHA256:   {key: "sha256", hexLen: 64, order: 3},
	SHA512:   {key: "sha512", hexLen: 128, order: 4},
	SHA1:     {key: "sha1", hexLen: 40, order: 5},
	MD5:      {key: "md5", hexLen: 32, order: 6},
}

// Algorithms returns every supported algorithm in canonical order.
func Algorithms() []Algorithm {
	return []Algorithm{BLAKE3, SHA3_256, SHA3_512, SHA256, SHA512, SHA1, MD5}
}

// UnknownAlgorithmError reports a name that does not identify a
// supported algorithm.
type UnknownAlgorithmError struct {
	Name string
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported algorithm %q", e.Name)
}

// Parse resolves an algorithm name. Matching is case-insensitive and
// the record-key spelling ("sha3_256") is accepted.
func Parse(name string) (Algorithm, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for algorithm, info := range registry {
		if normalized == string(algorithm) || normalized == info.key {
			return algorithm, nil
		}
	}
	return "", &UnknownAlgorithmError{Name: name}
}

// Valid reports whether a is one of the supported algorithms.
func (a Algorithm) Valid() bool {
	_, ok := registry[a]
	return ok
}

// Key returns the field name used for this algorithm in result
// records ("sha3_256" for SHA3-256).
func (a Algorithm) Key() string {
	return registry[a].key
}

// HexLen returns the length of the algorithm's hex-encoded digest.
func (a Algorithm) HexLen() int {
	return registry[a].hexLen
}

func (a Algorithm) String() string { return string(a) }

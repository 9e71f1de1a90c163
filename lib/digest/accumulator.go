// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/hex"
	"hash"

	sha256 "github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// Accumulator ingests a byte stream in chunks and produces one
// digest. Accumulators for different algorithms share nothing, so
// one algorithm's state never influences another's result.
type Accumulator interface {
	// Algorithm identifies the accumulator's algorithm.
	Algorithm() Algorithm

	// Write ingests the next chunk. The accumulator must not retain
	// chunk after Write returns.
	Write(chunk []byte)

	// Finalize returns the lowercase hex digest of everything written.
	// Finalize must be called at most once.
	Finalize() string
}

// NewAccumulator returns a fresh accumulator for algorithm.
func NewAccumulator(algorithm Algorithm) (Accumulator, error) {
	var hasher hash.Hash
	switch algorithm {
	case BLAKE3:
		hasher = blake3.New()
	case SHA3_256:
		hasher = sha3.New256()
	case SHA3_512:
		hasher = sha3.New512()
	case SHA256:
		hasher = sha256.New()
	case SHA512:
		hasher = sha512.New()
	case SHA1:
		hasher = sha1.New()
	case MD5:
		hasher = md5.New()
	default:
		return nil, &UnknownAlgorithmError{Name: string(algorithm)}
	}
	return &hashAccumulator{algorithm: algorithm, hasher: hasher}, nil
}

// newAccumulators builds one accumulator per member of set.
func newAccumulators(set Set) ([]Accumulator, error) {
	if set.Empty() {
		return nil, ErrEmptySet
	}
	accumulators := make([]Accumulator, 0, set.Len())
	for _, algorithm := range set.members {
		accumulator, err := NewAccumulator(algorithm)
		if err != nil {
			return nil, err
		}
		accumulators = append(accumulators, accumulator)
	}
	return accumulators, nil
}

// hashAccumulator adapts a hash.Hash. Every supported algorithm has a
// hash.Hash implementation, so one variant covers the closed set.
type hashAccumulator struct {
	algorithm Algorithm
	hasher    hash.Hash
}

func (a *hashAccumulator) Algorithm() Algorithm { return a.algorithm }

func (a *hashAccumulator) Write(chunk []byte) {
	// hash.Hash.Write never returns an error.
	a.hasher.Write(chunk)
}

func (a *hashAccumulator) Finalize() string {
	return hex.EncodeToString(a.hasher.Sum(nil))
}

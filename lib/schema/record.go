// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"github.com/bureau-foundation/hasher/lib/digest"
)

// Record is the result for one file: the digest of every requested
// algorithm on success, or Error on failure. A record never carries
// both digests and an error, and never carries a digest for an
// algorithm that was not requested.
//
// The flat shape (one field per algorithm) is what table-style
// consumers bind to directly.
type Record struct {
	Path     string `json:"path"`
	BLAKE3   string `json:"blake3,omitempty"`
	SHA3_256 string `json:"sha3_256,omitempty"`
	SHA3_512 string `json:"sha3_512,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	SHA512   string `json:"sha512,omitempty"`
	SHA1     string `json:"sha1,omitempty"`
	MD5      string `json:"md5,omitempty"`

	// Error describes why the file could not be hashed.
	Error string `json:"error,omitempty"`
}

// NewRecord builds a success record from computed digests.
func NewRecord(path string, digests digest.Digests) Record {
	record := Record{Path: path}
	for algorithm, value := range digests {
		record.Set(algorithm, value)
	}
	return record
}

// FailedRecord builds a failure record.
func FailedRecord(path string, err error) Record {
	return Record{Path: path, Error: err.Error()}
}

// Failed reports whether the record carries an error.
func (r Record) Failed() bool { return r.Error != "" }

// field returns a pointer to the field holding algorithm's digest, or
// nil for an unknown algorithm.
func (r *Record) field(algorithm digest.Algorithm) *string {
	switch algorithm {
	case digest.BLAKE3:
		return &r.BLAKE3
	case digest.SHA3_256:
		return &r.SHA3_256
	case digest.SHA3_512:
		return &r.SHA3_512
	case digest.SHA256:
		return &r.SHA256
	case digest.SHA512:
		return &r.SHA512
	case digest.SHA1:
		return &r.SHA1
	case digest.MD5:
		return &r.MD5
	}
	return nil
}

// Set stores the digest for algorithm. Unknown algorithms are ignored.
func (r *Record) Set(algorithm digest.Algorithm, value string) {
	if field := r.field(algorithm); field != nil {
		*field = value
	}
}

// Get returns the digest for algorithm, or "" if absent.
func (r Record) Get(algorithm digest.Algorithm) string {
	if field := r.field(algorithm); field != nil {
		return *field
	}
	return ""
}

// Digests returns the digests present in the record.
func (r Record) Digests() digest.Digests {
	digests := make(digest.Digests)
	for _, algorithm := range digest.Algorithms() {
		if value := r.Get(algorithm); value != "" {
			digests[algorithm] = value
		}
	}
	return digests
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"errors"
	"sort"
	"strings"
)

// ErrEmptySet is returned when a set would contain no algorithms.
var ErrEmptySet = errors.New("algorithm set is empty")

// Set is an immutable, duplicate-free set of algorithms kept in
// canonical order. The zero value is the empty set.
type Set struct {
	members []Algorithm
}

// NewSet builds a set from algorithms, dropping duplicates. Returns
// ErrEmptySet if no algorithms are given and *UnknownAlgorithmError
// for an unsupported value.
func NewSet(algorithms ...Algorithm) (Set, error) {
	if len(algorithms) == 0 {
		return Set{}, ErrEmptySet
	}
	seen := make(map[Algorithm]bool, len(algorithms))
	members := make([]Algorithm, 0, len(algorithms))
	for _, algorithm := range algorithms {
		if !algorithm.Valid() {
			return Set{}, &UnknownAlgorithmError{Name: string(algorithm)}
		}
		if seen[algorithm] {
			continue
		}
		seen[algorithm] = true
		members = append(members, algorithm)
	}
	sort.Slice(members, func(i, j int) bool {
		return registry[members[i]].order < registry[members[j]].order
	})
	return Set{members: members}, nil
}

// ParseSet parses algorithm names into a set. An empty name list is
// ErrEmptySet; the first unknown name is reported.
func ParseSet(names []string) (Set, error) {
	algorithms := make([]Algorithm, 0, len(names))
	for _, name := range names {
		algorithm, err := Parse(name)
		if err != nil {
			return Set{}, err
		}
		algorithms = append(algorithms, algorithm)
	}
	return NewSet(algorithms...)
}

// Len returns the number of algorithms in the set.
func (s Set) Len() int { return len(s.members) }

// Empty reports whether the set has no algorithms.
func (s Set) Empty() bool { return len(s.members) == 0 }

// Contains reports whether algorithm is in the set.
func (s Set) Contains(algorithm Algorithm) bool {
	for _, member := range s.members {
		if member == algorithm {
			return true
		}
	}
	return false
}

// Algorithms returns the members in canonical order. The slice is a
// copy.
func (s Set) Algorithms() []Algorithm {
	return append([]Algorithm(nil), s.members...)
}

// Names returns the members' names in canonical order.
func (s Set) Names() []string {
	names := make([]string, len(s.members))
	for i, member := range s.members {
		names[i] = string(member)
	}
	return names
}

func (s Set) String() string {
	return strings.Join(s.Names(), ",")
}

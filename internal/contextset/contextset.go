// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

// Package contextset provides the multi-valued key/value bags that describe
// the situational conditions under which a permission node applies.
//
// Keys are case-insensitive and are lowercased on insert. A key may carry
// multiple values: values under the same key are alternatives (OR), while
// distinct keys must all be satisfied (AND).
package contextset

import (
	"sort"
	"strings"
)

// Well-known context keys supplied by platform adapters.
const (
	WorldKey  = "world"
	ServerKey = "server"
)

// Set is a mutable context accumulator. It is not safe for concurrent use;
// build it on one goroutine, then call Immutable to freeze it.
type Set struct {
	values map[string]map[string]struct{}
}

// New returns an empty mutable Set.
func New() *Set {
	return &Set{values: make(map[string]map[string]struct{})}
}

// Of builds a Set from alternating key/value pairs.
// Panics on an odd number of arguments (programmer error).
func Of(pairs ...string) *Set {
	if len(pairs)%2 != 0 {
		panic("contextset.Of: odd number of key/value arguments")
	}
	s := New()
	for i := 0; i < len(pairs); i += 2 {
		s.Add(pairs[i], pairs[i+1])
	}
	return s
}

// Add records a value under a key. Empty keys and values are ignored.
func (s *Set) Add(key, value string) {
	key = normalizeKey(key)
	if key == "" || value == "" {
		return
	}
	vs, ok := s.values[key]
	if !ok {
		vs = make(map[string]struct{})
		s.values[key] = vs
	}
	vs[value] = struct{}{}
}

// Has reports whether the exact key/value pair is present.
func (s *Set) Has(key, value string) bool {
	vs, ok := s.values[normalizeKey(key)]
	if !ok {
		return false
	}
	_, ok = vs[value]
	return ok
}

// HasKey reports whether any value is recorded under key.
func (s *Set) HasKey(key string) bool {
	_, ok := s.values[normalizeKey(key)]
	return ok
}

// Values returns the values recorded under key, in unspecified order.
func (s *Set) Values(key string) []string {
	vs, ok := s.values[normalizeKey(key)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(vs))
	for v := range vs {
		out = append(out, v)
	}
	return out
}

// IsEmpty reports whether the set holds no pairs.
func (s *Set) IsEmpty() bool {
	return len(s.values) == 0
}

// Size returns the number of distinct key/value pairs.
func (s *Set) Size() int {
	n := 0
	for _, vs := range s.values {
		n += len(vs)
	}
	return n
}

// Immutable returns a frozen snapshot of the set. The snapshot does not
// observe later mutations of s.
func (s *Set) Immutable() ImmutableSet {
	pairs := make([]Pair, 0, s.Size())
	for k, vs := range s.values {
		for v := range vs {
			pairs = append(pairs, Pair{Key: k, Value: v})
		}
	}
	sortPairs(pairs)
	return ImmutableSet{pairs: pairs, key: joinPairs(pairs)}
}

// Pair is a single key/value context entry.
type Pair struct {
	Key   string
	Value string
}

// ImmutableSet is a frozen context set. The zero value is the empty set,
// which satisfies every query. ImmutableSet is a value type: it is compared
// and keyed by its canonical pair encoding, so two sets built from the same
// pairs in any insertion order are equal.
type ImmutableSet struct {
	pairs []Pair
	key   string
}

// Empty is the context set with no conditions.
var Empty = ImmutableSet{}

// Has reports whether the exact key/value pair is present.
func (is ImmutableSet) Has(key, value string) bool {
	key = normalizeKey(key)
	for _, p := range is.pairs {
		if p.Key == key && p.Value == value {
			return true
		}
	}
	return false
}

// HasKey reports whether any value is recorded under key.
func (is ImmutableSet) HasKey(key string) bool {
	key = normalizeKey(key)
	for _, p := range is.pairs {
		if p.Key == key {
			return true
		}
	}
	return false
}

// Values returns the values recorded under key, in canonical order.
func (is ImmutableSet) Values(key string) []string {
	key = normalizeKey(key)
	var out []string
	for _, p := range is.pairs {
		if p.Key == key {
			out = append(out, p.Value)
		}
	}
	return out
}

// IsEmpty reports whether the set holds no pairs.
func (is ImmutableSet) IsEmpty() bool {
	return len(is.pairs) == 0
}

// Size returns the number of key/value pairs.
func (is ImmutableSet) Size() int {
	return len(is.pairs)
}

// Pairs returns the pairs in canonical (sorted) order. The returned slice
// must not be modified.
func (is ImmutableSet) Pairs() []Pair {
	return is.pairs
}

// CacheKey returns a stable canonical encoding of the set, suitable as a
// map key. Equal sets return equal cache keys.
func (is ImmutableSet) CacheKey() string {
	return is.key
}

// Equal reports value equality regardless of original insertion order.
func (is ImmutableSet) Equal(other ImmutableSet) bool {
	return is.key == other.key
}

// Mutable returns a mutable copy of the set.
func (is ImmutableSet) Mutable() *Set {
	s := New()
	for _, p := range is.pairs {
		s.Add(p.Key, p.Value)
	}
	return s
}

// Satisfies reports whether a query context satisfies this set when this
// set is used as a node's context filter: for every key in the filter, the
// query must contain at least one of the filter's values under that key.
// The empty filter is satisfied by every query.
func (is ImmutableSet) Satisfies(query ImmutableSet) bool {
	if len(is.pairs) == 0 {
		return true
	}
	// Pairs are sorted by key, so alternatives for a key are contiguous.
	i := 0
	for i < len(is.pairs) {
		key := is.pairs[i].Key
		matched := false
		for i < len(is.pairs) && is.pairs[i].Key == key {
			if query.Has(key, is.pairs[i].Value) {
				matched = true
			}
			i++
		}
		if !matched {
			return false
		}
	}
	return true
}

func (is ImmutableSet) String() string {
	if len(is.pairs) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range is.pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	b.WriteByte('}')
	return b.String()
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Key != pairs[j].Key {
			return pairs[i].Key < pairs[j].Key
		}
		return pairs[i].Value < pairs[j].Value
	})
}

func joinPairs(pairs []Pair) string {
	if len(pairs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('\x1e')
		}
		b.WriteString(p.Key)
		b.WriteByte('\x1f')
		b.WriteString(p.Value)
	}
	return b.String()
}

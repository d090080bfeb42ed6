// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

// Package node defines the immutable permission node: a single grant,
// revoke, or metadata entry with an attached context filter and optional
// expiry. Typed payloads (group inheritance, prefix/suffix, meta, weight,
// regex) are encoded in the key and decoded at build time.
package node

import (
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/permtree/permtree/internal/contextset"
)

// Node is a single permission entry. Nodes are immutable once built;
// mutation is modeled as unset-then-set of a replacement node.
type Node struct {
	key      string
	value    bool
	context  contextset.ImmutableSet
	expiry   time.Time
	metadata Metadata

	// wildcard is non-nil for keys ending in ".*".
	wildcard glob.Glob
}

// Builder assembles a Node. Zero or more With* calls followed by Build.
type Builder struct {
	key     string
	value   bool
	context contextset.ImmutableSet
	expiry  time.Time
}

// NewBuilder starts a builder for the given permission key. Key case is
// preserved (prefix/suffix/meta payloads are case-significant); permission
// matching is case-insensitive. Typed payload decoding happens in Build.
func NewBuilder(key string) *Builder {
	return &Builder{key: strings.TrimSpace(key), value: true}
}

// WithValue sets the grant/deny value. Builders default to true (grant).
func (b *Builder) WithValue(value bool) *Builder {
	b.value = value
	return b
}

// WithContext sets the context filter.
func (b *Builder) WithContext(ctx contextset.ImmutableSet) *Builder {
	b.context = ctx
	return b
}

// WithExtraContext merges additional pairs into the context filter.
func (b *Builder) WithExtraContext(extra contextset.ImmutableSet) *Builder {
	merged := b.context.Mutable()
	for _, p := range extra.Pairs() {
		merged.Add(p.Key, p.Value)
	}
	b.context = merged.Immutable()
	return b
}

// WithExpiry sets the time after which the node no longer applies.
// The zero time means the node is permanent.
func (b *Builder) WithExpiry(expiry time.Time) *Builder {
	b.expiry = expiry
	return b
}

// Build validates and constructs the node.
func (b *Builder) Build() (Node, error) {
	if b.key == "" {
		return Node{}, oops.Code("NODE_EMPTY_KEY").
			Errorf("permission node key must not be empty")
	}
	n := Node{
		key:      b.key,
		value:    b.value,
		context:  b.context,
		expiry:   b.expiry,
		metadata: parseMetadata(b.key),
	}
	if n.metadata.Kind() == KindPermission && strings.HasSuffix(b.key, ".*") {
		// No separator: a trailing wildcard covers deeper segments too,
		// so "essentials.*" also matches "essentials.fly.speed".
		// Invalid glob syntax is tolerated the same way as an invalid
		// regex pattern: the node simply never matches.
		if g, err := glob.Compile(strings.ToLower(b.key)); err == nil {
			n.wildcard = g
		}
	}
	return n, nil
}

// MustBuild is Build for keys known valid at compile time. It panics on
// error and is intended for tests and hardcoded defaults.
func (b *Builder) MustBuild() Node {
	n, err := b.Build()
	if err != nil {
		panic("node: " + err.Error())
	}
	return n
}

// Key returns the full lowercased node key.
func (n Node) Key() string { return n.key }

// Value reports whether the node grants (true) or denies (false).
func (n Node) Value() bool { return n.value }

// Context returns the node's context filter.
func (n Node) Context() contextset.ImmutableSet { return n.context }

// Metadata returns the decoded typed payload.
func (n Node) Metadata() Metadata { return n.metadata }

// IsGroupNode reports whether the node encodes group inheritance.
func (n Node) IsGroupNode() bool { return n.metadata.Kind() == KindInheritance }

// GroupName returns the inherited group name for group nodes, else "".
func (n Node) GroupName() string { return n.metadata.GroupName() }

// Temporary reports whether the node carries an expiry.
func (n Node) Temporary() bool { return !n.expiry.IsZero() }

// Expiry returns the expiry instant, or the zero time for permanent nodes.
func (n Node) Expiry() time.Time { return n.expiry }

// Expired reports whether a temporary node has lapsed at the given instant.
func (n Node) Expired(now time.Time) bool {
	return n.Temporary() && !now.Before(n.expiry)
}

// AppliesIn reports whether the node's context filter is satisfied by the
// query context.
func (n Node) AppliesIn(query contextset.ImmutableSet) bool {
	return n.context.Satisfies(query)
}

// Matches reports whether the node's key matches the queried permission:
// exact for plain keys, glob for wildcard-suffix keys, compiled pattern for
// regex nodes. Typed metadata nodes other than regex never match a
// permission query.
func (n Node) Matches(permission string) bool {
	permission = strings.ToLower(permission)
	switch n.metadata.Kind() {
	case KindRegex:
		re := n.metadata.Compiled()
		return re != nil && re.MatchString(permission)
	case KindPermission:
		if n.wildcard != nil {
			return n.wildcard.Match(permission)
		}
		return strings.EqualFold(n.key, permission)
	default:
		return false
	}
}

// Equal implements node identity for already-has/lacks checks: key, value
// and context filter must all match. Expiry and decoded metadata do not
// contribute beyond what the key encodes.
func (n Node) Equal(other Node) bool {
	return n.key == other.key &&
		n.value == other.value &&
		n.context.Equal(other.context)
}

func (n Node) String() string {
	var b strings.Builder
	b.WriteString(n.key)
	if !n.value {
		b.WriteString("=false")
	}
	if !n.context.IsEmpty() {
		b.WriteByte(' ')
		b.WriteString(n.context.String())
	}
	return b.String()
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

// Package model holds the mutable permission domain: users, groups, tracks,
// their registries, and the tagged result types for mutations.
package model

import (
	"sync"

	"github.com/permtree/permtree/internal/contextset"
	"github.com/permtree/permtree/internal/node"
)

// HolderKind distinguishes users from groups in cache keys and diagnostics.
type HolderKind string

// HolderKind constants.
const (
	KindUser  HolderKind = "user"
	KindGroup HolderKind = "group"
)

// PermissionHolder is anything that owns permission nodes and is
// identifiable by a stable key. Implemented by User and Group.
type PermissionHolder interface {
	Kind() HolderKind

	// ID is the holder's stable identity key: the UUID string for users,
	// the lowercase name for groups.
	ID() string

	// EnduringSnapshot returns a point-in-time copy of the persisted nodes
	// in insertion order.
	EnduringSnapshot() []node.Node

	// TransientSnapshot returns a point-in-time copy of the session-only
	// nodes in insertion order.
	TransientSnapshot() []node.Node
}

// ChangeListener observes node mutations on a holder. The engine registers
// one to invalidate caches and publish events; a nil listener is legal.
type ChangeListener interface {
	NodeChanged(holder PermissionHolder, n node.Node, added bool)
}

// Holder is the shared node-owning core embedded by User and Group.
//
// Two locks guard a holder. mu protects the in-memory node collections:
// mutations build a replacement slice and swap it, so snapshot readers
// never observe a half-applied change. ioMu serializes save/load cycles
// against storage and is held across I/O without blocking unrelated
// holders; it must never be acquired while holding mu.
type Holder struct {
	kind HolderKind
	id   string

	mu        sync.RWMutex
	enduring  []node.Node
	transient []node.Node

	ioMu sync.Mutex

	listener ChangeListener

	// self points at the embedding User or Group so listener callbacks
	// see the full holder, not the embedded core.
	self PermissionHolder
}

func newHolder(kind HolderKind, id string, listener ChangeListener) Holder {
	return Holder{kind: kind, id: id, listener: listener}
}

// Kind implements PermissionHolder.
func (h *Holder) Kind() HolderKind { return h.kind }

// ID implements PermissionHolder.
func (h *Holder) ID() string { return h.id }

// EnduringSnapshot implements PermissionHolder.
func (h *Holder) EnduringSnapshot() []node.Node {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]node.Node, len(h.enduring))
	copy(out, h.enduring)
	return out
}

// TransientSnapshot implements PermissionHolder.
func (h *Holder) TransientSnapshot() []node.Node {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]node.Node, len(h.transient))
	copy(out, h.transient)
	return out
}

// SetNode adds n to the enduring collection. Returns DataAlreadyHas when an
// equal node (key, value, context) is already present.
func (h *Holder) SetNode(n node.Node) DataResult {
	return h.set(n, false)
}

// SetTransientNode adds n to the transient collection.
func (h *Holder) SetTransientNode(n node.Node) DataResult {
	return h.set(n, true)
}

// UnsetNode removes the node equal to n from the enduring collection.
// Returns DataLacks when no such node is present.
func (h *Holder) UnsetNode(n node.Node) DataResult {
	return h.unset(n, false)
}

// UnsetTransientNode removes the node equal to n from the transient
// collection.
func (h *Holder) UnsetTransientNode(n node.Node) DataResult {
	return h.unset(n, true)
}

// SwapNode replaces the enduring node equal to old with replacement under a
// single lock acquisition, so no reader snapshot observes the holder holding
// neither node. Returns DataLacks when old is absent, in which case nothing
// is mutated. Both change notifications are emitted after the swap.
func (h *Holder) SwapNode(old, replacement node.Node) DataResult {
	h.mu.Lock()
	idx := -1
	for i, existing := range h.enduring {
		if existing.Equal(old) {
			idx = i
			break
		}
	}
	if idx < 0 {
		h.mu.Unlock()
		return DataLacks
	}
	dup := false
	for _, existing := range h.enduring {
		if existing.Equal(replacement) {
			dup = true
			break
		}
	}
	next := make([]node.Node, 0, len(h.enduring))
	next = append(next, h.enduring[:idx]...)
	next = append(next, h.enduring[idx+1:]...)
	if !dup {
		next = append(next, replacement)
	}
	h.enduring = next
	h.mu.Unlock()

	h.notify(old, false)
	if !dup {
		h.notify(replacement, true)
	}
	return DataSuccess
}

func (h *Holder) set(n node.Node, transient bool) DataResult {
	h.mu.Lock()
	target := &h.enduring
	if transient {
		target = &h.transient
	}
	for _, existing := range *target {
		if existing.Equal(n) {
			h.mu.Unlock()
			return DataAlreadyHas
		}
	}
	next := make([]node.Node, len(*target), len(*target)+1)
	copy(next, *target)
	*target = append(next, n)
	h.mu.Unlock()

	h.notify(n, true)
	return DataSuccess
}

func (h *Holder) unset(n node.Node, transient bool) DataResult {
	h.mu.Lock()
	target := &h.enduring
	if transient {
		target = &h.transient
	}
	idx := -1
	for i, existing := range *target {
		if existing.Equal(n) {
			idx = i
			break
		}
	}
	if idx < 0 {
		h.mu.Unlock()
		return DataLacks
	}
	removed := (*target)[idx]
	next := make([]node.Node, 0, len(*target)-1)
	next = append(next, (*target)[:idx]...)
	next = append(next, (*target)[idx+1:]...)
	*target = next
	h.mu.Unlock()

	h.notify(removed, false)
	return DataSuccess
}

// ReplaceEnduring swaps the whole enduring collection, used when loading
// from storage. No per-node change notifications are emitted; the caller is
// expected to invalidate derived state itself.
func (h *Holder) ReplaceEnduring(nodes []node.Node) {
	replacement := make([]node.Node, len(nodes))
	copy(replacement, nodes)
	h.mu.Lock()
	h.enduring = replacement
	h.mu.Unlock()
}

// ClearTransient drops every transient node, as on reload.
func (h *Holder) ClearTransient() {
	h.mu.Lock()
	dropped := h.transient
	h.transient = nil
	h.mu.Unlock()
	for _, n := range dropped {
		h.notify(n, false)
	}
}

// GroupNodesExactly returns the enduring value-true group nodes whose
// context filter equals ctx exactly. This is the membership view the track
// state machine operates on.
func (h *Holder) GroupNodesExactly(ctx contextset.ImmutableSet) []node.Node {
	var out []node.Node
	for _, n := range h.EnduringSnapshot() {
		if n.IsGroupNode() && n.Value() && n.Context().Equal(ctx) {
			out = append(out, n)
		}
	}
	return out
}

// WithIO runs fn holding the holder's save/load serialization lock. The
// structural lock is not held, so fn may perform blocking I/O; concurrent
// saves of the same holder are serialized while other holders proceed.
func (h *Holder) WithIO(fn func() error) error {
	h.ioMu.Lock()
	defer h.ioMu.Unlock()
	return fn()
}

func (h *Holder) notify(n node.Node, added bool) {
	if h.listener == nil {
		return
	}
	subject := h.self
	if subject == nil {
		subject = h
	}
	h.listener.NodeChanged(subject, n, added)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

// Package cache memoizes inheritance resolutions per (holder, context,
// filter) triple. Population is single-flight per key, and invalidation is
// a barrier: once Invalidate returns, no subsequently issued Get observes a
// pre-invalidation value. A Get already in flight when the invalidation
// lands may still deliver the stale result to its waiters; the result is
// not retained.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/permtree/permtree/internal/contextset"
	"github.com/permtree/permtree/internal/model"
	"github.com/permtree/permtree/internal/node"
	"github.com/permtree/permtree/internal/resolver"
)

// Key identifies one memoized resolution.
type Key struct {
	Holder  string
	Context string
	Filter  resolver.Filter
}

// HolderID returns the cache identity of a holder, namespaced by kind so a
// user UUID can never collide with a group name.
func HolderID(h model.PermissionHolder) string {
	return string(h.Kind()) + ":" + h.ID()
}

func groupID(name string) string {
	return string(model.KindGroup) + ":" + strings.ToLower(name)
}

type entry struct {
	done  chan struct{}
	nodes []node.Node

	// gen and epoch pin the holder generation and global epoch observed
	// when computation started; the result is only retained if neither
	// moved while the computation ran.
	gen   uint64
	epoch uint64
}

// Cache memoizes resolved node lists. The zero value is not usable; use
// New.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	gens    map[string]uint64
	epoch   uint64

	// dependents maps a group name to the cache IDs of holders known to
	// inherit from it directly. Transitive dependents are reached by
	// walking this index during invalidation.
	dependents map[string]map[string]struct{}
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries:    make(map[Key]*entry),
		gens:       make(map[string]uint64),
		dependents: make(map[string]map[string]struct{}),
	}
}

// Get returns the memoized resolution for the key, computing it via
// compute on a miss. Concurrent callers for the same key share a single
// computation: later callers block until the first completes and reuse its
// result.
func (c *Cache) Get(h model.PermissionHolder, query contextset.ImmutableSet, filter resolver.Filter, compute func() []node.Node) []node.Node {
	key := Key{Holder: HolderID(h), Context: query.CacheKey(), Filter: filter}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		lookupsTotal.WithLabelValues("hit").Inc()
		<-e.done
		return e.nodes
	}
	e := &entry{
		done:  make(chan struct{}),
		gen:   c.gens[key.Holder],
		epoch: c.epoch,
	}
	c.entries[key] = e
	c.mu.Unlock()

	lookupsTotal.WithLabelValues("miss").Inc()
	start := time.Now()
	e.nodes = compute()
	close(e.done)
	resolveDuration.Observe(time.Since(start).Seconds())

	// Drop the entry if the holder was invalidated while computing, so the
	// next Get recomputes against post-invalidation state.
	c.mu.Lock()
	if c.gens[key.Holder] != e.gen || c.epoch != e.epoch {
		if c.entries[key] == e {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	return e.nodes
}

// Invalidate drops every entry for the holder and, when the holder is a
// group, cascades to every holder known to inherit from it, directly or
// transitively.
func (c *Cache) Invalidate(h model.PermissionHolder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked(HolderID(h), make(map[string]struct{}))
}

// InvalidateID is Invalidate for callers holding only the cache identity.
func (c *Cache) InvalidateID(holderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked(holderID, make(map[string]struct{}))
}

// InvalidateAll flushes the whole cache. This is the conservative fallback
// when the reverse-inheritance index cannot be trusted, e.g. after a bulk
// load from storage.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.epoch++
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()
	invalidationsTotal.WithLabelValues("full").Inc()
}

func (c *Cache) invalidateLocked(holderID string, visited map[string]struct{}) {
	if _, seen := visited[holderID]; seen {
		return
	}
	visited[holderID] = struct{}{}

	c.gens[holderID]++
	for key := range c.entries {
		if key.Holder == holderID {
			delete(c.entries, key)
		}
	}
	invalidationsTotal.WithLabelValues("holder").Inc()

	groupPrefix := string(model.KindGroup) + ":"
	if name, ok := strings.CutPrefix(holderID, groupPrefix); ok {
		for dep := range c.dependents[name] {
			c.invalidateLocked(dep, visited)
		}
	}
}

// TrackInheritance records (or forgets) that a holder inherits from a
// group. The engine feeds this from node-change notifications so cascade
// invalidation can follow the reverse graph.
func (c *Cache) TrackInheritance(h model.PermissionHolder, group string, inherits bool) {
	group = strings.ToLower(group)
	id := HolderID(h)

	c.mu.Lock()
	defer c.mu.Unlock()
	deps, ok := c.dependents[group]
	if inherits {
		if !ok {
			deps = make(map[string]struct{})
			c.dependents[group] = deps
		}
		deps[id] = struct{}{}
		return
	}
	if ok {
		delete(deps, id)
		if len(deps) == 0 {
			delete(c.dependents, group)
		}
	}
}

// Len returns the number of live entries, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

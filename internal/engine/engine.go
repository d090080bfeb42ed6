// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

// Package engine assembles the permission core: registries, resolver,
// cache, event bus and storage. Every mutation routed through the engine
// invalidates affected cache entries and publishes a change notification.
package engine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/permtree/permtree/internal/cache"
	"github.com/permtree/permtree/internal/config"
	"github.com/permtree/permtree/internal/contextset"
	"github.com/permtree/permtree/internal/event"
	"github.com/permtree/permtree/internal/model"
	"github.com/permtree/permtree/internal/node"
	"github.com/permtree/permtree/internal/resolver"
	"github.com/permtree/permtree/internal/storage"
)

// Engine owns the in-memory permission state for one process.
type Engine struct {
	cfg   config.Config
	store storage.Store
	log   *slog.Logger

	users  *model.UserManager
	groups *model.GroupManager
	tracks *model.TrackManager

	resolver *resolver.Resolver
	cache    *cache.Cache
	bus      *event.Bus

	contexts *contextset.Accumulator
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New builds an engine. store may be nil for purely in-memory use (tests,
// embedding); save/load methods then return an error.
func New(cfg config.Config, store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		cfg:   cfg,
		store: store,
		log:   slog.Default(),
		cache: cache.New(),
		bus:   event.NewBus(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.users = model.NewUserManager(cfg.DefaultGroup, e)
	e.groups = model.NewGroupManager(cfg.DefaultGroup, e)
	e.tracks = model.NewTrackManager(e)
	e.resolver = resolver.New(e.groups, e.tracks,
		resolver.WithTieBreak(resolver.ParseTieBreak(cfg.Ordering.TieBreak)),
		resolver.WithLogger(e.log),
	)

	e.contexts = contextset.NewAccumulator()
	if cfg.Context.Server != "" {
		e.contexts.Register(contextset.NewStaticCalculator(contextset.ServerKey, cfg.Context.Server))
	}

	return e
}

// Users returns the user registry.
func (e *Engine) Users() *model.UserManager { return e.users }

// Groups returns the group registry.
func (e *Engine) Groups() *model.GroupManager { return e.groups }

// Tracks returns the track registry.
func (e *Engine) Tracks() *model.TrackManager { return e.tracks }

// Bus returns the event bus.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Config returns the engine's configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// RegisterContextCalculator adds a platform context calculator to the
// chain consulted by ContextFor.
func (e *Engine) RegisterContextCalculator(c contextset.Calculator) {
	e.contexts.Register(c)
}

// WorldRewrites returns the configured world rewrite map for platform
// adapters building a world calculator.
func (e *Engine) WorldRewrites() map[string]string {
	return e.cfg.Context.WorldRewrites
}

// ContextFor folds every registered calculator into a query context for
// the subject.
func (e *Engine) ContextFor(ctx context.Context, subject string) contextset.ImmutableSet {
	return e.contexts.ContextFor(ctx, subject)
}

// Resolve returns the holder's flattened, precedence-ordered nodes in the
// query context, memoized until the next relevant mutation.
func (e *Engine) Resolve(h model.PermissionHolder, query contextset.ImmutableSet, filter resolver.Filter) []node.Node {
	return e.cache.Get(h, query, filter, func() []node.Node {
		return e.resolver.Resolve(h, query, filter)
	})
}

// CheckPermission looks up a permission for the holder. The answer is
// Undefined when no node matches, which callers may treat as deny.
func (e *Engine) CheckPermission(h model.PermissionHolder, query contextset.ImmutableSet, permission string) resolver.Tristate {
	return resolver.PermissionValue(e.Resolve(h, query, resolver.FilterAll), permission)
}

// MetaValue looks up the effective meta value for a key.
func (e *Engine) MetaValue(h model.PermissionHolder, query contextset.ImmutableSet, key string) (string, bool) {
	return resolver.MetaValue(e.Resolve(h, query, resolver.FilterMeta), key)
}

// Prefix returns the holder's effective prefix.
func (e *Engine) Prefix(h model.PermissionHolder, query contextset.ImmutableSet) (resolver.Affix, bool) {
	return resolver.HighestPrefix(e.Resolve(h, query, resolver.FilterMeta))
}

// Suffix returns the holder's effective suffix.
func (e *Engine) Suffix(h model.PermissionHolder, query contextset.ImmutableSet) (resolver.Affix, bool) {
	return resolver.HighestSuffix(e.Resolve(h, query, resolver.FilterMeta))
}

// Promote advances the user along the named track. See
// model.Track.PromoteUser for the outcome taxonomy.
func (e *Engine) Promote(user *model.User, trackName string, query contextset.ImmutableSet, checker model.PermissionChecker, addToFirst bool) (model.PromotionResult, error) {
	t := e.tracks.GetIfLoaded(trackName)
	if t == nil {
		return model.PromotionResult{}, errTrackNotLoaded(trackName)
	}
	return t.PromoteUser(user, query, checker, addToFirst, e.groups)
}

// Demote moves the user backward along the named track.
func (e *Engine) Demote(user *model.User, trackName string, query contextset.ImmutableSet, checker model.PermissionChecker, removeFromFirst bool) (model.DemotionResult, error) {
	t := e.tracks.GetIfLoaded(trackName)
	if t == nil {
		return model.DemotionResult{}, errTrackNotLoaded(trackName)
	}
	return t.DemoteUser(user, query, checker, removeFromFirst, e.groups)
}

// NodeChanged implements model.ChangeListener. It maintains the reverse
// inheritance index, invalidates the mutated holder's cache entries (and
// transitively its dependents), and publishes the change.
func (e *Engine) NodeChanged(h model.PermissionHolder, n node.Node, added bool) {
	if n.IsGroupNode() {
		if added {
			e.cache.TrackInheritance(h, n.GroupName(), true)
		} else if !e.stillInherits(h, n.GroupName()) {
			e.cache.TrackInheritance(h, n.GroupName(), false)
		}
	}

	e.cache.Invalidate(h)

	kind := event.KindNodeAdded
	if !added {
		kind = event.KindNodeRemoved
	}
	ev := event.New(kind)
	ev.Holder = cache.HolderID(h)
	ev.Node = n.String()
	e.bus.Publish(ev)
}

// stillInherits reports whether any remaining node on the holder inherits
// the group. Holders may reference the same group under several contexts;
// the reverse index entry must outlive all but the last reference.
func (e *Engine) stillInherits(h model.PermissionHolder, group string) bool {
	for _, n := range h.TransientSnapshot() {
		if n.IsGroupNode() && n.GroupName() == group {
			return true
		}
	}
	for _, n := range h.EnduringSnapshot() {
		if n.IsGroupNode() && n.GroupName() == group {
			return true
		}
	}
	return false
}

// TrackGroupAdded implements model.TrackListener. Track shape participates
// in inherited-group ordering, so the conservative full flush is used.
func (e *Engine) TrackGroupAdded(t *model.Track, group string, before, after []string) {
	e.cache.InvalidateAll()
	ev := event.New(event.KindTrackGroupAdded)
	ev.Track = t.Name()
	ev.Group = group
	ev.Before = before
	ev.After = after
	e.bus.Publish(ev)
}

// TrackGroupRemoved implements model.TrackListener.
func (e *Engine) TrackGroupRemoved(t *model.Track, group string, before, after []string) {
	e.cache.InvalidateAll()
	ev := event.New(event.KindTrackGroupRemoved)
	ev.Track = t.Name()
	ev.Group = group
	ev.Before = before
	ev.After = after
	e.bus.Publish(ev)
}

// TrackCleared implements model.TrackListener.
func (e *Engine) TrackCleared(t *model.Track, before []string) {
	e.cache.InvalidateAll()
	ev := event.New(event.KindTrackCleared)
	ev.Track = t.Name()
	ev.Before = before
	e.bus.Publish(ev)
}

// UserPromoted implements model.TrackListener.
func (e *Engine) UserPromoted(u *model.User, t *model.Track, from, to string) {
	ev := event.New(event.KindUserPromoted)
	ev.Holder = cache.HolderID(u)
	ev.Track = t.Name()
	ev.From = from
	ev.To = to
	e.bus.Publish(ev)
}

// UserDemoted implements model.TrackListener.
func (e *Engine) UserDemoted(u *model.User, t *model.Track, from, to string) {
	ev := event.New(event.KindUserDemoted)
	ev.Holder = cache.HolderID(u)
	ev.Track = t.Name()
	ev.From = from
	ev.To = to
	e.bus.Publish(ev)
}

// Compile-time listener checks.
var (
	_ model.ChangeListener = (*Engine)(nil)
	_ model.TrackListener  = (*Engine)(nil)
)

// UserByUUID is a convenience passthrough to the user registry.
func (e *Engine) UserByUUID(id uuid.UUID) *model.User {
	return e.users.GetOrMake(id)
}

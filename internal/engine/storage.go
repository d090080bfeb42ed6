// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/permtree/permtree/internal/cache"
	"github.com/permtree/permtree/internal/model"
	"github.com/permtree/permtree/internal/storage"
)

// Save/load cycles hold only the target holder's IO lock, never its
// structural lock, so a slow disk or network backend stalls neither
// queries nor unrelated holders. On a save failure the in-memory state is
// left untouched and stays authoritative; the caller may simply retry.

func errStoreMissing() error {
	return oops.Code("STORE_MISSING").Errorf("engine has no storage backend configured")
}

func errTrackNotLoaded(name string) error {
	return oops.Code("TRACK_NOT_LOADED").With("track", name).
		Errorf("track %q is not loaded", name)
}

// LoadUser fetches the user's record, replacing the in-memory enduring
// nodes and clearing transient state. Missing records yield an empty user.
func (e *Engine) LoadUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if e.store == nil {
		return nil, errStoreMissing()
	}
	u := e.users.GetOrMake(id)
	err := u.WithIO(func() error {
		rec, err := e.store.LoadUser(ctx, id)
		if err != nil {
			return err
		}
		u.ClearTransient()
		if rec == nil {
			return nil
		}
		u.ReplaceEnduring(storage.Nodes(rec.Nodes))
		if rec.Username != "" {
			u.SetUsername(rec.Username)
		}
		u.SetPrimaryGroup(rec.PrimaryGroup)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.reindex(u)
	return u, nil
}

// SaveUser persists the user's enduring state.
func (e *Engine) SaveUser(ctx context.Context, u *model.User) error {
	if e.store == nil {
		return errStoreMissing()
	}
	return u.WithIO(func() error {
		return e.store.SaveUser(ctx, storage.RecordUser(u))
	})
}

// LoadGroup fetches a group record into the registry, creating the group
// when the record is missing.
func (e *Engine) LoadGroup(ctx context.Context, name string) (*model.Group, error) {
	if e.store == nil {
		return nil, errStoreMissing()
	}
	g := e.groups.GetOrMake(name)
	err := g.WithIO(func() error {
		rec, err := e.store.LoadGroup(ctx, name)
		if err != nil {
			return err
		}
		if rec != nil {
			g.ReplaceEnduring(storage.Nodes(rec.Nodes))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.reindex(g)
	return g, nil
}

// LoadAllGroups bulk-loads every stored group. The reverse-inheritance
// index cannot be patched incrementally across a bulk load, so the whole
// cache is flushed afterward.
func (e *Engine) LoadAllGroups(ctx context.Context) error {
	if e.store == nil {
		return errStoreMissing()
	}
	recs, err := e.store.LoadAllGroups(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		g := e.groups.GetOrMake(rec.Name)
		g.ReplaceEnduring(storage.Nodes(rec.Nodes))
		e.reindex(g)
	}
	e.cache.InvalidateAll()
	return nil
}

// SaveGroup persists the group's enduring state.
func (e *Engine) SaveGroup(ctx context.Context, g *model.Group) error {
	if e.store == nil {
		return errStoreMissing()
	}
	return g.WithIO(func() error {
		return e.store.SaveGroup(ctx, storage.RecordGroup(g))
	})
}

// DeleteGroup removes the group from storage and the registry, cascading
// cache invalidation to everything that inherited it.
func (e *Engine) DeleteGroup(ctx context.Context, name string) error {
	if e.store == nil {
		return errStoreMissing()
	}
	g := e.groups.GetIfLoaded(name)
	if g != nil {
		if err := g.WithIO(func() error { return e.store.DeleteGroup(ctx, name) }); err != nil {
			return err
		}
		e.cache.Invalidate(g)
		e.groups.Unload(name)
		return nil
	}
	return e.store.DeleteGroup(ctx, name)
}

// LoadTrack fetches a track record into the registry.
func (e *Engine) LoadTrack(ctx context.Context, name string) (*model.Track, error) {
	if e.store == nil {
		return nil, errStoreMissing()
	}
	t := e.tracks.GetOrMake(name)
	err := t.WithIO(func() error {
		rec, err := e.store.LoadTrack(ctx, name)
		if err != nil {
			return err
		}
		if rec != nil {
			t.SetGroups(rec.Groups)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.cache.InvalidateAll()
	return t, nil
}

// LoadAllTracks bulk-loads every stored track.
func (e *Engine) LoadAllTracks(ctx context.Context) error {
	if e.store == nil {
		return errStoreMissing()
	}
	recs, err := e.store.LoadAllTracks(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		e.tracks.GetOrMake(rec.Name).SetGroups(rec.Groups)
	}
	e.cache.InvalidateAll()
	return nil
}

// SaveTrack persists the track.
func (e *Engine) SaveTrack(ctx context.Context, t *model.Track) error {
	if e.store == nil {
		return errStoreMissing()
	}
	return t.WithIO(func() error {
		return e.store.SaveTrack(ctx, storage.RecordTrack(t))
	})
}

// DeleteTrack removes the track from storage and the registry.
func (e *Engine) DeleteTrack(ctx context.Context, name string) error {
	if e.store == nil {
		return errStoreMissing()
	}
	t := e.tracks.GetIfLoaded(name)
	if t != nil {
		if err := t.WithIO(func() error { return e.store.DeleteTrack(ctx, name) }); err != nil {
			return err
		}
		e.tracks.Unload(name)
		e.cache.InvalidateAll()
		return nil
	}
	return e.store.DeleteTrack(ctx, name)
}

// reindex rebuilds the reverse-inheritance entries contributed by one
// holder after a wholesale node replacement. Stale entries from before the
// replacement only cause harmless over-invalidation.
func (e *Engine) reindex(h model.PermissionHolder) {
	for _, n := range h.EnduringSnapshot() {
		if n.IsGroupNode() {
			e.cache.TrackInheritance(h, n.GroupName(), true)
		}
	}
	e.cache.InvalidateID(cache.HolderID(h))
}

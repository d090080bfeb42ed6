// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package model

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// UserManager is the in-process registry of loaded users. It is an owned
// object, passed explicitly to the resolver and engine; there are no
// package-level singletons.
type UserManager struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]*User
	defaultGroup string
	listener     ChangeListener
}

// NewUserManager creates a registry. defaultGroup is the fallback primary
// group for users with no stored value. listener may be nil.
func NewUserManager(defaultGroup string, listener ChangeListener) *UserManager {
	return &UserManager{
		users:        make(map[uuid.UUID]*User),
		defaultGroup: strings.ToLower(defaultGroup),
		listener:     listener,
	}
}

// GetIfLoaded returns the user, or nil when not loaded.
func (m *UserManager) GetIfLoaded(id uuid.UUID) *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[id]
}

// GetOrMake returns the loaded user, creating an empty one when absent.
func (m *UserManager) GetOrMake(id uuid.UUID) *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u
	}
	u := NewUser(id, m.defaultGroup, m.listener)
	m.users[id] = u
	return u
}

// Unload evicts the user from the registry.
func (m *UserManager) Unload(id uuid.UUID) {
	m.mu.Lock()
	delete(m.users, id)
	m.mu.Unlock()
}

// All returns a snapshot of every loaded user.
func (m *UserManager) All() []*User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out
}

// DefaultGroup returns the configured fallback primary group name.
func (m *UserManager) DefaultGroup() string { return m.defaultGroup }

// GroupManager is the in-process registry of loaded groups.
type GroupManager struct {
	mu       sync.RWMutex
	groups   map[string]*Group
	listener ChangeListener
}

// NewGroupManager creates a registry seeded with the default group, so the
// fallback primary group always resolves. listener may be nil.
func NewGroupManager(defaultGroup string, listener ChangeListener) *GroupManager {
	m := &GroupManager{
		groups:   make(map[string]*Group),
		listener: listener,
	}
	if defaultGroup != "" {
		m.GetOrMake(defaultGroup)
	}
	return m
}

// GetIfLoaded returns the group, or nil when not loaded.
func (m *GroupManager) GetIfLoaded(name string) *Group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.groups[strings.ToLower(name)]
}

// GetOrMake returns the loaded group, creating an empty one when absent.
func (m *GroupManager) GetOrMake(name string) *Group {
	name = strings.ToLower(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[name]; ok {
		return g
	}
	g := NewGroup(name, m.listener)
	m.groups[name] = g
	return g
}

// Unload evicts the group from the registry.
func (m *GroupManager) Unload(name string) {
	m.mu.Lock()
	delete(m.groups, strings.ToLower(name))
	m.mu.Unlock()
}

// All returns a snapshot of every loaded group.
func (m *GroupManager) All() []*Group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	return out
}

// TrackManager is the in-process registry of loaded tracks.
type TrackManager struct {
	mu       sync.RWMutex
	tracks   map[string]*Track
	listener TrackListener
}

// NewTrackManager creates a registry. listener may be nil.
func NewTrackManager(listener TrackListener) *TrackManager {
	return &TrackManager{
		tracks:   make(map[string]*Track),
		listener: listener,
	}
}

// GetIfLoaded returns the track, or nil when not loaded.
func (m *TrackManager) GetIfLoaded(name string) *Track {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracks[strings.ToLower(name)]
}

// GetOrMake returns the loaded track, creating an empty one when absent.
func (m *TrackManager) GetOrMake(name string) *Track {
	name = strings.ToLower(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tracks[name]; ok {
		return t
	}
	t := NewTrack(name, m.listener)
	m.tracks[name] = t
	return t
}

// Unload evicts the track from the registry.
func (m *TrackManager) Unload(name string) {
	m.mu.Lock()
	delete(m.tracks, strings.ToLower(name))
	m.mu.Unlock()
}

// All returns a snapshot of every loaded track.
func (m *TrackManager) All() []*Track {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Track, 0, len(m.tracks))
	for _, t := range m.tracks {
		out = append(out, t)
	}
	return out
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package model

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// User is a permission holder identified by a stable UUID. Besides its
// nodes it carries a cached display name and a primary-group pointer.
type User struct {
	Holder

	uuid uuid.UUID

	nameMu       sync.RWMutex
	username     string
	primaryGroup string

	// defaultGroup is the configured fallback when no primary group has
	// been stored. Set once at construction by the UserManager.
	defaultGroup string
}

// NewUser constructs a user. Callers normally go through
// UserManager.GetOrMake instead.
func NewUser(id uuid.UUID, defaultGroup string, listener ChangeListener) *User {
	u := &User{
		Holder:       newHolder(KindUser, id.String(), listener),
		uuid:         id,
		defaultGroup: strings.ToLower(defaultGroup),
	}
	u.self = u
	return u
}

// UUID returns the user's identity.
func (u *User) UUID() uuid.UUID { return u.uuid }

// Username returns the cached display name, or "" when never seen.
func (u *User) Username() string {
	u.nameMu.RLock()
	defer u.nameMu.RUnlock()
	return u.username
}

// SetUsername updates the cached display name.
func (u *User) SetUsername(name string) {
	u.nameMu.Lock()
	u.username = name
	u.nameMu.Unlock()
}

// PrimaryGroup returns the stored primary group, falling back to the
// configured default group when unset.
func (u *User) PrimaryGroup() string {
	u.nameMu.RLock()
	defer u.nameMu.RUnlock()
	if u.primaryGroup == "" {
		return u.defaultGroup
	}
	return u.primaryGroup
}

// StoredPrimaryGroup returns the stored value without the default-group
// fallback; "" means unset.
func (u *User) StoredPrimaryGroup() string {
	u.nameMu.RLock()
	defer u.nameMu.RUnlock()
	return u.primaryGroup
}

// SetPrimaryGroup updates the stored primary group pointer.
func (u *User) SetPrimaryGroup(group string) {
	u.nameMu.Lock()
	u.primaryGroup = strings.ToLower(group)
	u.nameMu.Unlock()
}

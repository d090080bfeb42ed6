// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

// Package event carries change notifications out of the permission core.
// Delivery is fire-and-forget: no subscriber return value influences core
// behavior, and a slow subscriber loses events rather than blocking a
// mutation.
package event

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind identifies what happened.
type Kind string

// Kind constants.
const (
	KindNodeAdded         Kind = "node_added"
	KindNodeRemoved       Kind = "node_removed"
	KindTrackGroupAdded   Kind = "track_group_added"
	KindTrackGroupRemoved Kind = "track_group_removed"
	KindTrackCleared      Kind = "track_cleared"
	KindUserPromoted      Kind = "user_promoted"
	KindUserDemoted       Kind = "user_demoted"

	// KindAny subscribes to every event; it is never published.
	KindAny Kind = "*"
)

// Event is a single change notification with before/after snapshots where
// the operation has them.
type Event struct {
	ID   ulid.ULID
	Kind Kind
	Time time.Time

	// Holder is the cache identity of the mutated holder (node and
	// promotion events).
	Holder string

	// Node is the string form of the added/removed node.
	Node string

	// Track is the track name (track and promotion events).
	Track string

	// Group is the group added to or removed from a track.
	Group string

	// From/To are the promotion or demotion endpoints; either may be ""
	// for added-to-first / removed-from-first transitions.
	From string
	To   string

	// Before/After are track group-sequence snapshots around a track
	// mutation.
	Before []string
	After  []string
}

// New stamps an event with a fresh ULID and the current time.
func New(kind Kind) Event {
	return Event{ID: ulid.Make(), Kind: kind, Time: time.Now()}
}

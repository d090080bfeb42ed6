// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package model

import (
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/permtree/permtree/internal/contextset"
	"github.com/permtree/permtree/internal/node"
)

// TrackListener observes track mutations and promotion/demotion events.
// A nil listener is legal.
type TrackListener interface {
	TrackGroupAdded(track *Track, group string, before, after []string)
	TrackGroupRemoved(track *Track, group string, before, after []string)
	TrackCleared(track *Track, before []string)
	UserPromoted(user *User, track *Track, from, to string)
	UserDemoted(user *User, track *Track, from, to string)
}

// Track is an ordered sequence of group names modeling a promotion ladder.
// A group appears at most once. Mutations swap the sequence wholesale under
// mu so concurrent readers always observe a complete list.
type Track struct {
	name string

	mu     sync.RWMutex
	groups []string

	ioMu sync.Mutex

	listener TrackListener
}

// NewTrack constructs a track. Callers normally go through
// TrackManager.GetOrMake instead.
func NewTrack(name string, listener TrackListener) *Track {
	return &Track{name: strings.ToLower(name), listener: listener}
}

// Name returns the track's lowercase name, which is also its identity key.
func (t *Track) Name() string { return t.name }

// Groups returns a copy of the ordered group sequence.
func (t *Track) Groups() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.groups))
	copy(out, t.groups)
	return out
}

// Size returns the number of groups on the track.
func (t *Track) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.groups)
}

// ContainsGroup reports whether the group features on this track.
func (t *Track) ContainsGroup(group string) bool {
	group = strings.ToLower(group)
	t.mu.RLock()
	defer t.mu.RUnlock()
	return indexOf(t.groups, group) >= 0
}

// IndexOf returns the group's position on the track, or -1 when absent.
func (t *Track) IndexOf(group string) int {
	group = strings.ToLower(group)
	t.mu.RLock()
	defer t.mu.RUnlock()
	return indexOf(t.groups, group)
}

// Next returns the group after current, or "" when current is last.
// Returns an error when current is not on the track at all.
func (t *Track) Next(current string) (string, error) {
	current = strings.ToLower(current)
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := indexOf(t.groups, current)
	if i < 0 {
		return "", oops.Code("GROUP_NOT_ON_TRACK").
			With("track", t.name).With("group", current).
			Errorf("group %q is not on track %q", current, t.name)
	}
	if i == len(t.groups)-1 {
		return "", nil
	}
	return t.groups[i+1], nil
}

// Previous returns the group before current, or "" when current is first.
// Returns an error when current is not on the track at all.
func (t *Track) Previous(current string) (string, error) {
	current = strings.ToLower(current)
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := indexOf(t.groups, current)
	if i < 0 {
		return "", oops.Code("GROUP_NOT_ON_TRACK").
			With("track", t.name).With("group", current).
			Errorf("group %q is not on track %q", current, t.name)
	}
	if i == 0 {
		return "", nil
	}
	return t.groups[i-1], nil
}

// Append adds a group to the end of the track.
func (t *Track) Append(group string) DataResult {
	group = strings.ToLower(group)
	t.mu.Lock()
	if indexOf(t.groups, group) >= 0 {
		t.mu.Unlock()
		return DataAlreadyHas
	}
	before := t.groups
	after := make([]string, len(before), len(before)+1)
	copy(after, before)
	after = append(after, group)
	t.groups = after
	t.mu.Unlock()

	if t.listener != nil {
		t.listener.TrackGroupAdded(t, group, before, after)
	}
	return DataSuccess
}

// Insert adds a group at the given position; position 0 inserts at the
// start. Returns an error when the position is out of bounds.
func (t *Track) Insert(group string, position int) (DataResult, error) {
	group = strings.ToLower(group)
	t.mu.Lock()
	if position < 0 || position > len(t.groups) {
		size := len(t.groups)
		t.mu.Unlock()
		return DataLacks, oops.Code("TRACK_POSITION_OUT_OF_BOUNDS").
			With("track", t.name).With("position", position).With("size", size).
			Errorf("insert position %d out of bounds for track of size %d", position, size)
	}
	if indexOf(t.groups, group) >= 0 {
		t.mu.Unlock()
		return DataAlreadyHas, nil
	}
	before := t.groups
	after := make([]string, 0, len(before)+1)
	after = append(after, before[:position]...)
	after = append(after, group)
	after = append(after, before[position:]...)
	t.groups = after
	t.mu.Unlock()

	if t.listener != nil {
		t.listener.TrackGroupAdded(t, group, before, after)
	}
	return DataSuccess, nil
}

// Remove drops a group from the track.
func (t *Track) Remove(group string) DataResult {
	group = strings.ToLower(group)
	t.mu.Lock()
	i := indexOf(t.groups, group)
	if i < 0 {
		t.mu.Unlock()
		return DataLacks
	}
	before := t.groups
	after := make([]string, 0, len(before)-1)
	after = append(after, before[:i]...)
	after = append(after, before[i+1:]...)
	t.groups = after
	t.mu.Unlock()

	if t.listener != nil {
		t.listener.TrackGroupRemoved(t, group, before, after)
	}
	return DataSuccess
}

// Clear removes every group from the track.
func (t *Track) Clear() {
	t.mu.Lock()
	before := t.groups
	t.groups = nil
	t.mu.Unlock()

	if t.listener != nil {
		t.listener.TrackCleared(t, before)
	}
}

// SetGroups swaps the whole sequence, used when loading from storage.
// Duplicates are dropped, first occurrence wins.
func (t *Track) SetGroups(groups []string) {
	seen := make(map[string]struct{}, len(groups))
	replacement := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.ToLower(g)
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		replacement = append(replacement, g)
	}
	t.mu.Lock()
	t.groups = replacement
	t.mu.Unlock()
}

// WithIO runs fn holding the track's save/load serialization lock.
func (t *Track) WithIO(fn func() error) error {
	t.ioMu.Lock()
	defer t.ioMu.Unlock()
	return fn()
}

// PermissionChecker decides whether the acting party may place the subject
// into the named group. Supplied per promote/demote call; nil means allow.
type PermissionChecker func(group string) bool

// PromoteUser advances the user one position along the track within the
// exact given context. See PromotionResult for the outcome taxonomy.
//
// The group sequence is snapshotted once at entry; concurrent track
// mutations do not affect an in-flight call. The user's group swap happens
// under one structural lock acquisition, so no reader snapshot observes the
// user holding neither the old nor the new track group.
//
// Promoting on a track with one or fewer groups is a precondition violation
// and returns an error rather than a result.
func (t *Track) PromoteUser(user *User, ctx contextset.ImmutableSet, checker PermissionChecker, addToFirst bool, groups *GroupManager) (PromotionResult, error) {
	seq := t.Groups()
	if len(seq) <= 1 {
		return PromotionResult{}, oops.Code("TRACK_TOO_SMALL").
			With("track", t.name).
			Errorf("track %q contains one or fewer groups, unable to promote", t.name)
	}

	matched := trackMembership(seq, user, ctx)

	if len(matched) == 0 {
		if !addToFirst {
			return promotionAddedToFirst(""), nil
		}
		first := seq[0]
		firstGroup := groups.GetIfLoaded(first)
		if firstGroup == nil {
			return promotionMalformedTrack(first), nil
		}
		if !allowed(checker, firstGroup.Name()) {
			return promotionUndefinedFailure(), nil
		}
		user.SetNode(node.MakeGroupNode(firstGroup.Name()).WithContext(ctx).MustBuild())
		if t.listener != nil {
			t.listener.UserPromoted(user, t, "", first)
		}
		return promotionAddedToFirst(first), nil
	}

	if len(matched) != 1 {
		return promotionAmbiguousCall(), nil
	}

	oldNode := matched[0]
	old := oldNode.GroupName()
	i := indexOf(seq, old)
	if i == len(seq)-1 {
		return promotionEndOfTrack(), nil
	}
	next := seq[i+1]

	nextGroup := groups.GetIfLoaded(next)
	if nextGroup == nil {
		return promotionMalformedTrack(next), nil
	}
	if !allowed(checker, nextGroup.Name()) {
		return promotionUndefinedFailure(), nil
	}

	user.SwapNode(oldNode, node.MakeGroupNode(nextGroup.Name()).WithContext(ctx).MustBuild())

	if ctx.IsEmpty() && strings.EqualFold(user.PrimaryGroup(), old) {
		user.SetPrimaryGroup(nextGroup.Name())
	}

	if t.listener != nil {
		t.listener.UserPromoted(user, t, old, nextGroup.Name())
	}
	return promotionSuccess(old, nextGroup.Name()), nil
}

// DemoteUser moves the user one position backward along the track within
// the exact given context. See DemotionResult for the outcome taxonomy.
// Snapshot and swap semantics match PromoteUser.
//
// Demoting on a track with one or fewer groups is a precondition violation
// and returns an error rather than a result.
func (t *Track) DemoteUser(user *User, ctx contextset.ImmutableSet, checker PermissionChecker, removeFromFirst bool, groups *GroupManager) (DemotionResult, error) {
	seq := t.Groups()
	if len(seq) <= 1 {
		return DemotionResult{}, oops.Code("TRACK_TOO_SMALL").
			With("track", t.name).
			Errorf("track %q contains one or fewer groups, unable to demote", t.name)
	}

	matched := trackMembership(seq, user, ctx)

	if len(matched) == 0 {
		return demotionNotOnTrack(), nil
	}
	if len(matched) != 1 {
		return demotionAmbiguousCall(), nil
	}

	oldNode := matched[0]
	old := oldNode.GroupName()
	i := indexOf(seq, old)

	if !allowed(checker, old) {
		return demotionUndefinedFailure(), nil
	}

	if i == 0 {
		if !removeFromFirst {
			return demotionRemovedFromFirst(""), nil
		}
		user.UnsetNode(oldNode)
		if t.listener != nil {
			t.listener.UserDemoted(user, t, old, "")
		}
		return demotionRemovedFromFirst(old), nil
	}
	previous := seq[i-1]

	previousGroup := groups.GetIfLoaded(previous)
	if previousGroup == nil {
		return demotionMalformedTrack(previous), nil
	}

	user.SwapNode(oldNode, node.MakeGroupNode(previousGroup.Name()).WithContext(ctx).MustBuild())

	if ctx.IsEmpty() && strings.EqualFold(user.PrimaryGroup(), old) {
		user.SetPrimaryGroup(previousGroup.Name())
	}

	if t.listener != nil {
		t.listener.UserDemoted(user, t, old, previousGroup.Name())
	}
	return demotionSuccess(old, previousGroup.Name()), nil
}

// trackMembership returns the user's enduring group nodes that sit on the
// snapshotted group sequence in the exact given context.
func trackMembership(seq []string, user *User, ctx contextset.ImmutableSet) []node.Node {
	var out []node.Node
	for _, n := range user.GroupNodesExactly(ctx) {
		if indexOf(seq, n.GroupName()) >= 0 {
			out = append(out, n)
		}
	}
	return out
}

func allowed(checker PermissionChecker, group string) bool {
	return checker == nil || checker(group)
}

func indexOf(groups []string, group string) int {
	for i, g := range groups {
		if g == group {
			return i
		}
	}
	return -1
}

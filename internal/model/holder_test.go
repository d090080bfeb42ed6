// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package model

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permtree/permtree/internal/contextset"
	"github.com/permtree/permtree/internal/node"
)

// recordingListener captures node-change notifications.
type recordingListener struct {
	mu      sync.Mutex
	changes []string
}

func (l *recordingListener) NodeChanged(h PermissionHolder, n node.Node, added bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	op := "-"
	if added {
		op = "+"
	}
	l.changes = append(l.changes, op+n.Key())
}

func (l *recordingListener) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.changes...)
}

func testUser(t *testing.T, listener ChangeListener) *User {
	t.Helper()
	return NewUser(uuid.New(), "default", listener)
}

func TestHolder_SetNode(t *testing.T) {
	u := testUser(t, nil)
	n := node.NewBuilder("essentials.fly").MustBuild()

	assert.Equal(t, DataSuccess, u.SetNode(n))
	assert.Equal(t, DataAlreadyHas, u.SetNode(n), "equal node is rejected")

	nodes := u.EnduringSnapshot()
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].Equal(n))
}

func TestHolder_SetNode_DifferentContextIsDistinct(t *testing.T) {
	u := testUser(t, nil)
	plain := node.NewBuilder("essentials.fly").MustBuild()
	nether := node.NewBuilder("essentials.fly").
		WithContext(contextset.Of("world", "nether").Immutable()).MustBuild()

	assert.Equal(t, DataSuccess, u.SetNode(plain))
	assert.Equal(t, DataSuccess, u.SetNode(nether))
	assert.Len(t, u.EnduringSnapshot(), 2)
}

func TestHolder_UnsetNode(t *testing.T) {
	u := testUser(t, nil)
	n := node.NewBuilder("essentials.fly").MustBuild()

	assert.Equal(t, DataLacks, u.UnsetNode(n))
	u.SetNode(n)
	assert.Equal(t, DataSuccess, u.UnsetNode(n))
	assert.Empty(t, u.EnduringSnapshot())
}

func TestHolder_SwapNode(t *testing.T) {
	u := testUser(t, nil)
	a := node.MakeGroupNode("member").MustBuild()
	b := node.MakeGroupNode("mod").MustBuild()

	assert.Equal(t, DataLacks, u.SwapNode(a, b), "swapping an absent node mutates nothing")
	assert.Empty(t, u.EnduringSnapshot())

	u.SetNode(a)
	assert.Equal(t, DataSuccess, u.SwapNode(a, b))
	snap := u.EnduringSnapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Equal(b))
}

func TestHolder_SwapNode_DoesNotDuplicateExistingReplacement(t *testing.T) {
	u := testUser(t, nil)
	a := node.MakeGroupNode("member").MustBuild()
	b := node.MakeGroupNode("mod").MustBuild()
	u.SetNode(a)
	u.SetNode(b)

	assert.Equal(t, DataSuccess, u.SwapNode(a, b))
	snap := u.EnduringSnapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Equal(b))
}

func TestHolder_SwapNode_NotifiesRemoveThenAdd(t *testing.T) {
	listener := &recordingListener{}
	u := testUser(t, listener)
	a := node.MakeGroupNode("member").MustBuild()
	b := node.MakeGroupNode("mod").MustBuild()

	u.SetNode(a)
	u.SwapNode(a, b)

	assert.Equal(t, []string{"+group.member", "-group.member", "+group.mod"}, listener.all())
}

func TestHolder_TransientSeparateFromEnduring(t *testing.T) {
	u := testUser(t, nil)
	n := node.NewBuilder("essentials.fly").MustBuild()

	assert.Equal(t, DataSuccess, u.SetTransientNode(n))
	assert.Equal(t, DataSuccess, u.SetNode(n), "same node may exist in both collections")
	assert.Equal(t, DataAlreadyHas, u.SetTransientNode(n))

	u.ClearTransient()
	assert.Empty(t, u.TransientSnapshot())
	assert.Len(t, u.EnduringSnapshot(), 1, "clearing transient leaves enduring alone")
}

func TestHolder_SnapshotIsACopy(t *testing.T) {
	u := testUser(t, nil)
	u.SetNode(node.NewBuilder("a").MustBuild())

	snap := u.EnduringSnapshot()
	snap[0] = node.NewBuilder("b").MustBuild()

	assert.Equal(t, "a", u.EnduringSnapshot()[0].Key())
}

func TestHolder_ListenerObservesMutations(t *testing.T) {
	listener := &recordingListener{}
	u := testUser(t, listener)
	n := node.NewBuilder("essentials.fly").MustBuild()

	u.SetNode(n)
	u.UnsetNode(n)
	u.SetNode(n)
	u.SetNode(n) // rejected, no notification

	assert.Equal(t, []string{"+essentials.fly", "-essentials.fly", "+essentials.fly"}, listener.all())
}

func TestHolder_GroupNodesExactly(t *testing.T) {
	u := testUser(t, nil)
	nether := contextset.Of("world", "nether").Immutable()

	u.SetNode(node.MakeGroupNode("mod").MustBuild())
	u.SetNode(node.MakeGroupNode("builder").WithContext(nether).MustBuild())
	u.SetNode(node.MakeGroupNode("banned").WithValue(false).MustBuild())
	u.SetNode(node.NewBuilder("essentials.fly").MustBuild())

	empty := u.GroupNodesExactly(contextset.Empty)
	require.Len(t, empty, 1, "exact-context lookup must not match the nether node or the negation")
	assert.Equal(t, "mod", empty[0].GroupName())

	inNether := u.GroupNodesExactly(nether)
	require.Len(t, inNether, 1)
	assert.Equal(t, "builder", inNether[0].GroupName())
}

func TestHolder_ConcurrentMutation(t *testing.T) {
	u := testUser(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := node.MakeWeightNode(i).MustBuild()
			u.SetNode(n)
			u.EnduringSnapshot()
			u.UnsetNode(n)
		}(i)
	}
	wg.Wait()
	assert.Empty(t, u.EnduringSnapshot())
}

func TestUser_PrimaryGroupFallsBackToDefault(t *testing.T) {
	u := NewUser(uuid.New(), "Default", nil)
	assert.Equal(t, "default", u.PrimaryGroup())
	assert.Empty(t, u.StoredPrimaryGroup())

	u.SetPrimaryGroup("Admin")
	assert.Equal(t, "admin", u.PrimaryGroup())
	assert.Equal(t, "admin", u.StoredPrimaryGroup())
}

func TestGroup_Weight(t *testing.T) {
	g := NewGroup("Admin", nil)
	assert.Equal(t, "admin", g.Name())
	assert.Equal(t, "admin", g.ID())
	assert.Equal(t, 0, g.Weight())

	g.SetNode(node.MakeWeightNode(10).MustBuild())
	g.SetNode(node.MakeWeightNode(50).MustBuild())
	assert.Equal(t, 50, g.Weight(), "highest weight node wins")

	g.SetTransientNode(node.MakeWeightNode(80).MustBuild())
	assert.Equal(t, 80, g.Weight(), "transient weight nodes count too")
}

func TestManagers_GetOrMake(t *testing.T) {
	users := NewUserManager("default", nil)
	id := uuid.New()
	u := users.GetOrMake(id)
	assert.Same(t, u, users.GetOrMake(id))
	assert.Same(t, u, users.GetIfLoaded(id))
	users.Unload(id)
	assert.Nil(t, users.GetIfLoaded(id))

	groups := NewGroupManager("default", nil)
	assert.NotNil(t, groups.GetIfLoaded("default"), "default group is seeded")
	g := groups.GetOrMake("Admin")
	assert.Same(t, g, groups.GetIfLoaded("ADMIN"), "group lookup is case-insensitive")

	tracks := NewTrackManager(nil)
	tr := tracks.GetOrMake("staff")
	assert.Same(t, tr, tracks.GetIfLoaded("staff"))
	assert.Len(t, tracks.All(), 1)
}

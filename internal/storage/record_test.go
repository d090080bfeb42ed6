// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permtree/permtree/internal/contextset"
	"github.com/permtree/permtree/internal/model"
	"github.com/permtree/permtree/internal/node"
)

func TestRecordNode_RoundTrip(t *testing.T) {
	expiry := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	original := node.NewBuilder("essentials.fly").
		WithValue(false).
		WithContext(contextset.Of("world", "nether", "server", "lobby").Immutable()).
		WithExpiry(expiry).
		MustBuild()

	rec := RecordNode(original)
	assert.Equal(t, "essentials.fly", rec.Key)
	assert.False(t, rec.Value)
	assert.Equal(t, expiry.Unix(), rec.ExpiresAt)

	restored, err := rec.Node()
	require.NoError(t, err)
	assert.True(t, restored.Equal(original))
	assert.True(t, restored.Temporary())
	assert.Equal(t, expiry.Unix(), restored.Expiry().Unix())
}

func TestRecordUser_OmitsTransientNodes(t *testing.T) {
	u := model.NewUser(uuid.New(), "default", nil)
	u.SetUsername("steve")
	u.SetPrimaryGroup("admin")
	u.SetNode(node.MakeGroupNode("admin").MustBuild())
	u.SetTransientNode(node.NewBuilder("session.only").MustBuild())

	rec := RecordUser(u)
	assert.Equal(t, u.UUID().String(), rec.UUID)
	assert.Equal(t, "steve", rec.Username)
	assert.Equal(t, "admin", rec.PrimaryGroup)
	require.Len(t, rec.Nodes, 1, "transient nodes must never be persisted")
	assert.Equal(t, "group.admin", rec.Nodes[0].Key)
}

func TestRecordGroupAndTrack(t *testing.T) {
	g := model.NewGroup("admin", nil)
	g.SetNode(node.MakeWeightNode(100).MustBuild())
	grec := RecordGroup(g)
	assert.Equal(t, "admin", grec.Name)
	require.Len(t, grec.Nodes, 1)

	tr := model.NewTrack("staff", nil)
	tr.SetGroups([]string{"member", "mod"})
	trec := RecordTrack(tr)
	assert.Equal(t, "staff", trec.Name)
	assert.Equal(t, []string{"member", "mod"}, trec.Groups)
}

func TestNodes_DropsMalformedRecords(t *testing.T) {
	records := []NodeRecord{
		{Key: "essentials.fly", Value: true},
		{Key: "", Value: true}, // empty key cannot build
		{Key: "group.admin", Value: true},
	}

	nodes := Nodes(records)
	require.Len(t, nodes, 2)
	assert.Equal(t, "essentials.fly", nodes[0].Key())
	assert.Equal(t, "group.admin", nodes[1].Key())
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

// Package storage defines the persistence boundary of the permission core.
// The core never assumes synchronous durable completion: save failures are
// surfaced to the caller and the in-memory state stays authoritative, so a
// retry loses nothing.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/permtree/permtree/internal/contextset"
	"github.com/permtree/permtree/internal/model"
	"github.com/permtree/permtree/internal/node"
)

// Store is the storage collaborator. Load methods return (nil, nil) when
// the record does not exist.
type Store interface {
	LoadUser(ctx context.Context, id uuid.UUID) (*UserRecord, error)
	SaveUser(ctx context.Context, rec *UserRecord) error

	LoadGroup(ctx context.Context, name string) (*GroupRecord, error)
	LoadAllGroups(ctx context.Context) ([]*GroupRecord, error)
	SaveGroup(ctx context.Context, rec *GroupRecord) error
	DeleteGroup(ctx context.Context, name string) error

	LoadTrack(ctx context.Context, name string) (*TrackRecord, error)
	LoadAllTracks(ctx context.Context) ([]*TrackRecord, error)
	SaveTrack(ctx context.Context, rec *TrackRecord) error
	DeleteTrack(ctx context.Context, name string) error
}

// NodeRecord is the serialized form of a node.
type NodeRecord struct {
	Key       string              `yaml:"key"`
	Value     bool                `yaml:"value"`
	Context   map[string][]string `yaml:"context,omitempty"`
	ExpiresAt int64               `yaml:"expires_at,omitempty"`
}

// UserRecord is the serialized form of a user. Only enduring nodes are
// persisted; transient nodes never reach storage.
type UserRecord struct {
	UUID         string       `yaml:"uuid"`
	Username     string       `yaml:"username,omitempty"`
	PrimaryGroup string       `yaml:"primary_group,omitempty"`
	Nodes        []NodeRecord `yaml:"nodes"`
}

// GroupRecord is the serialized form of a group.
type GroupRecord struct {
	Name  string       `yaml:"name"`
	Nodes []NodeRecord `yaml:"nodes"`
}

// TrackRecord is the serialized form of a track.
type TrackRecord struct {
	Name   string   `yaml:"name"`
	Groups []string `yaml:"groups"`
}

// RecordNode serializes a node.
func RecordNode(n node.Node) NodeRecord {
	rec := NodeRecord{Key: n.Key(), Value: n.Value()}
	if !n.Context().IsEmpty() {
		rec.Context = make(map[string][]string)
		for _, p := range n.Context().Pairs() {
			rec.Context[p.Key] = append(rec.Context[p.Key], p.Value)
		}
	}
	if n.Temporary() {
		rec.ExpiresAt = n.Expiry().Unix()
	}
	return rec
}

// Node deserializes the record.
func (r NodeRecord) Node() (node.Node, error) {
	ctx := contextset.New()
	for key, values := range r.Context {
		for _, v := range values {
			ctx.Add(key, v)
		}
	}
	b := node.NewBuilder(r.Key).
		WithValue(r.Value).
		WithContext(ctx.Immutable())
	if r.ExpiresAt != 0 {
		b = b.WithExpiry(time.Unix(r.ExpiresAt, 0))
	}
	return b.Build()
}

// RecordUser serializes a user's persisted state.
func RecordUser(u *model.User) *UserRecord {
	return &UserRecord{
		UUID:         u.UUID().String(),
		Username:     u.Username(),
		PrimaryGroup: u.StoredPrimaryGroup(),
		Nodes:        recordNodes(u.EnduringSnapshot()),
	}
}

// RecordGroup serializes a group's persisted state.
func RecordGroup(g *model.Group) *GroupRecord {
	return &GroupRecord{
		Name:  g.Name(),
		Nodes: recordNodes(g.EnduringSnapshot()),
	}
}

// RecordTrack serializes a track.
func RecordTrack(t *model.Track) *TrackRecord {
	return &TrackRecord{Name: t.Name(), Groups: t.Groups()}
}

// Nodes deserializes every node record, dropping ones that fail to build.
// Bad data degrades to a smaller node set rather than failing a load.
func Nodes(records []NodeRecord) []node.Node {
	out := make([]node.Node, 0, len(records))
	for _, rec := range records {
		n, err := rec.Node()
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func recordNodes(nodes []node.Node) []NodeRecord {
	out := make([]NodeRecord, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, RecordNode(n))
	}
	return out
}

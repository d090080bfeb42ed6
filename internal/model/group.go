// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package model

import (
	"strings"

	"github.com/permtree/permtree/internal/node"
)

// Group is a permission holder identified by its lowercase name.
type Group struct {
	Holder

	name string
}

// NewGroup constructs a group. Callers normally go through
// GroupManager.GetOrMake instead.
func NewGroup(name string, listener ChangeListener) *Group {
	g := &Group{
		Holder: newHolder(KindGroup, strings.ToLower(name), listener),
		name:   strings.ToLower(name),
	}
	g.self = g
	return g
}

// Name returns the group's lowercase name.
func (g *Group) Name() string { return g.name }

// Weight returns the group's explicit weight: the highest value among its
// weight nodes, across transient and enduring collections. Groups without a
// weight node weigh 0.
func (g *Group) Weight() int {
	weight := 0
	scan := func(nodes []node.Node) {
		for _, n := range nodes {
			if n.Metadata().Kind() == node.KindWeight && n.Value() {
				if w := n.Metadata().Weight(); w > weight {
					weight = w
				}
			}
		}
	}
	scan(g.TransientSnapshot())
	scan(g.EnduringSnapshot())
	return weight
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/permtree/permtree/internal/node"
)

func TestPermissionValue_FirstMatchWins(t *testing.T) {
	nodes := []node.Node{
		node.NewBuilder("essentials.fly").WithValue(false).MustBuild(),
		node.NewBuilder("essentials.*").MustBuild(),
	}

	assert.Equal(t, False, PermissionValue(nodes, "essentials.fly"),
		"the exact deny sits earlier and beats the wildcard grant")
	assert.Equal(t, True, PermissionValue(nodes, "essentials.heal"))
	assert.Equal(t, Undefined, PermissionValue(nodes, "worldedit.wand"))
}

func TestPermissionValue_UndefinedIsNotFalse(t *testing.T) {
	assert.Equal(t, Undefined, PermissionValue(nil, "anything"))
	assert.False(t, Undefined.AsBool())
	assert.False(t, False.AsBool())
	assert.True(t, True.AsBool())
	assert.NotEqual(t, Undefined.String(), False.String())
}

func TestMetaValue_FirstWins(t *testing.T) {
	nodes := []node.Node{
		node.MakeMetaNode("homes", "10").MustBuild(),
		node.MakeMetaNode("homes", "3").MustBuild(),
		node.MakeMetaNode("warps", "2").MustBuild(),
	}

	v, ok := MetaValue(nodes, "Homes")
	assert.True(t, ok)
	assert.Equal(t, "10", v, "earlier node wins; key match is case-insensitive")

	_, ok = MetaValue(nodes, "kits")
	assert.False(t, ok)
}

func TestMetaValue_IgnoresNegated(t *testing.T) {
	nodes := []node.Node{
		node.MakeMetaNode("homes", "10").WithValue(false).MustBuild(),
		node.MakeMetaNode("homes", "3").MustBuild(),
	}

	v, ok := MetaValue(nodes, "homes")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestHighestPrefix(t *testing.T) {
	nodes := []node.Node{
		node.MakePrefixNode(10, "[Member]").MustBuild(),
		node.MakePrefixNode(100, "[Admin]").MustBuild(),
		node.MakePrefixNode(100, "[Mod]").MustBuild(),
		node.MakePrefixNode(500, "[Banned]").WithValue(false).MustBuild(),
	}

	affix, ok := HighestPrefix(nodes)
	assert.True(t, ok)
	assert.Equal(t, 100, affix.Priority)
	assert.Equal(t, "[Admin]", affix.Text,
		"highest priority wins, ties keep the earlier node, negations are ignored")

	_, ok = HighestSuffix(nodes)
	assert.False(t, ok, "no suffix nodes present")
}

func TestHighestSuffix(t *testing.T) {
	nodes := []node.Node{
		node.MakeSuffixNode(5, " the Builder").MustBuild(),
		node.MakeSuffixNode(50, " the Verified").MustBuild(),
	}

	affix, ok := HighestSuffix(nodes)
	assert.True(t, ok)
	assert.Equal(t, 50, affix.Priority)
	assert.Equal(t, " the Verified", affix.Text)
}

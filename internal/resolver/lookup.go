// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package resolver

import (
	"fmt"
	"strings"

	"github.com/permtree/permtree/internal/node"
)

// Tristate is the outcome of a boolean permission lookup. Undefined means
// no node matched, which is distinct from an explicit false.
type Tristate int

// Tristate constants.
const (
	Undefined Tristate = iota // undefined
	True                      // true
	False                     // false
)

var tristateStrings = [...]string{
	"undefined",
	"true",
	"false",
}

func (t Tristate) String() string {
	if t >= 0 && int(t) < len(tristateStrings) {
		return tristateStrings[t]
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// AsBool collapses the tristate for callers that treat undefined as deny.
func (t Tristate) AsBool() bool { return t == True }

// PermissionValue applies first-match-wins over an ordered resolution: the
// first node whose key matches the permission decides the outcome, so an
// earlier negation overrides a later grant and vice versa.
func PermissionValue(nodes []node.Node, permission string) Tristate {
	for _, n := range nodes {
		if !n.Matches(permission) {
			continue
		}
		if n.Value() {
			return True
		}
		return False
	}
	return Undefined
}

// MetaValue returns the value of the first meta node for key. Resolution
// order already encodes precedence, so first wins.
func MetaValue(nodes []node.Node, key string) (string, bool) {
	for _, n := range nodes {
		m := n.Metadata()
		if m.Kind() == node.KindMeta && n.Value() && strings.EqualFold(m.MetaKey(), key) {
			return m.MetaValue(), true
		}
	}
	return "", false
}

// Affix is a prefix or suffix with its explicit priority.
type Affix struct {
	Priority int
	Text     string
}

// HighestPrefix collects every prefix node and returns the one with the
// highest explicit priority. Nodes below the top priority are discarded,
// not merged; a priority tie keeps the earlier (higher-precedence) node.
func HighestPrefix(nodes []node.Node) (Affix, bool) {
	return highestAffix(nodes, node.KindPrefix)
}

// HighestSuffix is HighestPrefix for suffix nodes.
func HighestSuffix(nodes []node.Node) (Affix, bool) {
	return highestAffix(nodes, node.KindSuffix)
}

func highestAffix(nodes []node.Node, kind node.MetadataKind) (Affix, bool) {
	var best Affix
	found := false
	for _, n := range nodes {
		m := n.Metadata()
		if m.Kind() != kind || !n.Value() {
			continue
		}
		if !found || m.Priority() > best.Priority {
			best = Affix{Priority: m.Priority(), Text: m.Affix()}
			found = true
		}
	}
	return best, found
}

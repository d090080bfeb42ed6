// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package node

import (
	"fmt"
	"strings"
)

// Factory helpers build the typed node keys of the grammar in metadata.go.
// They exist so callers never hand-assemble key strings.

// MakeGroupNode returns a builder for a group-inheritance node.
func MakeGroupNode(groupName string) *Builder {
	return NewBuilder(groupPrefix + strings.ToLower(groupName))
}

// MakePrefixNode returns a builder for a prefix node with the given
// priority.
func MakePrefixNode(priority int, prefix string) *Builder {
	return NewBuilder(fmt.Sprintf("%s%d.%s", prefixPrefix, priority, prefix))
}

// MakeSuffixNode returns a builder for a suffix node with the given
// priority.
func MakeSuffixNode(priority int, suffix string) *Builder {
	return NewBuilder(fmt.Sprintf("%s%d.%s", suffixPrefix, priority, suffix))
}

// MakeMetaNode returns a builder for a meta key/value node.
func MakeMetaNode(key, value string) *Builder {
	return NewBuilder(metaPrefix + key + "." + value)
}

// MakeWeightNode returns a builder for a weight node.
func MakeWeightNode(weight int) *Builder {
	return NewBuilder(fmt.Sprintf("%s%d", weightPrefix, weight))
}

// MakeDisplayNameNode returns a builder for a display-name node.
func MakeDisplayNameNode(name string) *Builder {
	return NewBuilder(displayNamePrefix + name)
}

// MakeRegexNode returns a builder for a case-insensitive regex node.
func MakeRegexNode(pattern string) *Builder {
	return NewBuilder(regexMarker + pattern)
}

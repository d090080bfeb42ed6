// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package node

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MetadataKind identifies the typed payload encoded in a node key.
type MetadataKind int

// MetadataKind constants cover every typed node form. The set is closed:
// type-specific behavior switches over these exhaustively.
const (
	KindPermission  MetadataKind = iota // permission
	KindRegex                           // regex
	KindInheritance                     // inheritance
	KindPrefix                          // prefix
	KindSuffix                          // suffix
	KindMeta                            // meta
	KindWeight                          // weight
	KindDisplayName                     // display_name
)

var metadataKindStrings = [...]string{
	"permission",
	"regex",
	"inheritance",
	"prefix",
	"suffix",
	"meta",
	"weight",
	"display_name",
}

func (k MetadataKind) String() string {
	if k >= 0 && int(k) < len(metadataKindStrings) {
		return metadataKindStrings[k]
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Metadata is the decoded typed payload of a node key. Which fields are
// meaningful depends on Kind; accessors return zero values for other kinds.
type Metadata struct {
	kind MetadataKind

	group       string
	metaKey     string
	metaValue   string
	affix       string
	priority    int
	weight      int
	displayName string

	// pattern is the raw regex source; regex is nil when the pattern did
	// not compile, in which case the node never matches anything.
	pattern string
	regex   *regexp.Regexp
}

// Kind returns the metadata kind.
func (m Metadata) Kind() MetadataKind { return m.kind }

// GroupName returns the inherited group for KindInheritance nodes.
func (m Metadata) GroupName() string { return m.group }

// MetaKey returns the meta key for KindMeta nodes.
func (m Metadata) MetaKey() string { return m.metaKey }

// MetaValue returns the meta value for KindMeta nodes.
func (m Metadata) MetaValue() string { return m.metaValue }

// Affix returns the prefix or suffix text for KindPrefix/KindSuffix nodes.
func (m Metadata) Affix() string { return m.affix }

// Priority returns the explicit priority for KindPrefix/KindSuffix nodes.
func (m Metadata) Priority() int { return m.priority }

// Weight returns the weight for KindWeight nodes.
func (m Metadata) Weight() int { return m.weight }

// DisplayName returns the display name for KindDisplayName nodes.
func (m Metadata) DisplayName() string { return m.displayName }

// Pattern returns the raw regex source for KindRegex nodes.
func (m Metadata) Pattern() string { return m.pattern }

// Compiled returns the compiled pattern for KindRegex nodes, or nil when
// the pattern failed to compile.
func (m Metadata) Compiled() *regexp.Regexp { return m.regex }

// Key prefixes of the typed node grammar.
const (
	groupPrefix       = "group."
	prefixPrefix      = "prefix."
	suffixPrefix      = "suffix."
	metaPrefix        = "meta."
	weightPrefix      = "weight."
	displayNamePrefix = "displayname."
	regexMarker       = "r="
	regexMarkerCS     = "R="
)

// parseMetadata decodes the typed payload from a node key. Keys that do not
// match any typed form decode as plain permissions. Malformed typed keys
// (e.g. a non-numeric prefix priority) also fall back to plain permissions
// so that resolution never fails on odd data.
func parseMetadata(key string) Metadata {
	switch {
	case strings.HasPrefix(key, regexMarker), strings.HasPrefix(key, regexMarkerCS):
		pattern := key[len(regexMarker):]
		src := pattern
		if strings.HasPrefix(key, regexMarker) {
			src = "(?i)" + src
		}
		re, err := regexp.Compile(src)
		if err != nil {
			re = nil
		}
		return Metadata{kind: KindRegex, pattern: pattern, regex: re}

	case strings.HasPrefix(key, groupPrefix):
		name := key[len(groupPrefix):]
		if name == "" {
			break
		}
		return Metadata{kind: KindInheritance, group: strings.ToLower(name)}

	case strings.HasPrefix(key, prefixPrefix):
		if prio, affix, ok := parseAffix(key[len(prefixPrefix):]); ok {
			return Metadata{kind: KindPrefix, priority: prio, affix: affix}
		}

	case strings.HasPrefix(key, suffixPrefix):
		if prio, affix, ok := parseAffix(key[len(suffixPrefix):]); ok {
			return Metadata{kind: KindSuffix, priority: prio, affix: affix}
		}

	case strings.HasPrefix(key, metaPrefix):
		rest := key[len(metaPrefix):]
		parts := strings.SplitN(rest, ".", 2)
		if len(parts) == 2 && parts[0] != "" {
			return Metadata{kind: KindMeta, metaKey: parts[0], metaValue: parts[1]}
		}

	case strings.HasPrefix(key, weightPrefix):
		if w, err := strconv.Atoi(key[len(weightPrefix):]); err == nil {
			return Metadata{kind: KindWeight, weight: w}
		}

	case strings.HasPrefix(key, displayNamePrefix):
		name := key[len(displayNamePrefix):]
		if name != "" {
			return Metadata{kind: KindDisplayName, displayName: name}
		}
	}
	return Metadata{kind: KindPermission}
}

// parseAffix splits "<priority>.<text>" as used by prefix/suffix keys.
func parseAffix(rest string) (priority int, affix string, ok bool) {
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	prio, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", false
	}
	return prio, parts[1], true
}

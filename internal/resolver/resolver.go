// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

// Package resolver flattens a holder's inheritance graph into an ordered
// node list for a query context. The order of the returned list directly
// encodes override precedence: earlier nodes win.
package resolver

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/permtree/permtree/internal/contextset"
	"github.com/permtree/permtree/internal/model"
	"github.com/permtree/permtree/internal/node"
)

// TieBreak selects how two inherited groups with equal explicit weight are
// ordered.
type TieBreak int

// TieBreak constants. WeightFirst is the default: explicit weight decides
// first and a shared track position only breaks weight ties, with
// later-track groups (those reached via promotion) outranking earlier ones.
// TrackFirst consults shared track position before weight.
const (
	TieBreakWeightFirst TieBreak = iota // weight_first
	TieBreakTrackFirst                  // track_first
)

var tieBreakStrings = [...]string{
	"weight_first",
	"track_first",
}

func (tb TieBreak) String() string {
	if tb >= 0 && int(tb) < len(tieBreakStrings) {
		return tieBreakStrings[tb]
	}
	return fmt.Sprintf("unknown(%d)", int(tb))
}

// ParseTieBreak maps a configuration string to a TieBreak. Unknown values
// fall back to WeightFirst.
func ParseTieBreak(s string) TieBreak {
	if strings.EqualFold(strings.TrimSpace(s), "track_first") {
		return TieBreakTrackFirst
	}
	return TieBreakWeightFirst
}

// Filter restricts which node kinds a resolution returns.
type Filter int

// Filter constants.
const (
	// FilterAll returns every node.
	FilterAll Filter = iota
	// FilterPermissions returns permission, regex and inheritance nodes.
	FilterPermissions
	// FilterMeta returns meta, prefix, suffix, weight and display-name
	// nodes.
	FilterMeta
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithTieBreak sets the group-ordering tie-break.
func WithTieBreak(tb TieBreak) Option {
	return func(r *Resolver) { r.tieBreak = tb }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger for traversal diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// Resolver walks holder inheritance graphs. It is safe for concurrent use.
type Resolver struct {
	groups   *model.GroupManager
	tracks   *model.TrackManager
	tieBreak TieBreak
	now      func() time.Time
	log      *slog.Logger
}

// New creates a Resolver over the given registries.
func New(groups *model.GroupManager, tracks *model.TrackManager, opts ...Option) *Resolver {
	r := &Resolver{
		groups:   groups,
		tracks:   tracks,
		tieBreak: TieBreakWeightFirst,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the flattened, precedence-ordered node list for the
// holder in the query context. Resolution never fails: dangling group
// references and inheritance cycles are skipped, so the caller always gets
// a best-effort answer.
func (r *Resolver) Resolve(h model.PermissionHolder, query contextset.ImmutableSet, filter Filter) []node.Node {
	visited := make(map[string]struct{})
	if h.Kind() == model.KindGroup {
		visited[h.ID()] = struct{}{}
	}

	var out []node.Node
	r.walk(h, query, r.trackSnapshots(), visited, &out)

	if filter == FilterAll {
		return out
	}
	kept := out[:0:0]
	for _, n := range out {
		if filterAccepts(filter, n) {
			kept = append(kept, n)
		}
	}
	return kept
}

func (r *Resolver) walk(h model.PermissionHolder, query contextset.ImmutableSet, tracks [][]string, visited map[string]struct{}, out *[]node.Node) {
	now := r.now()

	// Transient nodes come before enduring ones so they win ties. Within
	// each collection explicit weight metadata orders descending and
	// insertion order is the stable tiebreak.
	level := sortedByWeight(h.TransientSnapshot())
	level = append(level, sortedByWeight(h.EnduringSnapshot())...)

	var edges []edge
	for _, n := range level {
		if n.Expired(now) {
			continue
		}
		if !n.AppliesIn(query) {
			continue
		}
		*out = append(*out, n)

		if n.IsGroupNode() && n.Value() {
			edges = append(edges, edge{name: n.GroupName()})
		}
	}

	// Resolve edge targets before ordering so group weights are known.
	resolved := edges[:0]
	for _, e := range edges {
		g := r.groups.GetIfLoaded(e.name)
		if g == nil {
			// Dangling reference: the group contributes nothing further.
			// Logged distinctly from cycles for diagnostics.
			r.log.Debug("skipping dangling group reference",
				slog.String("holder", string(h.Kind())+":"+h.ID()),
				slog.String("group", e.name))
			continue
		}
		e.group = g
		e.weight = g.Weight()
		resolved = append(resolved, e)
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		return r.edgeLess(resolved[i], resolved[j], tracks)
	})

	for _, e := range resolved {
		if _, seen := visited[e.group.ID()]; seen {
			r.log.Debug("skipping already-visited group in inheritance cycle",
				slog.String("holder", string(h.Kind())+":"+h.ID()),
				slog.String("group", e.name))
			continue
		}
		visited[e.group.ID()] = struct{}{}
		r.walk(e.group, query, tracks, visited, out)
	}
}

type edge struct {
	name   string
	group  *model.Group
	weight int
}

// edgeLess orders inheritance edges: higher-weighted groups are consulted
// first; ties consult shared track position (configurable order, see
// TieBreak). Equal on both keys keeps insertion order via the stable sort.
func (r *Resolver) edgeLess(a, b edge, tracks [][]string) bool {
	tc := trackOrder(tracks, a.name, b.name)
	switch r.tieBreak {
	case TieBreakTrackFirst:
		if tc != 0 {
			return tc < 0
		}
		if a.weight != b.weight {
			return a.weight > b.weight
		}
	default:
		if a.weight != b.weight {
			return a.weight > b.weight
		}
		if tc != 0 {
			return tc < 0
		}
	}
	return false
}

// trackSnapshots returns every track's group sequence, in track name
// order for determinism. The list is snapshotted once per resolution so
// edge ordering never re-reads the registry inside the sort.
func (r *Resolver) trackSnapshots() [][]string {
	if r.tracks == nil {
		return nil
	}
	tracks := r.tracks.All()
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Name() < tracks[j].Name() })
	seqs := make([][]string, len(tracks))
	for i, t := range tracks {
		seqs[i] = t.Groups()
	}
	return seqs
}

// trackOrder compares two groups by their position on the first shared
// track: the later group (reached via promotion) outranks the earlier one.
// Returns -1 when a comes first, 1 when b comes first, 0 when no track
// lists both.
func trackOrder(tracks [][]string, a, b string) int {
	for _, seq := range tracks {
		ia, ib := groupIndex(seq, a), groupIndex(seq, b)
		if ia < 0 || ib < 0 {
			continue
		}
		if ia > ib {
			return -1
		}
		if ib > ia {
			return 1
		}
	}
	return 0
}

func groupIndex(seq []string, group string) int {
	for i, g := range seq {
		if g == group {
			return i
		}
	}
	return -1
}

func sortedByWeight(nodes []node.Node) []node.Node {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodeWeight(nodes[i]) > nodeWeight(nodes[j])
	})
	return nodes
}

func nodeWeight(n node.Node) int {
	if n.Metadata().Kind() == node.KindWeight {
		return n.Metadata().Weight()
	}
	return 0
}

func filterAccepts(f Filter, n node.Node) bool {
	switch n.Metadata().Kind() {
	case node.KindPermission, node.KindRegex, node.KindInheritance:
		return f == FilterPermissions
	default:
		return f == FilterMeta
	}
}

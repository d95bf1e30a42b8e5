package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/layout"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Layout algorithms.
const (
	AlgorithmForce    = "force"
	AlgorithmCircular = "circular"
)

// Sentinel errors returned (wrapped) by [Graph.Validate].
var (
	ErrEmptyNodeID     = errs.New(errs.ErrCodeInvalidGraph, "node id cannot be empty")
	ErrDuplicateNodeID = errs.New(errs.ErrCodeDuplicateNode, "duplicate node id")
)

// =============================================================================
// Graph - System Map Document
// =============================================================================

// Graph is the canonical document format for system maps: services,
// hosts or components as nodes, their connections as edges.
//
// Node order is significant. The force layout places nodes on its start
// grid in document order, so two graphs that differ only in node order
// produce different layouts.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes" toml:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges" toml:"edges" bson:"edges"`
}

// Node is one element of the map.
type Node struct {
	ID    string         `json:"id" yaml:"id" toml:"id" bson:"id"`
	Label string         `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty" bson:"label,omitempty"` // Display label (defaults to ID)
	Group string         `json:"group,omitempty" yaml:"group,omitempty" toml:"group,omitempty" bson:"group,omitempty"` // Free-form grouping, used for render colors
	Meta  map[string]any `json:"meta,omitempty" yaml:"meta,omitempty" toml:"meta,omitempty" bson:"meta,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge connects two nodes by ID. Direction is kept for rendering only;
// the layout treats edges as undirected springs.
type Edge struct {
	From  string `json:"from" yaml:"from" toml:"from" bson:"from"`
	To    string `json:"to" yaml:"to" toml:"to" bson:"to"`
	Label string `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty" bson:"label,omitempty"`
}

// Validate checks node IDs. Empty IDs wrap [ErrEmptyNodeID], repeated IDs
// wrap [ErrDuplicateNodeID]. Edges are not checked here, see [Graph.DanglingEdges].
func (g Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return errs.Wrap(errs.ErrCodeInvalidGraph, ErrEmptyNodeID, "node %d", i)
		}
		if err := errs.ValidateNodeID(n.ID); err != nil {
			return err
		}
		if _, dup := seen[n.ID]; dup {
			return errs.Wrap(errs.ErrCodeDuplicateNode, ErrDuplicateNodeID, "node %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

// DanglingEdges returns the edges whose endpoints are not both declared
// nodes. The layout ignores them.
func (g Graph) DanglingEdges() []Edge {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}
	var out []Edge
	for _, e := range g.Edges {
		_, okFrom := ids[e.From]
		_, okTo := ids[e.To]
		if !okFrom || !okTo {
			out = append(out, e)
		}
	}
	return out
}

// Hash returns a hex SHA-256 of the graph's JSON encoding. It changes
// whenever anything that reaches the layout output changes, including
// node order and metadata.
func (g Graph) Hash() string {
	data, err := json.Marshal(g)
	if err != nil {
		// Meta values that cannot be encoded still need a stable key.
		data = []byte(err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// =============================================================================
// Engine Conversion
// =============================================================================

// LayoutNodes converts the graph's nodes to engine nodes, in order.
func (g Graph) LayoutNodes() []layout.Node {
	out := make([]layout.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = layout.Node{ID: n.ID, Label: n.DisplayLabel(), Meta: n.Meta}
	}
	return out
}

// LayoutEdges converts the graph's edges to engine edges.
func (g Graph) LayoutEdges() []layout.Edge {
	return toLayoutEdges(g.Edges)
}

func toLayoutEdges(edges []Edge) []layout.Edge {
	out := make([]layout.Edge, len(edges))
	for i, e := range edges {
		out[i] = layout.Edge{Source: e.From, Target: e.To}
	}
	return out
}

package graph

import (
	"encoding/json"
	"fmt"
	"os"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/layout"
)

// =============================================================================
// Layout - Serialized Layout Result
// =============================================================================

// Layout is the serialized result of a layout run: every node's box in
// canvas coordinates plus the edges needed to draw it.
//
// X and Y are the centre of a node's box. The canvas origin is the
// top-left corner with Y growing downwards.
type Layout struct {
	Algorithm string  `json:"algorithm" bson:"algorithm"`
	Width     float64 `json:"width" bson:"width"`
	Height    float64 `json:"height" bson:"height"`
	// Seed is zero for circular layouts. Stored separately by the Mongo
	// store since BSON has no unsigned 64-bit integer.
	Seed      uint64           `json:"seed,omitempty" bson:"-"`
	Scale     float64          `json:"scale,omitempty" bson:"scale,omitempty"`
	Crossings int              `json:"crossings" bson:"crossings"`
	GraphHash string           `json:"graph_hash,omitempty" bson:"graph_hash,omitempty"`
	Nodes     []PositionedNode `json:"nodes" bson:"nodes"`
	Edges     []Edge           `json:"edges,omitempty" bson:"edges,omitempty"`
}

// PositionedNode is a node with its box.
type PositionedNode struct {
	ID     string         `json:"id" bson:"id"`
	Label  string         `json:"label,omitempty" bson:"label,omitempty"`
	Group  string         `json:"group,omitempty" bson:"group,omitempty"`
	X      float64        `json:"x" bson:"x"`
	Y      float64        `json:"y" bson:"y"`
	Width  float64        `json:"width" bson:"width"`
	Height float64        `json:"height" bson:"height"`
	Meta   map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// TopLeft returns the top-left corner of the node's box.
func (n PositionedNode) TopLeft() (x, y float64) {
	return n.X - n.Width/2, n.Y - n.Height/2
}

// NewLayout builds the serialized layout of g from an engine result.
// res.Nodes must be in the order of g.Nodes, which every engine entry
// point guarantees.
func NewLayout(g Graph, algorithm string, width, height float64, res layout.Result) Layout {
	nodes := make([]PositionedNode, len(res.Nodes))
	for i, p := range res.Nodes {
		nodes[i] = PositionedNode{
			ID:     p.ID,
			Label:  p.Label,
			X:      p.X,
			Y:      p.Y,
			Width:  p.Width,
			Height: p.Height,
			Meta:   p.Meta,
		}
		if i < len(g.Nodes) {
			nodes[i].Group = g.Nodes[i].Group
		}
	}
	edges := make([]Edge, len(g.Edges))
	copy(edges, g.Edges)
	return Layout{
		Algorithm: algorithm,
		Width:     width,
		Height:    height,
		Seed:      res.Stats.Seed,
		Scale:     res.Stats.Scale,
		Crossings: res.Stats.CrossingsAfter,
		GraphHash: g.Hash(),
		Nodes:     nodes,
		Edges:     edges,
	}
}

// Positioned converts the layout back to engine boxes, for recounting
// crossings or running another refinement pass.
func (l Layout) Positioned() []layout.Positioned {
	out := make([]layout.Positioned, len(l.Nodes))
	for i, n := range l.Nodes {
		out[i] = layout.Positioned{
			Node:   layout.Node{ID: n.ID, Label: n.Label, Meta: n.Meta},
			X:      n.X,
			Y:      n.Y,
			Width:  n.Width,
			Height: n.Height,
		}
	}
	return out
}

// LayoutEdges converts the layout's edges to engine edges.
func (l Layout) LayoutEdges() []layout.Edge {
	return toLayoutEdges(l.Edges)
}

// Node returns the positioned node with the given ID.
func (l Layout) Node(id string) (PositionedNode, bool) {
	for _, n := range l.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return PositionedNode{}, false
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout and checks that
// it describes a drawable canvas.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "unmarshal layout")
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate checks canvas size and node IDs.
func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return errs.New(errs.ErrCodeInvalidFormat, "layout canvas must be positive, got %gx%g", l.Width, l.Height)
	}
	seen := make(map[string]struct{}, len(l.Nodes))
	for _, n := range l.Nodes {
		if n.ID == "" {
			return errs.Wrap(errs.ErrCodeInvalidFormat, ErrEmptyNodeID, "layout node")
		}
		if _, dup := seen[n.ID]; dup {
			return errs.Wrap(errs.ErrCodeInvalidFormat, ErrDuplicateNodeID, "layout node %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Layout{}, errs.Wrap(errs.ErrCodeFileNotFound, err, "layout file %s", path)
		}
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}

// IsLayoutDocument reports whether data looks like a serialized Layout
// rather than a graph document. Used by commands that accept either.
func IsLayoutDocument(data []byte) bool {
	var probe struct {
		Algorithm string          `json:"algorithm"`
		Nodes     json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.Algorithm != ""
}

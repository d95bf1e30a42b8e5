package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
)

func testLayout() graph.Layout {
	return graph.Layout{
		Algorithm: graph.AlgorithmForce,
		Width:     800,
		Height:    600,
		Nodes: []graph.PositionedNode{
			{ID: "api", Label: "API", Group: "edge", X: 100, Y: 50, Width: 140, Height: 70},
			{ID: "db", Group: "data", X: 500, Y: 400, Width: 140, Height: 70, Meta: map[string]any{"engine": "postgres", "az": "b"}},
			{ID: "cache", Group: "edge", X: 600, Y: 100, Width: 140, Height: 70},
		},
		Edges: []graph.Edge{
			{From: "api", To: "db", Label: "sql"},
			{From: "api", To: "cache"},
		},
	}
}

func TestToDOTPinsPositions(t *testing.T) {
	dot := ToDOT(testLayout(), Options{})

	for _, want := range []string{
		`"api" [label="API", pos="100.00,550.00!", width=1.9444, height=0.9722`,
		`"db" [label="db", pos="500.00,200.00!"`,
		`"api" -> "db";`,
		`inputscale=72`,
		`bb="0,0,800.00,600.00"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTGroupColors(t *testing.T) {
	dot := ToDOT(testLayout(), Options{})
	edge := `fillcolor="` + groupPalette[0] + `"`
	data := `fillcolor="` + groupPalette[1] + `"`
	if strings.Count(dot, edge) != 2 {
		t.Errorf("both edge-group nodes should use %s:\n%s", groupPalette[0], dot)
	}
	if strings.Count(dot, data) != 1 {
		t.Errorf("data group should use %s:\n%s", groupPalette[1], dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(testLayout(), Options{Detailed: true, EdgeLabels: true})
	if !strings.Contains(dot, `label="db\ngroup: data\naz: b\nengine: postgres"`) {
		t.Errorf("detailed label missing or unsorted:\n%s", dot)
	}
	if !strings.Contains(dot, `"api" -> "db" [label="sql"];`) {
		t.Errorf("edge label missing:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<?xml version="1.0"?><svg width="600pt" height="450pt" viewBox="0.00 0.00 600.00 450.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := normalizeViewBox(in)
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 600.00 450.00" width="600" height="450">`
	if !bytes.Contains(out, []byte(want)) {
		t.Errorf("normalizeViewBox() = %s", out)
	}

	plain := []byte(`<svg><g/></svg>`)
	if !bytes.Equal(normalizeViewBox(plain), plain) {
		t.Error("SVG without viewBox must pass through")
	}
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	l := testLayout()

	data, err := Render(ctx, l, FormatJSON, Options{})
	if err != nil {
		t.Fatal(err)
	}
	back, err := graph.UnmarshalLayout(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Nodes) != 3 {
		t.Errorf("json round trip lost nodes: %d", len(back.Nodes))
	}

	dot, err := Render(ctx, l, FormatDOT, Options{})
	if err != nil || !bytes.HasPrefix(dot, []byte("digraph G {")) {
		t.Errorf("dot = %q, %v", dot, err)
	}

	_, err = Render(ctx, l, "pdf", Options{})
	if !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(testLayout(), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) || !bytes.Contains(svg, []byte("API")) {
		t.Errorf("unexpected SVG output: %.200s", svg)
	}
}

func TestToASCII(t *testing.T) {
	out := ToASCII(testLayout(), 81, 31)
	lines := strings.Split(out, "\n")
	if len(lines) != 31 {
		t.Fatalf("rows = %d, want 31", len(lines))
	}
	for _, want := range []string{"API", "db", "cache", "┌", "┘", "·"} {
		if !strings.Contains(out, want) {
			t.Errorf("ASCII output missing %q:\n%s", want, out)
		}
	}
	if ToASCII(testLayout(), 0, 10) != "" {
		t.Error("zero columns should render nothing")
	}
}

package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

// Formats lists every supported output format.
var Formats = []string{FormatJSON, FormatDOT, FormatSVG, FormatPNG}

// Render produces one artifact for l.
func Render(ctx context.Context, l graph.Layout, format string, opts Options) ([]byte, error) {
	switch format {
	case FormatJSON:
		return graph.MarshalLayout(l)
	case FormatDOT:
		return []byte(ToDOT(l, opts)), nil
	case FormatSVG:
		return RenderSVG(ctx, ToDOT(l, opts))
	case FormatPNG:
		return RenderPNG(ctx, ToDOT(l, opts))
	default:
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported output format %q", format)
	}
}

// RenderSVG renders pinned DOT source to SVG with neato.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := run(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders pinned DOT source to PNG with neato.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return run(ctx, dot, graphviz.PNG)
}

func run(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one
// that scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

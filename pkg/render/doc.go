// Package render draws serialized layouts.
//
// Positions always come from the layout. [ToDOT] emits Graphviz DOT in
// which every node is pinned with pos="x,y!", and [RenderSVG] and
// [RenderPNG] run it through neato, which only routes the edges. The
// picture therefore matches the coordinates in the layout file exactly,
// with the Y axis flipped into Graphviz's bottom-up convention.
//
//	dot := render.ToDOT(l, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// [ToASCII] rasterises a layout onto a character grid for terminal
// previews.
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz], which runs Graphviz
// in-process, so no external binaries are required.
package render

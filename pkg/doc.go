// Package pkg provides the core libraries for sysmap system-map layouts.
//
// # Overview
//
// sysmap positions the systems of an interconnection graph on a 2D canvas
// so that connected systems sit close together and edges cross as little
// as possible. The pkg directory is organized into these areas:
//
//  1. [layout] - Layout engine (grid placement, force simulation, crossing
//     refinement, normalization, circular layout)
//  2. [graph] - Serialization types for graphs and layouts
//  3. [pipeline] - Orchestration (parse → layout → render) with caching
//  4. [render] - Output formats (JSON, DOT, SVG, PNG, ASCII)
//  5. [cache] and [store] - Infrastructure for cached and saved layouts
//
// # Architecture
//
// The typical data flow:
//
//	graph.json / graph.yaml
//	         ↓
//	    [graph] package (parse + validate)
//	         ↓
//	    [layout] package (compute positions)
//	         ↓
//	    [render] package (DOT, SVG, PNG, JSON)
//
// # Quick Start
//
//	g, _ := graph.ReadFile("systems.yaml")
//	res, _ := pipeline.NewRunner(nil, nil, nil).Execute(ctx, g, pipeline.Options{
//	    Seed:    42,
//	    Formats: []string{"svg"},
//	})
//	os.WriteFile("systems.svg", res.Artifacts["svg"], 0o644)
//
// # Supporting Packages
//
// [errors] - Error codes shared by the CLI and the HTTP API.
//
// [observability] - Hooks for metrics and tracing, with a Prometheus
// implementation in observability/prom.
//
// [buildinfo] - Version information injected at build time.
//
// # Testing
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/layout/...   # Specific package
//	go test -run Example       # Examples only
//
// [layout]: https://pkg.go.dev/github.com/matzehuels/sysmap/pkg/layout
// [graph]: https://pkg.go.dev/github.com/matzehuels/sysmap/pkg/graph
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/sysmap/pkg/pipeline
// [render]: https://pkg.go.dev/github.com/matzehuels/sysmap/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/sysmap/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/sysmap/pkg/store
// [errors]: https://pkg.go.dev/github.com/matzehuels/sysmap/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/sysmap/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/sysmap/pkg/buildinfo
package pkg

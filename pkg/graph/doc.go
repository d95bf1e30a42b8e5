// Package graph defines sysmap's document formats: the input [Graph] and
// the serialized [Layout].
//
// # Graph Documents
//
// A graph is a list of nodes and a list of edges. JSON, YAML and TOML
// encodings share the same field names:
//
//	{
//	  "nodes": [{"id": "api", "group": "edge"}, {"id": "db"}],
//	  "edges": [{"from": "api", "to": "db"}]
//	}
//
// The same graph in TOML:
//
//	[[nodes]]
//	id = "api"
//	group = "edge"
//
//	[[nodes]]
//	id = "db"
//
//	[[edges]]
//	from = "api"
//	to = "db"
//
// [ReadFile] and [WriteFile] pick the codec from the file extension.
// Reading validates node IDs; edges whose endpoints are missing are kept
// in the document and reported by [Graph.DanglingEdges].
//
// # Layouts
//
// [NewLayout] turns a pkg/layout result into a [Layout] document that
// records the algorithm, canvas, seed, final crossing count and the
// content hash of the source graph. Layouts are always JSON.
//
// # Concurrency
//
// Graph and Layout are plain values. Sharing them between goroutines is
// safe as long as nobody mutates the slices or Meta maps.
package graph

package graph_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/sysmap/pkg/graph"
)

func ExampleRead() {
	doc := `
nodes:
  - id: api
  - id: db
edges:
  - from: api
    to: db
  - from: api
    to: cache
`
	g, err := graph.Read(strings.NewReader(doc), graph.FormatYAML)
	if err != nil {
		panic(err)
	}
	fmt.Println("nodes:", len(g.Nodes))
	fmt.Println("dangling:", len(g.DanglingEdges()))
	// Output:
	// nodes: 2
	// dangling: 1
}

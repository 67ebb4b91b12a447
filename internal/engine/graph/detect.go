// # internal/engine/graph/detect.go
package graph

import (
	"context"
	"fmt"
)

type color uint8

const (
	unvisited color = iota
	inProgress
	done
)

// ctxCheckInterval is how many nodes are entered between context checks.
const ctxCheckInterval = 1024

type frame struct {
	v    vertex
	next int // index of the next outgoing target to examine
}

// traversal holds the per-call search state. It is never shared between calls.
type traversal struct {
	ctx     context.Context
	adj     map[vertex][]vertex
	colors  map[vertex]color
	stack   []frame
	entered int
}

// IsDAG reports whether the graph formed by nodes and edges has no directed
// cycle. Edges whose source is not a known node are ignored and targets that
// are not known nodes are skipped. Nodes are used as given: a repeated id
// simply names the same vertex again, and a node without an id is no vertex.
func IsDAG(nodes []Node, edges []Edge) bool {
	ok, _ := isDAG(context.Background(), nodes, edges)
	return ok
}

// Detect validates the node list and then runs cycle detection.
func Detect(nodes []Node, edges []Edge) (bool, error) {
	return DetectContext(context.Background(), nodes, edges)
}

// DetectContext is Detect with cancellation. The context is polled while
// the traversal enters new nodes, so very large graphs can be abandoned.
func DetectContext(ctx context.Context, nodes []Node, edges []Edge) (bool, error) {
	if err := ValidateNodes(nodes); err != nil {
		return false, err
	}
	return isDAG(ctx, nodes, edges)
}

// Analyze validates p and returns its counts and DAG status.
func Analyze(ctx context.Context, p Pipeline) (Summary, error) {
	ok, err := DetectContext(ctx, p.Nodes, p.Edges)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		NumNodes: len(p.Nodes),
		NumEdges: len(p.Edges),
		IsDAG:    ok,
	}, nil
}

// ValidateNodes rejects nodes without an identifier and repeated identifiers.
// The empty string is an identifier like any other.
func ValidateNodes(nodes []Node) error {
	seen := make(map[vertex]int, len(nodes))
	for i, n := range nodes {
		field := fmt.Sprintf("nodes[%d].id", i)
		v := n.key()
		if v.missing() {
			return &InputError{Field: field, Msg: "node is missing an id"}
		}
		if first, dup := seen[v]; dup {
			return &InputError{
				Field: field,
				Msg:   fmt.Sprintf("duplicate node id %s (first declared at nodes[%d])", v, first),
			}
		}
		seen[v] = i
	}
	return nil
}

// buildAdjacency maps every known node id to its outgoing targets in edge
// order. Edges from unknown sources contribute nothing.
func buildAdjacency(nodes []Node, edges []Edge) map[vertex][]vertex {
	adj := make(map[vertex][]vertex, len(nodes))
	for _, n := range nodes {
		v := n.key()
		if v.missing() {
			continue
		}
		if _, ok := adj[v]; !ok {
			adj[v] = nil
		}
	}
	for _, e := range edges {
		src := e.from()
		if _, ok := adj[src]; ok {
			adj[src] = append(adj[src], e.to())
		}
	}
	return adj
}

func isDAG(ctx context.Context, nodes []Node, edges []Edge) (bool, error) {
	if len(nodes) == 0 {
		return true, nil
	}

	t := &traversal{
		ctx:    ctx,
		adj:    buildAdjacency(nodes, edges),
		colors: make(map[vertex]color, len(nodes)),
	}
	for _, n := range nodes {
		root := n.key()
		if root.missing() || t.colors[root] != unvisited {
			continue
		}
		cyclic, err := t.walk(root)
		if err != nil {
			return false, err
		}
		if cyclic {
			return false, nil
		}
	}
	return true, nil
}

// walk runs an explicit-stack depth-first search from root and reports
// whether it reached a node that is still on the current path.
func (t *traversal) walk(root vertex) (bool, error) {
	if err := t.enter(root); err != nil {
		return false, err
	}

	for len(t.stack) > 0 {
		top := &t.stack[len(t.stack)-1]
		targets := t.adj[top.v]
		if top.next == len(targets) {
			t.colors[top.v] = done
			t.stack = t.stack[:len(t.stack)-1]
			continue
		}

		target := targets[top.next]
		top.next++

		if _, known := t.adj[target]; !known {
			continue
		}
		switch t.colors[target] {
		case inProgress:
			t.stack = t.stack[:0]
			return true, nil
		case unvisited:
			if err := t.enter(target); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

func (t *traversal) enter(v vertex) error {
	t.entered++
	if t.entered%ctxCheckInterval == 0 {
		if err := t.ctx.Err(); err != nil {
			t.stack = t.stack[:0]
			return err
		}
	}
	t.colors[v] = inProgress
	t.stack = append(t.stack, frame{v: v})
	return nil
}

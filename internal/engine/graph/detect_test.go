package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func nodes(ids ...string) []Node {
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, Node{ID: id})
	}
	return out
}

func edge(source, target string) Edge {
	return Edge{Source: source, Target: target}
}

func TestIsDAG(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		edges []Edge
		want  bool
	}{
		{name: "empty", want: true},
		{name: "single edge", nodes: nodes("A", "B"), edges: []Edge{edge("A", "B")}, want: true},
		{name: "two cycle", nodes: nodes("A", "B"), edges: []Edge{edge("A", "B"), edge("B", "A")}, want: false},
		{name: "self loop", nodes: nodes("A"), edges: []Edge{edge("A", "A")}, want: false},
		{name: "chain", nodes: nodes("A", "B", "C"), edges: []Edge{edge("A", "B"), edge("B", "C")}, want: true},
		{
			name:  "chain closed",
			nodes: nodes("A", "B", "C"),
			edges: []Edge{edge("A", "B"), edge("B", "C"), edge("C", "A")},
			want:  false,
		},
		{
			name:  "cyclic second component",
			nodes: nodes("A", "B", "C", "D"),
			edges: []Edge{edge("A", "B"), edge("C", "D"), edge("D", "C")},
			want:  false,
		},
		{
			name:  "diamond",
			nodes: nodes("A", "B", "C", "D"),
			edges: []Edge{edge("A", "B"), edge("A", "C"), edge("B", "D"), edge("C", "D")},
			want:  true,
		},
		{
			name:  "duplicate edges",
			nodes: nodes("A", "B"),
			edges: []Edge{edge("A", "B"), edge("A", "B"), edge("A", "B")},
			want:  true,
		},
		{name: "dangling target", nodes: nodes("A"), edges: []Edge{edge("A", "ghost")}, want: true},
		{
			name:  "dangling source is dropped",
			nodes: nodes("A", "B"),
			edges: []Edge{edge("ghost", "A"), edge("A", "B"), edge("B", "ghost")},
			want:  true,
		},
		{
			name:  "cycle reached late in edge order",
			nodes: nodes("A", "B", "C", "D"),
			edges: []Edge{edge("A", "B"), edge("A", "C"), edge("C", "D"), edge("D", "A")},
			want:  false,
		},
		{
			name:  "cycle not reachable from first node",
			nodes: nodes("A", "B", "C"),
			edges: []Edge{edge("B", "C"), edge("C", "B")},
			want:  false,
		},
		{name: "edges without nodes", edges: []Edge{edge("A", "A")}, want: true},
		{
			name:  "missing ids are not vertices",
			nodes: []Node{{Kind: MissingID}, {ID: "A"}},
			edges: []Edge{{SourceKind: MissingID, Target: "A"}, {Source: "A", TargetKind: MissingID}},
			want:  true,
		},
		{
			name:  "string and number ids differ",
			nodes: []Node{{ID: "1"}, {ID: "1", Kind: NumberID}},
			edges: []Edge{{Source: "1", Target: "1", TargetKind: NumberID}},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDAG(tt.nodes, tt.edges); got != tt.want {
				t.Errorf("IsDAG() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDAG_Idempotent(t *testing.T) {
	n := nodes("A", "B", "C")
	e := []Edge{edge("A", "B"), edge("B", "C"), edge("C", "A")}

	first := IsDAG(n, e)
	second := IsDAG(n, e)
	if first != second {
		t.Fatalf("expected identical results, got %v then %v", first, second)
	}
	if len(n) != 3 || len(e) != 3 || e[2] != edge("C", "A") {
		t.Fatalf("inputs were mutated: %v %v", n, e)
	}
}

func TestIsDAG_DuplicateNodeIDsAreTolerated(t *testing.T) {
	if !IsDAG(nodes("A", "A", "B"), []Edge{edge("A", "B")}) {
		t.Error("expected duplicate ids to name the same vertex")
	}
	if IsDAG(nodes("A", "B", "A"), []Edge{edge("A", "B"), edge("B", "A")}) {
		t.Error("expected cycle through a duplicated id to be found")
	}
}

func TestIsDAG_DeepChain(t *testing.T) {
	const depth = 200_000
	ids := make([]Node, depth)
	edges := make([]Edge, 0, depth)
	for i := 0; i < depth; i++ {
		ids[i] = Node{ID: fmt.Sprintf("n%d", i)}
		if i > 0 {
			edges = append(edges, edge(ids[i-1].ID, ids[i].ID))
		}
	}

	if !IsDAG(ids, edges) {
		t.Fatal("expected deep chain to be a DAG")
	}

	edges = append(edges, edge(ids[depth-1].ID, ids[0].ID))
	if IsDAG(ids, edges) {
		t.Fatal("expected closed deep chain to contain a cycle")
	}
}

func TestDetect_RejectsInvalidNodes(t *testing.T) {
	t.Run("MissingID", func(t *testing.T) {
		_, err := Detect([]Node{{ID: "A"}, {Kind: MissingID}}, nil)
		if !errors.Is(err, ErrInvalidGraphInput) {
			t.Fatalf("expected ErrInvalidGraphInput, got %v", err)
		}
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("expected *InputError, got %T", err)
		}
		if inputErr.Field != "nodes[1].id" {
			t.Errorf("expected field nodes[1].id, got %q", inputErr.Field)
		}
	})

	t.Run("EmptyStringID", func(t *testing.T) {
		ok, err := Detect([]Node{{ID: ""}, {ID: "A"}}, []Edge{edge("", "A")})
		if err != nil {
			t.Fatalf("expected empty string id to be valid, got %v", err)
		}
		if !ok {
			t.Error("expected DAG")
		}
	})

	t.Run("DuplicateNumericID", func(t *testing.T) {
		_, err := Detect([]Node{{ID: "3", Kind: NumberID}, {ID: "3"}, {ID: "3", Kind: NumberID}}, nil)
		want := `invalid graph input: nodes[2].id: duplicate node id 3 (first declared at nodes[0])`
		if err == nil || err.Error() != want {
			t.Errorf("expected %q, got %v", want, err)
		}
	})

	t.Run("DuplicateID", func(t *testing.T) {
		_, err := Detect(nodes("A", "B", "A"), nil)
		if !errors.Is(err, ErrInvalidGraphInput) {
			t.Fatalf("expected ErrInvalidGraphInput, got %v", err)
		}
		want := `invalid graph input: nodes[2].id: duplicate node id "A" (first declared at nodes[0])`
		if err.Error() != want {
			t.Errorf("expected %q, got %q", want, err.Error())
		}
	})
}

func TestDetectContext_Canceled(t *testing.T) {
	const size = 4 * ctxCheckInterval
	ids := make([]Node, size)
	edges := make([]Edge, 0, size)
	for i := range ids {
		ids[i] = Node{ID: fmt.Sprintf("n%d", i)}
		if i > 0 {
			edges = append(edges, edge(ids[i-1].ID, ids[i].ID))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DetectContext(ctx, ids, edges)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnalyze_Counts(t *testing.T) {
	p := Pipeline{
		Nodes: nodes("A", "B"),
		Edges: []Edge{edge("A", "B"), edge("B", "A"), edge("A", "missing")},
	}

	got, err := Analyze(context.Background(), p)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := Summary{NumNodes: 2, NumEdges: 3, IsDAG: false}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	empty, err := Analyze(context.Background(), Pipeline{})
	if err != nil {
		t.Fatalf("Analyze empty: %v", err)
	}
	if empty != (Summary{IsDAG: true}) {
		t.Errorf("expected empty DAG summary, got %+v", empty)
	}
}

// # internal/engine/graph/pipeline.go
package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// IDKind records which JSON type an identifier had. A string and a number
// never name the same node, even when their text matches.
type IDKind uint8

const (
	StringID IDKind = iota
	NumberID
	MissingID // absent, null, boolean, object or array
)

// Node is a vertex of a pipeline graph. Only the identifier matters for
// validation; every other attribute the editor sends is ignored.
type Node struct {
	ID   string `json:"id"`
	Kind IDKind `json:"-"`
}

// Edge is a directed arc from Source to Target.
type Edge struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	SourceKind IDKind `json:"-"`
	TargetKind IDKind `json:"-"`
}

// vertex is the adjacency key: the identifier text qualified by its kind.
type vertex struct {
	kind IDKind
	id   string
}

func (n Node) key() vertex { return vertex{kind: n.Kind, id: n.ID} }
func (e Edge) from() vertex { return vertex{kind: e.SourceKind, id: e.Source} }
func (e Edge) to() vertex { return vertex{kind: e.TargetKind, id: e.Target} }
func (v vertex) missing() bool { return v.kind == MissingID }

func (v vertex) String() string {
	if v.kind == NumberID {
		return v.id
	}
	return strconv.Quote(v.id)
}

// Pipeline is the node/edge document produced by the pipeline editor.
type Pipeline struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Summary is the validation result returned to callers.
type Summary struct {
	NumNodes int  `json:"num_nodes"`
	NumEdges int  `json:"num_edges"`
	IsDAG    bool `json:"is_dag"`
}

func (n *Node) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	n.ID, n.Kind = identifier(fields["id"])
	return nil
}

func (e *Edge) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	e.Source, e.SourceKind = identifier(fields["source"])
	e.Target, e.TargetKind = identifier(fields["target"])
	return nil
}

// ParsePipeline decodes a pipeline document. Both collections must be present
// and every element must be a JSON object; anything else is reported as
// invalid graph input.
func ParsePipeline(data []byte) (Pipeline, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return Pipeline{}, &InputError{Msg: "pipeline must be a JSON object", Err: err}
	}

	var p Pipeline
	for _, key := range []string{"nodes", "edges"} {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			return Pipeline{}, &InputError{Field: key, Msg: "field is required"}
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return Pipeline{}, &InputError{Field: key, Msg: "must be an array", Err: err}
		}

		for i, elem := range elems {
			field := fmt.Sprintf("%s[%d]", key, i)
			if key == "nodes" {
				var n Node
				if err := json.Unmarshal(elem, &n); err != nil {
					return Pipeline{}, &InputError{Field: field, Msg: "must be an object", Err: err}
				}
				p.Nodes = append(p.Nodes, n)
				continue
			}
			var e Edge
			if err := json.Unmarshal(elem, &e); err != nil {
				return Pipeline{}, &InputError{Field: field, Msg: "must be an object", Err: err}
			}
			p.Edges = append(p.Edges, e)
		}
	}
	if p.Nodes == nil {
		p.Nodes = []Node{}
	}
	if p.Edges == nil {
		p.Edges = []Edge{}
	}
	return p, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("expected JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// identifier classifies an opaque id. Strings are used verbatim, including
// the empty string. Numbers are compared by value, so 1, 1.0 and 1e0 name the
// same node while "1" names another.
func identifier(raw json.RawMessage) (string, IDKind) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", MissingID
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", MissingID
		}
		return s, StringID
	case c == '-' || (c >= '0' && c <= '9'):
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return "", MissingID
		}
		return canonicalNumber(num.String()), NumberID
	default:
		return "", MissingID
	}
}

// canonicalNumber renders a JSON number so that equal values share one form.
// Integer literals are exact at any size. Literals with a fraction or an
// exponent are float64 values; integral ones fold onto the integer form.
func canonicalNumber(lit string) string {
	if !strings.ContainsAny(lit, ".eE") {
		if n, ok := new(big.Int).SetString(lit, 10); ok {
			return n.String()
		}
		return lit
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil && !math.IsInf(f, 0) {
		return lit
	}
	if !math.IsInf(f, 0) && f == math.Trunc(f) {
		n, _ := big.NewFloat(f).Int(nil)
		return n.String()
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

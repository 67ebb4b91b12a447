package openapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"pipelinedag/internal/engine/graph"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed pipelinedag.yaml
var specYAML []byte

const pipelineSchemaName = "PipelineData"

// Contract is the validated API description served at /openapi.json and
// used to check request bodies before they reach the detector.
type Contract struct {
	doc      *openapi3.T
	pipeline *openapi3.Schema
	rendered []byte
}

// Load parses and validates the embedded API description.
func Load(ctx context.Context) (*Contract, error) {
	return LoadFromData(ctx, specYAML)
}

func LoadFromData(ctx context.Context, data []byte) (*Contract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("load openapi contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi contract: %w", err)
	}

	var ref *openapi3.SchemaRef
	if doc.Components != nil {
		ref = doc.Components.Schemas[pipelineSchemaName]
	}
	if ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("openapi contract has no %s schema", pipelineSchemaName)
	}

	rendered, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render openapi contract: %w", err)
	}

	return &Contract{doc: doc, pipeline: ref.Value, rendered: rendered}, nil
}

// Document returns the parsed API description.
func (c *Contract) Document() *openapi3.T {
	return c.doc
}

// JSON returns the API description rendered as JSON.
func (c *Contract) JSON() []byte {
	return c.rendered
}

// Operations lists operation ids sorted by path then method.
func (c *Contract) Operations() []string {
	paths := c.doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)

	var ids []string
	for _, path := range keys {
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
			if op := paths[path].GetOperation(method); op != nil {
				ids = append(ids, op.OperationID)
			}
		}
	}
	return ids
}

// ValidatePipeline checks a raw request body against the PipelineData schema.
// Failures are graph input errors.
func (c *Contract) ValidatePipeline(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &graph.InputError{Msg: "request body is not valid JSON", Err: err}
	}

	err := c.pipeline.VisitJSON(value)
	if err == nil {
		return nil
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		return &graph.InputError{
			Field: pointerField(schemaErr.JSONPointer()),
			Msg:   schemaErr.Reason,
		}
	}
	return &graph.InputError{Msg: "request body does not match the pipeline schema", Err: err}
}

// pointerField renders ["nodes", "3", "id"] as nodes[3].id.
func pointerField(pointer []string) string {
	var b strings.Builder
	for _, part := range pointer {
		if _, err := strconv.Atoi(part); err == nil {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

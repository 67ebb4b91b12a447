// Package contracts holds the JSON bodies exchanged over the HTTP API.
package contracts

import "pipelinedag/internal/engine/graph"

// PingResponse answers GET /.
type PingResponse struct {
	Ping string `json:"Ping"`
}

// ParseResponse answers POST /pipelines/parse.
type ParseResponse = graph.Summary

type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse wraps every non-2xx JSON body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func Pong() PingResponse {
	return PingResponse{Ping: "Pong"}
}

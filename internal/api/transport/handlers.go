package transport

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"pipelinedag/internal/api/contracts"
	"pipelinedag/internal/core/errors"
	"pipelinedag/internal/shared/observability"
)

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, contracts.Pong())
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.contract.JSON())
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	cfg := s.app.Config().Server

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			err = errors.AddContext(
				errors.New(errors.CodeLimitExceeded, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)),
				errors.CtxLimit, "max_body_bytes",
			)
		} else {
			err = errors.Wrap(err, errors.CodeValidationError, "could not read request body")
		}
		writeError(w, r, err)
		return
	}

	if cfg.SchemaValidationEnabled() {
		if err := s.contract.ValidatePipeline(body); err != nil {
			observability.ValidationsTotal.WithLabelValues(observability.ResultInvalid).Inc()
			writeError(w, r, errors.FromGraph(err))
			return
		}
	}

	summary, err := s.app.PipelineService().ParseDocument(r.Context(), body)
	if err != nil {
		writeError(w, r, errors.AddContext(err, errors.CtxRequestID, RequestIDFrom(r.Context())))
		return
	}
	writeJSON(w, http.StatusOK, contracts.ParseResponse(summary))
}

package transport

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"pipelinedag/internal/api/contracts"
	"pipelinedag/internal/core/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

// statusFor maps a domain error code to the HTTP status returned to clients.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.CodeInvalidGraphInput:
		return http.StatusUnprocessableEntity
	case errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeLimitExceeded:
		return http.StatusRequestEntityTooLarge
	case errors.CodeRateLimited:
		return http.StatusTooManyRequests
	case errors.CodeTimeout:
		return http.StatusServiceUnavailable
	case errors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	status := statusFor(code)
	body := contracts.ErrorBody{
		Code:      string(code),
		Message:   err.Error(),
		RequestID: RequestIDFrom(r.Context()),
	}

	var de *errors.DomainError
	if stderrors.As(err, &de) {
		body.Message = de.Message
		if de.Err != nil && code != errors.CodeInternal {
			body.Message = fmt.Sprintf("%s: %v", de.Message, de.Err)
		}
		if field, ok := de.Context[errors.CtxField].(string); ok {
			body.Field = field
		}
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "request_id", body.RequestID, "path", r.URL.Path, "error", err)
		body.Message = "internal server error"
	}

	writeJSON(w, status, contracts.ErrorResponse{Error: body})
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"agrotrack/internal/core"
	applog "agrotrack/internal/log"
	"agrotrack/internal/middleware/trace"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone already; nothing left to tell the client.
		slog.Error("Failed to encode response", "error", err)
	}
}

// decodeJSON reads one JSON object into dst. Malformed bodies, unknown fields
// and trailing data are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		// Typed validation errors from Money/Date unmarshalling pass through.
		if errors.Is(err, core.ErrValidation) {
			return err
		}
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return &core.ValidationError{Field: "body", Reason: "request body is empty"}
		case errors.As(err, &maxErr):
			return &core.ValidationError{Field: "body", Reason: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)}
		case errors.As(err, &typeErr):
			return &core.ValidationError{Field: typeErr.Field, Reason: "expected " + typeErr.Type.String()}
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return &core.ValidationError{Field: field, Reason: "unknown field"}
		default:
			return &core.ValidationError{Field: "body", Reason: "malformed JSON"}
		}
	}
	if dec.More() {
		return &core.ValidationError{Field: "body", Reason: "body must hold a single JSON object"}
	}
	return nil
}

// writeError maps domain errors onto HTTP status codes:
// validation 422, not found 404, invalid transition and conflict 409.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentHTTP)
	resp := errorResponse{RequestID: trace.GetRequestID(ctx)}

	var (
		status     int
		errorType  string
		validation *core.ValidationError
		transition *core.InvalidTransitionError
	)
	switch {
	case errors.Is(err, core.ErrValidation):
		status, errorType = http.StatusUnprocessableEntity, applog.ErrorTypeValidation
		resp.Error = errorBody{Code: "validation_error", Message: err.Error()}
		if errors.As(err, &validation) {
			resp.Error.Field = validation.Field
		}
	case errors.Is(err, core.ErrNotFound):
		status, errorType = http.StatusNotFound, applog.ErrorTypeNotFound
		resp.Error = errorBody{Code: "not_found", Message: err.Error()}
	case errors.Is(err, core.ErrInvalidTransition):
		status, errorType = http.StatusConflict, applog.ErrorTypeTransition
		resp.Error = errorBody{Code: "invalid_transition", Message: err.Error()}
		if errors.As(err, &transition) {
			resp.Error.From = transition.From
			resp.Error.To = transition.To
			resp.Error.Allowed = statusCodes(transition.From.AllowedTransitions())
		}
	case errors.Is(err, core.ErrConflict):
		status, errorType = http.StatusConflict, applog.ErrorTypeConflict
		resp.Error = errorBody{Code: "conflict", Message: err.Error()}
	default:
		status, errorType = http.StatusInternalServerError, applog.ErrorTypeInternal
		resp.Error = errorBody{Code: "internal_error", Message: "internal server error"}
	}

	fields := applog.NewFields().WithError(err, errorType)
	if status >= 500 {
		logger.ErrorContext(ctx, "Request failed", fields.ToSlice()...)
	} else {
		logger.DebugContext(ctx, "Request rejected", fields.ToSlice()...)
	}
	writeJSON(w, status, resp)
}

// writeStatusError answers with a bare status and code, for router-level failures.
func writeStatusError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error:     errorBody{Code: code, Message: message},
		RequestID: trace.GetRequestID(r.Context()),
	})
}

// sanitizeInput drops control characters except tab, LF and CR, then trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// internal/app/system/respond/respond.go

// Package respond writes JSON responses and maps domain errors to HTTP
// status codes for every JSON feature.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/app/system/aggregator"
	"go.uber.org/zap"
)

// MaxBodyBytes caps request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ErrBadRequest marks input errors that map to 400.
var ErrBadRequest = errors.New("bad request")

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// BadRequest writes a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// Error writes err with the status its type implies. Server-side failures
// are logged at Error.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	status := StatusOf(err)
	body := errorBody{Error: err.Error()}

	var me *aggregator.MutationError
	if errors.As(err, &me) {
		body.Kind = me.Kind.String()
		body.Retryable = me.Retryable()
	}
	var fe *aggregator.FetchError
	if errors.As(err, &fe) {
		body.Retryable = true
	}

	if status >= 500 && log != nil {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	JSON(w, status, body)
}

// StatusOf maps an error to an HTTP status code.
func StatusOf(err error) int {
	var me *aggregator.MutationError
	if errors.As(err, &me) {
		switch me.Kind {
		case aggregator.KindNotFound:
			return http.StatusNotFound
		case aggregator.KindPermissionDenied:
			return http.StatusForbidden
		case aggregator.KindInvalidTransition:
			return http.StatusConflict
		default:
			return http.StatusServiceUnavailable
		}
	}
	var fe *aggregator.FetchError
	switch {
	case errors.As(err, &fe):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrBadRequest), errors.Is(err, aggregator.ErrMissingField):
		return http.StatusBadRequest
	case errors.Is(err, aggregator.ErrRecordNotFound), errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, docstore.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, docstore.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, docstore.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// DecodeJSON reads a JSON object body into v. Failures wrap ErrBadRequest.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", ErrBadRequest, err)
	}
	return nil
}

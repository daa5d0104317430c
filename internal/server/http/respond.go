package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ok writes a successful envelope.
func ok[T any](w http.ResponseWriter, result T) {
	writeJSON(w, http.StatusOK, model.Envelope[T]{Code: errs.CodeOK, Result: result})
}

func fail(w http.ResponseWriter, status, code int, msg string) {
	writeJSON(w, status, model.Envelope[struct{}]{Code: code, Message: msg})
}

// statusOf maps a service error to its HTTP status and envelope code.
// Only credential problems produce 401/403 so clients can treat those as session loss.
func statusOf(err error) (int, int) {
	var f *errs.Fault
	switch {
	case errors.As(err, &f) && f.Kind == errs.KindValidation:
		return http.StatusBadRequest, errs.CodeInvalidPayload
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, errs.CodeAlreadyExists
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, errs.CodeNotFound
	case errors.Is(err, errs.ErrInvalidToken):
		return http.StatusBadRequest, errs.CodeInvalidToken
	case errors.Is(err, errs.ErrInactive):
		return http.StatusForbidden, errs.CodeInactive
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, errs.CodeUnauthenticated
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, errs.CodeRateLimited
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, errs.CodeUnauthorized
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, errs.CodeConflict
	}
	return http.StatusInternalServerError, errs.CodeUncategorized
}

// writeError logs internal failures and writes the mapped envelope; internals never leak.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal error"
	}
	fail(w, status, code, msg)
}

// decode reads a JSON body, rejecting unknown fields and oversized payloads.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Validation(fmt.Errorf("bad body: %w", err))
	}
	return nil
}

package errs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a failure into the recovery policy the console applies to it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindAuth is one-shot: the session is dropped and further calls are suppressed.
	KindAuth
	// KindValidation is resolved at the form boundary and never reaches the directory.
	KindValidation
	// KindTransient covers timeouts, 5xx and malformed payloads; prior view state is kept.
	KindTransient
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// In-band envelope codes used by the directory.
const (
	CodeOK              = 1000
	CodeInvalidPayload  = 1001
	CodeAlreadyExists   = 1002
	CodeNotFound        = 1004
	CodeInvalidToken    = 1005
	CodeInactive        = 1006
	CodeUnauthenticated = 1007
	CodeRateLimited     = 1008
	CodeUnauthorized    = 1009
	CodeConflict        = 1010
	CodeUncategorized   = 9999
)

// Fault is the explicit error variant produced at the transport boundary.
type Fault struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Code       int
	Err        error
}

func (f *Fault) Error() string {
	if f.HTTPStatus != 0 {
		return fmt.Sprintf("%s: %s (http %d, code %d)", f.Kind, f.Message, f.HTTPStatus, f.Code)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// Is lets callers match a Fault against the package sentinels.
func (f *Fault) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return f.Kind == KindAuth && f.HTTPStatus != http.StatusForbidden && f.Code != CodeUnauthorized
	case ErrForbidden:
		return f.Kind == KindAuth && (f.HTTPStatus == http.StatusForbidden || f.Code == CodeUnauthorized)
	case ErrNotFound:
		return f.Kind == KindNotFound
	case ErrConflict:
		return f.Kind == KindConflict
	}
	return false
}

// IsAuth reports whether err is an authentication/authorization fault or sentinel.
func IsAuth(err error) bool {
	return err != nil && Classify(err).Kind == KindAuth
}

// Validation wraps a form validation error.
func Validation(err error) *Fault {
	return &Fault{Kind: KindValidation, Message: err.Error(), Err: err}
}

// FromResponse classifies an HTTP status and optional envelope code.
func FromResponse(status, code int, message string) *Fault {
	f := &Fault{HTTPStatus: status, Code: code, Message: message}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden,
		code == CodeUnauthenticated || code == CodeUnauthorized:
		f.Kind = KindAuth
	case status == http.StatusNotFound || code == CodeNotFound:
		f.Kind = KindNotFound
	case status == http.StatusConflict || code == CodeConflict || code == CodeAlreadyExists:
		f.Kind = KindConflict
	case status == http.StatusBadRequest || code == CodeInvalidPayload:
		f.Kind = KindValidation
	case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		f.Kind = KindTransient
	default:
		f.Kind = KindUnknown
	}
	if f.Message == "" {
		f.Message = http.StatusText(status)
	}
	return f
}

// Classify resolves any error into a Fault. Nil stays nil.
func Classify(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	var (
		netErr    net.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, ErrUnauthorized):
		return &Fault{Kind: KindAuth, Message: err.Error(), HTTPStatus: http.StatusUnauthorized, Err: err}
	case errors.Is(err, ErrForbidden):
		return &Fault{Kind: KindAuth, Message: err.Error(), HTTPStatus: http.StatusForbidden, Err: err}
	case errors.Is(err, ErrNotFound):
		return &Fault{Kind: KindNotFound, Message: err.Error(), Err: err}
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyExists):
		return &Fault{Kind: KindConflict, Message: err.Error(), Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return &Fault{Kind: KindTransient, Message: "network error: " + err.Error(), Err: err}
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return &Fault{Kind: KindTransient, Message: "malformed response: " + err.Error(), Err: err}
	}
	return &Fault{Kind: KindUnknown, Message: err.Error(), Err: err}
}

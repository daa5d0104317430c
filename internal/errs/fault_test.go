package errs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromResponse_Kinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status, code int
		want         Kind
	}{
		{http.StatusUnauthorized, 0, KindAuth},
		{http.StatusForbidden, 0, KindAuth},
		{http.StatusOK, CodeUnauthenticated, KindAuth},
		{http.StatusBadRequest, CodeUnauthorized, KindAuth},
		{http.StatusNotFound, CodeNotFound, KindNotFound},
		{http.StatusConflict, 0, KindConflict},
		{http.StatusBadRequest, CodeAlreadyExists, KindConflict},
		{http.StatusBadRequest, CodeInvalidPayload, KindValidation},
		{http.StatusBadGateway, 0, KindTransient},
		{http.StatusTooManyRequests, CodeRateLimited, KindTransient},
		{http.StatusTeapot, 0, KindUnknown},
	}
	for _, c := range cases {
		f := FromResponse(c.status, c.code, "")
		if f.Kind != c.want {
			t.Fatalf("status=%d code=%d: kind=%s, want %s", c.status, c.code, f.Kind, c.want)
		}
		if f.Message == "" {
			t.Fatalf("status=%d: empty message", c.status)
		}
	}
}

func TestFault_IsSentinels(t *testing.T) {
	t.Parallel()

	unauth := FromResponse(http.StatusUnauthorized, CodeUnauthenticated, "expired")
	if !errors.Is(unauth, ErrUnauthorized) || errors.Is(unauth, ErrForbidden) {
		t.Fatalf("401 should match ErrUnauthorized only")
	}
	forbidden := FromResponse(http.StatusForbidden, CodeUnauthorized, "no role")
	if !errors.Is(forbidden, ErrForbidden) || errors.Is(forbidden, ErrUnauthorized) {
		t.Fatalf("403 should match ErrForbidden only")
	}
	wrapped := fmt.Errorf("delete: %w", FromResponse(http.StatusNotFound, CodeNotFound, "gone"))
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("wrapped not-found fault should match ErrNotFound")
	}
	if !IsAuth(fmt.Errorf("list: %w", unauth)) {
		t.Fatalf("IsAuth should see through wrapping")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	if Classify(nil) != nil {
		t.Fatalf("nil must stay nil")
	}

	f := FromResponse(http.StatusServiceUnavailable, 0, "down")
	if Classify(fmt.Errorf("x: %w", f)) != f {
		t.Fatalf("existing fault must be returned as is")
	}

	if got := Classify(context.DeadlineExceeded).Kind; got != KindTransient {
		t.Fatalf("deadline: %s", got)
	}

	var v any
	jsonErr := json.Unmarshal([]byte("{"), &v)
	if got := Classify(jsonErr).Kind; got != KindTransient {
		t.Fatalf("malformed payload: %s", got)
	}

	if got := Classify(ErrUnauthorized).Kind; got != KindAuth {
		t.Fatalf("unauthorized sentinel: %s", got)
	}
	if got := Classify(ErrAlreadyExists).Kind; got != KindConflict {
		t.Fatalf("already exists: %s", got)
	}
	if got := Classify(errors.New("boom")).Kind; got != KindUnknown {
		t.Fatalf("plain error: %s", got)
	}
}

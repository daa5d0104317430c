package httpserver

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
	"github.com/and161185/user-admin/internal/service"
)

// Header names accepted for the bearer credential.
const (
	HeaderAPIToken  = "x-api-token"
	HeaderRequestID = "X-Request-ID"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs request metadata. Bodies and credentials are never logged.
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			if id := r.Header.Get(HeaderRequestID); id != "" {
				w.Header().Set(HeaderRequestID, id)
			}
			next.ServeHTTP(rec, r)
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("dur", time.Since(start)),
				zap.String("peer", r.RemoteAddr),
				zap.String("request_id", r.Header.Get(HeaderRequestID)),
			)
		})
	}
}

// RecoverMiddleware turns handler panics into an uncategorized 500.
func RecoverMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					log.Error("panic",
						zap.Any("reason", rv),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					fail(w, http.StatusInternalServerError, errs.CodeUncategorized, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credential from Authorization or x-api-token.
func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			tok := strings.TrimSpace(h[len(prefix):])
			return tok, tok != ""
		}
		return "", false
	}
	tok := strings.TrimSpace(r.Header.Get(HeaderAPIToken))
	return tok, tok != ""
}

// AuthMiddleware resolves the bearer token to a live user and stores it in context.
func AuthMiddleware(auth service.AuthService, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearerToken(r)
			if !ok {
				fail(w, http.StatusUnauthorized, errs.CodeUnauthenticated, "no auth")
				return
			}
			u, err := auth.Authenticate(r.Context(), tok)
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireAdmin rejects callers without the Admin role. It must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromCtx(r.Context())
		if !ok {
			fail(w, http.StatusUnauthorized, errs.CodeUnauthenticated, "no auth")
			return
		}
		if !u.HasRole(model.RoleAdmin) {
			fail(w, http.StatusForbidden, errs.CodeUnauthorized, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

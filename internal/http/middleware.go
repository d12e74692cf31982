package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/jio-scheduler/internal/application"
	"github.com/example/jio-scheduler/internal/domain"
)

// ProfileLookup loads stored profiles for the identity middleware.
type ProfileLookup interface {
	GetProfile(ctx context.Context, userID string) (domain.UserProfile, error)
}

// RequireIdentity reads the user asserted by the gateway and places it on
// the request context. A stored profile display name takes precedence over
// the header. Requests without a user id are rejected with 401.
func RequireIdentity(profiles ProfileLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if userID == "" {
				responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
					ErrorCode: "UNAUTHENTICATED",
					Message:   errMissingIdentity.Error(),
				})
				return
			}

			user := application.User{
				ID:          userID,
				DisplayName: strings.TrimSpace(r.Header.Get(HeaderDisplayName)),
				Email:       strings.TrimSpace(r.Header.Get(HeaderEmail)),
			}
			if profiles != nil {
				if profile, err := profiles.GetProfile(r.Context(), userID); err == nil && profile.DisplayName != "" {
					user.DisplayName = profile.DisplayName
				}
			}

			ctx := application.ContextWithUser(r.Context(), user)
			if logger := LoggerFromContext(ctx); logger != nil {
				ctx = ContextWithLogger(ctx, logger.With("user_id", userID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request scoped logger and logs each request's
// outcome.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", recorder.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(status int) {
	if !s.wroteHeader {
		s.status = status
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

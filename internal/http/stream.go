package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/jio-scheduler/internal/application"
	"github.com/example/jio-scheduler/internal/persistence"
)

// streamEvents serves server-sent events named event until the client goes
// away. Only the newest undelivered value is kept for a slow client.
func streamEvents[T any](w http.ResponseWriter, r *http.Request, rsp responder, logger *slog.Logger, event string,
	subscribe func(ctx context.Context, fn func(T)) (persistence.Unsubscribe, error), encode func(T) any) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		rsp.writeError(ctx, w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	latest := make(chan T, 1)
	unsubscribe, err := subscribe(ctx, func(v T) {
		select {
		case <-latest:
		default:
		}
		select {
		case latest <- v:
		default:
		}
	})
	if err != nil {
		logger.ErrorContext(ctx, "subscription failed", "event", event, "error", err, "error_kind", application.ErrorKind(err))
		rsp.handleServiceError(ctx, w, err)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	logger.InfoContext(ctx, "stream opened", "event", event)

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "stream closed", "event", event)
			return
		case v := <-latest:
			payload, err := json.Marshal(encode(v))
			if err != nil {
				logger.ErrorContext(ctx, "failed to encode event", "event", event, "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/jio-scheduler/internal/application"
	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/logging"
)

type calendarService interface {
	ListCalendar(ctx context.Context, query application.CalendarQuery) ([]domain.CalendarEntry, error)
	ExportCalendar(ctx context.Context, query application.CalendarQuery) (string, error)
	DeleteCalendarEntry(ctx context.Context, entryID string) error
}

type CalendarHandler struct {
	service   calendarService
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service calendarService, logger *slog.Logger) *CalendarHandler {
	base := logging.OrDefault(logger)
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := application.CalendarQuery{Month: strings.TrimSpace(r.URL.Query().Get("month"))}
	entries, err := h.service.ListCalendar(r.Context(), query)
	if err != nil {
		h.log(r.Context(), "List", "month", query.Month).ErrorContext(r.Context(), "calendar list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if entries == nil {
		entries = []domain.CalendarEntry{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, calendarResponse{Entries: entries})
}

func (h *CalendarHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := application.CalendarQuery{Month: strings.TrimSpace(r.URL.Query().Get("month"))}
	ics, err := h.service.ExportCalendar(r.Context(), query)
	if err != nil {
		h.log(r.Context(), "Export", "month", query.Month).ErrorContext(r.Context(), "calendar export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="jio.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, ics); err != nil {
		h.log(r.Context(), "Export").ErrorContext(r.Context(), "failed to write calendar", "error", err)
	}
}

func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEntityID)
		return
	}

	logger := h.log(r.Context(), "Delete", "entry_id", entryID)
	if err := h.service.DeleteCalendarEntry(r.Context(), entryID); err != nil {
		logger.ErrorContext(r.Context(), "calendar entry delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "calendar entry deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type calendarResponse struct {
	Entries []domain.CalendarEntry `json:"entries"`
}

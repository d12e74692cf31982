package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/jio-scheduler/internal/application"
	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/heatmap"
	"github.com/example/jio-scheduler/internal/logging"
	"github.com/example/jio-scheduler/internal/persistence"
)

type availabilityService interface {
	SubmitAvailability(ctx context.Context, groupID string, input application.SubmitAvailabilityInput) (application.MyAvailability, error)
	ToggleSlot(ctx context.Context, groupID string, input application.SlotInput) (application.MyAvailability, error)
	AddSlotRange(ctx context.Context, groupID string, input application.RangeInput) (application.MyAvailability, error)
	GetMyAvailability(ctx context.Context, groupID string) (application.MyAvailability, error)
	HeatMap(ctx context.Context, groupID string, week time.Time) (heatmap.WeekView, error)
	HeatMapCell(ctx context.Context, groupID, date, slot string) (heatmap.CellDetail, error)
	WatchHeatMap(ctx context.Context, groupID string, fn func(heatmap.HeatMap)) (persistence.Unsubscribe, error)
}

type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := logging.OrDefault(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

func (h *AvailabilityHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req application.SubmitAvailabilityInput
	if !h.decode(w, r, "Submit", &req) {
		return
	}
	h.respond(w, r, "Submit", func(ctx context.Context, groupID string) (application.MyAvailability, error) {
		return h.service.SubmitAvailability(ctx, groupID, req)
	})
}

func (h *AvailabilityHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req application.SlotInput
	if !h.decode(w, r, "Toggle", &req) {
		return
	}
	h.respond(w, r, "Toggle", func(ctx context.Context, groupID string) (application.MyAvailability, error) {
		return h.service.ToggleSlot(ctx, groupID, req)
	})
}

func (h *AvailabilityHandler) AddRange(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req application.RangeInput
	if !h.decode(w, r, "AddRange", &req) {
		return
	}
	h.respond(w, r, "AddRange", func(ctx context.Context, groupID string) (application.MyAvailability, error) {
		return h.service.AddSlotRange(ctx, groupID, req)
	})
}

func (h *AvailabilityHandler) Mine(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	h.respond(w, r, "Mine", h.service.GetMyAvailability)
}

// HeatMap serves the weekly table. ?week=YYYY-MM-DD picks any day of the
// wanted week; the current week is used when omitted.
func (h *AvailabilityHandler) HeatMap(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	groupID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingGroupID)
		return
	}

	var week time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("week")); raw != "" {
		parsed, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			h.log(r.Context(), "HeatMap", "group_id", groupID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid week parameter", "week", raw)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidWeek)
			return
		}
		week = parsed
	}

	view, err := h.service.HeatMap(r.Context(), groupID, week)
	if err != nil {
		h.log(r.Context(), "HeatMap", "group_id", groupID).ErrorContext(r.Context(), "heat-map failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, heatMapResponse{HeatMap: view})
}

// Cell serves the drill-down of one slot: ?date=YYYY-MM-DD&slot=HH:MM.
func (h *AvailabilityHandler) Cell(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	groupID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingGroupID)
		return
	}
	query := r.URL.Query()
	detail, err := h.service.HeatMapCell(r.Context(), groupID, strings.TrimSpace(query.Get("date")), strings.TrimSpace(query.Get("slot")))
	if err != nil {
		h.log(r.Context(), "Cell", "group_id", groupID).ErrorContext(r.Context(), "heat-map cell failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, cellResponse{Cell: detail})
}

// Stream pushes a heat-map snapshot as a server-sent event whenever the
// group's availability or membership changes, until the client disconnects.
func (h *AvailabilityHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	groupID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingGroupID)
		return
	}
	streamEvents(w, r, h.responder, h.log(r.Context(), "Stream", "group_id", groupID), "heatmap",
		func(ctx context.Context, fn func(heatmap.HeatMap)) (persistence.Unsubscribe, error) {
			return h.service.WatchHeatMap(ctx, groupID, fn)
		},
		func(hm heatmap.HeatMap) any { return newHeatMapSnapshot(hm) })
}

func (h *AvailabilityHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *AvailabilityHandler) decode(w http.ResponseWriter, r *http.Request, operation string, v any) bool {
	if err := decodeBody(r, v); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode availability request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	return true
}

func (h *AvailabilityHandler) respond(w http.ResponseWriter, r *http.Request, operation string, fn func(ctx context.Context, groupID string) (application.MyAvailability, error)) {
	groupID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingGroupID)
		return
	}

	mine, err := fn(r.Context(), groupID)
	if err != nil {
		h.log(r.Context(), operation, "group_id", groupID).ErrorContext(r.Context(), "availability request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Availability: mine})
}

type availabilityResponse struct {
	Availability application.MyAvailability `json:"availability"`
}

type heatMapResponse struct {
	HeatMap heatmap.WeekView `json:"heatmap"`
}

type cellResponse struct {
	Cell heatmap.CellDetail `json:"cell"`
}

type heatMapSnapshot struct {
	TotalParticipants int            `json:"totalParticipants"`
	Cells             []heatmap.Cell `json:"cells"`
}

func newHeatMapSnapshot(hm heatmap.HeatMap) heatMapSnapshot {
	return heatMapSnapshot{TotalParticipants: hm.Total(), Cells: hm.Cells()}
}

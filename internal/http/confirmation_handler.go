package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/jio-scheduler/internal/application"
	"github.com/example/jio-scheduler/internal/logging"
)

type confirmationService interface {
	ConfirmSlot(ctx context.Context, groupID string, input application.ConfirmInput) (application.ConfirmResult, error)
	EditActivity(ctx context.Context, activityID string, input application.EditActivityInput) (application.ConfirmResult, error)
}

type ConfirmationHandler struct {
	service   confirmationService
	responder responder
	logger    *slog.Logger
}

func NewConfirmationHandler(service confirmationService, logger *slog.Logger) *ConfirmationHandler {
	base := logging.OrDefault(logger)
	return &ConfirmationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ConfirmationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ConfirmationHandler", operation, attrs...)
}

// Confirm answers 201 even when some calendars could not be written; those
// participants are listed under "warnings".
func (h *ConfirmationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groupID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingGroupID)
		return
	}

	var req application.ConfirmInput
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Confirm", "group_id", groupID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode confirmation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Confirm", "group_id", groupID)
	result, err := h.service.ConfirmSlot(r.Context(), groupID, req)
	if err != nil {
		logger.ErrorContext(r.Context(), "confirmation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if len(result.Warnings) > 0 {
		logger.WarnContext(r.Context(), "confirmation completed with calendar warnings", "activity_id", result.Activity.ID, "warnings", len(result.Warnings))
	} else {
		logger.InfoContext(r.Context(), "confirmation completed", "activity_id", result.Activity.ID, "conflicts", len(result.Conflicts))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, result)
}

func (h *ConfirmationHandler) EditActivity(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	activityID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEntityID)
		return
	}

	var req application.EditActivityInput
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "EditActivity", "activity_id", activityID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode activity request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "EditActivity", "activity_id", activityID)
	result, err := h.service.EditActivity(r.Context(), activityID, req)
	if err != nil {
		logger.ErrorContext(r.Context(), "activity edit failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "activity edited", "warnings", len(result.Warnings))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

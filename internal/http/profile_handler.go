package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/jio-scheduler/internal/application"
	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/logging"
)

type profileService interface {
	GetProfile(ctx context.Context) (domain.UserProfile, error)
	SaveProfile(ctx context.Context, input application.SaveProfileInput) (domain.UserProfile, error)
}

type ProfileHandler struct {
	service   profileService
	responder responder
	logger    *slog.Logger
}

func NewProfileHandler(service profileService, logger *slog.Logger) *ProfileHandler {
	base := logging.OrDefault(logger)
	return &ProfileHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ProfileHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ProfileHandler", operation, attrs...)
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	profile, err := h.service.GetProfile(r.Context())
	if err != nil {
		h.log(r.Context(), "Get").ErrorContext(r.Context(), "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{Profile: profile})
}

func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req application.SaveProfileInput
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Save", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode profile request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	profile, err := h.service.SaveProfile(r.Context(), req)
	if err != nil {
		h.log(r.Context(), "Save").ErrorContext(r.Context(), "profile save failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Save").InfoContext(r.Context(), "profile saved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{Profile: profile})
}

type profileResponse struct {
	Profile domain.UserProfile `json:"profile"`
}

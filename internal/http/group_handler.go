package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/jio-scheduler/internal/application"
	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/logging"
	"github.com/example/jio-scheduler/internal/persistence"
)

type groupService interface {
	CreateGroup(ctx context.Context, input application.CreateGroupInput) (domain.PollGroup, error)
	GetGroup(ctx context.Context, groupID string) (domain.PollGroup, error)
	ListGroups(ctx context.Context) ([]domain.PollGroup, error)
	JoinGroup(ctx context.Context, groupID string) (domain.PollGroup, error)
	AddParticipantByUsername(ctx context.Context, groupID, username string) (domain.PollGroup, error)
	SetReminderFrequency(ctx context.Context, groupID string, days int) (domain.PollGroup, error)
	DeleteGroup(ctx context.Context, groupID string) error
	WatchGroups(ctx context.Context, fn func([]domain.PollGroup)) (persistence.Unsubscribe, error)
}

type reminderStatusService interface {
	ReminderStatus(ctx context.Context, groupID string) (application.ReminderStatus, error)
}

type GroupHandler struct {
	service   groupService
	reminders reminderStatusService
	responder responder
	logger    *slog.Logger
}

func NewGroupHandler(service groupService, reminders reminderStatusService, logger *slog.Logger) *GroupHandler {
	base := logging.OrDefault(logger)
	return &GroupHandler{service: service, reminders: reminders, responder: newResponder(base), logger: base}
}

func (h *GroupHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "GroupHandler", operation, attrs...)
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req application.CreateGroupInput
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode group request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	group, err := h.service.CreateGroup(r.Context(), req)
	if err != nil {
		h.log(r.Context(), "Create").ErrorContext(r.Context(), "group creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "group_id", group.ID).InfoContext(r.Context(), "group created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, groupResponse{Group: group})
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groups, err := h.service.ListGroups(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "group list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if groups == nil {
		groups = []domain.PollGroup{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listGroupsResponse{Groups: groups})
}

// Stream pushes the caller's group list as a server-sent event whenever a
// group they belong to changes.
func (h *GroupHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	streamEvents(w, r, h.responder, h.log(r.Context(), "Stream"), "groups", h.service.WatchGroups,
		func(groups []domain.PollGroup) any {
			if groups == nil {
				groups = []domain.PollGroup{}
			}
			return listGroupsResponse{Groups: groups}
		})
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withGroup(w, r, "Get", func(ctx context.Context, groupID string) (any, int, error) {
		group, err := h.service.GetGroup(ctx, groupID)
		return groupResponse{Group: group}, http.StatusOK, err
	})
}

func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.withGroup(w, r, "Join", func(ctx context.Context, groupID string) (any, int, error) {
		group, err := h.service.JoinGroup(ctx, groupID)
		return groupResponse{Group: group}, http.StatusOK, err
	})
}

func (h *GroupHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var req addParticipantRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "AddParticipant", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode participant request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	h.withGroup(w, r, "AddParticipant", func(ctx context.Context, groupID string) (any, int, error) {
		group, err := h.service.AddParticipantByUsername(ctx, groupID, req.Username)
		return groupResponse{Group: group}, http.StatusOK, err
	})
}

func (h *GroupHandler) SetReminder(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var req reminderRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "SetReminder", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reminder request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	h.withGroup(w, r, "SetReminder", func(ctx context.Context, groupID string) (any, int, error) {
		group, err := h.service.SetReminderFrequency(ctx, groupID, req.ReminderFrequencyDays)
		return groupResponse{Group: group}, http.StatusOK, err
	})
}

func (h *GroupHandler) GetReminder(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reminders == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.withGroup(w, r, "GetReminder", func(ctx context.Context, groupID string) (any, int, error) {
		status, err := h.reminders.ReminderStatus(ctx, groupID)
		return reminderResponse{Reminder: status}, http.StatusOK, err
	})
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.withGroup(w, r, "Delete", func(ctx context.Context, groupID string) (any, int, error) {
		return nil, http.StatusNoContent, h.service.DeleteGroup(ctx, groupID)
	})
}

// withGroup resolves the {id} path value, runs fn and writes its result.
func (h *GroupHandler) withGroup(w http.ResponseWriter, r *http.Request, operation string, fn func(ctx context.Context, groupID string) (any, int, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groupID, ok := pathID(r, "id")
	if !ok {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing group id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingGroupID)
		return
	}

	logger := h.log(r.Context(), operation, "group_id", groupID)
	payload, status, err := fn(r.Context(), groupID)
	if err != nil {
		logger.ErrorContext(r.Context(), "group request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.DebugContext(r.Context(), "group request served")
	h.responder.writeJSON(r.Context(), w, status, payload)
}

type addParticipantRequest struct {
	Username string `json:"username"`
}

type reminderRequest struct {
	ReminderFrequencyDays int `json:"reminderFrequencyDays"`
}

type groupResponse struct {
	Group domain.PollGroup `json:"group"`
}

type listGroupsResponse struct {
	Groups []domain.PollGroup `json:"groups"`
}

type reminderResponse struct {
	Reminder application.ReminderStatus `json:"reminder"`
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/internal/domain/entity"
	"github.com/cjfitness/notifier/pkg/logger/types"
	"github.com/cjfitness/notifier/pkg/response"
)

type reminderService interface {
	Create(ctx context.Context, req dto.CreateReminder) (*entity.Reminder, error)
	ListPending(ctx context.Context, clientID string) ([]entity.Reminder, error)
	Delete(ctx context.Context, id string) error
}

type ReminderHandler struct {
	service reminderService
	logger  *types.Logger
	now     func() time.Time
}

func NewReminderHandler(service reminderService, logger *types.Logger) *ReminderHandler {
	return &ReminderHandler{service: service, logger: logger, now: time.Now}
}

func (h *ReminderHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{id}", h.ListPending)
	r.Delete("/{id}", h.Delete)

	return r
}

type reminderResponse struct {
	entity.Reminder
	State entity.ReminderState `json:"state"`
}

func (h *ReminderHandler) toResponse(r entity.Reminder) reminderResponse {
	return reminderResponse{Reminder: r, State: r.State(h.now())}
}

// ListPending handles GET /api/reminders/{clientId}. The route shares the {id}
// parameter with Delete.
func (h *ReminderHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.service.ListPending(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err, "Failed to fetch reminders")
		return
	}

	out := make([]reminderResponse, len(reminders))
	for i, reminder := range reminders {
		out[i] = h.toResponse(reminder)
	}
	response.JSON(w, http.StatusOK, out)
}

// Create handles POST /api/reminders
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateReminder
	if !decode(w, r, &req) {
		return
	}

	reminder, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to create reminder")
		return
	}
	response.JSON(w, http.StatusCreated, h.toResponse(*reminder))
}

// Delete handles DELETE /api/reminders/{id}
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err, "Failed to delete reminder")
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/internal/domain/entity"
	"github.com/cjfitness/notifier/pkg/logger/types"
	"github.com/cjfitness/notifier/pkg/response"
)

type notificationService interface {
	CreateFromRequest(ctx context.Context, req dto.CreateNotification) (*entity.Notification, error)
	ListByRecipient(ctx context.Context, userID string) (dto.NotificationList, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	MarkReadMatching(ctx context.Context, userID string, req dto.MarkReadMatching) (int64, error)
	Delete(ctx context.Context, id string) error
}

// NotificationHandler handles HTTP requests for notification operations
type NotificationHandler struct {
	service notificationService
	logger  *types.Logger
}

func NewNotificationHandler(service notificationService, logger *types.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, logger: logger}
}

// Routes returns the router for notification endpoints
func (h *NotificationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// {id} is a user id on the GET routes and a notification id on the others
	r.Post("/", h.Create)
	r.Get("/{id}", h.List)
	r.Get("/{id}/unread-count", h.UnreadCount)
	r.Patch("/read-all/{userId}", h.MarkAllRead)
	r.Patch("/read-matching/{userId}", h.MarkReadMatching)
	r.Patch("/{id}/read", h.MarkRead)
	r.Delete("/{id}", h.Delete)

	return r
}

// List handles GET /api/notifications/{userId}
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListByRecipient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err, "Failed to fetch notifications")
		return
	}
	response.JSON(w, http.StatusOK, list)
}

// UnreadCount handles GET /api/notifications/{userId}/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UnreadCount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err, "Failed to count unread notifications")
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"unread": count})
}

// Create handles POST /api/notifications
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateNotification
	if !decode(w, r, &req) {
		return
	}

	notification, err := h.service.CreateFromRequest(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to create notification")
		return
	}
	response.JSON(w, http.StatusCreated, notification)
}

// MarkRead handles PATCH /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err, "Failed to update notification")
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"read": true})
}

// MarkAllRead handles PATCH /api/notifications/read-all/{userId}
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	changed, err := h.service.MarkAllRead(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, err, "Failed to mark all read")
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"updated": changed})
}

// MarkReadMatching handles PATCH /api/notifications/read-matching/{userId}
func (h *NotificationHandler) MarkReadMatching(w http.ResponseWriter, r *http.Request) {
	var req dto.MarkReadMatching
	if !decode(w, r, &req) {
		return
	}

	changed, err := h.service.MarkReadMatching(r.Context(), chi.URLParam(r, "userId"), req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to mark notifications read")
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"updated": changed})
}

// Delete handles DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err, "Failed to delete notification")
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/service"
	"github.com/BuzzLyutic/taskflow-api/pkg/respond"
)

type ProfileHandler struct {
	service ProfileService
	logger  *zap.Logger
}

func NewProfileHandler(srv ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{service: srv, logger: logger}
}

// Get returns the identity together with its task statistics.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), u.ID)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.Success(w, r, http.StatusOK, respond.Fields{"user": u, "stats": stats})
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req service.ProfileInput
	if !decode(w, r, &req) {
		return
	}

	updated, err := h.service.Update(r.Context(), u.ID, req)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.Success(w, r, http.StatusOK, respond.Fields{
		"user":    updated,
		"message": "Profile updated successfully",
	})
}

func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req service.PasswordChangeInput
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), u.ID, req); err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.Success(w, r, http.StatusOK, respond.Fields{"message": "Password changed successfully."})
}

func (h *ProfileHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	handleErrors(w, r, h.logger, err, "User not found.")
}

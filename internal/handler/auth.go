package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/service"
	"github.com/BuzzLyutic/taskflow-api/pkg/respond"
)

type AuthHandler struct {
	service UserService
	logger  *zap.Logger
}

func NewAuthHandler(srv UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: srv, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decode(w, r, &req) {
		return
	}

	sess, err := h.service.Register(r.Context(), req)
	if err != nil {
		handleErrors(w, r, h.logger, err, "User not found.")
		return
	}
	respond.Success(w, r, http.StatusCreated, respond.Fields{"token": sess.Token, "user": sess.User})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if !decode(w, r, &req) {
		return
	}

	sess, err := h.service.Login(r.Context(), req)
	if err != nil {
		handleErrors(w, r, h.logger, err, "User not found.")
		return
	}
	respond.Success(w, r, http.StatusOK, respond.Fields{"token": sess.Token, "user": sess.User})
}

// Me returns the identity resolved by the authentication gate.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	respond.Success(w, r, http.StatusOK, respond.Fields{"user": u})
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/auth"
	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/service"
	"github.com/BuzzLyutic/taskflow-api/pkg/respond"
)

type TaskService interface {
	List(ctx context.Context, owner uuid.UUID, req model.TaskQuery) (model.TaskPage, error)
	Create(ctx context.Context, owner uuid.UUID, in service.TaskInput, idempKey string) (model.Task, error)
	Get(ctx context.Context, owner, id uuid.UUID) (model.Task, error)
	Update(ctx context.Context, owner, id uuid.UUID, in service.TaskPatchInput) (model.Task, error)
	Advance(ctx context.Context, owner, id uuid.UUID) (model.Task, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	DeleteCompleted(ctx context.Context, owner uuid.UUID) (int64, error)
}

type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (service.Session, error)
	Login(ctx context.Context, in service.LoginInput) (service.Session, error)
}

type ProfileService interface {
	Stats(ctx context.Context, owner uuid.UUID) (model.Stats, error)
	Update(ctx context.Context, id uuid.UUID, in service.ProfileInput) (model.User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, in service.PasswordChangeInput) error
}

const (
	msgServerError  = "Server error."
	msgTaskNotFound = "Task not found."
)

// decode reads a single JSON value from the request body. It answers the
// client itself and returns false when the body is unusable.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		respond.Error(w, r, http.StatusRequestEntityTooLarge, "Request body too large.")
	case errors.Is(err, io.EOF):
		respond.Error(w, r, http.StatusBadRequest, "Request body is required.")
	default:
		respond.Error(w, r, http.StatusBadRequest, "Invalid JSON body.")
	}
	return false
}

// taskID parses the {id} path parameter. A malformed id cannot name any
// task, so it is reported the same way as a missing one.
func taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, http.StatusNotFound, msgTaskNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// handleErrors maps service errors onto the response envelope. notFound is
// the message for service.ErrNotFound.
func handleErrors(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, notFound string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]respond.FieldError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, respond.FieldError{Field: f.Field, Message: f.Message})
		}
		respond.ValidationError(w, r, "Validation failed.", fields)
	case errors.Is(err, service.ErrNotFound):
		respond.Error(w, r, http.StatusNotFound, notFound)
	case errors.Is(err, service.ErrInvalidCredentials):
		respond.Error(w, r, http.StatusUnauthorized, "Invalid email or password.")
	case errors.Is(err, service.ErrWrongPassword):
		respond.Error(w, r, http.StatusBadRequest, "Current password is incorrect.")
	case errors.Is(err, service.ErrDuplicateEmail):
		respond.Error(w, r, http.StatusConflict, "Email already registered.")
	default:
		logger.Error("internal error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respond.Error(w, r, http.StatusInternalServerError, msgServerError)
	}
}

// currentUser returns the identity stored by the authentication gate. The
// owner of every task operation comes from here and nowhere else.
func currentUser(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "Not authorized. Please log in.")
	}
	return u, ok
}

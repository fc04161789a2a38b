package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/service"
	"github.com/BuzzLyutic/taskflow-api/pkg/respond"
)

type TaskHandler struct {
	service TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	// Non-numeric page/limit fall back to the defaults.
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.service.List(r.Context(), u.ID, model.TaskQuery{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Search:   q.Get("search"),
		SortBy:   q.Get("sortBy"),
		Order:    q.Get("order"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	if result.Tasks == nil {
		result.Tasks = []model.Task{}
	}
	respond.Success(w, r, http.StatusOK, respond.Fields{
		"tasks":      result.Tasks,
		"pagination": result.Pagination,
	})
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req service.TaskInput
	if !decode(w, r, &req) {
		return
	}

	idempKey := r.Header.Get("Idempotency-Key")
	task, err := h.service.Create(r.Context(), u.ID, req, idempKey)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%s", task.ID))
	respond.Success(w, r, http.StatusCreated, respond.Fields{"task": task})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.service.Get(r.Context(), u.ID, id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.Success(w, r, http.StatusOK, respond.Fields{"task": task})
}

// Update serves both PUT and PATCH. Either way only the supplied fields change.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req service.TaskPatchInput
	if !decode(w, r, &req) {
		return
	}

	task, err := h.service.Update(r.Context(), u.ID, id, req)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.Success(w, r, http.StatusOK, respond.Fields{"task": task})
}

func (h *TaskHandler) Advance(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.service.Advance(r.Context(), u.ID, id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.Success(w, r, http.StatusOK, respond.Fields{"task": task})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), u.ID, id); err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.Success(w, r, http.StatusOK, respond.Fields{"message": "Task deleted successfully."})
}

func (h *TaskHandler) DeleteCompleted(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.service.DeleteCompleted(r.Context(), u.ID)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.Success(w, r, http.StatusOK, respond.Fields{
		"deleted": n,
		"message": fmt.Sprintf("Deleted %d completed tasks.", n),
	})
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	handleErrors(w, r, h.logger, err, msgTaskNotFound)
}

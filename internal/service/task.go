package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/query"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
)

// TaskInput is the body of a create request. Any owner the client sends is
// not part of it; the owner always comes from the authenticated identity.
type TaskInput struct {
	Title       string   `json:"title" validate:"required,min=3,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Status      string   `json:"status" validate:"omitempty,oneof=todo in-progress completed"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *string  `json:"dueDate" validate:"omitempty,duedate"`
	Tags        []string `json:"tags" validate:"max=10,dive,max=30"`
}

// TaskPatchInput is the body of an update request. Absent fields are kept.
type TaskPatchInput struct {
	Title       *string        `json:"title" validate:"omitnil,min=3,max=100"`
	Description *string        `json:"description" validate:"omitnil,max=500"`
	Status      *string        `json:"status" validate:"omitnil,oneof=todo in-progress completed"`
	Priority    *string        `json:"priority" validate:"omitnil,oneof=low medium high"`
	DueDate     NullableString `json:"dueDate" validate:"-"`
	Tags        *[]string      `json:"tags" validate:"omitnil,max=10,dive,max=30"`
}

// NullableString tells an absent JSON field from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// StatsCache stores per-owner task statistics.
type StatsCache interface {
	Get(ctx context.Context, owner uuid.UUID) (model.Stats, bool, error)
	Version(ctx context.Context, owner uuid.UUID) (int64, error)
	Set(ctx context.Context, owner uuid.UUID, stats model.Stats, version int64) error
	Invalidate(ctx context.Context, owner uuid.UUID) error
}

type TaskService struct {
	repo   repo.TaskRepository
	cache  StatsCache
	val    *Validator
	logger *zap.Logger
}

// NewTaskService wires the task store. cache may be nil.
func NewTaskService(repo repo.TaskRepository, cache StatsCache, logger *zap.Logger) *TaskService {
	if cache == nil {
		cache = nopCache{}
	}
	return &TaskService{repo: repo, cache: cache, val: NewValidator(), logger: logger}
}

// List returns one page of the owner's tasks. The total comes from a separate
// count and may disagree with the page under concurrent writes.
func (s *TaskService) List(ctx context.Context, owner uuid.UUID, req model.TaskQuery) (model.TaskPage, error) {
	q := query.Build(owner, req)

	total, err := s.repo.Count(ctx, q)
	if err != nil {
		return model.TaskPage{}, fmt.Errorf("count tasks: %w", err)
	}
	tasks, err := s.repo.Find(ctx, q)
	if err != nil {
		return model.TaskPage{}, fmt.Errorf("find tasks: %w", err)
	}

	return model.TaskPage{
		Tasks: tasks,
		Pagination: model.Pagination{
			Total: total,
			Page:  q.Page,
			Pages: query.Pages(total, q.Limit),
			Limit: q.Limit,
		},
	}, nil
}

func (s *TaskService) Create(ctx context.Context, owner uuid.UUID, in TaskInput, idempKey string) (model.Task, error) {
	t, err := s.newTask(owner, in)
	if err != nil {
		return model.Task{}, err
	}

	idempKey = strings.TrimSpace(idempKey)
	if idempKey != "" {
		if existingID, err := s.repo.GetIdempotencyKey(ctx, owner, idempKey); err == nil {
			return s.Get(ctx, owner, existingID)
		}
	}

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}

	if idempKey != "" {
		if err := s.repo.SaveIdempotencyKey(ctx, owner, idempKey, created.ID); err != nil {
			s.logger.Warn("failed to save idempotency key", zap.String("key", idempKey), zap.Error(err))
		}
	}
	s.invalidate(ctx, owner)
	return created, nil
}

func (s *TaskService) Get(ctx context.Context, owner, id uuid.UUID) (model.Task, error) {
	t, err := s.repo.Get(ctx, owner, id)
	return t, s.mapError("get task", err)
}

func (s *TaskService) Update(ctx context.Context, owner, id uuid.UUID, in TaskPatchInput) (model.Task, error) {
	patch, err := s.newPatch(in)
	if err != nil {
		return model.Task{}, err
	}
	if patch.Empty() {
		return s.Get(ctx, owner, id)
	}

	t, err := s.repo.Update(ctx, owner, id, patch)
	if err != nil {
		return t, s.mapError("update task", err)
	}
	s.invalidate(ctx, owner)
	return t, nil
}

// Advance moves the task to the next status in the todo -> in-progress ->
// completed -> todo cycle.
func (s *TaskService) Advance(ctx context.Context, owner, id uuid.UUID) (model.Task, error) {
	t, err := s.repo.AdvanceStatus(ctx, owner, id)
	if err != nil {
		return t, s.mapError("advance task", err)
	}
	s.invalidate(ctx, owner)
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		return s.mapError("delete task", err)
	}
	s.invalidate(ctx, owner)
	return nil
}

// DeleteCompleted removes every completed task of owner. Removing nothing is
// not an error.
func (s *TaskService) DeleteCompleted(ctx context.Context, owner uuid.UUID) (int64, error) {
	n, err := s.repo.DeleteMatching(ctx, query.ForOwner(owner).WithStatus(model.StatusCompleted))
	if err != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", err)
	}
	if n > 0 {
		s.invalidate(ctx, owner)
	}
	return n, nil
}

func (s *TaskService) newTask(owner uuid.UUID, in TaskInput) (model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Tags = normalizeTags(in.Tags)
	if err := s.val.Struct(in); err != nil {
		return model.Task{}, err
	}

	t := model.Task{
		OwnerID:     owner,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Tags:        in.Tags,
	}
	if t.Status == "" {
		t.Status = model.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if in.DueDate != nil && strings.TrimSpace(*in.DueDate) != "" {
		d, err := parseDueDate(*in.DueDate)
		if err != nil {
			return model.Task{}, invalid("dueDate", "Invalid date format")
		}
		t.DueDate = &d
	}
	return t, nil
}

func (s *TaskService) newPatch(in TaskPatchInput) (model.TaskPatch, error) {
	in.Title = trimPtr(in.Title)
	in.Description = trimPtr(in.Description)
	if in.Tags != nil {
		tags := normalizeTags(*in.Tags)
		in.Tags = &tags
	}

	var fields []FieldError
	var verr *ValidationError
	if err := s.val.Struct(in); err != nil {
		if !errors.As(err, &verr) {
			return model.TaskPatch{}, err
		}
		fields = append(fields, verr.Fields...)
	}

	patch := model.TaskPatch{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Tags:        in.Tags,
	}
	if in.DueDate.Set {
		if in.DueDate.Value == nil || strings.TrimSpace(*in.DueDate.Value) == "" {
			patch.ClearDueDate = true
		} else if d, err := parseDueDate(*in.DueDate.Value); err != nil {
			fields = append(fields, FieldError{Field: "dueDate", Message: "Invalid date format"})
		} else {
			patch.DueDate = &d
		}
	}

	if len(fields) > 0 {
		return model.TaskPatch{}, &ValidationError{Fields: fields}
	}
	return patch, nil
}

func (s *TaskService) invalidate(ctx context.Context, owner uuid.UUID) {
	if err := s.cache.Invalidate(ctx, owner); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Stringer("owner", owner), zap.Error(err))
	}
}

func (s *TaskService) mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrorNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// normalizeTags trims tags, drops empty ones and duplicates, keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

type nopCache struct{}

func (nopCache) Get(context.Context, uuid.UUID) (model.Stats, bool, error) {
	return model.Stats{}, false, nil
}
func (nopCache) Version(context.Context, uuid.UUID) (int64, error)        { return 0, nil }
func (nopCache) Set(context.Context, uuid.UUID, model.Stats, int64) error { return nil }
func (nopCache) Invalidate(context.Context, uuid.UUID) error              { return nil }

package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	// FilterAll disables a status or priority filter.
	FilterAll = "all"
)

var (
	Statuses   = []string{StatusTodo, StatusInProgress, StatusCompleted}
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

// NextStatus cycles todo -> in-progress -> completed -> todo.
func NextStatus(status string) string {
	switch status {
	case StatusTodo:
		return StatusInProgress
	case StatusInProgress:
		return StatusCompleted
	default:
		return StatusTodo
	}
}

type Task struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskPatch carries a partial update; nil fields are left untouched.
// ClearDueDate removes the due date and wins over DueDate.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *time.Time
	ClearDueDate bool
	Tags         *[]string
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.DueDate == nil && !p.ClearDueDate && p.Tags == nil
}

// TaskQuery is the list request as supplied by a client.
type TaskQuery struct {
	Status   string
	Priority string
	Search   string
	SortBy   string
	Order    string
	Page     int
	Limit    int
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

type TaskPage struct {
	Tasks      []Task     `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

// Stats is the per-status task count of one owner. All keys are always present.
type Stats struct {
	Todo       int `json:"todo"`
	InProgress int `json:"in-progress"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}

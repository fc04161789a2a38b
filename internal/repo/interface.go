package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/query"
)

// TaskRepository persists tasks. Every method is scoped to one owner: either
// explicitly or through a query.StoreQuery built for that owner.
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, owner, id uuid.UUID) (model.Task, error)
	Count(ctx context.Context, q query.StoreQuery) (int, error)
	Find(ctx context.Context, q query.StoreQuery) ([]model.Task, error)
	Update(ctx context.Context, owner, id uuid.UUID, patch model.TaskPatch) (model.Task, error)
	AdvanceStatus(ctx context.Context, owner, id uuid.UUID) (model.Task, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	DeleteMatching(ctx context.Context, q query.StoreQuery) (int64, error)
	CountByStatus(ctx context.Context, owner uuid.UUID) (map[string]int, error)
	SaveIdempotencyKey(ctx context.Context, owner uuid.UUID, key string, taskID uuid.UUID) error
	GetIdempotencyKey(ctx context.Context, owner uuid.UUID, key string) (uuid.UUID, error)
}

// UserRepository is the credential store.
type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	// GetByEmail and GetCredentials include the password hash, GetByID never does.
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetCredentials(ctx context.Context, id uuid.UUID) (model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

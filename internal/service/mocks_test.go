package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/query"
)

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t model.Task) (model.Task, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Get(ctx context.Context, owner, id uuid.UUID) (model.Task, error) {
	args := m.Called(ctx, owner, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Count(ctx context.Context, q query.StoreQuery) (int, error) {
	args := m.Called(ctx, q)
	return args.Int(0), args.Error(1)
}

func (m *MockTaskRepository) Find(ctx context.Context, q query.StoreQuery) ([]model.Task, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, owner, id uuid.UUID, patch model.TaskPatch) (model.Task, error) {
	args := m.Called(ctx, owner, id, patch)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) AdvanceStatus(ctx context.Context, owner, id uuid.UUID) (model.Task, error) {
	args := m.Called(ctx, owner, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, owner, id uuid.UUID) error {
	args := m.Called(ctx, owner, id)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteMatching(ctx context.Context, q query.StoreQuery) (int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) CountByStatus(ctx context.Context, owner uuid.UUID) (map[string]int, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockTaskRepository) SaveIdempotencyKey(ctx context.Context, owner uuid.UUID, key string, taskID uuid.UUID) error {
	args := m.Called(ctx, owner, key, taskID)
	return args.Error(0)
}

func (m *MockTaskRepository) GetIdempotencyKey(ctx context.Context, owner uuid.UUID, key string) (uuid.UUID, error) {
	args := m.Called(ctx, owner, key)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetCredentials(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.User, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

type MockStatsCache struct {
	mock.Mock
}

func (m *MockStatsCache) Get(ctx context.Context, owner uuid.UUID) (model.Stats, bool, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(model.Stats), args.Bool(1), args.Error(2)
}

func (m *MockStatsCache) Version(ctx context.Context, owner uuid.UUID) (int64, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsCache) Set(ctx context.Context, owner uuid.UUID, stats model.Stats, version int64) error {
	args := m.Called(ctx, owner, stats, version)
	return args.Error(0)
}

func (m *MockStatsCache) Invalidate(ctx context.Context, owner uuid.UUID) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}

// plainHasher is a reversible stand-in for bcrypt.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (plainHasher) Verify(password, hash string) bool    { return hash == "hashed:"+password }

type stubMinter struct{}

func (stubMinter) Mint(id uuid.UUID) (string, error) { return "token-" + id.String(), nil }

package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
	"github.com/BuzzLyutic/taskflow-api/internal/service"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) List(ctx context.Context, owner uuid.UUID, req model.TaskQuery) (model.TaskPage, error) {
	args := m.Called(ctx, owner, req)
	return args.Get(0).(model.TaskPage), args.Error(1)
}

func (m *MockTaskService) Create(ctx context.Context, owner uuid.UUID, in service.TaskInput, idempKey string) (model.Task, error) {
	args := m.Called(ctx, owner, in, idempKey)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskService) Get(ctx context.Context, owner, id uuid.UUID) (model.Task, error) {
	args := m.Called(ctx, owner, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskService) Update(ctx context.Context, owner, id uuid.UUID, in service.TaskPatchInput) (model.Task, error) {
	args := m.Called(ctx, owner, id, in)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskService) Advance(ctx context.Context, owner, id uuid.UUID) (model.Task, error) {
	args := m.Called(ctx, owner, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	args := m.Called(ctx, owner, id)
	return args.Error(0)
}

func (m *MockTaskService) DeleteCompleted(ctx context.Context, owner uuid.UUID) (int64, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, in service.RegisterInput) (service.Session, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(service.Session), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, in service.LoginInput) (service.Session, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(service.Session), args.Error(1)
}

type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) Stats(ctx context.Context, owner uuid.UUID) (model.Stats, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(model.Stats), args.Error(1)
}

func (m *MockProfileService) Update(ctx context.Context, id uuid.UUID, in service.ProfileInput) (model.User, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockProfileService) ChangePassword(ctx context.Context, id uuid.UUID, in service.PasswordChangeInput) error {
	args := m.Called(ctx, id, in)
	return args.Error(0)
}

// userDirectory resolves token subjects for the gate.
type userDirectory map[uuid.UUID]model.User

func (d userDirectory) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	u, ok := d[id]
	if !ok {
		return model.User{}, repo.ErrorNotFound
	}
	return u, nil
}

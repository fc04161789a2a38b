package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
)

const (
	minPasswordLength = 8
	// bcrypt refuses longer input.
	maxPasswordBytes = 72
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,passwordbytes,strongpassword"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Name   *string `json:"name" validate:"omitnil,min=2,max=50"`
	Bio    *string `json:"bio" validate:"omitnil,max=200"`
	Avatar *string `json:"avatar" validate:"omitnil,max=500,http_url|len=0"`
}

type PasswordChangeInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenMinter interface {
	Mint(id uuid.UUID) (string, error)
}

// Session is the result of a successful register or login.
type Session struct {
	Token string
	User  model.User
}

// UserService registers and logs in identities.
type UserService struct {
	users  repo.UserRepository
	hasher PasswordHasher
	tokens TokenMinter
	val    *Validator
}

func NewUserService(users repo.UserRepository, hasher PasswordHasher, tokens TokenMinter) *UserService {
	return &UserService{users: users, hasher: hasher, tokens: tokens, val: NewValidator()}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.val.Struct(in); err != nil {
		return Session{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.Create(ctx, model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	})
	if errors.Is(err, repo.ErrorConflict) {
		return Session{}, ErrDuplicateEmail
	}
	if err != nil {
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	return s.session(u)
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.val.Struct(in); err != nil {
		return Session{}, err
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repo.ErrorNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Verify(in.Password, u.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *UserService) session(u model.User) (Session, error) {
	token, err := s.tokens.Mint(u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("mint token: %w", err)
	}
	u.PasswordHash = ""
	return Session{Token: token, User: u}, nil
}

// ProfileService serves the authenticated identity's own profile.
type ProfileService struct {
	users  repo.UserRepository
	tasks  repo.TaskRepository
	hasher PasswordHasher
	cache  StatsCache
	val    *Validator
	logger *zap.Logger
}

// NewProfileService wires the profile operations. cache may be nil.
func NewProfileService(users repo.UserRepository, tasks repo.TaskRepository, hasher PasswordHasher, cache StatsCache, logger *zap.Logger) *ProfileService {
	if cache == nil {
		cache = nopCache{}
	}
	return &ProfileService{users: users, tasks: tasks, hasher: hasher, cache: cache, val: NewValidator(), logger: logger}
}

// Stats counts the owner's tasks per status. Statuses without tasks are zero.
func (s *ProfileService) Stats(ctx context.Context, owner uuid.UUID) (model.Stats, error) {
	if st, ok, err := s.cache.Get(ctx, owner); err != nil {
		s.logger.Warn("stats cache read failed", zap.Stringer("owner", owner), zap.Error(err))
	} else if ok {
		return st, nil
	}

	// The version is read before counting so a write that lands in between
	// keeps these counts out of the cache.
	version, verErr := s.cache.Version(ctx, owner)
	if verErr != nil {
		s.logger.Warn("stats cache version read failed", zap.Stringer("owner", owner), zap.Error(verErr))
	}

	counts, err := s.tasks.CountByStatus(ctx, owner)
	if err != nil {
		return model.Stats{}, fmt.Errorf("count tasks by status: %w", err)
	}
	st := model.Stats{
		Todo:       counts[model.StatusTodo],
		InProgress: counts[model.StatusInProgress],
		Completed:  counts[model.StatusCompleted],
	}
	st.Total = st.Todo + st.InProgress + st.Completed

	if verErr == nil {
		if err := s.cache.Set(ctx, owner, st, version); err != nil {
			s.logger.Warn("stats cache write failed", zap.Stringer("owner", owner), zap.Error(err))
		}
	}
	return st, nil
}

func (s *ProfileService) Update(ctx context.Context, id uuid.UUID, in ProfileInput) (model.User, error) {
	in.Name = trimPtr(in.Name)
	in.Bio = trimPtr(in.Bio)
	in.Avatar = trimPtr(in.Avatar)
	if err := s.val.Struct(in); err != nil {
		return model.User{}, err
	}

	u, err := s.users.UpdateProfile(ctx, id, model.ProfilePatch{Name: in.Name, Bio: in.Bio, Avatar: in.Avatar})
	if errors.Is(err, repo.ErrorNotFound) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// ChangePassword verifies the current password before looking at the new
// one. On any failure the stored credential is left untouched.
func (s *ProfileService) ChangePassword(ctx context.Context, id uuid.UUID, in PasswordChangeInput) error {
	u, err := s.users.GetCredentials(ctx, id)
	if errors.Is(err, repo.ErrorNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	if in.CurrentPassword == "" || !s.hasher.Verify(in.CurrentPassword, u.PasswordHash) {
		return ErrWrongPassword
	}
	if len([]rune(in.NewPassword)) < minPasswordLength {
		return invalid("newPassword", "New password must be at least 8 characters.")
	}
	if len(in.NewPassword) > maxPasswordBytes {
		return invalid("newPassword", "New password must be at most 72 bytes.")
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repo.ErrorNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package repo

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

const userColumns = "id, name, email, password_hash, bio, avatar, role, created_at"

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create inserts u. A taken email yields ErrorConflict.
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, bio, avatar, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Bio, u.Avatar, u.Role,
	)
	out, err := scanUser(row)
	if err != nil {
		return model.User{}, mapError(err)
	}
	out.PasswordHash = ""
	return out, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(email) = lower($1)
	`, email)
	return r.one(row)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	u, err := r.GetCredentials(ctx, id)
	u.PasswordHash = ""
	return u, err
}

func (r *UserRepo) GetCredentials(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return r.one(row)
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.User, error) {
	if patch.Name == nil && patch.Bio == nil && patch.Avatar == nil {
		return r.GetByID(ctx, id)
	}

	b := psql.Update("users").
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + userColumns)
	if patch.Name != nil {
		b = b.Set("name", *patch.Name)
	}
	if patch.Bio != nil {
		b = b.Set("bio", *patch.Bio)
	}
	if patch.Avatar != nil {
		b = b.Set("avatar", *patch.Avatar)
	}

	sql, args, err := b.ToSql()
	if err != nil {
		return model.User{}, err
	}
	u, err := r.one(r.pool.QueryRow(ctx, sql, args...))
	u.PasswordHash = ""
	return u, err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	cmd, err := r.pool.Exec(ctx, "UPDATE users SET password_hash = $2 WHERE id = $1", id, hash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *UserRepo) one(row pgx.Row) (model.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrorNotFound
	}
	return u, err
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Bio, &u.Avatar, &u.Role, &u.CreatedAt)
	return u, err
}

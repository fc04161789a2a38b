package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/query"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
	// ErrUnscoped is returned for a task store call without an owner.
	ErrUnscoped = errors.New("task query without owner")
)

const taskColumns = "id, owner_id, title, description, status, priority, due_date, tags, created_at, updated_at"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type TaskRepo struct {
	pool *pgxpool.Pool
	// keyTTL is how long an idempotency key deduplicates; zero keeps keys
	// live until they are pruned.
	keyTTL time.Duration
}

func NewTaskRepo(pool *pgxpool.Pool, keyTTL time.Duration) *TaskRepo {
	return &TaskRepo{
		pool:   pool,
		keyTTL: keyTTL,
	}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if t.OwnerID == uuid.Nil {
		return t, ErrUnscoped
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, owner_id, title, description, status, priority, due_date, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+taskColumns,
		t.ID, t.OwnerID, t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.Tags,
	)
	out, err := scanTask(row)
	return out, mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, owner, id uuid.UUID) (model.Task, error) {
	if owner == uuid.Nil {
		return model.Task{}, ErrUnscoped
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND owner_id = $2
	`, id, owner)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) Count(ctx context.Context, q query.StoreQuery) (int, error) {
	if !q.Scoped() {
		return 0, ErrUnscoped
	}
	sql, args, err := psql.Select("count(*)").From("tasks").Where(taskFilter(q)).ToSql()
	if err != nil {
		return 0, err
	}

	var n int
	err = r.pool.QueryRow(ctx, sql, args...).Scan(&n)
	return n, err
}

func (r *TaskRepo) Find(ctx context.Context, q query.StoreQuery) ([]model.Task, error) {
	if !q.Scoped() {
		return nil, ErrUnscoped
	}
	sql, args, err := psql.Select(taskColumns).
		From("tasks").
		Where(taskFilter(q)).
		OrderBy(taskOrder(q)...).
		Limit(uint64(q.Limit)).
		Offset(uint64(q.Skip())).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0, q.Limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, owner, id uuid.UUID, patch model.TaskPatch) (model.Task, error) {
	if owner == uuid.Nil {
		return model.Task{}, ErrUnscoped
	}
	b := psql.Update("tasks").
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id, "owner_id": owner}).
		Suffix("RETURNING " + taskColumns)

	if patch.Title != nil {
		b = b.Set("title", *patch.Title)
	}
	if patch.Description != nil {
		b = b.Set("description", *patch.Description)
	}
	if patch.Status != nil {
		b = b.Set("status", *patch.Status)
	}
	if patch.Priority != nil {
		b = b.Set("priority", *patch.Priority)
	}
	switch {
	case patch.ClearDueDate:
		b = b.Set("due_date", nil)
	case patch.DueDate != nil:
		b = b.Set("due_date", *patch.DueDate)
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = []string{}
		}
		b = b.Set("tags", tags)
	}

	sql, args, err := b.ToSql()
	if err != nil {
		return model.Task{}, err
	}

	t, err := scanTask(r.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, mapError(err)
}

func (r *TaskRepo) AdvanceStatus(ctx context.Context, owner, id uuid.UUID) (model.Task, error) {
	if owner == uuid.Nil {
		return model.Task{}, ErrUnscoped
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET status = CASE status
				WHEN 'todo' THEN 'in-progress'
				WHEN 'in-progress' THEN 'completed'
				ELSE 'todo'
			END,
			updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+taskColumns,
		id, owner,
	)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if owner == uuid.Nil {
		return ErrUnscoped
	}
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND owner_id = $2", id, owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) DeleteMatching(ctx context.Context, q query.StoreQuery) (int64, error) {
	if !q.Scoped() {
		return 0, ErrUnscoped
	}
	sql, args, err := psql.Delete("tasks").Where(taskFilter(q)).ToSql()
	if err != nil {
		return 0, err
	}

	cmd, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *TaskRepo) CountByStatus(ctx context.Context, owner uuid.UUID) (map[string]int, error) {
	if owner == uuid.Nil {
		return nil, ErrUnscoped
	}
	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*)
		FROM tasks
		WHERE owner_id = $1
		GROUP BY status
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int, len(model.Statuses))
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// SaveIdempotencyKey keeps the first live mapping for a key. An expired key
// that the janitor has not swept yet is replaced.
func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, owner uuid.UUID, key string, taskID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (owner_id, key, task_id) VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, key) DO UPDATE
		SET task_id = EXCLUDED.task_id, created_at = now()
		WHERE $4::bigint > 0
		  AND idempotency_keys.created_at < now() - $4::bigint * interval '1 microsecond'
	`, owner, key, taskID, r.keyTTL.Microseconds())
	return err
}

// GetIdempotencyKey ignores keys older than the repo's key TTL.
func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, owner uuid.UUID, key string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT task_id FROM idempotency_keys
		WHERE owner_id = $1 AND key = $2
		  AND ($3::bigint <= 0 OR created_at >= now() - $3::bigint * interval '1 microsecond')
	`, owner, key, r.keyTTL.Microseconds()).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return id, ErrorNotFound
	}
	return id, err
}

// PruneIdempotencyKeys removes keys saved before cutoff. Keys are the only
// rows removed here; the tasks they point to stay.
func (r *TaskRepo) PruneIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// taskFilter is the WHERE clause of q. The owner predicate is always first.
func taskFilter(q query.StoreQuery) sq.And {
	cond := sq.And{sq.Eq{"owner_id": q.Owner()}}

	if q.Status != "" {
		cond = append(cond, sq.Eq{"status": q.Status})
	}
	if q.Priority != "" {
		cond = append(cond, sq.Eq{"priority": q.Priority})
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		cond = append(cond, sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
			sq.Expr("EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE ?)", pattern),
		})
	}
	return cond
}

// taskOrder maps the sort field to columns. id breaks ties so that paging is stable.
func taskOrder(q query.StoreQuery) []string {
	dir := " DESC"
	if !q.Desc {
		dir = " ASC"
	}

	var primary string
	switch q.Sort {
	case query.SortDueDate:
		primary = "due_date" + dir + " NULLS LAST"
	case query.SortPriority:
		primary = "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END" + dir
	case query.SortTitle:
		primary = "lower(title)" + dir
	default:
		primary = "created_at" + dir
	}
	return []string{primary, "id" + dir}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.DueDate, &t.Tags, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return ErrorConflict
		}
	}
	return err
}

package query

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

func TestBuild(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name  string
		req   model.TaskQuery
		check func(*testing.T, StoreQuery)
	}{
		{
			name: "defaults",
			req:  model.TaskQuery{},
			check: func(t *testing.T, q StoreQuery) {
				assert.Empty(t, q.Status)
				assert.Empty(t, q.Priority)
				assert.Empty(t, q.Search)
				assert.Equal(t, SortCreatedAt, q.Sort)
				assert.True(t, q.Desc)
				assert.Equal(t, 1, q.Page)
				assert.Equal(t, 20, q.Limit)
				assert.Equal(t, 0, q.Skip())
			},
		},
		{
			name: "all sentinel imposes nothing",
			req:  model.TaskQuery{Status: "all", Priority: "all"},
			check: func(t *testing.T, q StoreQuery) {
				assert.Empty(t, q.Status)
				assert.Empty(t, q.Priority)
			},
		},
		{
			name: "filters and search",
			req:  model.TaskQuery{Status: "completed", Priority: "high", Search: "  foo "},
			check: func(t *testing.T, q StoreQuery) {
				assert.Equal(t, "completed", q.Status)
				assert.Equal(t, "high", q.Priority)
				assert.Equal(t, "foo", q.Search)
			},
		},
		{
			name: "ascending sort by priority",
			req:  model.TaskQuery{SortBy: "priority", Order: "asc"},
			check: func(t *testing.T, q StoreQuery) {
				assert.Equal(t, SortPriority, q.Sort)
				assert.False(t, q.Desc)
			},
		},
		{
			name: "unknown sort falls back",
			req:  model.TaskQuery{SortBy: "password", Order: "sideways"},
			check: func(t *testing.T, q StoreQuery) {
				assert.Equal(t, SortCreatedAt, q.Sort)
				assert.True(t, q.Desc)
			},
		},
		{
			name: "paging",
			req:  model.TaskQuery{Page: 3, Limit: 15},
			check: func(t *testing.T, q StoreQuery) {
				assert.Equal(t, 3, q.Page)
				assert.Equal(t, 15, q.Limit)
				assert.Equal(t, 30, q.Skip())
			},
		},
		{
			name: "non-positive paging clamps to defaults",
			req:  model.TaskQuery{Page: -4, Limit: 0},
			check: func(t *testing.T, q StoreQuery) {
				assert.Equal(t, 1, q.Page)
				assert.Equal(t, 20, q.Limit)
			},
		},
		{
			name: "huge page clamps and keeps the offset positive",
			req:  model.TaskQuery{Page: 500_000_000_000_000_000, Limit: 20},
			check: func(t *testing.T, q StoreQuery) {
				assert.Equal(t, MaxPage, q.Page)
				assert.Equal(t, (MaxPage-1)*20, q.Skip())
				assert.Greater(t, q.Skip(), 0)
			},
		},
		{
			name: "limit capped",
			req:  model.TaskQuery{Limit: 10_000},
			check: func(t *testing.T, q StoreQuery) {
				assert.Equal(t, MaxLimit, q.Limit)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Build(owner, tt.req)
			assert.Equal(t, owner, q.Owner())
			assert.True(t, q.Scoped())
			tt.check(t, q)
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	owner := uuid.New()
	req := model.TaskQuery{Status: "todo", Search: "x", SortBy: "title", Order: "asc", Page: 2, Limit: 5}

	assert.Equal(t, Build(owner, req), Build(owner, req))
}

func TestSkip_Saturates(t *testing.T) {
	q := StoreQuery{Page: math.MaxInt, Limit: MaxLimit}
	assert.Equal(t, math.MaxInt, q.Skip())

	assert.Equal(t, 0, StoreQuery{Page: 0, Limit: 20}.Skip())
	assert.Equal(t, 0, StoreQuery{Page: 2, Limit: 0}.Skip())
}

func TestZeroQueryIsUnscoped(t *testing.T) {
	var q StoreQuery
	assert.False(t, q.Scoped())
}

func TestWithStatus(t *testing.T) {
	base := ForOwner(uuid.New())
	q := base.WithStatus(model.StatusCompleted)

	assert.Equal(t, model.StatusCompleted, q.Status)
	assert.Empty(t, base.Status)
	assert.Equal(t, base.Owner(), q.Owner())
}

func TestPages(t *testing.T) {
	assert.Equal(t, 0, Pages(0, 20))
	assert.Equal(t, 1, Pages(1, 20))
	assert.Equal(t, 1, Pages(20, 20))
	assert.Equal(t, 2, Pages(21, 20))
	assert.Equal(t, 0, Pages(5, 0))
}

// Package query turns a client task-list request into a normalized,
// owner-scoped store query.
//
// A StoreQuery can only be obtained through Build or ForOwner, so every query
// handed to the task store carries the owner of the request.
package query

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit inside the store's offset range.
	MaxPage = math.MaxInt32
)

type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortDueDate   SortField = "dueDate"
	SortPriority  SortField = "priority"
	SortTitle     SortField = "title"
)

var sortFields = map[string]SortField{
	string(SortCreatedAt): SortCreatedAt,
	string(SortDueDate):   SortDueDate,
	string(SortPriority):  SortPriority,
	string(SortTitle):     SortTitle,
}

type StoreQuery struct {
	owner uuid.UUID

	// Empty Status/Priority/Search impose no constraint.
	Status   string
	Priority string
	Search   string

	Sort SortField
	Desc bool

	Page  int
	Limit int
}

// ForOwner returns an unfiltered query over all tasks of owner, newest first.
func ForOwner(owner uuid.UUID) StoreQuery {
	return StoreQuery{
		owner: owner,
		Sort:  SortCreatedAt,
		Desc:  true,
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}
}

// Build normalizes req into a query scoped to owner. It never fails: unknown
// sort fields fall back to creation time, any order other than "asc" sorts
// descending, and page/limit are clamped.
func Build(owner uuid.UUID, req model.TaskQuery) StoreQuery {
	q := ForOwner(owner)

	if s := strings.TrimSpace(req.Status); s != "" && s != model.FilterAll {
		q.Status = s
	}
	if p := strings.TrimSpace(req.Priority); p != "" && p != model.FilterAll {
		q.Priority = p
	}
	q.Search = strings.TrimSpace(req.Search)

	if f, ok := sortFields[req.SortBy]; ok {
		q.Sort = f
	}
	q.Desc = !strings.EqualFold(req.Order, "asc")

	switch {
	case req.Page > MaxPage:
		q.Page = MaxPage
	case req.Page > 0:
		q.Page = req.Page
	}
	switch {
	case req.Limit > MaxLimit:
		q.Limit = MaxLimit
	case req.Limit > 0:
		q.Limit = req.Limit
	}
	return q
}

func (q StoreQuery) Owner() uuid.UUID { return q.owner }

// Scoped reports whether the query has an owner.
func (q StoreQuery) Scoped() bool { return q.owner != uuid.Nil }

// Skip is the row offset of the page. It saturates instead of overflowing.
func (q StoreQuery) Skip() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// WithStatus returns a copy restricted to status.
func (q StoreQuery) WithStatus(status string) StoreQuery {
	q.Status = status
	return q
}

// Pages is ceil(total/limit).
func Pages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

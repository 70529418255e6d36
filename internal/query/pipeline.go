package query

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sort is the applied ordering, as reported to clients.
type Sort struct {
	Column string `json:"column"`
	Dir    string `json:"dir"`
}

// FilterState reports the applied filter and the ones on offer.
type FilterState struct {
	Applied   *string        `json:"applied"`
	Available []FilterOption `json:"available"`
}

// Pagination describes the current page of a list.
type Pagination struct {
	TotalItems   int64  `json:"totalItems"`
	CurrentPage  int    `json:"currentPage"`
	ItemsPerPage int    `json:"itemsPerPage"`
	TotalPages   int    `json:"totalPages"`
	URLPath      string `json:"urlPath"`
	URLQuery     string `json:"urlQuery"` // Request query without the page parameter
	NextPage     *int   `json:"nextPage"`
	PrevPage     *int   `json:"prevPage"`
}

// Result is one page of records plus everything the envelope reports about it.
type Result[T any] struct {
	Items         []T
	Pagination    Pagination
	Search        *string
	Sort          Sort
	Filters       FilterState
	Notifications []Notification
}

// Run resolves p against cfg and executes the list query for model T.
// Extra scopes (preloads, tenant restrictions) are applied to the page query only.
func Run[T any](ctx context.Context, db *gorm.DB, cfg Config, p Params, reqURL *url.URL, scopes ...func(*gorm.DB) *gorm.DB) (Result[T], error) {
	r, notes := cfg.Resolve(p)

	base := Apply(db.WithContext(ctx).Model(new(T)), cfg, r).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return Result[T]{}, fmt.Errorf("failed to count records: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(r.PerPage)))
	if last := max(totalPages, 1); r.Page > last {
		notes = append(notes, Notification{
			Type:    NotifyInfo,
			Message: fmt.Sprintf("Page %d does not exist, showing page %d.", r.Page, last),
		})
		r.Page = last
	}

	items := make([]T, 0, r.PerPage)
	page := Order(base, r).Scopes(scopes...).Limit(r.PerPage).Offset((r.Page - 1) * r.PerPage)
	if err := page.Find(&items).Error; err != nil {
		return Result[T]{}, fmt.Errorf("failed to fetch records: %w", err)
	}

	res := Result[T]{
		Items:         items,
		Pagination:    NewPagination(total, r.Page, r.PerPage, reqURL),
		Sort:          Sort{Column: r.Sort, Dir: r.Dir},
		Filters:       FilterState{Available: cfg.AvailableFilters()},
		Notifications: notes,
	}
	if r.Search != "" {
		res.Search = &r.Search
	}
	if r.Filter != nil {
		key := r.Filter.Key
		res.Filters.Applied = &key
	}
	return res, nil
}

// Apply adds the trashed, search and filter conditions of r to q.
func Apply(q *gorm.DB, cfg Config, r Resolved) *gorm.DB {
	switch r.Trashed {
	case TrashedWith:
		q = q.Unscoped()
	case TrashedOnly:
		q = q.Unscoped().Where("deleted_at IS NOT NULL")
	}

	if r.Search != "" && len(cfg.Searchable) > 0 {
		like := "%" + escapeLike(strings.ToLower(r.Search)) + "%"
		group := q.Session(&gorm.Session{NewDB: true})
		for i, col := range cfg.Searchable {
			cond := fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '!'", col)
			if i == 0 {
				group = group.Where(cond, like)
			} else {
				group = group.Or(cond, like)
			}
		}
		q = q.Where(group)
	}

	if r.Filter != nil {
		q = r.Filter.Scope(q)
	}
	return q
}

// Order applies the resolved sort with id as a stable tiebreaker.
func Order(q *gorm.DB, r Resolved) *gorm.DB {
	desc := r.Dir == DirDesc
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: r.Sort}, Desc: desc})
	if r.Sort != "id" {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
	return q
}

// NewPagination computes page metadata. reqURL may be nil.
func NewPagination(total int64, page, perPage int, reqURL *url.URL) Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	p := Pagination{
		TotalItems:   total,
		CurrentPage:  page,
		ItemsPerPage: perPage,
		TotalPages:   totalPages,
	}
	if reqURL != nil {
		p.URLPath = reqURL.Path
		q := reqURL.Query()
		q.Del(KeyPage)
		p.URLQuery = q.Encode()
	}
	if page < totalPages {
		next := page + 1
		p.NextPage = &next
	}
	if page > 1 {
		prev := page - 1
		p.PrevPage = &prev
	}
	return p
}

// escapeLike neutralises LIKE wildcards using '!' as the escape character,
// which every supported database accepts without dialect-specific quoting.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

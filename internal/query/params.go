// Package query implements the list pipeline shared by every resource:
// search, filter, sort and paginate, with invalid input falling back to
// defaults and an advisory notification instead of failing the request.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Query string keys read by ParseParams.
const (
	KeyPage    = "page"
	KeyPerPage = "per_page"
	KeySort    = "sort"
	KeyDir     = "dir"
	KeyFilter  = "filter"
	KeySearch  = "search"
	KeyTrashed = "trashed"
)

// Sort directions.
const (
	DirAsc  = "asc"
	DirDesc = "desc"
)

// Soft-delete visibility values for the trashed parameter.
const (
	TrashedWith = "with"
	TrashedOnly = "only"
)

const (
	defaultPerPage = 25
	maxPerPage     = 100
)

// Notification types.
const (
	NotifyInfo    = "info"
	NotifyWarning = "warning"
)

// Notification is an advisory message returned alongside data.
type Notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Params are the raw list parameters as received.
type Params struct {
	Page    string
	PerPage string
	Sort    string
	Dir     string
	Filter  string
	Search  string
	Trashed string
}

// ParseParams reads list parameters from a query string.
func ParseParams(v url.Values) Params {
	return Params{
		Page:    v.Get(KeyPage),
		PerPage: v.Get(KeyPerPage),
		Sort:    v.Get(KeySort),
		Dir:     v.Get(KeyDir),
		Filter:  v.Get(KeyFilter),
		Search:  v.Get(KeySearch),
		Trashed: v.Get(KeyTrashed),
	}
}

// Filter is a named, predefined restriction of a list.
type Filter struct {
	Key   string
	Label string
	Scope func(*gorm.DB) *gorm.DB
}

// FilterOption is the public description of a Filter.
type FilterOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Config is the per-resource whitelist the pipeline validates against.
type Config struct {
	Searchable     []string // Columns matched by search
	Sortable       []string // Columns accepted by sort
	DefaultSort    string   // Defaults to "id"
	DefaultDir     string   // Defaults to asc
	PerPage        int      // Defaults to 25
	PerPageOptions []int    // When empty any value from 1 to 100 is accepted
	Filters        []Filter
}

// Resolved holds validated list parameters.
type Resolved struct {
	Page    int
	PerPage int
	Sort    string
	Dir     string
	Filter  *Filter
	Search  string
	Trashed string
}

// Validate checks the configuration itself.
func (c Config) Validate() error {
	if c.DefaultSort != "" && !contains(c.Sortable, c.DefaultSort) && c.DefaultSort != "id" {
		return fmt.Errorf("default sort %q is not sortable", c.DefaultSort)
	}
	if c.DefaultDir != "" && c.DefaultDir != DirAsc && c.DefaultDir != DirDesc {
		return fmt.Errorf("invalid default direction %q", c.DefaultDir)
	}
	if len(c.PerPageOptions) > 0 && !containsInt(c.PerPageOptions, c.perPage()) {
		return fmt.Errorf("default per page %d is not one of the options", c.perPage())
	}
	seen := make(map[string]bool)
	for _, f := range c.Filters {
		if f.Key == "" || f.Scope == nil {
			return fmt.Errorf("filter needs a key and a scope")
		}
		if seen[f.Key] {
			return fmt.Errorf("duplicate filter %q", f.Key)
		}
		seen[f.Key] = true
	}
	return nil
}

// Resolve validates raw parameters. Anything invalid is replaced by its
// default and reported as a warning notification.
func (c Config) Resolve(p Params) (Resolved, []Notification) {
	var notes []Notification
	warn := func(format string, args ...interface{}) {
		notes = append(notes, Notification{Type: NotifyWarning, Message: fmt.Sprintf(format, args...)})
	}

	r := Resolved{
		Page:    1,
		PerPage: c.perPage(),
		Sort:    c.defaultSort(),
		Dir:     c.defaultDir(),
		Search:  strings.TrimSpace(p.Search),
	}

	if p.Page != "" {
		page, err := strconv.Atoi(strings.TrimSpace(p.Page))
		if err != nil || page < 1 {
			warn("Invalid page %q, showing page 1.", p.Page)
		} else {
			r.Page = page
		}
	}

	if p.PerPage != "" {
		perPage, err := strconv.Atoi(strings.TrimSpace(p.PerPage))
		if err != nil || !c.perPageAllowed(perPage) {
			warn("Invalid per_page %q, showing %d items per page.", p.PerPage, r.PerPage)
		} else {
			r.PerPage = perPage
		}
	}

	if p.Sort != "" {
		sort := strings.TrimSpace(p.Sort)
		if contains(c.Sortable, sort) {
			r.Sort = sort
		} else {
			warn("Cannot sort by %q, sorted by %s instead.", p.Sort, r.Sort)
		}
	}

	if p.Dir != "" {
		dir := strings.ToLower(strings.TrimSpace(p.Dir))
		if dir == DirAsc || dir == DirDesc {
			r.Dir = dir
		} else {
			warn("Invalid sort direction %q, using %s.", p.Dir, r.Dir)
		}
	}

	if p.Filter != "" {
		key := strings.TrimSpace(p.Filter)
		if f := c.filter(key); f != nil {
			r.Filter = f
		} else {
			warn("Unknown filter %q, showing all records.", p.Filter)
		}
	}

	if p.Trashed != "" {
		trashed := strings.ToLower(strings.TrimSpace(p.Trashed))
		if trashed == TrashedWith || trashed == TrashedOnly {
			r.Trashed = trashed
		} else {
			warn("Invalid trashed value %q, deleted records are hidden.", p.Trashed)
		}
	}

	return r, notes
}

// AvailableFilters lists the filters in declaration order.
func (c Config) AvailableFilters() []FilterOption {
	out := make([]FilterOption, 0, len(c.Filters))
	for _, f := range c.Filters {
		out = append(out, FilterOption{Key: f.Key, Label: f.Label})
	}
	return out
}

func (c Config) perPage() int {
	if c.PerPage > 0 {
		return c.PerPage
	}
	return defaultPerPage
}

func (c Config) perPageAllowed(n int) bool {
	if len(c.PerPageOptions) > 0 {
		return containsInt(c.PerPageOptions, n)
	}
	return n >= 1 && n <= maxPerPage
}

func (c Config) defaultSort() string {
	if c.DefaultSort != "" {
		return c.DefaultSort
	}
	return "id"
}

func (c Config) defaultDir() string {
	if c.DefaultDir != "" {
		return c.DefaultDir
	}
	return DirAsc
}

func (c Config) filter(key string) *Filter {
	for i := range c.Filters {
		if c.Filters[i].Key == key {
			return &c.Filters[i]
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

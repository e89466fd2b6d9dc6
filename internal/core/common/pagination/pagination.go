package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/core/common/validation"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 100
	MaxLimit     = 200

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Params is a parsed list window. Limit is never clamped here; out of range
// values are rejected when parsing.
type Params struct {
	Skip      int    `query:"skip" validate:"min=0"`
	Limit     int    `query:"limit" validate:"min=0,max=200"`
	SortBy    string `query:"sort_by"`
	SortOrder string `query:"sort_order" validate:"oneof=asc desc"`
	Search    string `query:"search" validate:"max=255"`
}

func Default() Params {
	return Params{Limit: DefaultLimit, SortOrder: SortDesc}
}

// FromQuery reads skip, limit, sort_by, sort_order and search from q.
func FromQuery(q url.Values) (Params, error) {
	p := Default()

	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Params{}, errors.NewValidationFieldError("skip", "skip must be an integer", errors.ErrCodeInvalidPagination)
		}
		p.Skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Params{}, errors.NewValidationFieldError("limit", "limit must be an integer", errors.ErrCodeInvalidPagination)
		}
		p.Limit = n
	}
	if v := q.Get("sort_order"); v != "" {
		p.SortOrder = strings.ToLower(v)
	}
	p.SortBy = strings.TrimSpace(q.Get("sort_by"))
	p.Search = strings.TrimSpace(q.Get("search"))

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) Validate() error {
	if err := validation.Struct(p); err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			cp := *appErr
			cp.Code = errors.ErrCodeInvalidPagination
			return &cp
		}
		return err
	}
	return nil
}

// OrderClause resolves SortBy against the allowed column map. Unknown keys
// fall back to fallback without error.
func (p Params) OrderClause(allowed map[string]string, fallback string) string {
	column, ok := allowed[p.SortBy]
	if !ok {
		column = fallback
	}
	direction := "DESC"
	if p.SortOrder == SortAsc {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s", column, direction)
}

// SearchPattern returns the lowercase LIKE pattern for Search.
func (p Params) SearchPattern() string {
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(strings.ToLower(p.Search))
	return "%" + escaped + "%"
}

// Apply adds ordering and the skip/limit window to db. A secondary id
// ordering keeps pages stable across equal sort keys.
func (p Params) Apply(db *gorm.DB, allowed map[string]string, fallback string) *gorm.DB {
	return db.Order(p.OrderClause(allowed, fallback)).
		Order("id ASC").
		Offset(p.Skip).
		Limit(p.Limit)
}

type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func NewPage[T any](items []T, total int64, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Limit: p.Limit, Offset: p.Skip}
}

// Map converts every item of page with fn, keeping the window.
func Map[S, T any](page Page[S], fn func(S) T) Page[T] {
	out := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		out = append(out, fn(item))
	}
	return Page[T]{Items: out, Total: page.Total, Limit: page.Limit, Offset: page.Offset}
}

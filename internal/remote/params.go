package remote

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many documents any list call can request.
	MaxLimit = 100
)

// ListParams maps onto the document store's collection query convention
// (_page/_limit/_sort/_order).
type ListParams struct {
	Page  int
	Limit int
	Sort  string
	Order string
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func (p ListParams) query() url.Values {
	values := url.Values{}
	if p.Page > 0 {
		values.Set("_page", strconv.Itoa(p.Page))
		values.Set("_limit", strconv.Itoa(NormalizeLimit(p.Limit)))
	} else if p.Limit > 0 {
		values.Set("_limit", strconv.Itoa(NormalizeLimit(p.Limit)))
	}
	if sort := strings.TrimSpace(p.Sort); sort != "" {
		values.Set("_sort", sort)
		order := strings.ToLower(strings.TrimSpace(p.Order))
		if order != "desc" {
			order = "asc"
		}
		values.Set("_order", order)
	}
	return values
}

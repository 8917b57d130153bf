package web

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Paginator carries the page window requested via the query string. Count is
// filled in by the caller once the total is known.
type Paginator struct {
	Page         int `json:"page"`
	ItemsPerPage int `json:"items_per_page"`
	Count        int `json:"count"`
}

// ParsePaginator reads the page/items_per_page query params. Both absent means
// no pagination (nil, nil); both must be positive integers otherwise.
func ParsePaginator(q url.Values) (*Paginator, Errors) {
	pageStr := q.Get("page")
	perPageStr := q.Get("items_per_page")
	if pageStr == "" && perPageStr == "" {
		return nil, nil
	}

	errs := Errors{}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		errs["page"] = fmt.Sprintf("Please enter a number that is 1 or greater (got %q)", pageStr)
	}
	perPage, err := strconv.Atoi(perPageStr)
	if err != nil || perPage < 1 {
		errs["items_per_page"] = fmt.Sprintf("Please enter a number that is 1 or greater (got %q)", perPageStr)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &Paginator{Page: page, ItemsPerPage: perPage}, nil
}

func (p *Paginator) LimitOffset() (limit, offset int) {
	return p.ItemsPerPage, (p.Page - 1) * p.ItemsPerPage
}

// WrapPage builds the paginated response envelope.
func WrapPage(p *Paginator, items any) map[string]any {
	return map[string]any{"paginator": p, "items": items}
}

// ParseOrderBy translates the order_by_attribute/order_by_direction query
// params into an ORDER BY clause. Attributes are resolved against columns, a
// map from exposed attribute name to SQL column; unknown attributes fall back
// to the default ordering. An invalid direction is a validation error.
func ParseOrderBy(q url.Values, columns map[string]string, defaultClause string) (string, Errors) {
	direction := strings.ToLower(q.Get("order_by_direction"))
	switch direction {
	case "":
		direction = "asc"
	case "asc", "desc":
	default:
		return "", Errors{"order_by_direction": "Value must be one of: asc; desc"}
	}

	col, ok := columns[q.Get("order_by_attribute")]
	if !ok {
		return defaultClause, nil
	}
	return col + " " + strings.ToUpper(direction), nil
}

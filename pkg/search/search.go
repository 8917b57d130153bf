// Package search translates JSON search expressions into SQL predicates.
//
// A filter expression is a JSON array in one of these shapes:
//
//	[attribute, relation, value]
//	[model, attribute, relation, value]
//	["and", [expr, ...]]
//	["or", [expr, ...]]
//	["not", expr]
//
// Attributes are resolved against a per-model column map so a query can never
// reach columns the resource does not expose.
package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"oldb/pkg/web"
)

const malformedKey = "Malformed query error"

// Request is the body of a search call.
type Request struct {
	Query     Query          `json:"query"`
	Paginator *web.Paginator `json:"paginator"`
}

type Query struct {
	Filter  json.RawMessage `json:"filter"`
	OrderBy []string        `json:"order_by"`
}

// Builder translates filter expressions for a single model.
type Builder struct {
	model   string
	columns map[string]string
}

func NewBuilder(model string, columns map[string]string) *Builder {
	return &Builder{model: model, columns: columns}
}

// Translate compiles the raw filter into a WHERE clause with $n placeholders
// starting at argOffset+1. An empty filter yields the always-true clause.
func (b *Builder) Translate(filter json.RawMessage, argOffset int) (string, []any, error) {
	if len(filter) == 0 || string(filter) == "null" {
		return "TRUE", nil, nil
	}
	var expr any
	if err := json.Unmarshal(filter, &expr); err != nil {
		return "", nil, web.Errors{malformedKey: "The submitted query was malformed"}
	}
	errs := web.Errors{}
	n := argOffset
	clause, args := b.translate(expr, &n, errs)
	if len(errs) > 0 {
		return "", nil, errs
	}
	return clause, args, nil
}

// OrderBy resolves a ["attribute", "direction"] pair against the column map.
func (b *Builder) OrderBy(orderBy []string, defaultClause string) (string, error) {
	if len(orderBy) == 0 {
		return defaultClause, nil
	}
	col, ok := b.columns[orderBy[0]]
	if !ok {
		return "", web.Errors{orderBy[0]: fmt.Sprintf(
			"Searching on %s.%s is not permitted", b.model, orderBy[0])}
	}
	direction := "ASC"
	if len(orderBy) > 1 {
		switch strings.ToLower(orderBy[1]) {
		case "asc", "":
		case "desc":
			direction = "DESC"
		default:
			return "", web.Errors{"order_by_direction": "Value must be one of: asc; desc"}
		}
	}
	return col + " " + direction, nil
}

func (b *Builder) translate(expr any, n *int, errs web.Errors) (string, []any) {
	arr, ok := expr.([]any)
	if !ok || len(arr) < 2 {
		errs[malformedKey] = "The submitted query was malformed"
		return "FALSE", nil
	}

	head, _ := arr[0].(string)
	switch strings.ToLower(head) {
	case "and", "or":
		sub, ok := arr[1].([]any)
		if !ok || len(sub) == 0 {
			errs[malformedKey] = "The submitted query was malformed"
			return "FALSE", nil
		}
		clauses := make([]string, 0, len(sub))
		var args []any
		for _, s := range sub {
			c, a := b.translate(s, n, errs)
			clauses = append(clauses, c)
			args = append(args, a...)
		}
		op := " AND "
		if strings.ToLower(head) == "or" {
			op = " OR "
		}
		return "(" + strings.Join(clauses, op) + ")", args
	case "not":
		c, a := b.translate(arr[1], n, errs)
		return "NOT " + c, a
	default:
		return b.simple(arr, n, errs)
	}
}

func (b *Builder) simple(arr []any, n *int, errs web.Errors) (string, []any) {
	// Accept both [attr, rel, val] and [model, attr, rel, val].
	if len(arr) == 4 {
		model, _ := arr[0].(string)
		if model != b.model {
			errs[model] = fmt.Sprintf("Searching the %s model by %s is not permitted", b.model, model)
			return "FALSE", nil
		}
		arr = arr[1:]
	}
	if len(arr) != 3 {
		errs[malformedKey] = "The submitted query was malformed"
		return "FALSE", nil
	}

	attr, _ := arr[0].(string)
	rel, _ := arr[1].(string)
	value := arr[2]

	col, ok := b.columns[attr]
	if !ok {
		errs[fmt.Sprintf("%s.%s", b.model, attr)] = fmt.Sprintf(
			"Searching on %s.%s is not permitted", b.model, attr)
		return "FALSE", nil
	}

	switch strings.ToLower(rel) {
	case "=":
		if value == nil {
			return col + " IS NULL", nil
		}
		*n++
		return fmt.Sprintf("%s = $%d", col, *n), []any{value}
	case "!=":
		if value == nil {
			return col + " IS NOT NULL", nil
		}
		*n++
		return fmt.Sprintf("%s != $%d", col, *n), []any{value}
	case "like":
		*n++
		return fmt.Sprintf("%s LIKE $%d", col, *n), []any{value}
	case "regex", "regexp":
		*n++
		return fmt.Sprintf("%s ~ $%d", col, *n), []any{value}
	case "<", ">", "<=", ">=":
		*n++
		return fmt.Sprintf("%s %s $%d", col, rel, *n), []any{value}
	case "in":
		items, ok := value.([]any)
		if !ok || len(items) == 0 {
			errs[malformedKey] = "The submitted query was malformed"
			return "FALSE", nil
		}
		placeholders := make([]string, len(items))
		for i := range items {
			*n++
			placeholders[i] = fmt.Sprintf("$%d", *n)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")), items
	default:
		errs[rel] = fmt.Sprintf("The relation %s is not permitted for %s.%s", rel, b.model, attr)
		return "FALSE", nil
	}
}

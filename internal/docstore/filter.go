package docstore

import (
	"fmt"
	"regexp"
	"strings"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Filter selects documents of a collection. Field names address JSON keys of the
// stored document; nested keys are joined with dots.
type Filter interface {
	where() (string, []any, error)
}

type filterFunc func() (string, []any, error)

func (f filterFunc) where() (string, []any, error) { return f() }

func fieldExpr(field string) (string, error) {
	if !fieldPattern.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return fmt.Sprintf("json_extract(body, '$.%s')", field), nil
}

// bindValue converts Go values into something SQLite compares equal to what
// json_extract yields for the same JSON value.
func bindValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// All matches every document.
func All() Filter {
	return filterFunc(func() (string, []any, error) { return "1", nil, nil })
}

// ByID matches the document with the given id.
func ByID(id string) Filter {
	return Eq("_id", id)
}

// Eq matches documents whose field equals value. A nil value matches missing fields.
func Eq(field string, value any) Filter {
	return filterFunc(func() (string, []any, error) {
		expr, err := fieldExpr(field)
		if err != nil {
			return "", nil, err
		}
		if value == nil {
			return expr + " IS NULL", nil, nil
		}
		return expr + " = ?", []any{bindValue(value)}, nil
	})
}

// Ne matches documents whose field differs from value, including documents missing it.
func Ne(field string, value any) Filter {
	return filterFunc(func() (string, []any, error) {
		expr, err := fieldExpr(field)
		if err != nil {
			return "", nil, err
		}
		if value == nil {
			return expr + " IS NOT NULL", nil, nil
		}
		return fmt.Sprintf("(%s IS NULL OR %s != ?)", expr, expr), []any{bindValue(value)}, nil
	})
}

// In matches documents whose field equals any of values. An empty set matches nothing.
func In[V any](field string, values []V) Filter {
	return filterFunc(func() (string, []any, error) {
		expr, err := fieldExpr(field)
		if err != nil {
			return "", nil, err
		}
		if len(values) == 0 {
			return "0", nil, nil
		}
		args := make([]any, 0, len(values))
		for _, v := range values {
			args = append(args, bindValue(v))
		}
		return fmt.Sprintf("%s IN (%s)", expr, placeholders(len(values))), args, nil
	})
}

// Gt matches documents whose field is strictly greater than value.
func Gt(field string, value any) Filter {
	return compare(field, ">", value)
}

// Lt matches documents whose field is strictly less than value.
func Lt(field string, value any) Filter {
	return compare(field, "<", value)
}

func compare(field, op string, value any) Filter {
	return filterFunc(func() (string, []any, error) {
		expr, err := fieldExpr(field)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s ?", expr, op), []any{bindValue(value)}, nil
	})
}

// And matches documents satisfying every filter. No filters matches everything.
func And(filters ...Filter) Filter {
	return join(" AND ", "1", filters)
}

// Or matches documents satisfying at least one filter. No filters matches nothing.
func Or(filters ...Filter) Filter {
	return join(" OR ", "0", filters)
}

func join(sep, empty string, filters []Filter) Filter {
	return filterFunc(func() (string, []any, error) {
		if len(filters) == 0 {
			return empty, nil, nil
		}
		parts := make([]string, 0, len(filters))
		var args []any
		for _, f := range filters {
			clause, fargs, err := f.where()
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+clause+")")
			args = append(args, fargs...)
		}
		return strings.Join(parts, sep), args, nil
	})
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ParseFunc converts a raw query-string value into a bind value
type ParseFunc func(raw string) (interface{}, error)

// Filter is an optional equality predicate driven by a query parameter
type Filter struct {
	Param  string
	Column string
	Parse  ParseFunc
}

// ListSpec describes one entity's list endpoint
type ListSpec struct {
	Columns      []string
	From         string
	Filters      []Filter
	Search       []string
	OrderBy      string
	DefaultLimit int
	MaxLimit     int
}

// Cond is a server-side equality predicate the client cannot influence
type Cond struct {
	Column string
	Value  interface{}
}

// Params are the caller-supplied list options
type Params struct {
	Filters map[string]string
	Search  string
	Limit   int
	Offset  int
	Scope   []Cond
}

// ParamsFromValues reads search, limit, offset and filter values from a query string.
func ParamsFromValues(values url.Values) (Params, error) {
	p := Params{Filters: make(map[string]string), Search: strings.TrimSpace(values.Get("search"))}

	var err error
	if raw := values.Get("limit"); raw != "" {
		if p.Limit, err = strconv.Atoi(raw); err != nil {
			return Params{}, apperrors.Validationf("invalid limit %q", raw)
		}
	}
	if raw := values.Get("offset"); raw != "" {
		if p.Offset, err = strconv.Atoi(raw); err != nil {
			return Params{}, apperrors.Validationf("invalid offset %q", raw)
		}
	}

	for key := range values {
		switch key {
		case "search", "limit", "offset":
			continue
		}
		p.Filters[key] = strings.TrimSpace(values.Get(key))
	}
	return p, nil
}

// Where adds a server-side scope predicate
func (p Params) Where(column string, value interface{}) Params {
	scope := make([]Cond, 0, len(p.Scope)+1)
	scope = append(scope, p.Scope...)
	p.Scope = append(scope, Cond{Column: column, Value: value})
	return p
}

// Without drops caller filters that a scope makes meaningless
func (p Params) Without(params ...string) Params {
	filters := make(map[string]string, len(p.Filters))
	for k, v := range p.Filters {
		filters[k] = v
	}
	for _, name := range params {
		delete(filters, name)
	}
	p.Filters = filters
	return p
}

// ListQuery is a built page query together with its count query
type ListQuery struct {
	Page   Statement
	Count  Statement
	Limit  int
	Offset int
}

// Build renders the page and count statements for p.
// Unknown filter params are ignored; empty values are skipped.
func (s ListSpec) Build(p Params) (ListQuery, error) {
	var b binder
	where := []string{"TRUE"}

	for _, c := range p.Scope {
		where = append(where, fmt.Sprintf("%s = %s", c.Column, b.bind(c.Value)))
	}

	for _, f := range s.Filters {
		raw := strings.TrimSpace(p.Filters[f.Param])
		if raw == "" {
			continue
		}
		var value interface{} = raw
		if f.Parse != nil {
			v, err := f.Parse(raw)
			if err != nil {
				return ListQuery{}, apperrors.Validation(fmt.Sprintf("invalid %s filter", f.Param), err)
			}
			value = v
		}
		where = append(where, fmt.Sprintf("%s = %s", f.Column, b.bind(value)))
	}

	if term := strings.TrimSpace(p.Search); term != "" && len(s.Search) > 0 {
		ph := b.bind(containsPattern(term))
		parts := make([]string, len(s.Search))
		for i, col := range s.Search {
			parts[i] = fmt.Sprintf("%s ILIKE %s", col, ph)
		}
		where = append(where, "("+strings.Join(parts, " OR ")+")")
	}

	whereSQL := strings.Join(where, " AND ")
	count := Statement{
		SQL:  fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", s.From, whereSQL),
		Args: b.snapshot(),
	}

	limit, offset := s.window(p.Limit, p.Offset)
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(s.Columns, ", "), s.From, whereSQL)
	if s.OrderBy != "" {
		sql += " ORDER BY " + s.OrderBy
	}
	sql += fmt.Sprintf(" LIMIT %s OFFSET %s", b.bind(limit), b.bind(offset))

	return ListQuery{
		Page:   Statement{SQL: sql, Args: b.snapshot()},
		Count:  count,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (s ListSpec) window(limit, offset int) (int, int) {
	def, max := s.DefaultLimit, s.MaxLimit
	if def <= 0 {
		def = DefaultLimit
	}
	if max <= 0 {
		max = MaxLimit
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// AsInt64 parses a positive integer id
func AsInt64(raw string) (interface{}, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, fmt.Errorf("%q is not a valid id", raw)
	}
	return v, nil
}

// AsEnum accepts only the listed values
func AsEnum[T ~string](allowed ...T) ParseFunc {
	return func(raw string) (interface{}, error) {
		for _, a := range allowed {
			if string(a) == raw {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of %v", raw, allowed)
	}
}

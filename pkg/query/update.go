package query

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
)

// Patch is a partial-update payload keyed by client field name
type Patch map[string]json.RawMessage

// Has reports whether key was supplied, even as null
func (p Patch) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Text returns the string value of key when it is a JSON string
func (p Patch) Text(key string) (string, bool) {
	raw, ok := p[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Field maps a client key onto a column
type Field struct {
	Key    string
	Column string
	Decode Decoder
}

// Env carries request-scoped values for derived columns
type Env struct {
	Now     time.Time
	ActorID int64
}

// Assignment is one derived SET clause
type Assignment struct {
	Column       string
	Value        interface{}
	KeepExisting bool
}

// Rule derives an extra assignment from the payload. It is skipped when the
// payload already carries Key.
type Rule struct {
	Key   string
	Apply func(p Patch, env Env) (Assignment, bool)
}

// StampWhen sets column to the current time when trigger equals value.
// An existing timestamp is kept, so the column records the first transition.
func StampWhen(trigger, value, column string) Rule {
	return Rule{
		Key: column,
		Apply: func(p Patch, env Env) (Assignment, bool) {
			v, ok := p.Text(trigger)
			if !ok || v != value {
				return Assignment{}, false
			}
			return Assignment{Column: column, Value: env.Now, KeepExisting: true}, true
		},
	}
}

// ActorOn records the acting principal whenever trigger is present.
func ActorOn(trigger, column string) Rule {
	return Rule{
		Key: column,
		Apply: func(p Patch, env Env) (Assignment, bool) {
			if !p.Has(trigger) || env.ActorID <= 0 {
				return Assignment{}, false
			}
			return Assignment{Column: column, Value: env.ActorID}, true
		},
	}
}

// UpdateSpec describes one entity's partial-update endpoint
type UpdateSpec struct {
	Table     string
	Key       string
	Fields    []Field
	Rules     []Rule
	Stamp     string
	Returning []string
}

// Build renders an UPDATE for the allow-listed keys in p.
// Keys outside the allow-list are ignored. Returns ErrNoFieldsToUpdate
// when none remain.
func (s UpdateSpec) Build(id interface{}, p Patch, env Env) (Statement, error) {
	var b binder
	var sets []string

	for _, f := range s.Fields {
		raw, ok := p[f.Key]
		if !ok {
			continue
		}
		var value interface{}
		if f.Decode != nil {
			v, err := f.Decode(raw)
			if err != nil {
				return Statement{}, apperrors.Validation(fmt.Sprintf("invalid value for %s", f.Key), err)
			}
			value = v
		} else {
			value = string(raw)
		}
		sets = append(sets, fmt.Sprintf("%s = %s", f.Column, b.bind(value)))
	}

	if len(sets) == 0 {
		return Statement{}, apperrors.ErrNoFieldsToUpdate
	}

	for _, r := range s.Rules {
		if p.Has(r.Key) {
			continue
		}
		a, ok := r.Apply(p, env)
		if !ok {
			continue
		}
		ph := b.bind(a.Value)
		if a.KeepExisting {
			sets = append(sets, fmt.Sprintf("%s = COALESCE(%s, %s)", a.Column, a.Column, ph))
		} else {
			sets = append(sets, fmt.Sprintf("%s = %s", a.Column, ph))
		}
	}

	if s.Stamp != "" {
		sets = append(sets, fmt.Sprintf("%s = %s", s.Stamp, b.bind(env.Now)))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		s.Table, strings.Join(sets, ", "), s.Key, b.bind(id))
	if len(s.Returning) > 0 {
		sql += " RETURNING " + strings.Join(s.Returning, ", ")
	}
	return Statement{SQL: sql, Args: b.snapshot()}, nil
}

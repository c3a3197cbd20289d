package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

func init() {
	// money goes over the wire as a JSON number
	decimal.MarshalJSONWithoutQuotes = true
}

const dateLayout = "2006-01-02"

// Date is a calendar date rendered as YYYY-MM-DD
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Text list limits
const (
	MaxTextListItems = 50
	MaxTextListItem  = 500
)

var (
	ErrTextListTooLong = fmt.Errorf("list must have at most %d items", MaxTextListItems)
	ErrTextItemTooLong = fmt.Errorf("list items must be at most %d characters", MaxTextListItem)
)

// TextList is a JSONB array of short strings. NULL reads as an empty list.
type TextList []string

// NormalizeTextList trims items, drops blanks and enforces the size limits.
func NormalizeTextList(items []string) ([]string, error) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if utf8.RuneCountInString(item) > MaxTextListItem {
			return nil, ErrTextItemTooLong
		}
		out = append(out, item)
	}
	if len(out) > MaxTextListItems {
		return nil, ErrTextListTooLong
	}
	return out, nil
}

func (l TextList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l TextList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *TextList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = TextList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into TextList", src)
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return errors.New("stored list is not a JSON array of strings")
	}
	*l = TextList(items)
	if *l == nil {
		*l = TextList{}
	}
	return nil
}

// Page is one window of a list result
type Page[T any] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}

// MapPage converts the items of p and keeps its window
func MapPage[T, U any](p *Page[T], fn func(T) U) *Page[U] {
	out := &Page[U]{Total: p.Total, Limit: p.Limit, Offset: p.Offset}
	if p.Items != nil {
		out.Items = make([]U, len(p.Items))
		for i, item := range p.Items {
			out.Items[i] = fn(item)
		}
	}
	return out
}

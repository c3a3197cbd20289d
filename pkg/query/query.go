// Package query builds parameterized SQL for list/filter and partial-update
// endpoints from per-entity declarative field maps. Values are always bound
// as $n placeholders; only column names from the specs reach the SQL text.
package query

import (
	"strconv"
	"strings"
)

// Statement is a SQL string with its positional arguments
type Statement struct {
	SQL  string
	Args []interface{}
}

type binder struct {
	args []interface{}
}

func (b *binder) bind(v interface{}) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *binder) snapshot() []interface{} {
	out := make([]interface{}, len(b.args))
	copy(out, b.args)
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a search term into an ILIKE pattern matching it anywhere.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

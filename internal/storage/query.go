package storage

import (
	"strconv"
	"strings"
)

// placeholder renders the n-th (1-based) bind parameter for a dialect
type placeholder func(n int) string

func sqlitePlaceholder(int) string { return "?" }

func postgresPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// whereBuilder accumulates AND-ed conditions with dialect placeholders
type whereBuilder struct {
	ph    placeholder
	conds []string
	args  []any
}

func newWhere(ph placeholder) *whereBuilder {
	return &whereBuilder{ph: ph}
}

// eq adds "column = value" when value is non-empty
func (w *whereBuilder) eq(column, value string) *whereBuilder {
	if value == "" {
		return w
	}
	w.args = append(w.args, value)
	w.conds = append(w.conds, column+" = "+w.ph(len(w.args)))
	return w
}

// next returns the placeholder for an extra trailing argument
func (w *whereBuilder) next(arg any) string {
	w.args = append(w.args, arg)
	return w.ph(len(w.args))
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func completionWhere(filter CompletionFilter, ph placeholder) *whereBuilder {
	return newWhere(ph).
		eq("wallet", filter.Wallet).
		eq("mission_id", filter.MissionID).
		eq("evidence", filter.Evidence)
}

package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLite stores a time as text carrying its own offset, so values are
// compared as strings. Every bound time is converted to UTC first.
func utc(args []any) []any {
	for i, a := range args {
		switch v := a.(type) {
		case time.Time:
			args[i] = v.UTC()
		case *time.Time:
			if v != nil {
				t := v.UTC()
				args[i] = &t
			}
		}
	}
	return args
}

func exec(e sqlx.Execer, query string, args ...any) (sql.Result, error) {
	return e.Exec(query, utc(args)...)
}

func getOne(q sqlx.Queryer, dest any, query string, args ...any) error {
	return sqlx.Get(q, dest, query, utc(args)...)
}

func selectAll(q sqlx.Queryer, dest any, query string, args ...any) error {
	return sqlx.Select(q, dest, query, utc(args)...)
}

// where accumulates AND-ed conditions with numbered placeholders so the
// same query text runs on both SQLite and PostgreSQL.
type where struct {
	conds []string
	args  []any
}

// arg registers a value and returns its placeholder.
func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) add(cond string) {
	w.conds = append(w.conds, cond)
}

// in returns a parenthesised placeholder list for vals.
func (w *where) in(vals []string) string {
	ph := make([]string, len(vals))
	for i, v := range vals {
		ph[i] = w.arg(v)
	}
	return "(" + strings.Join(ph, ", ") + ")"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// like registers a case-insensitive substring pattern. Wildcards in term
// match literally.
func (w *where) like(term string) string {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
	return w.arg(pattern) + ` ESCAPE '\'`
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// isUniqueViolation matches unique constraint errors from SQLite and PostgreSQL.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value")
}

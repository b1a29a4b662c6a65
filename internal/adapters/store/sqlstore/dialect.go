package sqlstore

import (
	"strconv"
	"strings"

	"github.com/lib/pq"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Queries are written with ? placeholders and rebound per dialect.
type dialect struct {
	driver   string
	numbered bool
	lockRow  string
	lockSkip string
}

var (
	postgresDialect = dialect{
		driver:   DriverPostgres,
		numbered: true,
		lockRow:  " FOR UPDATE",
		lockSkip: " FOR UPDATE SKIP LOCKED",
	}
	// SQLite has no row locks; the store keeps a single connection so
	// transactions are serialized instead.
	sqliteDialect = dialect{driver: DriverSQLite}
)

func dialectFor(driver string) (dialect, bool) {
	switch driver {
	case DriverPostgres:
		return postgresDialect, true
	case DriverSQLite:
		return sqliteDialect, true
	default:
		return dialect{}, false
	}
}

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) inIDs(column string, ids []int64) (string, []any) {
	if d.numbered {
		return column + " = ANY(?)", []any{pq.Array(ids)}
	}

	args := make([]any, len(ids))
	marks := make([]string, len(ids))
	for i, id := range ids {
		args[i] = id
		marks[i] = "?"
	}
	return column + " IN (" + strings.Join(marks, ", ") + ")", args
}

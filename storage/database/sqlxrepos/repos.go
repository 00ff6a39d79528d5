// Package sqlxrepos implements the core repository interfaces on Postgres
// with sqlx and squirrel-built queries.
package sqlxrepos

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/ujuzi/core"
)

// psql builds queries with Postgres $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// executor picks the caller's transaction when one was passed, the repo's
// default handle otherwise.
func executor(db core.DB, exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return db
}

func isNoRows(err error) bool { return err == sql.ErrNoRows }

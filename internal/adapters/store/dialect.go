package store

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// dialect holds the SQL that differs between backends. Queries use '?'
// placeholders and are rebound for the driver when the store is built.
type dialect struct {
	name          string
	driver        string
	goose         goose.Dialect
	migrationsDir string
	// lockSuffix is appended to the snapshot query
	lockSuffix string
	// appendColumns is the select list feeding INSERT ... SELECT for appends
	appendColumns string
	upsertCursor  string
	isUnique      func(err error) bool
}

var sqliteDialect = dialect{
	name:          "sqlite",
	driver:        "sqlite3",
	goose:         goose.DialectSQLite3,
	migrationsDir: "migrations/sqlite",
	// write transactions already begin IMMEDIATE, see sqliteDSN
	lockSuffix:    "",
	appendColumns: "tenant_id, ?, ?, ?, ?",
	upsertCursor: `
		INSERT INTO drain_cursors (tenant_id, last_drain_ms)
		VALUES (?, ?)
		ON CONFLICT (tenant_id) DO UPDATE
		SET last_drain_ms = MAX(drain_cursors.last_drain_ms, excluded.last_drain_ms)`,
	isUnique: func(err error) bool {
		var se sqlite3.Error
		if !errors.As(err, &se) {
			return false
		}
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
	},
}

var mysqlDialect = dialect{
	name:          "mysql",
	driver:        "mysql",
	goose:         goose.DialectMySQL,
	migrationsDir: "migrations/mysql",
	lockSuffix:    " FOR UPDATE",
	appendColumns: "tenant_id, ?, ?, ?, ?",
	upsertCursor: `
		INSERT INTO drain_cursors (tenant_id, last_drain_ms)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE
			last_drain_ms = GREATEST(last_drain_ms, VALUES(last_drain_ms))`,
	isUnique: func(err error) bool {
		var me *mysql.MySQLError
		// ER_DUP_ENTRY
		return errors.As(err, &me) && me.Number == 1062
	},
}

var postgresDialect = dialect{
	name:          "postgres",
	driver:        "pgx",
	goose:         goose.DialectPostgres,
	migrationsDir: "migrations/postgres",
	lockSuffix:    " FOR UPDATE",
	// parameters in a select list are untyped in postgres
	appendColumns: "tenant_id, CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS BIGINT)",
	upsertCursor: `
		INSERT INTO drain_cursors (tenant_id, last_drain_ms)
		VALUES (?, ?)
		ON CONFLICT (tenant_id) DO UPDATE
		SET last_drain_ms = GREATEST(drain_cursors.last_drain_ms, EXCLUDED.last_drain_ms)`,
	isUnique: func(err error) bool {
		var pe *pgconn.PgError
		// unique_violation
		return errors.As(err, &pe) && pe.Code == "23505"
	},
}

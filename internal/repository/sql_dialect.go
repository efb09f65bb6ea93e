package repository

import (
	"fmt"
	"strings"
)

// sqlDialect captures what differs between the SQL backends.
type sqlDialect struct {
	name       string
	driver     string
	schema     []string
	numbered   bool // $1, $2 placeholders instead of ?
	returning  bool // INSERT ... RETURNING id instead of LastInsertId
	maxOpen    int
	maxIdle    int
	singleConn bool
}

var sqliteDialect = sqlDialect{
	name:   "sqlite",
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS purchase_tables (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id INTEGER NOT NULL REFERENCES purchase_tables(id),
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchase_rows_table ON purchase_rows(table_id, id)`,
	},
	singleConn: true,
}

var postgresDialect = sqlDialect{
	name:   "postgres",
	driver: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS purchase_tables (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_rows (
			id BIGSERIAL PRIMARY KEY,
			table_id BIGINT NOT NULL REFERENCES purchase_tables(id),
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchase_rows_table ON purchase_rows(table_id, id)`,
	},
	numbered:  true,
	returning: true,
	maxOpen:   25,
	maxIdle:   10,
}

var mysqlDialect = sqlDialect{
	name:   "mysql",
	driver: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS purchase_tables (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			title VARCHAR(64) NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_rows (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			table_id BIGINT NOT NULL,
			value TEXT NOT NULL,
			INDEX idx_purchase_rows_table (table_id, id)
		)`,
	},
	maxOpen: 10,
	maxIdle: 5,
}

// rebind rewrites ? placeholders for dialects that number them.
func (d sqlDialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

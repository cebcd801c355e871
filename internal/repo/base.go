// Package repo holds the plumbing shared by gorm-backed stores.
package repo

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Base carries the connection for a SQL-backed store. Embed it.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the connection bound to ctx. A nil ctx returns the raw
// connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// SQLDB exposes the pooled database/sql handle, for health checks.
func (b Base) SQLDB() (*sql.DB, error) {
	return b.conn.DB()
}

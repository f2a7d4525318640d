package store

import (
	"context"
	"database/sql"
	"sync"
)

// store implements Store on top of database/sql.
type store struct {
	db *sql.DB
	mu sync.Mutex
	*queries
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

// Occupancy is the slot usage of one open event.
type Occupancy struct {
	EventID  string
	MaxUsers int
	Occupied int
}

// Duplicate is a (event, user) pair with more than one registration row.
type Duplicate struct {
	EventID string
	UserID  string
	Count   int
}

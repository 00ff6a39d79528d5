// Package dummy provides in-memory implementations of the storage interfaces
// for tests and local hacking. Writes are not transactional: Rollback is a
// no-op, so only happy paths behave like the real database.
package dummy

import (
	"context"
	"database/sql"

	"github.com/trezcool/ujuzi/core"
)

type DB struct{}

var _ core.DB = (*DB)(nil)

func NewDB() *DB { return &DB{} }

func (db *DB) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (db *DB) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (db *DB) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }
func (db *DB) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return nil
}
func (db *DB) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return nil
}

func (db *DB) BeginTx(context.Context, *sql.TxOptions) (core.DBTransactor, error) {
	return tx{db}, nil
}

type tx struct{ *DB }

func (tx) Commit() error   { return nil }
func (tx) Rollback() error { return nil }

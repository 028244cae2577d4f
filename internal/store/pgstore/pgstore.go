// Package pgstore implements store.Store on PostgreSQL with plain SQL.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/safar/shop-api/internal/database"
	"github.com/safar/shop-api/internal/store"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var tables = map[store.Collection]string{
	store.Users:      "users",
	store.Categories: "categories",
	store.Products:   "products",
	store.Orders:     "orders",
}

func (s *Store) Existing(ctx context.Context, c store.Collection, ids []string) (map[string]struct{}, error) {
	table, ok := tables[c]
	if !ok {
		return nil, fmt.Errorf("existing: unknown collection %q", c)
	}

	found := make(map[string]struct{})
	ids = store.Dedupe(ids)
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE id = ANY($1)`, table),
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("existing %s: %w", c, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return found, nil
}

func translate(op string, err error) error {
	switch database.ClassifyError(err) {
	case database.ErrorClassNotFound:
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case database.ErrorClassDuplicate:
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func optArray(v *[]string) interface{} {
	if v == nil {
		return nil
	}
	return pq.Array(nonNil(*v))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

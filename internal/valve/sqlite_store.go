package valve

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SQLiteStore keeps one row per valve in the valves table.
//
// The table is created by the embedded migrations; see the migrations
// package. Attributes are stored as a JSON object in a TEXT column.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore returns a store using db. The caller owns db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns all valves ordered by their stored position.
func (s *SQLiteStore) Load(ctx context.Context) ([]Valve, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, attributes FROM valves ORDER BY position, id")
	if err != nil {
		return nil, fmt.Errorf("querying valves: %w", err)
	}
	defer rows.Close()

	var valves []Valve
	for rows.Next() {
		var (
			v     Valve
			attrs string
		)
		if err := rows.Scan(&v.ID, &attrs); err != nil {
			return nil, fmt.Errorf("scanning valve: %w", err)
		}
		if attrs != "" && attrs != "{}" {
			if err := json.Unmarshal([]byte(attrs), &v.Attributes); err != nil {
				return nil, fmt.Errorf("%w: valve %d attributes: %w", ErrInvalidValve, v.ID, err)
			}
		}
		valves = append(valves, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating valves: %w", err)
	}
	return valves, nil
}

// Save replaces every row inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, valves []Valve) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM valves"); err != nil {
		return fmt.Errorf("clearing valves: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO valves (id, position, attributes) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range valves {
		attrs := []byte("{}")
		if len(v.Attributes) > 0 {
			attrs, err = json.Marshal(v.Attributes)
			if err != nil {
				return fmt.Errorf("encoding valve %d attributes: %w", v.ID, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, v.ID, i, string(attrs)); err != nil {
			return fmt.Errorf("inserting valve %d: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing valves: %w", err)
	}
	return nil
}

package thing

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SQLiteStore persists things in a relational table with an
// auto-incrementing primary key. All statements are parameterised.
//
// The opaque body is stored as a JSON blob; the identifier and creator
// identity live in their own columns and are folded back into the map
// on read.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed store. The schema must already
// be applied (see the migrations package).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Insert stores a new thing and returns the AUTOINCREMENT identifier.
func (s *SQLiteStore) Insert(ctx context.Context, t Thing) (int64, error) {
	body, who, err := encodeBody(t)
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO things (body, who) VALUES (?, ?)",
		body, who,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting thing: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	return id, nil
}

// Replace swaps the stored body for the given identifier.
// Zero rows affected means the identifier is missing: a silent no-op.
func (s *SQLiteStore) Replace(ctx context.Context, id int64, t Thing) error {
	body, who, err := encodeBody(t)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE things SET body = ?, who = ? WHERE id = ?",
		body, who, id,
	); err != nil {
		return fmt.Errorf("replacing thing: %w", err)
	}
	return nil
}

// Remove deletes the row with the given identifier.
func (s *SQLiteStore) Remove(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM things WHERE id = ?", id,
	); err != nil {
		return fmt.Errorf("removing thing: %w", err)
	}
	return nil
}

// List returns all things in insertion (primary key) order.
func (s *SQLiteStore) List(ctx context.Context) ([]Thing, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, body, who FROM things ORDER BY id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing things: %w", err)
	}
	defer rows.Close()

	items := make([]Thing, 0)
	for rows.Next() {
		var id int64
		var body, who string
		if err := rows.Scan(&id, &body, &who); err != nil {
			return nil, fmt.Errorf("scanning thing: %w", err)
		}

		t := Thing{}
		if err := json.Unmarshal([]byte(body), &t); err != nil {
			return nil, fmt.Errorf("decoding thing %d: %w", id, err)
		}
		t.SetID(id)
		if who != "" {
			t.SetWho(who)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating things: %w", err)
	}
	return items, nil
}

// Persist is a no-op: SQLite commits each statement durably.
func (s *SQLiteStore) Persist(_ context.Context) error {
	return nil
}

// encodeBody marshals the opaque fields of a thing, lifting the
// identifier and creator identity out of the blob.
func encodeBody(t Thing) (body, who string, err error) {
	opaque := t.Clone()
	who = opaque.Who()
	delete(opaque, FieldID)
	delete(opaque, FieldCID)
	delete(opaque, FieldWho)

	data, err := json.Marshal(opaque)
	if err != nil {
		return "", "", fmt.Errorf("encoding thing body: %w", err)
	}
	return string(data), who, nil
}

// Package store provides SQLite-backed save slots for biome configs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/biome/config"
)

var (
	// ErrSlotNotFound is returned for names with no saved slot.
	ErrSlotNotFound = errors.New("save slot not found")
	// ErrInvalidSlotName is returned for blank slot names.
	ErrInvalidSlotName = errors.New("save slot name is required")
)

// Slot is a named, saved biome.
type Slot struct {
	Name    string       `json:"name"`
	Config  config.Biome `json:"config"`
	SavedAt time.Time    `json:"savedAt"`
}

// slotRow is the database form of a slot.
type slotRow struct {
	Name    string `db:"name"`
	Config  string `db:"config_json"`
	SavedAt int64  `db:"saved_at"` // unix milliseconds
}

func (r slotRow) slot() (Slot, error) {
	biome, err := config.ParseBiome([]byte(r.Config))
	if err != nil {
		return Slot{}, fmt.Errorf("decode slot %q: %w", r.Name, err)
	}
	return Slot{Name: r.Name, Config: biome, SavedAt: time.UnixMilli(r.SavedAt)}, nil
}

// Store wraps a SQLite connection holding save slots.
type Store struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS slots (
		name TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		saved_at INTEGER NOT NULL
	);`
	_, err := s.conn.Exec(schema)
	return err
}

// Save stores biome under name, replacing any slot with the same name.
func (s *Store) Save(ctx context.Context, name string, biome config.Biome) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidSlotName
	}
	if err := biome.Validate(); err != nil {
		return err
	}
	data, err := biome.MarshalJSONIndent()
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO slots (name, config_json, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET config_json = excluded.config_json, saved_at = excluded.saved_at`,
		name, string(data), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save slot %q: %w", name, err)
	}
	return nil
}

// List returns all slots, oldest first.
func (s *Store) List(ctx context.Context) ([]Slot, error) {
	var rows []slotRow
	if err := s.conn.SelectContext(ctx, &rows, `SELECT name, config_json, saved_at FROM slots ORDER BY saved_at, name`); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	slots := make([]Slot, 0, len(rows))
	for _, r := range rows {
		slot, err := r.slot()
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// Get returns the slot saved under name.
func (s *Store) Get(ctx context.Context, name string) (Slot, error) {
	var row slotRow
	err := s.conn.GetContext(ctx, &row, `SELECT name, config_json, saved_at FROM slots WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return Slot{}, fmt.Errorf("%w: %q", ErrSlotNotFound, name)
	}
	if err != nil {
		return Slot{}, fmt.Errorf("get slot %q: %w", name, err)
	}
	return row.slot()
}

// Delete removes the slot saved under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete slot %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete slot %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrSlotNotFound, name)
	}
	return nil
}

// Package library persists named BASIC programs in a SQLite database so
// the shell's SAVE/LOAD/FILES/KILL commands survive restarts. Programs
// are stored as expanded source text, one row per owner and name.
package library

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/journich/altairbasic/pkg/logger"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a named program does not exist.
var ErrNotFound = errors.New("program not found")

// Entry describes one stored program.
type Entry struct {
	Name    string
	Lines   int
	Updated time.Time
}

// Store is a program library backed by an open database.
type Store struct {
	db *sql.DB
}

// Open connects to (or creates) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info(logger.AreaDatabase, "program library opened: %s", path)
	return s, nil
}

// NewWithDB wraps an existing connection, for callers that share one
// database between packages.
func NewWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		source TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (owner, name)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create programs table: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeName canonicalizes program names: trimmed, uppercased, the way
// filenames on the original cassette interface were.
func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Save stores (or replaces) a program under the owner's name.
func (s *Store) Save(owner, name, source string) error {
	name = normalizeName(name)
	if name == "" {
		return errors.New("program name is empty")
	}
	_, err := s.db.Exec(
		`INSERT INTO programs (owner, name, source, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(owner, name) DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at`,
		owner, name, source, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save program %q: %w", name, err)
	}
	logger.Debug(logger.AreaLibrary, "saved program %q for %q (%d bytes)", name, owner, len(source))
	return nil
}

// Load fetches a program's source text.
func (s *Store) Load(owner, name string) (string, error) {
	name = normalizeName(name)
	var source string
	err := s.db.QueryRow(
		`SELECT source FROM programs WHERE owner = ? AND name = ?`,
		owner, name).Scan(&source)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load program %q: %w", name, err)
	}
	logger.Debug(logger.AreaLibrary, "loaded program %q for %q", name, owner)
	return source, nil
}

// List returns the owner's programs, newest first.
func (s *Store) List(owner string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT name, source, updated_at FROM programs WHERE owner = ? ORDER BY updated_at DESC`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var name, source string
		var updated int64
		if err := rows.Scan(&name, &source, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan program row: %w", err)
		}
		lines := 0
		for _, l := range strings.Split(source, "\n") {
			if strings.TrimSpace(l) != "" {
				lines++
			}
		}
		entries = append(entries, Entry{Name: name, Lines: lines, Updated: time.Unix(updated, 0)})
	}
	return entries, rows.Err()
}

// Delete removes a stored program; deleting an absent one is ErrNotFound.
func (s *Store) Delete(owner, name string) error {
	name = normalizeName(name)
	res, err := s.db.Exec(
		`DELETE FROM programs WHERE owner = ? AND name = ?`, owner, name)
	if err != nil {
		return fmt.Errorf("failed to delete program %q: %w", name, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	logger.Debug(logger.AreaLibrary, "deleted program %q for %q", name, owner)
	return nil
}

package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// EntryType is the docset entry type stored in searchIndex.type.
type EntryType string

const (
	Section   EntryType = "Section"
	Class     EntryType = "Class"
	Modifier  EntryType = "Modifier"
	Property  EntryType = "Property"
	Function  EntryType = "Function"
	Directive EntryType = "Directive"
)

// EntryTypes lists every type in the order the sanity table is reported.
var EntryTypes = []EntryType{Section, Class, Modifier, Property, Function, Directive}

// ParseEntryType maps a type name (case-insensitive) to an EntryType.
func ParseEntryType(s string) (EntryType, error) {
	for _, t := range EntryTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entry type %q", s)
}

// Entry is one row of the search index.
type Entry struct {
	Name string    `json:"name"`
	Type EntryType `json:"type"`
	Path string    `json:"path"`
}

type DB struct {
	conn *sql.DB
}

// Create removes any existing index at dbPath and opens a fresh one.
func Create(dbPath string) (*DB, error) {
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing old index: %w", err)
	}
	return Open(dbPath)
}

// Open opens (creating if needed) the index at dbPath.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	// A docset viewer reads the file directly, so stay on the rollback journal.
	dsn := "file:" + dbPath + "?_txlock=immediate&_busy_timeout=5000"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	d := &DB{conn: conn}
	if err := d.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return d, nil
}

// OpenExisting opens an index that must already exist, e.g. for dump/diff.
func OpenExisting(dbPath string) (*DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	return Open(dbPath)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS searchIndex (
			id INTEGER PRIMARY KEY,
			name TEXT,
			type TEXT,
			path TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS anchor ON searchIndex (name, type, path)`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("executing %q: %w", q, err)
		}
	}
	return nil
}

// Insert adds an entry. Re-inserting an existing (name, type, path) is a no-op.
func (db *DB) Insert(e Entry) error {
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO searchIndex (name, type, path) VALUES (?, ?, ?)`,
		e.Name, string(e.Type), e.Path,
	)
	if err != nil {
		return fmt.Errorf("inserting %s %q: %w", e.Type, e.Name, err)
	}
	return nil
}

// Query selects entries for Count. Empty Path matches any path; with
// Prefix set, Path is matched as a prefix instead of exactly.
type Query struct {
	Type   EntryType
	Name   string
	Path   string
	Prefix bool
}

func (db *DB) Count(q Query) (int, error) {
	query := `SELECT COUNT(*) FROM searchIndex WHERE type = ? AND name = ?`
	params := []interface{}{string(q.Type), q.Name}

	switch {
	case q.Path == "":
	case q.Prefix:
		query += ` AND substr(path, 1, length(?)) = ?`
		params = append(params, q.Path, q.Path)
	default:
		query += ` AND path = ?`
		params = append(params, q.Path)
	}

	var n int
	if err := db.conn.QueryRow(query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s %q: %w", q.Type, q.Name, err)
	}
	return n, nil
}

// Entries returns every entry ordered by (name, type, path).
func (db *DB) Entries() ([]Entry, error) {
	rows, err := db.conn.Query(`SELECT name, type, path FROM searchIndex ORDER BY name, type, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var typ string
		if err := rows.Scan(&e.Name, &typ, &e.Path); err != nil {
			return nil, err
		}
		e.Type = EntryType(typ)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByType returns the number of entries per type.
func (db *DB) CountByType() (map[EntryType]int, error) {
	rows, err := db.conn.Query(`SELECT type, COUNT(*) FROM searchIndex GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[EntryType]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[EntryType(typ)] = n
	}
	return counts, rows.Err()
}

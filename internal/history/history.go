// Package history archives built versions: each archive directory holds the
// version descriptor and a zstd-compressed JSON dump of the index.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/jcdickinson/twdocset/internal/db"
	"github.com/jcdickinson/twdocset/internal/version"
)

const dumpName = "index.json.zst"

// ErrNoBaseline is returned when no archived version precedes the one asked for.
var ErrNoBaseline = errors.New("no previous version archived")

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) versionDir(v version.Version) string {
	return filepath.Join(s.dir, v.String())
}

// Versions returns every archived version in ascending order. A missing
// archive directory is an empty history.
func (s *Store) Versions() ([]version.Version, error) {
	dirents, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var vs []version.Version
	for _, de := range dirents {
		if !de.IsDir() {
			continue
		}
		v, err := version.Load(filepath.Join(s.dir, de.Name(), version.FileName))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		vs = append(vs, v)
	}
	version.Sort(vs)
	return vs, nil
}

// Save archives v with the given index entries.
func (s *Store) Save(v version.Version, entries []db.Entry) error {
	dir := s.versionDir(v)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}
	if err := writeDump(filepath.Join(dir, dumpName), entries); err != nil {
		return err
	}
	return version.Save(filepath.Join(dir, version.FileName), v)
}

// Load returns the archived entries of v.
func (s *Store) Load(v version.Version) ([]db.Entry, error) {
	return readDump(filepath.Join(s.versionDir(v), dumpName))
}

// Previous returns the newest archived version strictly older than v.
func (s *Store) Previous(v version.Version) (version.Version, error) {
	vs, err := s.Versions()
	if err != nil {
		return version.Version{}, err
	}
	for i := len(vs) - 1; i >= 0; i-- {
		if version.Compare(vs[i], v) < 0 {
			return vs[i], nil
		}
	}
	return version.Version{}, fmt.Errorf("before %s: %w", v, ErrNoBaseline)
}

func writeDump(path string, entries []db.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dump file: %w", err)
	}
	defer f.Close()

	w, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		w.Close()
		return fmt.Errorf("writing compressed dump: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing zstd writer: %w", err)
	}
	return f.Close()
}

func readDump(path string) ([]db.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()

	r, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer r.Close()

	var entries []db.Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding dump: %w", err)
	}
	return entries, nil
}

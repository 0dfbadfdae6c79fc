// Package cas deduplicates mirrored files by content hash.
package cas

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Hash returns the hex SHA-256 of the file at path.
func Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Deduper remembers the first file seen for every content hash. Files must
// be offered in a stable order so the canonical choice is reproducible.
type Deduper struct {
	canonical map[string]string // hash -> first path
}

func NewDeduper() *Deduper {
	return &Deduper{canonical: make(map[string]string)}
}

// Len returns the number of distinct contents seen.
func (d *Deduper) Len() int { return len(d.canonical) }

// Link hashes path. The first file with a given content becomes canonical
// and Link returns ("", false). A later identical file is replaced by a
// relative symlink to the canonical one and Link returns the canonical path
// and true.
func (d *Deduper) Link(path string) (string, bool, error) {
	hash, err := Hash(path)
	if err != nil {
		return "", false, err
	}

	first, ok := d.canonical[hash]
	if !ok {
		d.canonical[hash] = path
		return "", false, nil
	}

	target, err := filepath.Rel(filepath.Dir(path), first)
	if err != nil {
		return "", false, fmt.Errorf("relating %s to %s: %w", path, first, err)
	}
	if err := os.Remove(path); err != nil {
		return "", false, fmt.Errorf("removing duplicate %s: %w", path, err)
	}
	if err := os.Symlink(target, path); err != nil {
		return "", false, fmt.Errorf("linking %s -> %s: %w", path, target, err)
	}
	return first, true, nil
}

// Package sanity verifies a finished index against entries that every good
// build is known to contain.
package sanity

import (
	"errors"
	"fmt"

	"github.com/jcdickinson/twdocset/internal/db"
)

// Counter is the part of the index the checker needs.
type Counter interface {
	Count(q db.Query) (int, error)
}

// Expectations maps an entry type to names that must be present.
type Expectations map[db.EntryType][]string

// Defaults is the table checked when the configuration does not override it.
var Defaults = Expectations{
	db.Section: {
		"Installation",
		"Utility-First Fundamentals",
		"Responsive Design",
		"Dark Mode",
	},
	db.Class: {
		"container",
		"mx-auto",
		"flex",
		"hidden",
		"text-center",
		"bg-white",
	},
	db.Modifier: {
		"hover",
		"focus",
		"dark",
		"group-hover",
		"first",
	},
	db.Property: {
		"display",
		"display: flex",
		"width",
		"margin-left",
	},
	db.Function: {
		"theme()",
		"screen()",
	},
	db.Directive: {
		"@tailwind",
		"@apply",
		"@layer",
		"@config",
	},
}

// MissingEntryError names an expected entry that is absent from the index.
type MissingEntryError struct {
	Type db.EntryType
	Name string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("missing %s entry %q", e.Type, e.Name)
}

// Check counts every expected (type, name) pair and returns all misses
// joined. A nil error means the index passed.
func Check(index Counter, want Expectations) error {
	var errs []error
	for _, typ := range db.EntryTypes {
		for _, name := range want[typ] {
			n, err := index.Count(db.Query{Type: typ, Name: name})
			if err != nil {
				return fmt.Errorf("sanity check: %w", err)
			}
			if n == 0 {
				errs = append(errs, &MissingEntryError{Type: typ, Name: name})
			}
		}
	}
	return errors.Join(errs...)
}

// FromConfig converts a type-name keyed table (as decoded from config) into
// Expectations.
func FromConfig(raw map[string][]string) (Expectations, error) {
	if len(raw) == 0 {
		return Defaults, nil
	}
	exp := make(Expectations, len(raw))
	for k, names := range raw {
		typ, err := db.ParseEntryType(k)
		if err != nil {
			return nil, fmt.Errorf("sanity table: %w", err)
		}
		exp[typ] = append(exp[typ], names...)
	}
	return exp, nil
}

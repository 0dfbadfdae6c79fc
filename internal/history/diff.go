package history

import (
	"sort"
	"strings"

	"github.com/jcdickinson/twdocset/internal/db"
)

// Diff reports entries present only in next (added) and only in prev
// (removed). Anchors are ignored so a moved heading is not reported; both
// results are sorted by (type, name, path).
func Diff(prev, next []db.Entry) (added, removed []db.Entry) {
	key := func(e db.Entry) db.Entry {
		return db.Entry{Name: e.Name, Type: e.Type, Path: documentPath(e.Path)}
	}

	before := make(map[db.Entry]bool, len(prev))
	for _, e := range prev {
		before[key(e)] = true
	}
	after := make(map[db.Entry]bool, len(next))
	for _, e := range next {
		after[key(e)] = true
	}

	for k := range after {
		if !before[k] {
			added = append(added, k)
		}
	}
	for k := range before {
		if !after[k] {
			removed = append(removed, k)
		}
	}
	sortEntries(added)
	sortEntries(removed)
	return added, removed
}

func documentPath(p string) string {
	doc, _, _ := strings.Cut(p, "#")
	return doc
}

func sortEntries(es []db.Entry) {
	sort.Slice(es, func(i, j int) bool {
		a, b := es[i], es[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Path < b.Path
	})
}

package docs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jcdickinson/twdocset/internal/db"
	"github.com/jcdickinson/twdocset/internal/htmltable"
)

// ErrUnrecognizedRow is returned for a table row that looks like reference
// material (it has a modifier or css column) but matches no known shape.
var ErrUnrecognizedRow = errors.New("unrecognized table row")

type rowKind int

const (
	rowIgnored rowKind = iota
	rowSkip
	rowModifier
	rowClass
	rowFatal
)

// rowShapes is checked in order; a row matches when it has every key.
var rowShapes = []struct {
	keys []string
	kind rowKind
}{
	{[]string{"modifier", "media_query"}, rowSkip},
	{[]string{"breakpoint_prefix", "css"}, rowSkip},
	{[]string{"class", "direction"}, rowSkip},
	{[]string{"modifier", "css"}, rowModifier},
	{[]string{"class", "properties"}, rowClass},
}

func classifyRow(r htmltable.Row) rowKind {
	for _, s := range rowShapes {
		if r.Has(s.keys...) {
			return s.kind
		}
	}
	if r.Has("modifier") || r.Has("css") {
		return rowFatal
	}
	return rowIgnored
}

func (t *Transformer) tables(p *page) error {
	var err error
	p.doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if !htmltable.HasHeaderCells(table) {
			return true
		}
		err = t.table(p, table)
		return err == nil
	})
	return err
}

func (t *Transformer) table(p *page, table *goquery.Selection) error {
	header := htmltable.Header(table)
	sticky := isSticky(table)
	for row := range htmltable.Rows(table) {
		cell := row.Element.Children().First()
		if cell.Length() == 0 {
			continue
		}
		n := cell.Get(0)

		switch classifyRow(row) {
		case rowModifier:
			name := strings.TrimSuffix(strings.TrimSpace(row.Fields["modifier"]), ":")
			if name == "" {
				continue
			}
			if err := t.emit(p, n, db.Modifier, name, sticky); err != nil {
				return err
			}
		case rowClass:
			name := strings.TrimSpace(row.Fields["class"])
			if name == "" {
				continue
			}
			if err := t.emit(p, n, db.Class, name, sticky); err != nil {
				return err
			}
			for _, d := range Declarations(row.Fields["properties"]) {
				if err := t.emit(p, n, db.Property, d.String(), sticky); err != nil {
					return err
				}
				if err := t.emit(p, n, db.Property, d.Name, sticky); err != nil {
					return err
				}
			}
		case rowFatal:
			return fmt.Errorf("%s: row with columns %v: %w", p.file, row.Keys(header), ErrUnrecognizedRow)
		}
	}
	return nil
}

// isSticky reports whether the table's header cells stay pinned while
// scrolling, so anchors in its rows need an offset.
func isSticky(table *goquery.Selection) bool {
	return table.Find("thead, thead tr, thead th").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.HasClass("sticky")
	}).Length() > 0
}

// Package htmltable reads HTML tables as header-keyed rows.
package htmltable

import (
	"iter"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Row is one data row keyed by normalized header text.
type Row struct {
	Fields  map[string]string
	Element *goquery.Selection // the <tr> the row came from
}

// Has reports whether every key is present in the row.
func (r Row) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := r.Fields[k]; !ok {
			return false
		}
	}
	return true
}

// Keys returns the row's field keys in header order.
func (r Row) Keys(header []string) []string {
	var keys []string
	for _, k := range header {
		if _, ok := r.Fields[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// Key normalizes header text into a column key: "Media query" -> "media_query".
func Key(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// Header returns the column keys from the table's first row.
func Header(table *goquery.Selection) []string {
	rows := tableRows(table)
	if len(rows) == 0 {
		return nil
	}
	var keys []string
	for _, c := range cells(rows[0]) {
		keys = append(keys, Key(Text(c)))
	}
	return keys
}

// Rows yields one Row per data row of table, in document order. Cells with
// rowspan are repeated into the rows they cover first, so every row lines
// up with the header.
func Rows(table *goquery.Selection) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		header := Header(table)
		if len(header) == 0 {
			return
		}

		var trs []*html.Node
		var matrix [][]*html.Node
		for _, tr := range tableRows(table) {
			if !hasDataCell(tr) {
				continue
			}
			trs = append(trs, tr)
			matrix = append(matrix, cells(tr))
		}

		seen := make(map[*html.Node]bool)
		for i := range matrix {
			for j := 0; j < len(matrix[i]); j++ {
				c := matrix[i][j]
				if seen[c] {
					continue
				}
				seen[c] = true
				span := rowspan(c)
				for k := 1; k < span && i+k < len(matrix); k++ {
					matrix[i+k] = insertAt(matrix[i+k], j, c)
				}
			}
		}

		for i, row := range matrix {
			fields := make(map[string]string, len(header))
			for j, key := range header {
				if j >= len(row) {
					break
				}
				fields[key] = Text(row[j])
			}
			el := table.FindNodes(trs[i])
			if !yield(Row{Fields: fields, Element: el}) {
				return
			}
		}
	}
}

// HasHeaderCells reports whether the table's first row has a <th>.
func HasHeaderCells(table *goquery.Selection) bool {
	rows := tableRows(table)
	if len(rows) == 0 {
		return false
	}
	for _, c := range cells(rows[0]) {
		if c.DataAtom == atom.Th {
			return true
		}
	}
	return false
}

// Text returns the trimmed text content of n. Line breaks inside the
// content are kept.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Br {
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// tableRows returns the <tr> elements belonging to table itself, skipping
// rows of nested tables.
func tableRows(table *goquery.Selection) []*html.Node {
	if table.Length() == 0 {
		return nil
	}
	root := table.Get(0)
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				continue
			case atom.Tr:
				rows = append(rows, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return rows
}

func cells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			out = append(out, c)
		}
	}
	return out
}

func hasDataCell(tr *html.Node) bool {
	for _, c := range cells(tr) {
		if c.DataAtom == atom.Td {
			return true
		}
	}
	return false
}

func rowspan(n *html.Node) int {
	for _, a := range n.Attr {
		if a.Key == "rowspan" {
			if v, err := strconv.Atoi(strings.TrimSpace(a.Val)); err == nil {
				return v
			}
		}
	}
	return 1
}

func insertAt(row []*html.Node, i int, n *html.Node) []*html.Node {
	if i >= len(row) {
		return append(row, n)
	}
	row = append(row, nil)
	copy(row[i+1:], row[i:])
	row[i] = n
	return row
}

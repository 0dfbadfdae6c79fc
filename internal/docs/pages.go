package docs

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jcdickinson/twdocset/internal/db"
)

// functions classifies h3 headings under the "Functions" and "Directives"
// h2 sections.
func (t *Transformer) functions(p *page) error {
	var (
		kind db.EntryType
		err  error
	)
	p.doc.Find("h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := normalizeSpace(s.Text())
		if goquery.NodeName(s) == "h2" {
			switch strings.ToLower(text) {
			case "functions":
				kind = db.Function
			case "directives":
				kind = db.Directive
			default:
				kind = ""
			}
			return true
		}
		if kind == "" || text == "" {
			return true
		}
		err = t.emit(p, s.Get(0), kind, text, false)
		return err == nil
	})
	return err
}

// variants picks up classes and modifiers that variant pages mention in
// prose, e.g. "<code>dark</code> modifier", when the page's tables did not
// already index them.
func (t *Transformer) variants(p *page) error {
	placeholder := make(map[string]bool, len(t.opts.Placeholders))
	for _, s := range t.opts.Placeholders {
		placeholder[s] = true
	}

	var err error
	p.doc.Find("code").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.ParentsFiltered("pre").Length() > 0 {
			return true
		}
		kind := phraseKind(s.Get(0).NextSibling)
		if kind == "" {
			return true
		}
		name := strings.TrimSpace(s.Text())
		if kind == db.Modifier {
			name = strings.TrimSuffix(name, ":")
		}
		if name == "" || placeholder[name] {
			return true
		}

		var n int
		n, err = t.index.Count(db.Query{Type: kind, Name: name, Path: p.file + "#", Prefix: true})
		if err != nil || n > 0 {
			return err == nil
		}
		err = t.emit(p, s.Get(0), kind, name, false)
		return err == nil
	})
	return err
}

// phraseKind reads the word following an inline code element.
func phraseKind(n *html.Node) db.EntryType {
	if n == nil || n.Type != html.TextNode {
		return ""
	}
	words := strings.Fields(n.Data)
	if len(words) == 0 {
		return ""
	}
	word := strings.TrimFunc(strings.ToLower(words[0]), func(r rune) bool { return !unicode.IsLetter(r) })
	switch word {
	case "class":
		return db.Class
	case "modifier":
		return db.Modifier
	}
	return ""
}

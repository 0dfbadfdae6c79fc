// Package docs rewrites mirrored documentation pages for offline use and
// extracts their index entries.
package docs

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jcdickinson/twdocset/internal/db"
	"github.com/jcdickinson/twdocset/internal/links"
)

// Index receives entries and answers presence queries.
type Index interface {
	Insert(e db.Entry) error
	Count(q db.Query) (int, error)
}

type Options struct {
	// Documents is the docset Documents directory; entry paths are relative
	// to it.
	Documents string

	Chrome         []string
	PaddingClasses []string
	HashLinks      string

	ClassTable    string
	HiddenClasses []string

	// Page paths relative to the site root, without the .html suffix.
	FunctionsPage string
	VariantPages  []string
	Placeholders  []string
}

type Transformer struct {
	opts     Options
	resolver *links.Resolver
	index    Index
	log      *slog.Logger
}

func NewTransformer(opts Options, resolver *links.Resolver, index Index, log *slog.Logger) *Transformer {
	if log == nil {
		log = slog.Default()
	}
	return &Transformer{opts: opts, resolver: resolver, index: index, log: log}
}

// page is the per-document state of one Transform call.
type page struct {
	doc     *goquery.Document
	base    *url.URL
	site    string // path relative to the site root, without .html
	file    string // path relative to Documents
	anchors map[*html.Node]map[string]bool
}

// Transform rewrites the HTML document at path in place and records its
// index entries.
func (t *Transformer) Transform(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	p, err := t.newPage(path, doc)
	if err != nil {
		return err
	}
	t.log.Debug("transforming document", "file", p.file, "url", p.base.String())

	t.strip(p)
	t.rewriteLinks(p)
	t.injectAssets(p)
	t.expandClassTable(p)

	if err := t.sections(p); err != nil {
		return err
	}
	if err := t.tables(p); err != nil {
		return err
	}
	if p.site == t.opts.FunctionsPage {
		if err := t.functions(p); err != nil {
			return err
		}
	}
	for _, v := range t.opts.VariantPages {
		if p.site == v {
			if err := t.variants(p); err != nil {
				return err
			}
		}
	}

	var out bytes.Buffer
	if err := html.Render(&out, doc.Get(0)); err != nil {
		return fmt.Errorf("rendering %s: %w", p.file, err)
	}
	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}

func (t *Transformer) newPage(path string, doc *goquery.Document) (*page, error) {
	rel, err := filepath.Rel(t.resolver.Root(), path)
	if err != nil {
		return nil, fmt.Errorf("locating %s under site root: %w", path, err)
	}
	file, err := filepath.Rel(t.opts.Documents, path)
	if err != nil {
		return nil, fmt.Errorf("locating %s under documents: %w", path, err)
	}
	site := strings.TrimSuffix(filepath.ToSlash(rel), ".html")
	return &page{
		doc:     doc,
		base:    canonicalURL(t.resolver.Site(), site),
		site:    site,
		file:    filepath.ToSlash(file),
		anchors: make(map[*html.Node]map[string]bool),
	}, nil
}

// canonicalURL maps a site-relative document path (without .html) to the
// URL the page was served from. "index" pages map to their directory.
func canonicalURL(site *url.URL, rel string) *url.URL {
	switch {
	case rel == "index":
		rel = ""
	case strings.HasSuffix(rel, "/index"):
		rel = strings.TrimSuffix(rel, "index")
	}
	u := *site
	u.RawPath = ""
	u.Path = strings.TrimSuffix(site.Path, "/") + "/" + rel
	return &u
}

func (t *Transformer) strip(p *page) {
	p.doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("charset"); ok {
			return
		}
		if strings.EqualFold(s.AttrOr("name", ""), "viewport") {
			return
		}
		if strings.EqualFold(s.AttrOr("http-equiv", ""), "content-type") {
			return
		}
		s.Remove()
	})
	p.doc.Find("script").Remove()
	p.doc.Find("link").Each(func(_ int, s *goquery.Selection) {
		for _, rel := range strings.Fields(s.AttrOr("rel", "")) {
			if strings.EqualFold(rel, "stylesheet") {
				return
			}
		}
		s.Remove()
	})

	for _, sel := range t.opts.Chrome {
		p.doc.Find(sel).Remove()
	}
	if len(t.opts.PaddingClasses) > 0 {
		p.doc.Find("[class]").RemoveClass(t.opts.PaddingClasses...)
	}
	if t.opts.HashLinks != "" {
		p.doc.Find(t.opts.HashLinks).Remove()
	}
}

var linkAttrs = []struct{ tag, attr string }{
	{"a", "href"},
	{"img", "src"},
	{"link", "href"},
	{"script", "src"},
	{"iframe", "src"},
	{"source", "src"},
}

func (t *Transformer) rewriteLinks(p *page) {
	for _, la := range linkAttrs {
		p.doc.Find(la.tag + "[" + la.attr + "]").Each(func(_ int, s *goquery.Selection) {
			ref, _ := s.Attr(la.attr)
			s.SetAttr(la.attr, t.resolver.Resolve(ref, p.base))
		})
	}
}

func (t *Transformer) injectAssets(p *page) {
	css := t.resolver.Resolve(assetURL(t.resolver.Site(), AssetCSS), p.base)
	js := t.resolver.Resolve(assetURL(t.resolver.Site(), AssetJS), p.base)

	head := p.doc.Find("head").First()
	head.AppendNodes(element(atom.Link, "rel", "stylesheet", "href", css))
	body := p.doc.Find("body").First()
	body.AppendNodes(element(atom.Script, "src", js))
}

func assetURL(site *url.URL, name string) string {
	return site.ResolveReference(&url.URL{Path: name}).String()
}

// element builds a bare element with the given attribute key/value pairs.
func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// expandClassTable lifts the height cap off the class reference table and
// drops its "Show all" toggle.
func (t *Transformer) expandClassTable(p *page) {
	if t.opts.ClassTable == "" {
		return
	}
	table := p.doc.Find(t.opts.ClassTable)
	if table.Length() == 0 {
		return
	}
	capped := table.Find("[class]").AddSelection(table).FilterFunction(func(_ int, s *goquery.Selection) bool {
		for _, c := range t.opts.HiddenClasses {
			if s.HasClass(c) {
				return true
			}
		}
		return false
	})
	capped.RemoveClass(t.opts.HiddenClasses...).AddClass("overflow-auto")

	table.Find("button").FilterFunction(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(normalizeSpace(s.Text()))
		return strings.HasPrefix(text, "show all") || strings.HasPrefix(text, "show more")
	}).Remove()
}

func (t *Transformer) sections(p *page) error {
	var err error
	p.doc.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := normalizeSpace(s.Text())
		if name == "" {
			return true
		}
		err = t.emit(p, s.Get(0), db.Section, name, false)
		return err == nil
	})
	return err
}

// emit inserts a Dash anchor for (typ, name) as the first child of n and
// records the matching index entry. A node carries each anchor once.
func (t *Transformer) emit(p *page, n *html.Node, typ db.EntryType, name string, sticky bool) error {
	anchor := "//apple_ref/cpp/" + string(typ) + "/" + url.PathEscape(name)

	seen := p.anchors[n]
	if seen == nil {
		seen = make(map[string]bool)
		p.anchors[n] = seen
	}
	if !seen[anchor] {
		seen[anchor] = true
		class := "dashAnchor"
		if sticky {
			class += " dashAnchorSticky"
		}
		a := element(atom.A, "name", anchor, "class", class)
		if n.FirstChild != nil {
			n.InsertBefore(a, n.FirstChild)
		} else {
			n.AppendChild(a)
		}
	}

	e := db.Entry{Name: name, Type: typ, Path: p.file + "#" + anchor}
	if err := t.index.Insert(e); err != nil {
		return fmt.Errorf("indexing %s %q in %s: %w", typ, name, p.file, err)
	}
	return nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package docs

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jcdickinson/twdocset/internal/db"
	"github.com/jcdickinson/twdocset/internal/links"
)

type fixture struct {
	tr    *Transformer
	index *db.DB
	host  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	documents := t.TempDir()
	host := filepath.Join(documents, "tailwindcss.com")
	if err := os.MkdirAll(host, 0755); err != nil {
		t.Fatal(err)
	}
	if err := WriteAssets(host); err != nil {
		t.Fatal(err)
	}

	index, err := db.Create(filepath.Join(t.TempDir(), "docSet.dsidx"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { index.Close() })

	site, _ := url.Parse("https://tailwindcss.com/")
	resolver := links.NewResolver(site, host, nil, nil)
	opts := Options{
		Documents:      documents,
		Chrome:         []string{"div.sticky.top-0.z-40"},
		PaddingClasses: []string{"lg:pl-[19.5rem]"},
		HashLinks:      `a[aria-label="Anchor"]`,
		ClassTable:     "#class-table",
		HiddenClasses:  []string{"overflow-hidden", "lg:max-h-[60vh]"},
		FunctionsPage:  "docs/functions-and-directives",
		VariantPages:   []string{"docs/dark-mode"},
		Placeholders:   []string{"{modifier}"},
	}
	return &fixture{tr: NewTransformer(opts, resolver, index, nil), index: index, host: host}
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	p := filepath.Join(f.host, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func (f *fixture) count(t *testing.T, q db.Query) int {
	t.Helper()
	n, err := f.index.Count(q)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

const containerPage = `<!DOCTYPE html>
<html><head>
<meta charset="utf-8">
<meta name="description" content="Container">
<script src="/_next/static/chunks/main.js"></script>
<link rel="preload" href="/fonts/inter.woff2">
<link rel="stylesheet" href="/_next/static/css/app.css">
</head><body>
<div class="sticky top-0 z-40">Top nav</div>
<div class="lg:pl-[19.5rem] max-w-3xl">
<h1><a aria-label="Anchor" href="#container">#</a>Container</h1>
<a href="/docs/installation">Installation</a>
<a href="mailto:team@example.com">Mail</a>
<div id="class-table"><div class="overflow-hidden lg:max-h-[60vh]">
<table>
<thead><tr><th class="sticky">Class</th><th>Breakpoint</th><th>Properties</th></tr></thead>
<tbody>
<tr><td rowspan="2">container</td><td>None</td><td>width: 100%;</td></tr>
<tr><td>sm (640px)</td><td>max-width: 640px;</td></tr>
</tbody>
</table>
</div><button type="button">Show all classes</button></div>
</div>
</body></html>`

func TestTransform_ContainerPage(t *testing.T) {
	f := newFixture(t)
	f.write(t, "docs/installation.html", "<html><body></body></html>")
	path := f.write(t, "docs/container.html", containerPage)

	if err := f.tr.Transform(path); err != nil {
		t.Fatal(err)
	}

	if n := f.count(t, db.Query{
		Type: db.Class,
		Name: "container",
		Path: "tailwindcss.com/docs/container.html#//apple_ref/cpp/Class/container",
	}); n != 1 {
		t.Errorf("container class count = %d, want 1", n)
	}
	for _, name := range []string{"width: 100%", "width", "max-width: 640px", "max-width"} {
		if n := f.count(t, db.Query{Type: db.Property, Name: name}); n != 1 {
			t.Errorf("property %q count = %d, want 1", name, n)
		}
	}
	if n := f.count(t, db.Query{Type: db.Section, Name: "Container"}); n != 1 {
		t.Errorf("section count = %d, want 1", n)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(out)

	for _, want := range []string{
		`<a name="//apple_ref/cpp/Class/container" class="dashAnchor dashAnchorSticky"></a>`,
		`<a name="//apple_ref/cpp/Section/Container" class="dashAnchor"></a>`,
		`<meta charset="utf-8"/>`,
		`href="installation.html"`,
		`href="mailto:team@example.com"`,
		`href="../docset.css"`,
		`src="../docset.js"`,
		`overflow-auto`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %s", want)
		}
	}
	for _, unwanted := range []string{
		`name="description"`,
		`main.js`,
		`rel="preload"`,
		`Top nav`,
		`lg:pl-[19.5rem]`,
		`overflow-hidden`,
		`Show all`,
		`aria-label="Anchor"`,
	} {
		if strings.Contains(got, unwanted) {
			t.Errorf("output still contains %s", unwanted)
		}
	}
}

func TestTransform_FunctionsAndDirectives(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "docs/functions-and-directives.html", `<html><body>
<h1>Functions &amp; Directives</h1>
<h2>Directives</h2>
<h3>@tailwind</h3><p>Use the @tailwind directive.</p>
<h3>@apply</h3>
<h2>Functions</h2>
<h3>theme()</h3>
<h2>Further reading</h2>
<h3>Plugins</h3>
</body></html>`)

	if err := f.tr.Transform(path); err != nil {
		t.Fatal(err)
	}

	if n := f.count(t, db.Query{
		Type: db.Directive,
		Name: "@tailwind",
		Path: "tailwindcss.com/docs/functions-and-directives.html#//apple_ref/cpp/Directive/@tailwind",
	}); n != 1 {
		t.Errorf("@tailwind directive count = %d, want 1", n)
	}
	if n := f.count(t, db.Query{Type: db.Directive, Name: "@apply"}); n != 1 {
		t.Errorf("@apply directive count = %d, want 1", n)
	}
	if n := f.count(t, db.Query{Type: db.Function, Name: "theme()"}); n != 1 {
		t.Errorf("theme() function count = %d, want 1", n)
	}
	if n := f.count(t, db.Query{Type: db.Directive, Name: "Plugins"}); n != 0 {
		t.Errorf("heading outside Functions/Directives was classified")
	}
}

func TestTransform_OtherPagesSkipFunctionExtraction(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "docs/other.html", `<html><body><h2>Directives</h2><h3>@tailwind</h3></body></html>`)
	if err := f.tr.Transform(path); err != nil {
		t.Fatal(err)
	}
	if n := f.count(t, db.Query{Type: db.Directive, Name: "@tailwind"}); n != 0 {
		t.Errorf("directive extracted from unrelated page")
	}
}

func TestTransform_ModifierRows(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "docs/hover.html", `<html><body><table>
<tr><th>Modifier</th><th>CSS</th></tr>
<tr><td>hover:</td><td>&amp;:hover</td></tr>
<tr><td>focus:</td><td>&amp;:focus</td></tr>
</table></body></html>`)

	if err := f.tr.Transform(path); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"hover", "focus"} {
		if n := f.count(t, db.Query{Type: db.Modifier, Name: name, Path: "tailwindcss.com/docs/hover.html", Prefix: true}); n != 1 {
			t.Errorf("modifier %q count = %d, want 1", name, n)
		}
	}
}

func TestTransform_SkippedShapes(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "docs/responsive-design.html", `<html><body>
<table><tr><th>Breakpoint prefix</th><th>Minimum width</th><th>CSS</th></tr>
<tr><td>sm</td><td>640px</td><td>@media (min-width: 640px)</td></tr></table>
<table><tr><th>Modifier</th><th>Media query</th></tr>
<tr><td>max-sm</td><td>@media not all and (min-width: 640px)</td></tr></table>
<table><tr><th>Class</th><th>Direction</th></tr>
<tr><td>ltr:ml-4</td><td>left-to-right</td></tr></table>
<table><tr><th>Name</th><th>Value</th></tr><tr><td>a</td><td>b</td></tr></table>
</body></html>`)

	if err := f.tr.Transform(path); err != nil {
		t.Fatal(err)
	}
	if n := f.count(t, db.Query{Type: db.Modifier, Name: "max-sm"}); n != 0 {
		t.Errorf("skipped shape produced an entry")
	}
	if n := f.count(t, db.Query{Type: db.Class, Name: "ltr:ml-4"}); n != 0 {
		t.Errorf("class/direction row produced an entry")
	}
}

func TestTransform_UnrecognizedRow(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "docs/odd.html", `<html><body><table>
<tr><th>Modifier</th><th>Description</th></tr>
<tr><td>odd:</td><td>Odd children</td></tr>
</table></body></html>`)

	err := f.tr.Transform(path)
	if !errors.Is(err, ErrUnrecognizedRow) {
		t.Fatalf("expected ErrUnrecognizedRow, got %v", err)
	}
	if !strings.Contains(err.Error(), "docs/odd.html") {
		t.Errorf("error does not name the document: %v", err)
	}
}

func TestTransform_VariantPage(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "docs/dark-mode.html", `<html><body>
<table><tr><th>Modifier</th><th>CSS</th></tr><tr><td>dark:</td><td>@media (prefers-color-scheme: dark)</td></tr></table>
<p>Use the <code>dark</code> modifier, or toggle the <code>dark</code> class on the html element.</p>
<p>Any <code>{modifier}</code> modifier works.</p>
<p>Combine <code>flex</code> classes with <code>hover</code> modifiers, or read the <code>sm</code> classification.</p>
<pre><code>dark</code> modifier</pre>
</body></html>`)

	if err := f.tr.Transform(path); err != nil {
		t.Fatal(err)
	}
	if n := f.count(t, db.Query{Type: db.Modifier, Name: "dark"}); n != 1 {
		t.Errorf("dark modifier count = %d, want 1", n)
	}
	if n := f.count(t, db.Query{Type: db.Class, Name: "dark"}); n != 1 {
		t.Errorf("dark class count = %d, want 1", n)
	}
	if n := f.count(t, db.Query{Type: db.Modifier, Name: "{modifier}"}); n != 0 {
		t.Errorf("placeholder was indexed")
	}
	for _, q := range []db.Query{
		{Type: db.Class, Name: "flex"},
		{Type: db.Modifier, Name: "hover"},
		{Type: db.Class, Name: "sm"},
	} {
		if n := f.count(t, q); n != 0 {
			t.Errorf("%s %q indexed from a plural or longer word", q.Type, q.Name)
		}
	}
}

func TestTransform_AnchorOncePerNode(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "docs/dup.html", `<html><body><table>
<tr><th>Class</th><th>Properties</th></tr>
<tr><td>block</td><td>display: block;
display: block;</td></tr>
</table></body></html>`)

	if err := f.tr.Transform(path); err != nil {
		t.Fatal(err)
	}
	out, _ := os.ReadFile(path)
	if c := strings.Count(string(out), `name="//apple_ref/cpp/Property/display"`); c != 1 {
		t.Errorf("display anchor inserted %d times, want 1", c)
	}
}

func TestCanonicalURL(t *testing.T) {
	site, _ := url.Parse("https://tailwindcss.com/")
	tests := []struct{ rel, want string }{
		{"docs/container", "https://tailwindcss.com/docs/container"},
		{"index", "https://tailwindcss.com/"},
		{"docs/index", "https://tailwindcss.com/docs/"},
	}
	for _, tt := range tests {
		if got := canonicalURL(site, tt.rel).String(); got != tt.want {
			t.Errorf("canonicalURL(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

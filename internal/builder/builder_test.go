package builder

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jcdickinson/twdocset/internal/config"
	"github.com/jcdickinson/twdocset/internal/db"
	"github.com/jcdickinson/twdocset/internal/sanity"
	"github.com/jcdickinson/twdocset/internal/version"
)

func homepageHTML(ver, build string) string {
	return `<!DOCTYPE html><html><head><title>Tailwind CSS</title></head><body>
<header><button>` + ver + `</button></header>
<h1>Rapidly build modern websites</h1>
<a href="/docs/container">Container</a>
<script id="__NEXT_DATA__" type="application/json">{"buildId":"` + build + `","page":"/"}</script>
</body></html>`
}

const containerHTML = `<html><head><link rel="stylesheet" href="/_next/static/css/app.css"></head><body>
<h1>Container</h1>
<table><thead><tr><th>Class</th><th>Properties</th></tr></thead>
<tbody><tr><td>container</td><td>width: 100%;</td></tr></tbody></table>
</body></html>`

const functionsHTML = `<html><body>
<h1>Functions &amp; Directives</h1>
<h2>Directives</h2><h3>@tailwind</h3>
<h2>Functions</h2><h3>theme()</h3>
</body></html>`

type testEnv struct {
	cfg    *config.Config
	mirror string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	cfg.Paths.Mirror = filepath.Join(root, "mirror")
	cfg.Paths.Output = filepath.Join(root, "out")
	cfg.Paths.History = filepath.Join(root, "history")
	cfg.Sanity = map[string][]string{
		"class":     {"container"},
		"directive": {"@tailwind"},
		"function":  {"theme()"},
	}

	env := &testEnv{cfg: cfg, mirror: filepath.Join(cfg.Paths.Mirror, "tailwindcss.com")}
	env.write(t, "index.html", homepageHTML("v3.4.1", "build-a"))
	env.write(t, "docs/container.html", containerHTML)
	env.write(t, "docs/functions-and-directives.html", functionsHTML)
	env.write(t, "docs/installation.html", `<html><body><h1>Installation</h1></body></html>`)
	env.write(t, "docs/installation/index.html", `<html><body><h1>Installation</h1></body></html>`)
	env.write(t, "_next/static/css/app.css", `body{background:url(/_next/static/media/bg.png)}`)
	env.write(t, "_next/static/media/bg.png", "png")
	return env
}

func (e *testEnv) write(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(e.mirror, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) builder(t *testing.T) *Builder {
	t.Helper()
	b, err := New(e.cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBuild_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	b := env.builder(t)

	res, err := b.Build(false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped {
		t.Fatal("first build was skipped")
	}
	if got := res.Version.String(); got != "3.4.1-r0" {
		t.Errorf("version = %s, want 3.4.1-r0", got)
	}
	if res.Dupes != 1 {
		t.Errorf("duplicates = %d, want 1", res.Dupes)
	}

	layout := b.Layout()
	index, err := db.OpenExisting(layout.Index)
	if err != nil {
		t.Fatal(err)
	}
	defer index.Close()

	n, err := index.Count(db.Query{
		Type: db.Class,
		Name: "container",
		Path: "tailwindcss.com/docs/container.html#//apple_ref/cpp/Class/container",
	})
	if err != nil || n != 1 {
		t.Errorf("container class count = %d, %v", n, err)
	}
	n, err = index.Count(db.Query{Type: db.Directive, Name: "@tailwind"})
	if err != nil || n != 1 {
		t.Errorf("@tailwind directive count = %d, %v", n, err)
	}

	// "installation.html" sorts before "installation/index.html", so the
	// index page stays a regular file and the directory copy is linked.
	docsDir := filepath.Join(layout.Documents, "tailwindcss.com", "docs")
	info, err := os.Lstat(filepath.Join(docsDir, "installation.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.Mode().IsRegular() {
		t.Errorf("index page installation.html is not a regular file")
	}
	info, err = os.Lstat(filepath.Join(docsDir, "installation", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Errorf("installation/index.html is not a symlink")
	}
	page, err := os.ReadFile(filepath.Join(docsDir, "installation.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), `href="../docset.css"`) {
		t.Errorf("index page assets resolved for the wrong directory:\n%s", page)
	}

	// The duplicate is not transformed, so its entries are not indexed twice.
	n, err = index.Count(db.Query{Type: db.Section, Name: "Installation"})
	if err != nil || n != 1 {
		t.Errorf("Installation section count = %d, %v; want 1", n, err)
	}

	plist, err := os.ReadFile(layout.Plist)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(plist), "<string>tailwindcss.com/docs/installation.html</string>") {
		t.Errorf("Info.plist missing index path:\n%s", plist)
	}

	css, err := os.ReadFile(filepath.Join(layout.Documents, "tailwindcss.com", "_next", "static", "css", "app.css"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(css), "url(../media/bg.png)") {
		t.Errorf("stylesheet url not rewritten: %s", css)
	}

	if _, err := version.Load(layout.VersionFile); err != nil {
		t.Errorf("version.json not written: %v", err)
	}
	archived, err := b.History().Versions()
	if err != nil || len(archived) != 1 {
		t.Errorf("archive = %v, %v", archived, err)
	}

	// The mirror itself is left untouched.
	orig, _ := os.ReadFile(filepath.Join(env.mirror, "docs", "container.html"))
	if string(orig) != containerHTML {
		t.Error("mirror was modified")
	}
}

func TestBuild_SkipsWhenNotNewer(t *testing.T) {
	env := newTestEnv(t)
	b := env.builder(t)
	if _, err := b.Build(false); err != nil {
		t.Fatal(err)
	}

	res, err := b.Build(false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Error("rebuild of the same snapshot was not skipped")
	}

	res, err = b.Build(true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped || res.Version.Revision != 0 {
		t.Errorf("forced rebuild = %+v", res)
	}
}

func TestBuild_NewBuildBumpsRevision(t *testing.T) {
	env := newTestEnv(t)
	b := env.builder(t)
	if _, err := b.Build(false); err != nil {
		t.Fatal(err)
	}

	env.write(t, "index.html", homepageHTML("v3.4.1", "build-b"))
	res, err := b.Build(false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Version.String() != "3.4.1-r1" {
		t.Errorf("version = %s, want 3.4.1-r1", res.Version)
	}
}

func TestBuild_SanityFailure(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Sanity["class"] = []string{"container", "no-such-class"}
	b := env.builder(t)

	_, err := b.Build(false)
	var missing *sanity.MissingEntryError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingEntryError, got %v", err)
	}
	if missing.Type != db.Class || missing.Name != "no-such-class" {
		t.Errorf("missing = %+v", missing)
	}

	archived, _ := b.History().Versions()
	if len(archived) != 0 {
		t.Errorf("failed build was archived: %v", archived)
	}
	if _, err := os.Stat(b.Layout().VersionFile); !os.IsNotExist(err) {
		t.Errorf("failed build wrote version.json")
	}
}

func TestBuild_FailedRebuildClearsVersionFile(t *testing.T) {
	env := newTestEnv(t)
	b := env.builder(t)
	if _, err := b.Build(false); err != nil {
		t.Fatal(err)
	}

	env.write(t, "index.html", homepageHTML("v3.4.1", "build-b"))
	env.cfg.Sanity["class"] = []string{"no-such-class"}
	if _, err := b.Build(false); err == nil {
		t.Fatal("expected sanity failure")
	}
	if _, err := os.Stat(b.Layout().VersionFile); !os.IsNotExist(err) {
		t.Errorf("version.json of the previous build left beside the failed index")
	}
}

func TestWritePlist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Info.plist")
	err := WritePlist(path, PlistInfo{BundleID: "tailwindcss", Name: "Tailwind CSS", Platform: "tailwindcss", IndexPath: "a/b.html"})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	for _, want := range []string{
		`<key>CFBundleIdentifier</key>`,
		`<string>Tailwind CSS</string>`,
		`<key>isJavaScriptEnabled</key>`,
		`<true/>`,
		`<!DOCTYPE plist`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Info.plist missing %s", want)
		}
	}
}

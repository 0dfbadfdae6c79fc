// Package builder turns a site mirror into a docset bundle.
package builder

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/jcdickinson/twdocset/internal/cas"
	"github.com/jcdickinson/twdocset/internal/config"
	"github.com/jcdickinson/twdocset/internal/db"
	"github.com/jcdickinson/twdocset/internal/docs"
	"github.com/jcdickinson/twdocset/internal/history"
	"github.com/jcdickinson/twdocset/internal/links"
	"github.com/jcdickinson/twdocset/internal/sanity"
	"github.com/jcdickinson/twdocset/internal/version"
)

const homepage = "index.html"

type Builder struct {
	cfg     *config.Config
	layout  Layout
	site    *url.URL
	history *history.Store
	log     *slog.Logger
}

func New(cfg *config.Config, log *slog.Logger) (*Builder, error) {
	if log == nil {
		log = slog.Default()
	}
	site, err := url.Parse(cfg.Site.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing site url: %w", err)
	}
	if site.Host == "" {
		return nil, fmt.Errorf("site url %q has no host", cfg.Site.URL)
	}
	return &Builder{
		cfg:     cfg,
		layout:  NewLayout(cfg),
		site:    site,
		history: history.NewStore(cfg.Paths.History),
		log:     log,
	}, nil
}

func (b *Builder) Layout() Layout { return b.layout }

// History returns the archive of previous builds.
func (b *Builder) History() *history.Store { return b.history }

// Result summarizes a build.
type Result struct {
	Version version.Version
	// Skipped is set when the mirror holds nothing newer than the archive
	// and the build was not forced.
	Skipped bool
	Pages   int
	Dupes   int
	Counts  map[db.EntryType]int
}

func (b *Builder) mirrorDir() string {
	return filepath.Join(b.cfg.Paths.Mirror, b.site.Host)
}

// Version detects the mirrored snapshot's version and derives its revision
// against the archive. The bool reports whether it is newer than every
// archived build.
func (b *Builder) Version() (version.Version, bool, error) {
	f, err := os.Open(filepath.Join(b.mirrorDir(), homepage))
	if err != nil {
		return version.Version{}, false, fmt.Errorf("opening mirrored homepage: %w", err)
	}
	defer f.Close()

	v, buildID, err := version.Detect(f, b.cfg.Version.Selector)
	if err != nil {
		return version.Version{}, false, fmt.Errorf("detecting version: %w", err)
	}
	return b.derive(v, buildID)
}

func (b *Builder) derive(v *semver.Version, buildID string) (version.Version, bool, error) {
	known, err := b.history.Versions()
	if err != nil {
		return version.Version{}, false, err
	}
	derived, isNew := version.Derive(v, buildID, known)
	return derived, isNew, nil
}

// Build runs the whole pipeline. Without force, a snapshot that is not
// newer than the archive is left alone.
func (b *Builder) Build(force bool) (*Result, error) {
	v, isNew, err := b.Version()
	if err != nil {
		return nil, err
	}
	if !isNew && !force {
		b.log.Info("mirror is not newer than the archive, skipping build", "version", v.String())
		return &Result{Version: v, Skipped: true}, nil
	}
	b.log.Info("building docset", "version", v.String(), "build_id", v.BuildID, "output", b.layout.Docset)

	res, err := b.build(v)
	if err != nil {
		return nil, err
	}

	entries, err := b.entries()
	if err != nil {
		return nil, err
	}
	if err := b.history.Save(v, entries); err != nil {
		return nil, fmt.Errorf("archiving %s: %w", v, err)
	}
	if err := version.Save(b.layout.VersionFile, v); err != nil {
		return nil, err
	}
	b.log.Info("docset built", "version", v.String(), "pages", res.Pages, "duplicates", res.Dupes, "entries", len(entries))
	return res, nil
}

func (b *Builder) build(v version.Version) (res *Result, err error) {
	if err := os.RemoveAll(b.layout.Docset); err != nil {
		return nil, fmt.Errorf("removing previous docset: %w", err)
	}
	if err := os.Remove(b.layout.VersionFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing previous version descriptor: %w", err)
	}
	host := filepath.Join(b.layout.Documents, b.site.Host)
	if err := os.MkdirAll(host, 0755); err != nil {
		return nil, fmt.Errorf("creating documents dir: %w", err)
	}

	b.log.Info("copying mirror", "from", b.mirrorDir(), "to", host)
	if err := copyTree(b.mirrorDir(), host); err != nil {
		return nil, fmt.Errorf("copying mirror: %w", err)
	}
	if err := docs.WriteAssets(host); err != nil {
		return nil, err
	}
	if err := WritePlist(b.layout.Plist, PlistInfo{
		BundleID:    b.cfg.Docset.BundleID,
		Name:        b.cfg.Docset.Name,
		Platform:    b.cfg.Docset.Platform,
		IndexPath:   b.site.Host + "/" + b.cfg.Docset.IndexPage + ".html",
		FallbackURL: b.site.String(),
	}); err != nil {
		return nil, err
	}

	index, err := db.Create(b.layout.Index)
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}
	defer func() {
		if cerr := index.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing index: %w", cerr))
		}
	}()

	resolver := links.NewResolver(b.site, host, b.cfg.Site.ExternalHosts, b.log)
	tr := docs.NewTransformer(docs.Options{
		Documents:      b.layout.Documents,
		Chrome:         b.cfg.Strip.Chrome,
		PaddingClasses: b.cfg.Strip.PaddingClasses,
		HashLinks:      b.cfg.Strip.HashLinks,
		ClassTable:     b.cfg.ClassTable.Selector,
		HiddenClasses:  b.cfg.ClassTable.HiddenClasses,
		FunctionsPage:  b.cfg.Pages.Functions,
		VariantPages:   b.cfg.Pages.Variants,
		Placeholders:   b.cfg.Pages.Placeholders,
	}, resolver, index, b.log)

	res = &Result{Version: v}

	pages, err := listFiles(host, ".html")
	if err != nil {
		return nil, err
	}
	dedup := cas.NewDeduper()
	for _, p := range pages {
		canonical, dup, err := dedup.Link(p)
		if err != nil {
			return nil, err
		}
		if dup {
			b.log.Debug("linked duplicate page", "file", p, "canonical", canonical)
			res.Dupes++
			continue
		}
		if err := tr.Transform(p); err != nil {
			return nil, err
		}
		res.Pages++
	}

	b.log.Info("transformed pages", "pages", res.Pages, "distinct", dedup.Len(), "duplicates", res.Dupes)

	sheets, err := listFiles(host, ".css")
	if err != nil {
		return nil, err
	}
	for _, p := range sheets {
		if err := tr.RewriteStylesheet(p); err != nil {
			return nil, err
		}
	}

	want, err := sanity.FromConfig(b.cfg.Sanity)
	if err != nil {
		return nil, err
	}
	if err := sanity.Check(index, want); err != nil {
		return nil, fmt.Errorf("sanity check: %w", err)
	}

	res.Counts, err = index.CountByType()
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *Builder) entries() ([]db.Entry, error) {
	index, err := db.OpenExisting(b.layout.Index)
	if err != nil {
		return nil, err
	}
	defer index.Close()
	return index.Entries()
}

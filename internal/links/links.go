// Package links rewrites references found in mirrored pages so that they
// resolve inside the offline bundle.
package links

import (
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// suffixes are probed in order when looking for the local file behind a
// same-site URL.
var suffixes = []string{"", ".html"}

// Resolver maps references to in-bundle paths. Site is the live site's root
// URL and Root the local directory holding its mirror.
type Resolver struct {
	site          *url.URL
	root          string
	externalHosts map[string]bool
	log           *slog.Logger

	warned map[string]bool
}

func NewResolver(site *url.URL, root string, externalHosts []string, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	hosts := make(map[string]bool, len(externalHosts))
	for _, h := range externalHosts {
		hosts[strings.ToLower(h)] = true
	}
	return &Resolver{
		site:          site,
		root:          root,
		externalHosts: hosts,
		log:           log,
		warned:        make(map[string]bool),
	}
}

// Site returns the site root URL.
func (r *Resolver) Site() *url.URL { return r.site }

// Root returns the local mirror directory for the site.
func (r *Resolver) Root() string { return r.root }

// Resolve rewrites ref as found in the document whose canonical URL is base.
// References that cannot be parsed are returned unchanged.
func (r *Resolver) Resolve(ref string, base *url.URL) string {
	u, err := base.Parse(ref)
	if err != nil {
		if strings.HasPrefix(strings.TrimSpace(ref), "data:") {
			return ref
		}
		if !r.warned[ref] {
			r.warned[ref] = true
			r.log.Warn("leaving unparseable reference as is", "ref", ref, "base", base.String(), "error", err)
		}
		return ref
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ref
	}

	host := strings.ToLower(u.Host)
	if r.externalHosts[host] {
		return relative(r.externalPath(host, u), "", "", base)
	}
	if host != strings.ToLower(r.site.Host) {
		return u.String()
	}

	rel := strings.TrimPrefix(u.Path, r.site.Path)
	rel = strings.TrimPrefix(rel, "/")
	rel = strings.TrimSuffix(rel, "/")

	if suffix, ok := r.probe(rel); ok {
		escaped := strings.TrimSuffix(u.EscapedPath(), "/") + suffix
		if escaped == "" || escaped[0] != '/' {
			escaped = "/" + escaped
		}
		return relative(escaped, u.RawQuery, u.EscapedFragment(), base)
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	return relative(p, u.RawQuery, u.EscapedFragment(), base)
}

// probe finds the suffix under which rel exists as a regular file.
func (r *Resolver) probe(rel string) (string, bool) {
	candidates := suffixes
	if rel == "" {
		candidates = []string{"index.html"}
	}
	for _, suffix := range candidates {
		p := filepath.Join(r.root, filepath.FromSlash(rel+suffix))
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			if rel == "" {
				return "/" + suffix, true
			}
			return suffix, true
		}
	}
	return "", false
}

// externalPath nests an allow-listed external URL under a directory named
// after its host, escaping the query so that it addresses the file the
// mirroring tool wrote to disk.
func (r *Resolver) externalPath(host string, u *url.URL) string {
	p := u.EscapedPath()
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	p = escapePercent(p)
	p = strings.ReplaceAll(p, "?", "%3F")
	return path.Join(r.site.EscapedPath(), "/", host) + "/" + strings.TrimPrefix(p, "/")
}

// escapePercent turns every literal '%' into "%25", except for an already
// escaped "%3D".
func escapePercent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && !strings.HasPrefix(s[i:], "%3D") {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// relative expresses the escaped absolute path target (plus query and
// fragment) relative to the document at base.
func relative(target, rawQuery, fragment string, base *url.URL) string {
	dir := base.EscapedPath()
	if dir == "" {
		dir = "/"
	}
	if !strings.HasSuffix(dir, "/") {
		dir = path.Dir(dir)
	}

	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(target))
	if err != nil {
		rel = target
	} else {
		rel = filepath.ToSlash(rel)
	}
	if rel == "." {
		rel = "./"
	} else if strings.HasSuffix(target, "/") {
		rel += "/"
	}
	// A colon in the first segment would read as a scheme.
	if first, _, _ := strings.Cut(rel, "/"); strings.Contains(first, ":") {
		rel = "./" + rel
	}

	if rawQuery != "" {
		rel += "?" + rawQuery
	}
	if fragment != "" {
		rel += "#" + fragment
	}
	return rel
}

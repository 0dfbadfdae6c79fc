package docs

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// RewriteStylesheet rewrites the url() references of the stylesheet at path
// so they resolve inside the bundle. Every other token is copied verbatim.
func (t *Transformer) RewriteStylesheet(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading stylesheet: %w", err)
	}
	rel, err := filepath.Rel(t.resolver.Root(), path)
	if err != nil {
		return fmt.Errorf("locating %s under site root: %w", path, err)
	}
	base := t.resolver.Site().ResolveReference(&url.URL{Path: filepath.ToSlash(rel)})

	var out bytes.Buffer
	l := css.NewLexer(parse.NewInputBytes(data))
	for {
		tt, text := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != io.EOF {
				return fmt.Errorf("lexing %s: %w", rel, err)
			}
			break
		}
		if tt == css.URLToken {
			out.WriteString(t.rewriteURLToken(string(text), base))
			continue
		}
		out.Write(text)
	}

	if bytes.Equal(out.Bytes(), data) {
		return nil
	}
	t.log.Debug("rewrote stylesheet", "file", filepath.ToSlash(rel))
	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing stylesheet: %w", err)
	}
	return nil
}

// rewriteURLToken rewrites a url(...) token, keeping its quoting.
func (t *Transformer) rewriteURLToken(tok string, base *url.URL) string {
	inner, ok := strings.CutPrefix(tok, "url(")
	if !ok {
		return tok
	}
	inner = strings.TrimSpace(strings.TrimSuffix(inner, ")"))

	quote := ""
	if len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0] {
		quote = inner[:1]
		inner = inner[1 : len(inner)-1]
	}
	if inner == "" || strings.HasPrefix(inner, "#") {
		return tok
	}
	return "url(" + quote + t.resolver.Resolve(inner, base) + quote + ")"
}

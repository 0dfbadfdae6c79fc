// Package mirror downloads the documentation site with wget.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// exitServerError is wget's exit status when some responses were HTTP
// errors; a mirror of a live site almost always has a few.
const exitServerError = 8

type Options struct {
	Command       string
	Site          *url.URL
	ExternalHosts []string
	StartPaths    []string
	RejectRegex   string

	// Dir is the mirror root; the site lands in Dir/<host>.
	Dir string

	Stdout, Stderr io.Writer
}

// Args returns the wget arguments for o.
func Args(o Options) []string {
	domains := append([]string{o.Site.Host}, o.ExternalHosts...)
	args := []string{
		"--recursive",
		"--level=inf",
		"--timestamping",
		"--page-requisites",
		"--adjust-extension",
		"--span-hosts",
		"--domains=" + strings.Join(domains, ","),
		"--no-verbose",
		"--execute=robots=off",
	}
	if o.RejectRegex != "" {
		args = append(args, "--reject-regex="+o.RejectRegex)
	}

	starts := o.StartPaths
	if len(starts) == 0 {
		starts = []string{"/"}
	}
	for _, p := range starts {
		args = append(args, o.Site.ResolveReference(&url.URL{Path: p}).String())
	}
	return args
}

// Run mirrors the site into o.Dir and nests the allow-listed external hosts
// under the site directory.
func Run(ctx context.Context, o Options, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("creating mirror dir: %w", err)
	}

	command := o.Command
	if command == "" {
		command = "wget"
	}
	cmd := exec.CommandContext(ctx, command, Args(o)...)
	cmd.Dir = o.Dir
	cmd.Stdout = o.Stdout
	cmd.Stderr = o.Stderr

	log.Info("mirroring site", "url", o.Site.String(), "dir", o.Dir)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != exitServerError {
			return fmt.Errorf("running %s: %w", command, err)
		}
		log.Warn("mirror finished with server errors", "command", command)
	}

	return Nest(o.Dir, o.Site.Host, o.ExternalHosts)
}

// Nest moves Dir/<external> to Dir/<site>/<external> for each external
// host, replacing any previous copy.
func Nest(dir, site string, externalHosts []string) error {
	for _, host := range externalHosts {
		src := filepath.Join(dir, host)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		dst := filepath.Join(dir, site, host)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("creating site dir: %w", err)
		}
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("removing stale %s: %w", host, err)
		}
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("nesting %s: %w", host, err)
		}
	}
	return nil
}

package cmd

import (
	"log/slog"
	"net/url"
	"os"

	"github.com/jcdickinson/twdocset/internal/mirror"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Mirror the documentation site with wget",
	Run:   runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	site, err := url.Parse(cfg.Site.URL)
	if err != nil {
		slog.Error("invalid site url", "url", cfg.Site.URL, "error", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	err = mirror.Run(ctx, mirror.Options{
		Command:       cfg.Mirror.Command,
		Site:          site,
		ExternalHosts: cfg.Site.ExternalHosts,
		StartPaths:    cfg.Mirror.StartPaths,
		RejectRegex:   cfg.Mirror.RejectRegex,
		Dir:           cfg.Paths.Mirror,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
	}, slog.Default())
	if err != nil {
		slog.Error("mirror failed", "error", err)
		os.Exit(1)
	}
}

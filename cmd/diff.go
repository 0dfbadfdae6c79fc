package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jcdickinson/twdocset/internal/builder"
	"github.com/jcdickinson/twdocset/internal/db"
	"github.com/jcdickinson/twdocset/internal/history"
	"github.com/jcdickinson/twdocset/internal/version"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare the built index with the previous archived version",
	Run:   runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	layout := builder.NewLayout(cfg)

	current, err := version.Load(layout.VersionFile)
	if err != nil {
		slog.Error("no built docset", "error", err)
		os.Exit(1)
	}

	store := history.NewStore(cfg.Paths.History)
	prev, err := store.Previous(current)
	if errors.Is(err, history.ErrNoBaseline) {
		slog.Error("nothing to compare against", "version", current.String())
		os.Exit(1)
	}
	if err != nil {
		slog.Error("failed to read history", "error", err)
		os.Exit(1)
	}

	before, err := store.Load(prev)
	if err != nil {
		slog.Error("failed to load archived index", "version", prev.String(), "error", err)
		os.Exit(1)
	}
	after, err := builtEntries(cfg)
	if err != nil {
		slog.Error("failed to read index", "error", err)
		os.Exit(1)
	}

	added, removed := history.Diff(before, after)
	fmt.Printf("%s -> %s: %d added, %d removed\n", prev, current, len(added), len(removed))
	printEntries("+", added)
	printEntries("-", removed)
}

func printEntries(sign string, entries []db.Entry) {
	for _, e := range entries {
		fmt.Printf("%s %-10s %s\t%s\n", sign, e.Type, e.Name, e.Path)
	}
}

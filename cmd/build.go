package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jcdickinson/twdocset/internal/builder"
	"github.com/jcdickinson/twdocset/internal/db"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the docset from the mirror",
	Run:   runBuild,
}

var buildForce bool

func init() {
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "build even if the mirror is not newer than the last archived build")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) {
	b, err := builder.New(loadConfig(), slog.Default())
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	res, err := b.Build(buildForce)
	if err != nil {
		slog.Error("build failed", "error", err)
		os.Exit(1)
	}
	if res.Skipped {
		fmt.Printf("%s is already built (use --force to rebuild)\n", res.Version)
		return
	}

	fmt.Printf("built %s: %d pages, %d duplicates\n", res.Version, res.Pages, res.Dupes)
	for _, typ := range db.EntryTypes {
		fmt.Printf("  %-10s %d\n", typ, res.Counts[typ])
	}
}

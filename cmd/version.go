package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jcdickinson/twdocset/internal/builder"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version of the mirrored site",
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	b, err := builder.New(loadConfig(), slog.Default())
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	v, isNew, err := b.Version()
	if err != nil {
		slog.Error("failed to detect version", "error", err)
		os.Exit(1)
	}

	state := "already built"
	if isNew {
		state = "new"
	}
	fmt.Printf("%s (build %s, %s)\n", v, v.BuildID, state)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jcdickinson/twdocset/internal/builder"
	"github.com/jcdickinson/twdocset/internal/config"
	"github.com/jcdickinson/twdocset/internal/db"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the entries of the built index",
	Example: `  twdocset dump
  twdocset dump --type Class
  twdocset dump --json`,
	Run: runDump,
}

var (
	dumpType string
	dumpJSON bool
)

func init() {
	dumpCmd.Flags().StringVarP(&dumpType, "type", "t", "", "only print entries of this type")
	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "print entries as JSON")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) {
	var only db.EntryType
	if dumpType != "" {
		t, err := db.ParseEntryType(dumpType)
		if err != nil {
			log.Fatalf("%v", err)
		}
		only = t
	}

	entries, err := builtEntries(loadConfig())
	if err != nil {
		slog.Error("failed to read index", "error", err)
		os.Exit(1)
	}

	var out []db.Entry
	for _, e := range entries {
		if only == "" || e.Type == only {
			out = append(out, e)
		}
	}

	if dumpJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatalf("encoding entries: %v", err)
		}
		return
	}
	for _, e := range out {
		fmt.Printf("%-10s %s\t%s\n", e.Type, e.Name, e.Path)
	}
}

func builtEntries(cfg *config.Config) ([]db.Entry, error) {
	layout := builder.NewLayout(cfg)
	index, err := db.OpenExisting(layout.Index)
	if err != nil {
		return nil, err
	}
	defer index.Close()
	return index.Entries()
}

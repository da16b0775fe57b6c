package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/devusage/internal/ingest"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load [file]",
	Short: "Load a utilisation JSON batch into the database",
	Long: `Reads a JSON array of {deviceID, date, values} entries, converts dates from
D-Mon-YYYY to YYYY-MM-DD and upserts one row per device per day.

Entries whose date cannot be parsed are skipped with a warning. Running the
same file twice leaves the database unchanged.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Load started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := newLogger(cfg, "loader")

	source := cfg.GetSource()
	if len(args) == 1 {
		source = args[0]
	}

	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer f.Close()

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	sum, err := ingest.NewLoader(db, log).Load(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("loading %s: %w", source, err)
	}

	fmt.Printf("✓ Loaded %s of %s entries from %s (%s skipped)\n",
		humanize.Comma(int64(sum.Stored)),
		humanize.Comma(int64(sum.Read)),
		source,
		humanize.Comma(int64(sum.Skipped)),
	)
	return nil
}

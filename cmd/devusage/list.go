package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/devusage/internal/analytics"
	"github.com/spf13/cobra"
)

var (
	listDevice string
	listDate   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored utilisation records",
	Long:  `Displays stored device utilisation rows with their sample count and daily average.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listDevice, "device", "", "Filter by device ID")
	listCmd.Flags().StringVar(&listDate, "date", "", "Filter by date (YYYY-MM-DD)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if listDate != "" {
		if _, err := analytics.ParseDate(listDate); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	data, err := db.ListRecords(cmd.Context(), listDevice, listDate)
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}

	if len(data) == 0 {
		fmt.Println("No data found")
		return nil
	}

	fmt.Println("----------------------------------------------")
	fmt.Printf("%-12s  %-16s  %7s  %8s\n", "Date", "Device", "Samples", "Average")
	fmt.Println("----------------------------------------------")

	for _, record := range data {
		avg := "-"
		if mean, ok := analytics.Mean(record.Values); ok {
			avg = fmt.Sprintf("%.2f", analytics.Round2(mean))
		}
		fmt.Printf("%-12s  %-16s  %7d  %8s\n", record.DateString(), record.DeviceID, len(record.Values), avg)
	}

	fmt.Println("----------------------------------------------")
	fmt.Printf("Total: %s records\n", humanize.Comma(int64(len(data))))
	return nil
}

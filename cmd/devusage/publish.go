package main

import (
	"fmt"
	"time"

	"github.com/jgoulah/devusage/internal/analytics"
	"github.com/jgoulah/devusage/internal/publisher"
	"github.com/spf13/cobra"
)

var publishDate string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a day's top-5 ranking to MQTT",
	Long: `Computes the top-5 device ranking for --date from the database and publishes
it as a retained JSON message on <topic_prefix>/top5/<date>.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishDate, "date", "", "Date to publish (YYYY-MM-DD)")
	_ = publishCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.MQTT.Enabled {
		return fmt.Errorf("MQTT is not enabled in config")
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ranking, err := analytics.NewService(db).TopDevices(cmd.Context(), publishDate)
	if err != nil {
		return fmt.Errorf("ranking devices: %w", err)
	}

	if len(ranking) == 0 {
		fmt.Printf("No data found for %s\n", publishDate)
		return nil
	}

	pub, err := publisher.New(cfg.MQTT, cfg.GetTopicPrefix())
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	fmt.Printf("Publishing %d devices to %s... ", len(ranking), pub.RankingTopic(publishDate))
	if err := pub.PublishRanking(publishDate, ranking); err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Println("✓")

	for i, d := range ranking {
		fmt.Printf("  %d. %-16s %6.2f\n", i+1, d.DeviceID, d.AverageUtilisation)
	}
	return nil
}

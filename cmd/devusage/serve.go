package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jgoulah/devusage/internal/analytics"
	"github.com/jgoulah/devusage/internal/api"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ranking and hourly average endpoints",
	Long: `Starts the read-only HTTP query service:

  GET /top-5?date=YYYY-MM-DD
  GET /hourly-average?device_id=ID&start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
  GET /healthz
  GET /metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :5000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := newLogger(cfg, "api")

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	addr := cfg.GetAddr()
	if serveAddr != "" {
		addr = serveAddr
	}

	handler := api.NewServer(log, analytics.NewService(db), db, api.Options{
		RequestTimeout: cfg.GetRequestTimeout(),
	})
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		log.Info("listening", slog.String("addr", addr), slog.String("db", getDBPath(cfg)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

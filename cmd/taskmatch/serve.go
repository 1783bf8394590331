package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/taskmatch/internal/server"
	"github.com/jonathan/taskmatch/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes issue triage, commit intake and requisition review.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx) //nolint:errcheck

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	limits := ratelimit.DefaultConfig(cfg.Server.RateLimitPerMinute)
	limits.Enabled = !cfg.Server.DisableRateLimit

	srv := server.New(server.Config{Port: port, RateLimit: limits}, server.Deps{
		Issues:       a.issues,
		Commits:      a.commits,
		Requisitions: a.requisitions,
		Logger:       logger,
	})
	return srv.Start(ctx)
}

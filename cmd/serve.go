package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hbukhari/ragcite/internal/chat"
	"github.com/hbukhari/ragcite/internal/db"
	"github.com/hbukhari/ragcite/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ragcite HTTP server",
	Long:  `Starts the ragcite server with the chat REST API, WebSocket streaming, and session persistence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Port = servePort
		}

		ctx := context.Background()
		orch, store, provider, err := buildOrchestrator(ctx, cfg)
		if err != nil {
			return err
		}

		dbPath := databasePath(cfg)
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		chatSvc := chat.NewService(chat.NewStore(database), orch, provider, cfg.Model)
		srv := server.New(cfg, chatSvc)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "ragcite server v%s starting on port %d\n", Version, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "  Citations: %s\n", cfg.CitationsDir)
		fmt.Fprintf(os.Stderr, "  Chunks indexed: %d\n", store.Count())

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

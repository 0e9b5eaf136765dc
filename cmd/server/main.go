// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/benmann/supabase/api"
	"github.com/benmann/supabase/config"
	"github.com/benmann/supabase/internal/logger"
	"github.com/benmann/supabase/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dashboard-backend",
		Short: "Backend service for the table dashboard",
	}
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		customLog.Errorf("%v", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	customLog.Println("Starting dashboard backend server...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Initialize Local State Database
	localDB, err := storage.ConnectLocalDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize local state database: %w", err)
	}
	defer func() {
		customLog.Println("Closing local state database...")
		if err := localDB.Close(); err != nil {
			customLog.Printf("Error closing local state database: %v", err)
		}
	}()

	// 3. Connect to the administered database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach the administered database: %w", err)
	}

	// 4. Setup Router (passing dependencies)
	router := api.SetupRouter(localDB, pool, cfg)

	// 5. Start Server
	customLog.Printf("Server listening on port %s", cfg.ServerPort)
	if err := router.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

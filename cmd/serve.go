package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/database/postgres"
	"github.com/kozaktomas/missing-persons/internal/storage"
	"github.com/kozaktomas/missing-persons/internal/web"
	"github.com/kozaktomas/missing-persons/internal/web/middleware"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Missing Persons web server.
The web server provides the JSON API and a browser-based interface for
registering missing persons and searching the registry by photo.

Without DATABASE_URL the registry is kept in memory and lost on exit.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (defaults to random)")
	serveCmd.Flags().Bool("seed", false, "Load the sample dataset into an empty registry on startup")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	sessionSecret := mustGetString(cmd, "session-secret")

	if sessionSecret == "" {
		sessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, sessionSecret
}

// saveHNSWIndex persists the descriptor HNSW index during shutdown.
func saveHNSWIndex() {
	rebuilder := database.GetHNSWRebuilder()
	if rebuilder == nil || !rebuilder.IsHNSWEnabled() {
		return
	}
	if err := rebuilder.SaveHNSWIndex(); err != nil {
		fmt.Printf("Warning: failed to save descriptor HNSW index: %v\n", err)
	} else {
		fmt.Println("Descriptor HNSW index saved to disk")
	}
}

// registerServeBackend registers the registry backend and returns the
// session store, nil when sessions stay in memory.
func registerServeBackend(ctx context.Context, cfg *config.Config) (middleware.SessionStore, error) {
	if cfg.Database.URL == "" {
		registerMemory()
		return nil, nil
	}

	if _, err := connectPostgres(ctx, cfg, true); err != nil {
		return nil, err
	}
	fmt.Printf("Using PostgreSQL backend\n")

	var sessions middleware.SessionStore = postgres.NewSessionRepository(postgres.GetGlobalPool())
	fmt.Printf("Session persistence enabled (PostgreSQL)\n")
	return sessions, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Auth.Validate(); err != nil {
		return fmt.Errorf("refusing to serve the registry without operator credentials: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionStore, err := registerServeBackend(ctx, cfg)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "seed") {
		repo, err := database.GetPersonRepository(ctx)
		if err != nil {
			return err
		}
		if count, err := repo.Count(ctx); err != nil {
			return fmt.Errorf("failed to count persons: %w", err)
		} else if count == 0 {
			added, skipped, err := seedSamples(ctx, repo, cfg.Samples.People)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d sample persons (%d skipped)\n", added, skipped)
		}
	}

	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open photo storage: %w", err)
	}
	extractor := newExtractor(cfg)
	port, host, sessionSecret := resolveServeHostPort(cmd)

	server := web.NewServer(cfg, port, host, sessionSecret, sessionStore, store, extractor)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		saveHNSWIndex()

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Missing Persons Web UI on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

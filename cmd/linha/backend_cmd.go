package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/linhaops/linha/internal/audit"
	"github.com/linhaops/linha/internal/backend"
	"github.com/linhaops/linha/internal/store"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	dbPath     string
	seedDemo   bool
	sessionTTL time.Duration
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Start the development backend",
	Long:  `Starts the development backend which provides the HTTP API the kiosk terminals talk to.`,
	RunE:  runBackend,
}

func init() {
	homeDir, _ := os.UserHomeDir()
	defaultDB := filepath.Join(homeDir, ".linha", "linha.db")

	backendCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:7467", "Listen address for the API server")
	backendCmd.Flags().StringVar(&dbPath, "db", defaultDB, "Path to SQLite database")
	backendCmd.Flags().BoolVar(&seedDemo, "seed", false, "Seed a demo catalog and roster into an empty database")
	backendCmd.Flags().DurationVar(&sessionTTL, "session-ttl", 12*time.Hour, "Cancel open records older than this (0 disables)")
}

func runBackend(cmd *cobra.Command, args []string) error {
	log.Println("Starting linha backend...")

	s, err := store.New(dbPath)
	if err != nil {
		return err
	}

	if seedDemo {
		if err := backend.Seed(s); err != nil {
			s.Close()
			return err
		}
	}

	trail := audit.NewTrailWriter(s)
	service := backend.NewService(s, trail)
	server := backend.NewServer(service, listenAddr)

	sweeper := backend.NewSweeper(service, sessionTTL)
	sweeper.Start()
	defer sweeper.Stop()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			s.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Closing database connection...")
	if err := s.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

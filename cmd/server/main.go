package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/webterminator/internal/infrastructure/config"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the environment
	port := flag.String("port", cfg.Server.Port, "Server port")
	shell := flag.String("shell", cfg.Terminal.Shell, "Shell to spawn (default $SHELL)")
	static := flag.String("static", cfg.Server.StaticDir, "Directory of client assets to serve")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (debug logging)")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Terminal.Shell = *shell
	cfg.Server.StaticDir = *static
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		_ = srv.Close()
		log.Fatalf("Server error: %v", err)
	}
}

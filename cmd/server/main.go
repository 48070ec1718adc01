package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aidevelo/voice-gateway/internal/config"
	"github.com/aidevelo/voice-gateway/internal/handler"
	"github.com/aidevelo/voice-gateway/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Server represents the telephony webhook gateway server
type Server struct {
	config         *config.Config
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates a new gateway server
func NewServer(cfg *config.Config) *Server {
	// Initialize zap logger and redirect stdlib log to it
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	router := mux.NewRouter()

	// Initialize handler manager - it will create all services internally
	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		logger.Base().Error("Failed to initialize handler manager", zap.Error(err))
		return nil
	}

	// Setup all routes through handler manager
	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}
}

// Start runs the server until the context is cancelled, then shuts
// down gracefully so in-flight webhook persistence can finish.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Base().Info("Starting server", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Base().Info("Shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Base().Error("Graceful shutdown failed", zap.Error(err))
		return err
	}

	s.handlerManager.Close()
	logger.Base().Info("Server stopped")
	return nil
}

func main() {
	// Load .env file for local development if it exists
	// This will not override environment variables set by Helm/Docker
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg := config.LoadFromEnv()

	server := NewServer(cfg)
	if server == nil {
		log.Fatal("Failed to create server")
	}
	defer logger.Sync()

	logger.Base().Info("Server initialized successfully",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.Bool("mock_mode", cfg.MockMode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}

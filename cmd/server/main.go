package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/viacare/clinic-relay-service/internal/config"
	"github.com/viacare/clinic-relay-service/internal/handler"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"go.uber.org/zap"
)

// Server represents the clinic relay server
type Server struct {
	config         *config.RelayConfig
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates a new relay server
func NewServer(cfg *config.RelayConfig) *Server {
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

	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}
}

// Start starts the relay server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

func main() {
	// 0. Load .env file for local development if it exists
	// This will not override environment variables set by Helm/Docker
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	// 1. Load configuration from environment
	cfg := config.LoadRelayConfigFromEnv()

	// 2. Create the server
	server := NewServer(cfg)
	if server == nil {
		log.Fatal("Failed to create server")
	}
	defer logger.Sync()
	logger.Base().Info("Server initialized successfully", zap.String("port", cfg.Port))

	// 3. Start the server
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/chatdesk/internal/adapter/llm"
	"github.com/xiaot623/chatdesk/internal/config"
	"github.com/xiaot623/chatdesk/internal/hub"
	"github.com/xiaot623/chatdesk/internal/service"
	"github.com/xiaot623/chatdesk/internal/store"
	v1 "github.com/xiaot623/chatdesk/internal/transport/http/v1"
	"github.com/xiaot623/chatdesk/internal/transport/ws"
	"github.com/xiaot623/chatdesk/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting chatdesk...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("LLM URL: %s", cfg.LLMBaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize fan-out hub
	h := hub.NewHub()
	go h.Run()

	// Initialize completion client
	llmClient := llm.NewCompletionClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)

	// Initialize reply policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(db, h, llmClient, policyEngine, cfg)

	// Initialize handlers
	httpHandler := v1.NewHandler(svc, cfg.OperatorToken)
	wsServer := ws.NewServer(cfg, h, svc)

	// Create Echo server
	server := echo.New()
	server.HideBanner = true

	// Middleware
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	server.Use(middleware.CORS())

	// Register routes
	httpHandler.RegisterRoutes(server)
	server.GET("/v1/ws", wsServer.HandleWebSocket)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down chatdesk...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Chatdesk stopped")
}

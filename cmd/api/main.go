package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/tedriz-backend/internal/services/tetris"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sessionManager := tetris.NewSessionManager(tetris.SessionConfig{
		DropInterval: cfg.DropInterval,
		FieldWidth:   cfg.FieldWidth,
		FieldHeight:  cfg.FieldHeight,
	})

	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.BypassAuth)
	gameHandler := handlers.NewGameHandler(sessionManager, auth, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handlers.NewRouter(gameHandler, auth, cfg.AllowedOrigins),
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	sessionManager.Shutdown()
	log.Println("Server stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/app"
	"github.com/cmlabs-hris/bio-attendance-go/internal/config"
	appHTTP "github.com/cmlabs-hris/bio-attendance-go/internal/handler/http"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/jwt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	app.SetupLogger(cfg.App)

	container, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to start", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	biometricHandler := appHTTP.NewBiometricHandler(container.Service)

	router := appHTTP.NewRouter(cfg.App, JWTService, biometricHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	}()

	slog.Info("Server running", "addr", server.Addr, "queue", cfg.Redis.Enabled())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
	}
}

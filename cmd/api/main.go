package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"monoforum/cmd/app"
	"monoforum/internal/config"
	handlers "monoforum/internal/handler"
	"monoforum/internal/logger"
	"monoforum/internal/middleware"
)

func main() {
	// setting up config
	cfg := config.LoadConfig()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if cfg.JWTSecretKey == "" {
		log.Fatal("JWT_SECRET_KEY не установлен в .env файле")
	}

	application := app.New(cfg, log)
	defer application.Close(log)

	handler := handlers.NewHandlers(application.Services, application.DB, cfg, log)

	handlerChain := middleware.Chain(
		handler.Router(),
		middleware.AuthMiddleware(application.Services.Auth, log),
		middleware.CORSMiddleware,
		middleware.LoggingMiddleware(log),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           handlerChain,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", server.Addr).WithField("db", cfg.DB.DbNAME).Info("Сервер запущен")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Ошибка запуска сервера")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Ошибка остановки сервера")
	}
	log.Info("Сервер остановлен")
}

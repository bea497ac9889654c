package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"monoforum/internal/cache"
	"monoforum/internal/config"
	"monoforum/internal/database"
	"monoforum/internal/repository"
	"monoforum/internal/service"
	"monoforum/internal/storage"
)

type App struct {
	DB       *database.DB
	Cache    *cache.Cache
	Repo     *repository.Repository
	Services *service.Service
}

// New connects every backing service and wires the layers together. Any
// connection failure is fatal.
func New(cfg *config.Config, log *logrus.Logger) *App {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// connection DB
	db, err := database.ConnectDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Не удалось подключиться к БД")
	}

	// connection MinIO
	minioClient, err := storage.NewMinIOClient(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать MinIO")
	}

	// connection Redis
	tokenCache := cache.NewCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := tokenCache.Ping(ctx); err != nil {
		log.WithError(err).Fatal("Не удалось подключиться к Redis")
	}

	// enabling dependencies
	repo := repository.NewRepository(db.DB)
	services := service.NewService(repo, cfg, minioClient, tokenCache)

	return &App{
		DB:       db,
		Cache:    tokenCache,
		Repo:     repo,
		Services: services,
	}
}

func (a *App) Close(log *logrus.Logger) {
	if err := a.Cache.Close(); err != nil {
		log.WithError(err).Warn("ошибка закрытия Redis")
	}
	if err := a.DB.CloseDB(); err != nil {
		log.WithError(err).Warn("ошибка закрытия БД")
	}
}

package main

import (
	"context"

	"github.com/emberdating/ember-backend/internal/app"
	"github.com/emberdating/ember-backend/internal/auth"
	"github.com/emberdating/ember-backend/internal/cache"
	"github.com/emberdating/ember-backend/internal/config"
	"github.com/emberdating/ember-backend/internal/db"
	"github.com/emberdating/ember-backend/internal/logger"
	"github.com/emberdating/ember-backend/internal/notify"
	"github.com/emberdating/ember-backend/internal/realtime"
	"github.com/emberdating/ember-backend/internal/server"
	"github.com/emberdating/ember-backend/internal/service/discovery"
	"github.com/emberdating/ember-backend/internal/service/matching"
	"github.com/emberdating/ember-backend/internal/service/messaging"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	authManager := auth.NewManager(cfg.Auth.JWTSecret)
	gateway := realtime.NewGateway(log)
	notifier := notify.NewLogNotifier(log)

	messagingSvc := messaging.NewService(appCtx, gateway, notifier)
	matchingSvc := matching.NewService(appCtx, notifier)
	discoverySvc := discovery.NewService(appCtx)

	registrars := []server.Registrar{
		messaging.NewRegistrar(messagingSvc),
		matching.NewRegistrar(matchingSvc),
		discovery.NewRegistrar(discoverySvc),
		server.NewWSHandler(gateway, messagingSvc, log),
	}

	router := server.NewRouter(authManager.Middleware, registrars...)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, router); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}

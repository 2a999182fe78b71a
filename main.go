package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/Kothamrita/GlauCat/internal/config"
	"github.com/Kothamrita/GlauCat/internal/database"
	"github.com/Kothamrita/GlauCat/internal/engine/contrast"
	logger "github.com/Kothamrita/GlauCat/internal/logging"
	"github.com/Kothamrita/GlauCat/internal/router"
	"github.com/Kothamrita/GlauCat/internal/services"
	"github.com/Kothamrita/GlauCat/internal/session"
)

func main() {
	// Bootstrap logger with defaults; config is not loaded yet.
	log, err := logger.Init(logger.Options{})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	if err := config.Init(".", log); err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Rebuild the logger with the configured rotation settings.
	log, err = logger.Init(logger.Options{
		Directory:  config.Conf.Logging.Directory,
		MaxSize:    config.Conf.Logging.MaxSize,
		MaxBackups: config.Conf.Logging.MaxBackups,
		MaxAge:     config.Conf.Logging.MaxAge,
		Compress:   config.Conf.Logging.Compress,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	database.Init(log)

	// Load the plate pool at startup; the built-in pool keeps the
	// contrast test usable when the file is absent.
	pool, err := contrast.LoadPool(config.Conf.Assessment.Contrast.PlatesPath)
	if err != nil {
		log.Warn("Could not load plate pool, using built-in plates",
			zap.String("path", config.Conf.Assessment.Contrast.PlatesPath),
			zap.Error(err))
		pool = contrast.DefaultPool()
	}

	liveSessions := session.NewManager(log)
	services.NewReaper(log, liveSessions, 10*time.Minute).Start()

	r := router.Setup(log, liveSessions, pool)

	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}

package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Kothamrita/GlauCat/internal/config"
	"github.com/Kothamrita/GlauCat/internal/logging"
	"github.com/Kothamrita/GlauCat/internal/models"
)

var DB *gorm.DB

func Init(log *zap.Logger) {
	var err error
	dbConf := config.Conf.Database
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logging.NewGormZapLogger(log),
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	log.Info("Database connection established successfully.")
	runMigrations(log)
}

func runMigrations(log *zap.Logger) {
	err := DB.AutoMigrate(
		&models.User{},
		&models.ScoreRecord{},
		&models.FieldResult{},
		&models.FieldTrial{},
		&models.ContrastResult{},
		&models.ContrastTrial{},
		&models.GazeResult{},
	)
	if err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully.")

	// AutoMigrate does not create composite indexes; the score timeline
	// query needs this one.
	scoresIndex := `CREATE INDEX IF NOT EXISTS idx_scores_timeline ON score_records (user_id, kind, created_at DESC);`
	if err := DB.Exec(scoresIndex).Error; err != nil {
		log.Fatal("Failed to create custom index on score_records", zap.Error(err))
	}
	log.Info("Custom indexes ensured successfully.")
}

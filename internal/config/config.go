package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the application configuration, accessible globally after Init.
var Conf *Config

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Assessment AssessmentConfig `mapstructure:"assessment"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	SessionSecret string `mapstructure:"session_secret"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AssessmentConfig tunes the three assessment engines.
type AssessmentConfig struct {
	Field    FieldConfig    `mapstructure:"field"`
	Contrast ContrastConfig `mapstructure:"contrast"`
	Gaze     GazeConfig     `mapstructure:"gaze"`
}

// FieldConfig carries the defaults the field test starts with when the
// client does not override them.
type FieldConfig struct {
	TotalTrials   int `mapstructure:"total_trials"`
	MaxReactionMs int `mapstructure:"max_reaction_ms"`
}

// ContrastConfig points at the plate pool and sets the staircase start.
type ContrastConfig struct {
	PlatesPath   string `mapstructure:"plates_path"`
	InitialLevel int    `mapstructure:"initial_level"`
}

// GazeConfig bounds the gaze session duration.
type GazeConfig struct {
	DefaultDurationSec int `mapstructure:"default_duration_sec"`
	MaxDurationSec     int `mapstructure:"max_duration_sec"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.session_secret", "change-me-in-production")

	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "glaucat-db")

	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true)

	v.SetDefault("assessment.field.total_trials", 6)
	v.SetDefault("assessment.field.max_reaction_ms", 2000)
	v.SetDefault("assessment.contrast.plates_path", "config/plates.yaml")
	v.SetDefault("assessment.contrast.initial_level", 2)
	v.SetDefault("assessment.gaze.default_duration_sec", 12)
	v.SetDefault("assessment.gaze.max_duration_sec", 60)
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	setDefaults(v)

	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Environment variables override the file, e.g. GLAUCAT_SERVER_PORT.
	v.SetEnvPrefix("GLAUCAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; defaults and env vars apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := v.Unmarshal(&Conf); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})

	log.Info("Configuration loaded successfully")
	return nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Reports  ReportsConfig  `mapstructure:"reports"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// Database drivers understood by DatabaseConfig.Driver.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	URI        string `mapstructure:"uri"`
	Name       string `mapstructure:"name"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// S3Config configures the report archive. An empty BucketName disables it.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type SessionsConfig struct {
	// AllowEmpty lets a session be built or reordered with no exercises.
	AllowEmpty bool `mapstructure:"allow_empty"`
}

type ReportsConfig struct {
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Nested keys map to env names, e.g. database.sqlite_path -> DATABASE_SQLITE_PATH
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "tt_trainer")
	v.SetDefault("database.sqlite_path", "ttrainer.db")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("sessions.allow_empty", false)
	v.SetDefault("reports.url_expiry", "15m")

	err = v.ReadInConfig()
	// A missing file is fine: defaults and env vars still apply.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	switch config.Database.Driver {
	case DriverMongo, DriverSQLite:
	default:
		return config, fmt.Errorf("unknown database driver %q (want %q or %q)", config.Database.Driver, DriverMongo, DriverSQLite)
	}
	return config, nil
}

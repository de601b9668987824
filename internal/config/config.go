package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Mongo    MongoConfig
	JWT      JWTConfig
	Firebase FirebaseConfig
	Storage  StorageConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MongoConfig points at the profile store. When URI is empty the server falls
// back to the file-backed store under Storage.DataDir.
type MongoConfig struct {
	URI    string
	DBName string
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// FirebaseConfig enables delegated identity: when ProjectID is set, requests
// are authenticated by verifying Firebase ID tokens instead of local JWTs.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsJSON string
}

type StorageConfig struct {
	DataDir string
}

type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables or a .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Try to read from .env file, but don't fail if it doesn't exist
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_ADDRESS", ":8080")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("MONGO_DB_NAME", "fieldlink")
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Server: ServerConfig{
			Address:      viper.GetString("SERVER_ADDRESS"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Mongo: MongoConfig{
			URI:    viper.GetString("MONGO_URI"),
			DBName: viper.GetString("MONGO_DB_NAME"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("JWT_SECRET"),
			Expiration: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		Firebase: FirebaseConfig{
			ProjectID:       viper.GetString("FIREBASE_PROJECT_ID"),
			CredentialsJSON: viper.GetString("FIREBASE_CREDENTIALS_JSON"),
		},
		Storage: StorageConfig{
			DataDir: viper.GetString("DATA_DIR"),
		},
		Logging: LoggingConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks critical configuration values.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}
	// Local identity mode needs a signing secret; delegated mode does not.
	if c.Firebase.ProjectID == "" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("JWT secret is required")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters")
		}
	}
	if c.Mongo.URI == "" && c.Storage.DataDir == "" {
		return fmt.Errorf("either a Mongo URI or a data directory is required")
	}
	return nil
}

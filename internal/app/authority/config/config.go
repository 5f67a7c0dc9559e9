package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = "../../.env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultRunAddress = ":8080"
)

type Config struct {
	Env    string
	DB     db
	Server server
	Auth   auth
}

type db struct {
	DatabaseURI string `env:"DATABASE_URI"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
}

type auth struct {
	// bcrypt хэш общего токена устройств
	TokenHash string `env:"TOKEN_HASH"`
}

// UseMemory сообщает, что база не задана и данные хранятся в памяти процесса
func (c *Config) UseMemory() bool {
	return c.DB.DatabaseURI == ""
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func Load() (*Config, error) {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("failed to load .env: %v", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetDefault("run_address", defaultRunAddress)
	viper.SetDefault("app_env", EnvLocal)

	cfg := &Config{
		Env:    viper.GetString("app_env"),
		DB:     db{DatabaseURI: viper.GetString("database_uri")},
		Server: server{RunAddress: viper.GetString("run_address")},
		Auth:   auth{TokenHash: viper.GetString("token_hash")},
	}

	if cfg.Auth.TokenHash == "" {
		return nil, fmt.Errorf("TOKEN_HASH is required")
	}
	return cfg, nil
}

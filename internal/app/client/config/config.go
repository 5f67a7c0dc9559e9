package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fieldsync/internal/domain/location"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	defaultServerAddress     = "localhost:8080"
	defaultEnv               = EnvLocal
	defaultConfigDir         = ".fieldsync"
	defaultStorageBackend    = "sqlite"
	defaultSyncInterval      = 60
	defaultLocationInterval  = 30
	defaultLocationBatchSize = 100
	defaultRequestTimeout    = 15
	defaultRequestsPerSecond = 5
	defaultProbeInterval     = 20
	defaultCacheStaleHours   = 24
)

type Config struct {
	Env                 string        `mapstructure:"app_env"`
	ServerAddress       string        `mapstructure:"server_address"`
	EnableTLS           bool          `mapstructure:"enable_tls"`
	LogFile             string        `mapstructure:"log_file"`
	ConfigDir           string        `mapstructure:"config_dir"`
	TokenPath           string        `mapstructure:"token_path"`
	DeviceIDPath        string        `mapstructure:"device_id_path"`
	DataPath            string        `mapstructure:"data_path"`
	KVPath              string        `mapstructure:"kv_path"`
	StorageBackend      string        `mapstructure:"storage_backend"`
	DeviceID            string        `mapstructure:"device_id"`
	SyncInterval        time.Duration `mapstructure:"sync_interval_seconds"`
	LocationInterval    time.Duration `mapstructure:"location_interval_seconds"`
	LocationBatchSize   int           `mapstructure:"location_batch_size"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout_seconds"`
	RequestsPerSecond   float64       `mapstructure:"requests_per_second"`
	ProbeInterval       time.Duration `mapstructure:"probe_interval_seconds"`
	MaxMutationAttempts int           `mapstructure:"max_mutation_attempts"`
	CacheStaleAfter     time.Duration `mapstructure:"cache_stale_after_hours"`
	RefreshCacheOnSync  bool          `mapstructure:"refresh_cache_on_sync"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

func Load() (*Config, error) {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("ENABLE_TLS", false)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("STORAGE_BACKEND", defaultStorageBackend)
	viper.SetDefault("SYNC_INTERVAL_SECONDS", defaultSyncInterval)
	viper.SetDefault("LOCATION_INTERVAL_SECONDS", defaultLocationInterval)
	viper.SetDefault("LOCATION_BATCH_SIZE", defaultLocationBatchSize)
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", defaultRequestTimeout)
	viper.SetDefault("REQUESTS_PER_SECOND", defaultRequestsPerSecond)
	viper.SetDefault("PROBE_INTERVAL_SECONDS", defaultProbeInterval)
	viper.SetDefault("MAX_MUTATION_ATTEMPTS", 0)
	viper.SetDefault("CACHE_STALE_AFTER_HOURS", defaultCacheStaleHours)
	viper.SetDefault("REFRESH_CACHE_ON_SYNC", false)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("Ошибка создания директории конфигурации: %v\n", err)
	}

	cfg := &Config{
		Env:                 viper.GetString("APP_ENV"),
		ServerAddress:       viper.GetString("SERVER_ADDRESS"),
		EnableTLS:           viper.GetBool("ENABLE_TLS"),
		LogFile:             viper.GetString("LOG_FILE"),
		ConfigDir:           configDir,
		TokenPath:           filepath.Join(configDir, "token"),
		DeviceIDPath:        filepath.Join(configDir, "device_id"),
		DataPath:            filepath.Join(configDir, "data.db"),
		KVPath:              filepath.Join(configDir, "kv"),
		StorageBackend:      viper.GetString("STORAGE_BACKEND"),
		DeviceID:            viper.GetString("DEVICE_ID"),
		SyncInterval:        time.Duration(viper.GetInt("SYNC_INTERVAL_SECONDS")) * time.Second,
		LocationInterval:    time.Duration(viper.GetInt("LOCATION_INTERVAL_SECONDS")) * time.Second,
		LocationBatchSize:   viper.GetInt("LOCATION_BATCH_SIZE"),
		RequestTimeout:      time.Duration(viper.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,
		RequestsPerSecond:   viper.GetFloat64("REQUESTS_PER_SECOND"),
		ProbeInterval:       time.Duration(viper.GetInt("PROBE_INTERVAL_SECONDS")) * time.Second,
		MaxMutationAttempts: viper.GetInt("MAX_MUTATION_ATTEMPTS"),
		CacheStaleAfter:     time.Duration(viper.GetInt("CACHE_STALE_AFTER_HOURS")) * time.Hour,
		RefreshCacheOnSync:  viper.GetBool("REFRESH_CACHE_ON_SYNC"),
	}

	if cfg.DeviceID == "" {
		cfg.DeviceID = loadDeviceID(cfg.DeviceIDPath)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDeviceID читает идентификатор устройства или создает новый
func loadDeviceID(path string) string {
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return string(data)
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		fmt.Printf("Ошибка сохранения идентификатора устройства: %v\n", err)
	}
	return id
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.StorageBackend != "sqlite" && c.StorageBackend != "kv" {
		return fmt.Errorf("storage_backend должен быть sqlite или kv, получено %q", c.StorageBackend)
	}
	if c.LocationBatchSize <= 0 || c.LocationBatchSize > location.MaxBatch {
		return fmt.Errorf("location_batch_size должен быть от 1 до %d, получено %d", location.MaxBatch, c.LocationBatchSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout_seconds должен быть положительным")
	}
	if c.SyncInterval <= 0 || c.LocationInterval <= 0 || c.ProbeInterval <= 0 {
		return fmt.Errorf("интервалы должны быть положительными")
	}
	if c.MaxMutationAttempts < 0 {
		return fmt.Errorf("max_mutation_attempts не может быть отрицательным")
	}
	return nil
}

// BaseURL возвращает адрес удаленного сервиса со схемой
func (c *Config) BaseURL() string {
	if c.EnableTLS {
		return "https://" + c.ServerAddress
	}
	return "http://" + c.ServerAddress
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}

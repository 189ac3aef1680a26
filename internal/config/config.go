// internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	MaxUploadMB    int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

// StorageConfig selects where generated order workbooks and raw global
// uploads are archived. Driver "none" disables archiving.
type StorageConfig struct {
	Driver    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
}

// EngineConfig holds the order computation knobs.
type EngineConfig struct {
	CatalogColumn    string
	CatalogMinStock  float64
	WarehouseReserve float64
	FuzzyMatch       bool
	ConflictPolicy   string
	OrderSheetName   string
	OrderColumnLabel string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_MAX_UPLOAD_MB", 32)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	viper.SetDefault("DB_DRIVER", "memory")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "orderplan")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_TTL_SECONDS", 300)

	viper.SetDefault("STORAGE_DRIVER", "none")
	viper.SetDefault("STORAGE_ENDPOINT", "")
	viper.SetDefault("STORAGE_ACCESS_KEY", "")
	viper.SetDefault("STORAGE_SECRET_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "orderplan")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_PREFIX", "")
	viper.SetDefault("STORAGE_USE_SSL", true)

	viper.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	viper.SetDefault("GOOGLE_DRIVE_FOLDER_ID", "")

	viper.SetDefault("ENGINE_CATALOG_COLUMN", "Электро")
	viper.SetDefault("ENGINE_CATALOG_MIN_STOCK", 3)
	viper.SetDefault("ENGINE_WAREHOUSE_RESERVE", 2)
	viper.SetDefault("ENGINE_FUZZY_MATCH", false)
	viper.SetDefault("ENGINE_MAPPING_CONFLICT_POLICY", "last_wins")
	viper.SetDefault("ENGINE_ORDER_SHEET_NAME", "Заказ")
	viper.SetDefault("ENGINE_ORDER_COLUMN_LABEL", "Заказ")
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			MaxUploadMB:    viper.GetInt("SERVER_MAX_UPLOAD_MB"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:       viper.GetBool("CACHE_ENABLED"),
			RedisURL:      viper.GetString("REDIS_URL"),
			RedisHost:     viper.GetString("REDIS_HOST"),
			RedisPort:     viper.GetString("REDIS_PORT"),
			RedisPassword: viper.GetString("REDIS_PASSWORD"),
			RedisDB:       viper.GetInt("REDIS_DB"),
			TTLSeconds:    viper.GetInt("CACHE_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Driver:    viper.GetString("STORAGE_DRIVER"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        viper.GetString("GOOGLE_DRIVE_FOLDER_ID"),
		},
		Engine: EngineConfig{
			CatalogColumn:    viper.GetString("ENGINE_CATALOG_COLUMN"),
			CatalogMinStock:  viper.GetFloat64("ENGINE_CATALOG_MIN_STOCK"),
			WarehouseReserve: viper.GetFloat64("ENGINE_WAREHOUSE_RESERVE"),
			FuzzyMatch:       viper.GetBool("ENGINE_FUZZY_MATCH"),
			ConflictPolicy:   viper.GetString("ENGINE_MAPPING_CONFLICT_POLICY"),
			OrderSheetName:   viper.GetString("ENGINE_ORDER_SHEET_NAME"),
			OrderColumnLabel: viper.GetString("ENGINE_ORDER_COLUMN_LABEL"),
		},
	}
}

// DefaultEngine returns the engine settings without touching the environment.
// Tests and the offline tools use it when no Config has been loaded.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		CatalogColumn:    "Электро",
		CatalogMinStock:  3,
		WarehouseReserve: 2,
		ConflictPolicy:   "last_wins",
		OrderSheetName:   "Заказ",
		OrderColumnLabel: "Заказ",
	}
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

type Config struct {
	AppURL                   string
	StorageDriver            string
	DatabaseDSN              string
	MongoURI                 string
	MongoDatabase            string
	RedisAddr                string
	MetricsCacheTTLSeconds   int
	HeartbeatIntervalSeconds int
	UploadDir                string
	RateLimit                int
	AdminUsername            string
	AdminPassword            string
	JWTSecret                string
	ShutdownTimeoutSeconds   int
}

func Load() Config {
	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")
	redisHost := getEnv("REDIS_HOST", "")
	redisPort := getEnv("REDIS_PORT", "6379")

	// Redis is optional; an empty REDIS_HOST disables the metrics cache.
	redisAddr := ""
	if redisHost != "" {
		redisAddr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	cfg := Config{
		AppURL:                   fmt.Sprintf("%s:%s", appHost, appPort),
		StorageDriver:            getEnv("STORAGE_DRIVER", "sqlite"),
		DatabaseDSN:              getEnv("DATABASE_DSN", "picking.db"),
		MongoURI:                 getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase:            getEnv("MONGO_DATABASE", "picking_control"),
		RedisAddr:                redisAddr,
		MetricsCacheTTLSeconds:   getEnvAsInt("METRICS_CACHE_TTL_SECONDS", 30),
		HeartbeatIntervalSeconds: getEnvAsInt("HEARTBEAT_INTERVAL_SECONDS", 30),
		UploadDir:                getEnv("UPLOAD_DIR", "uploads"),
		RateLimit:                getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		AdminUsername:            getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:            getEnv("ADMIN_PASSWORD", "admin123"),
		JWTSecret:                getEnv("JWT_SECRET", "change-me"),
		ShutdownTimeoutSeconds:   getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 20),
	}

	validate(cfg)
	return cfg
}

func validate(cfg Config) {
	switch cfg.StorageDriver {
	case "sqlite", "mongo", "memory":
	default:
		log.Fatal("STORAGE_DRIVER must be one of sqlite, mongo, memory")
	}
	if cfg.StorageDriver == "sqlite" && cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN must not be empty")
	}
	if cfg.StorageDriver == "mongo" && cfg.MongoURI == "" {
		log.Fatal("MONGO_URI must not be empty")
	}
	if cfg.HeartbeatIntervalSeconds <= 0 {
		log.Fatal("HEARTBEAT_INTERVAL_SECONDS must be greater than 0")
	}
	if cfg.RateLimit <= 0 {
		log.Fatal("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	if cfg.UploadDir == "" {
		log.Fatal("UPLOAD_DIR must not be empty")
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s", key)
		}
		return i
	}
	return defaultVal
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Model    ModelConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Observ   ObservabilityConfig
	Forecast ForecastConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type StoreConfig struct {
	Path string
}

type ModelConfig struct {
	Dir string
}

type KafkaConfig struct {
	Brokers       []string
	TopicForecast string
	EventsEnabled bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type ObservabilityConfig struct {
	JaegerEndpoint string
	TracingEnabled bool
}

type ForecastConfig struct {
	SafetyBuffer         float64
	ExpiryWarningDays    int
	OverstockMargin      float64
	FallbackDailyUsage   float64
	RecommendationTTLSec int
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	expiryDays, _ := strconv.Atoi(getEnv("EXPIRY_WARNING_DAYS", "90"))
	cacheTTL, _ := strconv.Atoi(getEnv("RECOMMENDATION_CACHE_TTL_SECONDS", "300"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Store: StoreConfig{
			Path: getEnv("STORE_PATH", "./reorder.db"),
		},
		Model: ModelConfig{
			Dir: getEnv("MODEL_DIR", "./models"),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", ""), ","),
			TopicForecast: getEnv("KAFKA_TOPIC_FORECAST_EVENTS", "forecast-events"),
			EventsEnabled: getEnv("KAFKA_BROKERS", "") != "",
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			Enabled:  getEnv("REDIS_ADDR", "") != "",
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
			TracingEnabled: getEnv("JAEGER_ENDPOINT", "") != "",
		},
		Forecast: ForecastConfig{
			SafetyBuffer:         getEnvFloat("SAFETY_BUFFER", 0.20),
			ExpiryWarningDays:    expiryDays,
			OverstockMargin:      getEnvFloat("OVERSTOCK_MARGIN", 0.50),
			FallbackDailyUsage:   getEnvFloat("FALLBACK_DAILY_CONSUMPTION", 5.0),
			RecommendationTTLSec: cacheTTL,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, store=%s, models=%s",
		cfg.Server.Env, cfg.Server.Port, cfg.Store.Path, cfg.Model.Dir)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

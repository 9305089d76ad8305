package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// DB stores Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a Postgres connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Pass, d.Host, d.Port, d.Name)
}

// Redis stores Redis connection settings for the courier geospatial index.
type Redis struct {
	Addr string
	DB   int
}

// Kafka stores broker settings for checkout intake and notification fan-out.
// Empty Brokers disables both.
type Kafka struct {
	Brokers       []string
	CheckoutTopic string
	GroupID       string
	CourierTopic  string
	CustomerTopic string
}

// Location stores courier location push settings.
type Location struct {
	MinUpdateInterval time.Duration
	PushesPerMinute   int
}

// Pprof stores the optional profiling listener settings. Empty Addr
// disables it.
type Pprof struct {
	Addr string
	User string
	Pass string
}

// Config stores service settings.
type Config struct {
	Port     int
	Db       DB
	Redis    Redis
	Kafka    Kafka
	Location Location
	Pprof    Pprof
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:     defaultPort,
		Db:       DefaultDB(),
		Redis:    DefaultRedis(),
		Kafka:    DefaultKafka(),
		Location: DefaultLocation(),
	}

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}

	readEnv("POSTGRES_HOST", &cfg.Db.Host)
	readEnv("POSTGRES_PORT", &cfg.Db.Port)
	readEnv("POSTGRES_USER", &cfg.Db.User)
	readEnv("POSTGRES_PASSWORD", &cfg.Db.Pass)
	readEnv("POSTGRES_DB", &cfg.Db.Name)

	readEnv("REDIS_ADDR", &cfg.Redis.Addr)
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitCSV(v)
	}
	readEnv("KAFKA_CHECKOUT_TOPIC", &cfg.Kafka.CheckoutTopic)
	readEnv("KAFKA_GROUP_ID", &cfg.Kafka.GroupID)
	readEnv("KAFKA_COURIER_TOPIC", &cfg.Kafka.CourierTopic)
	readEnv("KAFKA_CUSTOMER_TOPIC", &cfg.Kafka.CustomerTopic)

	readEnv("PPROF_ADDR", &cfg.Pprof.Addr)
	readEnv("PPROF_USER", &cfg.Pprof.User)
	readEnv("PPROF_PASS", &cfg.Pprof.Pass)

	if v := os.Getenv("LOCATION_MIN_UPDATE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Location.MinUpdateInterval = d
		}
	}
	if v := os.Getenv("LOCATION_PUSHES_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Location.PushesPerMinute = n
		}
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.Parse()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	return cfg, nil
}

func readEnv(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	StorageDriver   string
	MySQLDSN        string
	LedgerDriver    string
	DatabaseURL     string
	RedisAddr       string
	WorkflowProfile string
	PerishableTypes []string
	PriorityBoost   int
	ShutdownTimeout time.Duration
}

// Load reads a .env file when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any env-style lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		HTTPAddr:        get("HTTP_ADDR", ":8080"),
		GRPCAddr:        get("GRPC_ADDR", ":50051"),
		StorageDriver:   strings.ToLower(get("STORAGE_DRIVER", DriverMemory)),
		MySQLDSN:        get("MYSQL_DSN", "root:root@tcp(localhost:3306)/wms?parseTime=true"),
		DatabaseURL:     get("DATABASE_URL", ""),
		RedisAddr:       get("REDIS_ADDR", ""),
		WorkflowProfile: get("WORKFLOW_PROFILES", ""),
	}
	cfg.LedgerDriver = strings.ToLower(get("LEDGER_DRIVER", cfg.StorageDriver))

	for _, t := range strings.Split(get("PERISHABLE_PRODUCT_TYPES", "food,pharma"), ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			cfg.PerishableTypes = append(cfg.PerishableTypes, t)
		}
	}

	boost, err := strconv.Atoi(get("PERISHABLE_PRIORITY_BOOST", "5"))
	if err != nil || boost <= 0 {
		return Config{}, fmt.Errorf("config: PERISHABLE_PRIORITY_BOOST must be a positive integer")
	}
	cfg.PriorityBoost = boost

	timeout, err := time.ParseDuration(get("SHUTDOWN_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("config: SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout = timeout

	switch cfg.StorageDriver {
	case DriverMemory, DriverMySQL:
	default:
		return Config{}, fmt.Errorf("config: unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	switch cfg.LedgerDriver {
	case DriverMemory, DriverMySQL:
		if cfg.LedgerDriver != cfg.StorageDriver {
			return Config{}, fmt.Errorf("config: LEDGER_DRIVER %q requires STORAGE_DRIVER %q", cfg.LedgerDriver, cfg.LedgerDriver)
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("config: LEDGER_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("config: unknown LEDGER_DRIVER %q", cfg.LedgerDriver)
	}
	return cfg, nil
}

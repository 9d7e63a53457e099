package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"tilt-dashboard/internal/osint"
)

const DefaultLeakListURL = "https://raw.githubusercontent.com/joshhighet/ransomwatch/main/posts.json"

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string

	AdminUsername string
	AdminPassword string
	LogLevel      string
	CatalogDir    string

	LeakListURL      string
	LeakSnapshotPath string
	LeakCacheTTL     time.Duration
	LeakFetchTimeout time.Duration
	LeakRateInterval time.Duration
	LeakMaxQueue     time.Duration

	EvidenceCacheTTL  time.Duration
	EvidenceCacheSize int
	ProviderTimeout   time.Duration
	DNSResolver       string
}

// Load reads .env (if any) and the environment. Missing required settings
// are fatal.
func Load(log logrus.FieldLogger) *Config {
	_ = godotenv.Load()

	cfg, err := FromEnv(log)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// FromEnv builds the config from the current environment without touching
// .env files.
func FromEnv(log logrus.FieldLogger) (*Config, error) {
	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		ServerPort:    String("SERVER_PORT", "8080"),
		SessionSecret: os.Getenv("SESSION_SECRET"),

		AdminUsername: String("ADMIN_USERNAME", "admin"),
		AdminPassword: String("ADMIN_PASSWORD", "Admin123!"),
		LogLevel:      String("LOG_LEVEL", "info"),
		CatalogDir:    String("CATALOG_DIR", "data"),
	}
	loadEvidence(cfg, log)

	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is not set")
	}
	return cfg, nil
}

// EvidenceFromEnv reads only the OSINT settings. Nothing is required, so
// offline tools can scan without a database.
func EvidenceFromEnv(log logrus.FieldLogger) *Config {
	cfg := &Config{LogLevel: String("LOG_LEVEL", "info")}
	loadEvidence(cfg, log)
	return cfg
}

func loadEvidence(cfg *Config, log logrus.FieldLogger) {
	cfg.LeakListURL = String("LEAK_LIST_URL", DefaultLeakListURL)
	cfg.LeakSnapshotPath = String("LEAK_SNAPSHOT_PATH", "data/leaks.json.zst")
	cfg.LeakCacheTTL = Duration(log, "LEAK_CACHE_TTL", 24*time.Hour)
	cfg.LeakFetchTimeout = Duration(log, "LEAK_FETCH_TIMEOUT", 30*time.Second)
	cfg.LeakRateInterval = Duration(log, "LEAK_RATE_INTERVAL", 500*time.Millisecond)
	cfg.LeakMaxQueue = Duration(log, "LEAK_MAX_QUEUE", 2*time.Second)

	cfg.EvidenceCacheTTL = Duration(log, "EVIDENCE_CACHE_TTL", 6*time.Hour)
	cfg.EvidenceCacheSize = Int(log, "EVIDENCE_CACHE_SIZE", 1024)
	cfg.ProviderTimeout = Duration(log, "PROVIDER_TIMEOUT", 5*time.Second)
	cfg.DNSResolver = os.Getenv("DNS_RESOLVER")
}

// OSINT maps the evidence settings onto the aggregator config.
func (c *Config) OSINT() osint.Config {
	return osint.Config{
		LeakListURL:      c.LeakListURL,
		LeakSnapshotPath: c.LeakSnapshotPath,
		LeakTTL:          c.LeakCacheTTL,
		LeakFetchTimeout: c.LeakFetchTimeout,
		LeakInterval:     c.LeakRateInterval,
		LeakMaxQueue:     c.LeakMaxQueue,
		CacheSize:        c.EvidenceCacheSize,
		CacheTTL:         c.EvidenceCacheTTL,
		ProviderTimeout:  c.ProviderTimeout,
		DNSServer:        c.DNSResolver,
	}
}

func String(envName, defaultValue string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return defaultValue
}

func Duration(log logrus.FieldLogger, envName string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(envName)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warnf("failed to parse %q ($%s) as a positive duration, using %s", v, envName, defaultValue)
		return defaultValue
	}
	return d
}

func Int(log logrus.FieldLogger, envName string, defaultValue int) int {
	v, ok := os.LookupEnv(envName)
	if !ok || v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warnf("failed to parse %q ($%s) as a positive integer, using %d", v, envName, defaultValue)
		return defaultValue
	}
	return n
}

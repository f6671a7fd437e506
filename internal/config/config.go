// Package config reads process configuration from the environment.
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
	BackendS3     = "s3"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	Backend    string
	Root       []string
	FileDir    string
	SQLitePath string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIORegion    string
	MinIOSecure    bool

	APIListen      string
	AdminKey       string
	MetricsListen  string
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration

	KafkaBrokers []string
	KafkaTopic   string
}

// LoadDotenv loads path into the environment when it exists; variables that
// are already set win.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() (Config, error) {
	c := Config{
		Backend:        getenv("S3S_BACKEND", BackendS3),
		Root:           SplitRoot(getenv("S3S_ROOT", "")),
		FileDir:        getenv("S3S_FILE_DIR", "./data/objects"),
		SQLitePath:     getenv("S3S_SQLITE_PATH", "./data/objects.db"),
		MinIOEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinIORegion:    getenv("MINIO_REGION", ""),
		MinIOSecure:    os.Getenv("MINIO_SECURE") == "true",
		APIListen:      getenv("API_LISTEN", "127.0.0.1:8080"),
		AdminKey:       getenv("ADMIN_API_KEY", ""),
		MetricsListen:  getenv("METRICS_LISTEN", "127.0.0.1:9095"),
		RateLimitRPS:   getenvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getenvInt("RATE_LIMIT_BURST", 40),
		RequestTimeout: getenvDur("REQUEST_TIMEOUT", 30*time.Second),
		KafkaBrokers:   strings.FieldsFunc(getenv("KAFKA_BROKERS", ""), func(r rune) bool { return r == ',' || r == ' ' }),
		KafkaTopic:     getenv("KAFKA_TOPIC", "s3s.objects.v1"),
	}
	switch c.Backend {
	case BackendS3:
		if c.MinIOEndpoint == "" || c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			return c, fmt.Errorf("backend s3 needs MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY")
		}
	case BackendFile, BackendSQLite:
	default:
		return c, fmt.Errorf("unknown S3S_BACKEND %q", c.Backend)
	}
	return c, nil
}

// WithRoot returns c rooted at root when root names at least one segment.
// The s3 backend derives its bucket from the root, so apply this before
// opening the backend.
func (c Config) WithRoot(root string) Config {
	if segs := SplitRoot(root); len(segs) > 0 {
		c.Root = segs
	}
	return c
}

// SplitRoot turns "bucket/p1/p2" (optionally "s3://"-prefixed) into
// segments.
func SplitRoot(s string) []string {
	if _, rest, ok := strings.Cut(s, "://"); ok {
		s = rest
	}
	var out []string
	for _, seg := range strings.Split(s, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvDur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

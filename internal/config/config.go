package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-registry/internal/quality"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Engine      EngineConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Blob        BlobConfig
	Server      ServerConfig
	Recognition RecognitionConfig
	Quality     quality.Thresholds
}

type EngineConfig struct {
	Provider   string // "local" (default) or "remote"
	URL        string // remote engine base URL
	Collection string // remote engine collection name
	DataDir    string // local engine index directory
}

type DatabaseConfig struct {
	Driver       string // "memory" (default), "postgres" or "mariadb"
	URL          string // PostgreSQL connection URL or MariaDB DSN
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type CacheConfig struct {
	RedisURL string        // when empty, an in-process cache is used
	Capacity int           // in-process cache capacity (default 1000)
	TTL      time.Duration // identification result TTL (default 5m)
}

type BlobConfig struct {
	Dir string // directory for stored source images
}

type ServerConfig struct {
	Port        int
	CORSOrigins string // comma-separated list, "*" allows all
}

type RecognitionConfig struct {
	DuplicateThreshold float64 // similarity treated as an exact duplicate (0-100)
	MatchThreshold     float64 // minimum similarity for identification (0-100)
	MaxMatches         int     // candidate cap per identification
	RequireLiveness    bool    // enforce the anti-spoofing gate on enrollment
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean flag.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// envStr reads an environment variable with a fallback default.
func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	thresholds := quality.DefaultThresholds()
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	// Environment variables override the embedded gate defaults.
	thresholds.MinBrightness = envFloat("MIN_BRIGHTNESS", thresholds.MinBrightness)
	thresholds.MaxBrightness = envFloat("MAX_BRIGHTNESS", thresholds.MaxBrightness)
	thresholds.MinContrast = envFloat("MIN_CONTRAST", thresholds.MinContrast)
	thresholds.MinFaceSize = envInt("MIN_FACE_SIZE", thresholds.MinFaceSize)
	thresholds.MaxHeadPose = envFloat("MAX_HEAD_POSE", thresholds.MaxHeadPose)
	thresholds.LivenessPass = envFloat("LIVENESS_PASS", thresholds.LivenessPass)

	return &Config{
		Engine: EngineConfig{
			Provider:   envStr("ENGINE_PROVIDER", "local"),
			URL:        os.Getenv("ENGINE_URL"),
			Collection: envStr("ENGINE_COLLECTION", "default"),
			DataDir:    envStr("ENGINE_DATA_DIR", "data/index"),
		},
		Database: DatabaseConfig{
			Driver:       envStr("DATABASE_DRIVER", "memory"),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Cache: CacheConfig{
			RedisURL: os.Getenv("REDIS_URL"),
			Capacity: envInt("CACHE_CAPACITY", 1000),
			TTL:      time.Duration(envInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Blob: BlobConfig{
			Dir: envStr("BLOB_DIR", "data/blobs"),
		},
		Server: ServerConfig{
			Port:        envInt("PORT", 8080),
			CORSOrigins: envStr("CORS_ORIGINS", "*"),
		},
		Recognition: RecognitionConfig{
			DuplicateThreshold: envFloat("DUPLICATE_THRESHOLD", 95.0),
			MatchThreshold:     envFloat("MATCH_THRESHOLD", 80.0),
			MaxMatches:         envInt("MAX_MATCHES", 5),
			RequireLiveness:    envBool("REQUIRE_LIVENESS", false),
		},
		Quality: thresholds,
	}
}

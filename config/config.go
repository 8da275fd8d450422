package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Default values for every tunable in Config.
//
// Default Value Rationale:
//   - DefaultChunkSize: 1024 - the chunk size a receiver falls back to
//     before any transfer-specific max_chunk negotiation.
//   - DefaultOfferTimeout: 5s - matches the fallback used when a caller
//     passes a zero timeout to an unsolicited offer.
//   - ShowRelativePath: true, ShowSharedPath: false - a receiving peer
//     usually wants the file's place within a share, never the sharer's
//     local filesystem layout.
const (
	DefaultChunkSize     = 1024
	DefaultSaveDirectory = "."
	DefaultOfferTimeout  = 5 * time.Second
	DefaultShowRelative  = true
	DefaultShowShared    = false
	DefaultHashCacheFile = ""
	DefaultLogLevel      = "info"
	DefaultWorkerQueue   = 64
)

// Config holds every tunable shared across the core's managers.
type Config struct {
	DefaultChunkSize     int32
	DefaultSaveDirectory string
	DefaultOfferTimeout  time.Duration
	ShowRelativePath     bool
	ShowSharedPath       bool
	HashCacheFilePath    string
	LogLevel             string
	WorkerQueueDepth     int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultChunkSize:     DefaultChunkSize,
		DefaultSaveDirectory: DefaultSaveDirectory,
		DefaultOfferTimeout:  DefaultOfferTimeout,
		ShowRelativePath:     DefaultShowRelative,
		ShowSharedPath:       DefaultShowShared,
		HashCacheFilePath:    DefaultHashCacheFile,
		LogLevel:             DefaultLogLevel,
		WorkerQueueDepth:     DefaultWorkerQueue,
	}
}

// ConfigFromEnvironment returns DefaultConfig with any recognized
// FILEMESH_* environment variable applied over it. An unparseable value
// is logged and the default for that field is kept.
func ConfigFromEnvironment() *Config {
	cfg := DefaultConfig()
	parseChunkSize(cfg)
	parseSaveDirectory(cfg)
	parseOfferTimeout(cfg)
	parseShowRelative(cfg)
	parseShowShared(cfg)
	parseHashCache(cfg)
	parseLogLevel(cfg)
	parseWorkerQueue(cfg)
	return cfg
}

func parseChunkSize(cfg *Config) {
	v := os.Getenv("FILEMESH_CHUNK_SIZE")
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n <= 0 {
		logrus.WithFields(logrus.Fields{"function": "parseChunkSize", "value": v}).Warn("invalid FILEMESH_CHUNK_SIZE, keeping default")
		return
	}
	cfg.DefaultChunkSize = int32(n)
}

func parseSaveDirectory(cfg *Config) {
	if v := os.Getenv("FILEMESH_SAVE_DIR"); v != "" {
		cfg.DefaultSaveDirectory = v
	}
}

func parseOfferTimeout(cfg *Config) {
	v := os.Getenv("FILEMESH_OFFER_TIMEOUT_MS")
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		logrus.WithFields(logrus.Fields{"function": "parseOfferTimeout", "value": v}).Warn("invalid FILEMESH_OFFER_TIMEOUT_MS, keeping default")
		return
	}
	cfg.DefaultOfferTimeout = time.Duration(n) * time.Millisecond
}

func parseShowRelative(cfg *Config) {
	v := os.Getenv("FILEMESH_SHOW_RELATIVE")
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logrus.WithFields(logrus.Fields{"function": "parseShowRelative", "value": v}).Warn("invalid FILEMESH_SHOW_RELATIVE, keeping default")
		return
	}
	cfg.ShowRelativePath = b
}

func parseShowShared(cfg *Config) {
	v := os.Getenv("FILEMESH_SHOW_SHARED")
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logrus.WithFields(logrus.Fields{"function": "parseShowShared", "value": v}).Warn("invalid FILEMESH_SHOW_SHARED, keeping default")
		return
	}
	cfg.ShowSharedPath = b
}

func parseHashCache(cfg *Config) {
	if v := os.Getenv("FILEMESH_HASH_CACHE"); v != "" {
		cfg.HashCacheFilePath = v
	}
}

func parseLogLevel(cfg *Config) {
	if v := os.Getenv("FILEMESH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func parseWorkerQueue(cfg *Config) {
	v := os.Getenv("FILEMESH_WORKER_QUEUE_DEPTH")
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logrus.WithFields(logrus.Fields{"function": "parseWorkerQueue", "value": v}).Warn("invalid FILEMESH_WORKER_QUEUE_DEPTH, keeping default")
		return
	}
	cfg.WorkerQueueDepth = n
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers accepted in StoreDriver.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Frame sources accepted in CaptureSource.
const (
	SourceDevice = "device"
	SourceUDP    = "udp"
)

type Config struct {
	Port         int    `yaml:"port"`
	LogDirectory string `yaml:"log_dir"`

	// Blob store for posts, users and pets.
	StoreDriver   string `yaml:"store_driver"`
	DatabasePath  string `yaml:"database_path"` // also holds the detection history
	RedisAddress  string `yaml:"redis_address"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	// Detector
	ModelPath          string  `yaml:"model_path"`
	ConfigPath         string  `yaml:"config_path"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
	Orientation        string  `yaml:"orientation"` // up, right, down, left
	MatchRecompute     bool    `yaml:"match_recompute"`

	// Capture
	CaptureSource string `yaml:"capture_source"` // device or udp
	CapturePort   int    `yaml:"capture_port"`
	CameraDevice  string `yaml:"camera_device"`
	CaptureWidth  int    `yaml:"capture_width"`
	CaptureHeight int    `yaml:"capture_height"`

	// Default viewer size until a viewer reports its own.
	DisplayWidth  int `yaml:"display_width"`
	DisplayHeight int `yaml:"display_height"`

	// HTML pages and assets served outside /api.
	StaticDirectory string `yaml:"static_directory"`

	SessionTTLHours      int   `yaml:"session_ttl_hours"`
	MaxUploadSizeMB      int64 `yaml:"max_upload_size_mb"`
	HistoryBufferLimit   int   `yaml:"history_buffer_limit"`
	HistoryFlushInterval int   `yaml:"history_flush_interval"` // seconds
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Port:                 8080,
		LogDirectory:         filepath.Join(".", "logs"),
		StoreDriver:          StoreSQLite,
		DatabasePath:         filepath.Join(".", "data", "petlens.db"),
		RedisAddress:         "localhost:6379",
		RedisPrefix:          "petlens:",
		ModelPath:            filepath.Join(".", "models", "frozen_inference_graph.pb"),
		ConfigPath:           filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt"),
		DetectionThreshold:   0.6,
		Orientation:          "right",
		CaptureSource:        SourceDevice,
		CapturePort:          8081,
		CameraDevice:         "0",
		CaptureWidth:         1280,
		CaptureHeight:        720,
		DisplayWidth:         360,
		DisplayHeight:        640,
		StaticDirectory:      "static",
		SessionTTLHours:      24 * 30,
		MaxUploadSizeMB:      10,
		HistoryBufferLimit:   200,
		HistoryFlushInterval: 30,
	}
}

// Load reads .env (when present), then the YAML file named by CONFIG_FILE
// (when set), then environment variables. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvAsInt("PORT", c.Port)
	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.RedisAddress = getEnv("REDIS_ADDRESS", c.RedisAddress)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvAsInt("REDIS_DB", c.RedisDB)
	c.RedisPrefix = getEnv("REDIS_PREFIX", c.RedisPrefix)
	c.ModelPath = getEnv("MODEL_PATH", c.ModelPath)
	c.ConfigPath = getEnv("CONFIG_PATH", c.ConfigPath)
	c.DetectionThreshold = getEnvAsFloat("DETECTION_THRESHOLD", c.DetectionThreshold)
	c.Orientation = getEnv("ORIENTATION", c.Orientation)
	c.MatchRecompute = getEnvAsBool("MATCH_RECOMPUTE", c.MatchRecompute)
	c.CaptureSource = getEnv("CAPTURE_SOURCE", c.CaptureSource)
	c.CapturePort = getEnvAsInt("CAPTURE_PORT", c.CapturePort)
	c.CameraDevice = getEnv("CAMERA_DEVICE", c.CameraDevice)
	c.CaptureWidth = getEnvAsInt("CAPTURE_WIDTH", c.CaptureWidth)
	c.CaptureHeight = getEnvAsInt("CAPTURE_HEIGHT", c.CaptureHeight)
	c.DisplayWidth = getEnvAsInt("DISPLAY_WIDTH", c.DisplayWidth)
	c.DisplayHeight = getEnvAsInt("DISPLAY_HEIGHT", c.DisplayHeight)
	c.StaticDirectory = getEnv("STATIC_DIR", c.StaticDirectory)
	c.SessionTTLHours = getEnvAsInt("SESSION_TTL_HOURS", c.SessionTTLHours)
	c.MaxUploadSizeMB = getEnvAsInt64("MAX_UPLOAD_SIZE_MB", c.MaxUploadSizeMB)
	c.HistoryBufferLimit = getEnvAsInt("HISTORY_BUFFER_LIMIT", c.HistoryBufferLimit)
	c.HistoryFlushInterval = getEnvAsInt("HISTORY_FLUSH_INTERVAL", c.HistoryFlushInterval)
}

func (c *Config) validate() error {
	if c.StoreDriver != StoreSQLite && c.StoreDriver != StoreRedis {
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.CaptureSource != SourceDevice && c.CaptureSource != SourceUDP {
		return fmt.Errorf("unknown capture source %q", c.CaptureSource)
	}
	if c.DetectionThreshold < 0 || c.DetectionThreshold > 1 {
		return fmt.Errorf("detection threshold %.2f out of range [0,1]", c.DetectionThreshold)
	}
	if c.CaptureWidth <= 0 || c.CaptureHeight <= 0 {
		return fmt.Errorf("invalid capture resolution %dx%d", c.CaptureWidth, c.CaptureHeight)
	}
	if c.HistoryBufferLimit <= 0 {
		return fmt.Errorf("history buffer limit must be positive, got %d", c.HistoryBufferLimit)
	}
	if c.HistoryFlushInterval <= 0 {
		return fmt.Errorf("history flush interval must be positive, got %d", c.HistoryFlushInterval)
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.MaxUploadSizeMB)
	}
	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("session ttl must be positive, got %d", c.SessionTTLHours)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

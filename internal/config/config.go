// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/signlens/internal/detector"
)

// Config holds the runtime settings for both front ends.
type Config struct {
	Host string
	Port int

	ModelPath   string
	ClassesPath string

	Backend         detector.Backend
	PythonPath      string
	WorkerScript    string
	ONNXLibraryPath string
	ONNXInputSize   int
	ONNXIOU         float64
	ONNXPoolSize    int

	DBPath      string
	HistoryKeep int
	StaticDir   string

	LogLevel  string
	LogFormat string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
	CORSOrigin   string
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Host:            getEnv("HOST", "0.0.0.0"),
		ModelPath:       getEnv("MODEL_PATH", "models/best.pt"),
		ClassesPath:     getEnv("CLASSES_PATH", ""),
		Backend:         detector.Backend(getEnv("DETECTOR_BACKEND", string(detector.BackendWorker))),
		PythonPath:      getEnv("PYTHON_PATH", ""),
		WorkerScript:    getEnv("WORKER_SCRIPT", ""),
		ONNXLibraryPath: getEnv("ONNX_LIBRARY_PATH", ""),
		DBPath:          getEnv("DB_PATH", defaultDBPath()),
		StaticDir:       getEnv("STATIC_DIR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 5001); err != nil {
		return nil, err
	}
	if cfg.ONNXInputSize, err = getInt("ONNX_INPUT_SIZE", 640); err != nil {
		return nil, err
	}
	if cfg.ONNXPoolSize, err = getInt("ONNX_POOL_SIZE", 0); err != nil {
		return nil, err
	}
	if cfg.HistoryKeep, err = getInt("HISTORY_KEEP", 10000); err != nil {
		return nil, err
	}
	if cfg.ONNXIOU, err = getFloat("ONNX_IOU", 0.7); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout, err = getDuration("READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.WriteTimeout, err = getDuration("WRITE_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	maxBody, err := getInt("MAX_BODY_BYTES", 50<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxBodyBytes = int64(maxBody)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that parsing alone cannot.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT: %d out of range", c.Port)
	}
	switch c.Backend {
	case detector.BackendWorker, detector.BackendONNX:
	default:
		return fmt.Errorf("DETECTOR_BACKEND: unknown backend %q", c.Backend)
	}
	if c.ONNXInputSize <= 0 || c.ONNXInputSize%32 != 0 {
		return fmt.Errorf("ONNX_INPUT_SIZE: %d is not a positive multiple of 32", c.ONNXInputSize)
	}
	if c.ONNXIOU <= 0 || c.ONNXIOU > 1 {
		return fmt.Errorf("ONNX_IOU: %v out of range", c.ONNXIOU)
	}
	if c.HistoryKeep < 0 {
		return fmt.Errorf("HISTORY_KEEP: %d is negative", c.HistoryKeep)
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES: must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Detector returns the detector settings derived from c.
func (c *Config) Detector(numClasses int) detector.Config {
	dc := detector.DefaultConfig()
	dc.Backend = c.Backend
	dc.ModelPath = c.ModelPath
	dc.PythonPath = c.PythonPath
	dc.WorkerScript = c.WorkerScript
	dc.LibraryPath = c.ONNXLibraryPath
	dc.InputSize = c.ONNXInputSize
	dc.IOUThreshold = c.ONNXIOU
	dc.PoolSize = c.ONNXPoolSize
	if numClasses > 0 {
		dc.NumClasses = numClasses
	}
	return dc
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "signlens.db"
	}
	return filepath.Join(home, ".signlens", "signlens.db")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

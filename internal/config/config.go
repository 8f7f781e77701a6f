package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultListenAddr = ":8080"

	envListenAddr = "CLIPPER_LISTEN_ADDR"
	envDataDir    = "CLIPPER_DATA_DIR"
	envModelDir   = "CLIPPER_MODEL_DIR"
	envDBPath     = "CLIPPER_DB_PATH"
	envWorkers    = "CLIPPER_WORKERS"
	envLogLevel   = "CLIPPER_LOG_LEVEL"
	envConfigFile = "CLIPPER_CONFIG"

	envStrictImage = "CLIPPER_STRICT_IMAGE"
	envStrictCopy  = "CLIPPER_STRICT_COPY"
	envForceT2V    = "CLIPPER_FORCE_T2V"
)

// Config holds application configuration. Values load from an optional TOML
// file first, then environment variables override.
type Config struct {
	ListenAddr string `toml:"listen_addr"`
	DataDir    string `toml:"data_dir"`
	ModelDir   string `toml:"model_dir"`
	DBPath     string `toml:"db_path"`
	Workers    int    `toml:"workers"`
	LogLevel   string `toml:"log_level"`

	// Strict flags remove the placeholder engine from the named chain,
	// turning missing-model situations into explicit job failures.
	StrictImage bool `toml:"strict_image"`
	StrictCopy  bool `toml:"strict_copy"`

	// ForceT2V treats the text-to-video engine as enabled even without a GPU.
	ForceT2V bool `toml:"force_t2v"`

	// Engine commands. Empty means the engine is unavailable and the chain
	// falls through to the next candidate.
	ImageCommand   string `toml:"image_command"`
	InpaintCommand string `toml:"inpaint_command"`
	CopyCommand    string `toml:"copy_command"`
	T2VCommand     string `toml:"t2v_command"`
	EncoderCommand string `toml:"encoder_command"`
}

// Load reads configuration from the optional TOML file named by
// CLIPPER_CONFIG, then applies environment overrides and defaults.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:     defaultListenAddr,
		DataDir:        "data",
		ModelDir:       "models",
		Workers:        1,
		LogLevel:       "info",
		EncoderCommand: "ffmpeg",
	}

	if path := os.Getenv(envConfigFile); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(envModelDir); v != "" {
		cfg.ModelDir = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
	cfg.StrictImage = envBool(envStrictImage, cfg.StrictImage)
	cfg.StrictCopy = envBool(envStrictCopy, cfg.StrictCopy)
	cfg.ForceT2V = envBool(envForceT2V, cfg.ForceT2V)

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "clipper.db")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return cfg, nil
}

// BlobDir is where asset bytes live, keyed by asset id.
func (c Config) BlobDir() string {
	return filepath.Join(c.DataDir, "blobs")
}

// EnsureDirs creates the data directories the daemon writes into.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.BlobDir(), filepath.Dir(c.DBPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || strings.EqualFold(v, "true")
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

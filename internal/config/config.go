// Package config loads vigil's runtime configuration from the
// environment, with an optional .env file for development setups.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/vigil/internal/attention"
	"github.com/ayusman/vigil/internal/fatigue"
)

// Config holds the runtime configuration for the vigil service.
type Config struct {
	ListenAddr  string
	DBPath      string
	HookDir     string
	HookTimeout time.Duration
	LogLevel    string
	Calibration string

	PerclosThreshold   float64
	EyeClosedThreshold float64
	WindowDuration     float64
	AssumedFPS         float64

	StabilityThreshold float64
	GazeWindowSize     int
	FocusThreshold     float64
	SessionThreshold   float64
	SessionRetention   float64
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables take precedence over it.
func Load() *Config {
	// Missing .env is fine, the system environment is used as-is
	_ = godotenv.Load()

	fd := fatigue.DefaultConfig()
	ad := attention.DefaultConfig()

	return &Config{
		ListenAddr:  getEnv("VIGIL_ADDR", "127.0.0.1:8080"),
		DBPath:      getEnv("VIGIL_DB_PATH", defaultDBPath()),
		HookDir:     getEnv("VIGIL_HOOK_DIR", defaultHookDir()),
		HookTimeout: time.Duration(getEnvInt("VIGIL_HOOK_TIMEOUT_MS", 5000)) * time.Millisecond,
		LogLevel:    getEnv("VIGIL_LOG_LEVEL", "info"),
		Calibration: getEnv("VIGIL_CALIBRATION", string(fatigue.CalibrationSynthetic)),

		PerclosThreshold:   getEnvFloat("VIGIL_PERCLOS_THRESHOLD", fd.PerclosThreshold),
		EyeClosedThreshold: getEnvFloat("VIGIL_EYE_CLOSED_THRESHOLD", fd.EyeClosedThreshold),
		WindowDuration:     getEnvFloat("VIGIL_WINDOW_DURATION", fd.WindowDuration),
		AssumedFPS:         getEnvFloat("VIGIL_ASSUMED_FPS", fd.AssumedFPS),

		StabilityThreshold: getEnvFloat("VIGIL_STABILITY_THRESHOLD", ad.StabilityThreshold),
		GazeWindowSize:     getEnvInt("VIGIL_GAZE_WINDOW_SIZE", ad.WindowSize),
		FocusThreshold:     getEnvFloat("VIGIL_FOCUS_THRESHOLD", ad.FocusThreshold),
		SessionThreshold:   getEnvFloat("VIGIL_SESSION_THRESHOLD", ad.SessionThreshold),
		SessionRetention:   getEnvFloat("VIGIL_SESSION_RETENTION", ad.SessionRetention),
	}
}

// FatigueConfig maps the loaded values onto a fatigue detector config.
func (c *Config) FatigueConfig() fatigue.Config {
	return fatigue.Config{
		PerclosThreshold:   c.PerclosThreshold,
		EyeClosedThreshold: c.EyeClosedThreshold,
		WindowDuration:     c.WindowDuration,
		AssumedFPS:         c.AssumedFPS,
	}
}

// AttentionConfig maps the loaded values onto an attention detector config.
func (c *Config) AttentionConfig() attention.Config {
	return attention.Config{
		StabilityThreshold: c.StabilityThreshold,
		WindowSize:         c.GazeWindowSize,
		FocusThreshold:     c.FocusThreshold,
		SessionThreshold:   c.SessionThreshold,
		SessionRetention:   c.SessionRetention,
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vigil.db"
	}
	return filepath.Join(home, ".vigil", "vigil.db")
}

func defaultHookDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "hooks"
	}
	return filepath.Join(home, ".vigil", "hooks")
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

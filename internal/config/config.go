package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Storage
		Library
		Gemini
		Speech
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Storage struct {
		DataDir string
	}
	Library struct {
		Dir          string // Watched directory for dropped documents
		WatchEnabled bool
		SeedBooks    bool // Seed the preloaded read-only books on startup
	}
	Gemini struct {
		APIKey  string
		BaseURL string
		Model   string
	}
	Speech struct {
		Binary            string        // TTS binary name, e.g. "espeak-ng"
		TargetLocale      string        // Locale prefix for voice auto-selection
		ReconcileInterval time.Duration // Playback state reconciliation poll
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8585)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("library_dir", "./library")
	v.SetDefault("library_watch_enabled", true)
	v.SetDefault("seed_books", true)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("speech_binary", "espeak-ng")
	v.SetDefault("target_locale", "ar")
	v.SetDefault("reconcile_interval", "500ms")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Storage: Storage{
			DataDir: v.GetString("DATA_DIR"),
		},
		Library: Library{
			Dir:          v.GetString("LIBRARY_DIR"),
			WatchEnabled: v.GetBool("LIBRARY_WATCH_ENABLED"),
			SeedBooks:    v.GetBool("SEED_BOOKS"),
		},
		Gemini: Gemini{
			APIKey:  v.GetString("GEMINI_API_KEY"),
			BaseURL: v.GetString("GEMINI_BASE_URL"),
			Model:   v.GetString("GEMINI_MODEL"),
		},
		Speech: Speech{
			Binary:            v.GetString("SPEECH_BINARY"),
			TargetLocale:      v.GetString("TARGET_LOCALE"),
			ReconcileInterval: v.GetDuration("RECONCILE_INTERVAL"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}

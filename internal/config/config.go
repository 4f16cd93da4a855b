// Package config loads the exporter configuration from a YAML file.
// The file path comes from the --config flag or the
// TODOIST_GIT_SYNC_CONFIG environment variable, defaulting to
// config.yaml in the working directory. Validation is complete before
// any network or git work starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the
// config file location when no --config flag is given.
const EnvConfigPath = "TODOIST_GIT_SYNC_CONFIG"

const defaultPath = "config.yaml"

// Config keeps the validated runtime settings for one exporter process.
type Config struct {
	TodoistToken     string
	TodoistProjectID string
	GitRepositoryURL string
	GitName          string
	GitEmail         string
	ExportPath       string
	CommitMessage    string

	// SyncInterval runs the export periodically; SyncAt runs it daily
	// at HH:MM. At most one may be set; with neither, the process runs
	// once and exits.
	SyncInterval time.Duration
	SyncAt       string

	// TelegramToken and TelegramChatID enable run-report notifications
	// when both are set.
	TelegramToken  string
	TelegramChatID int64

	LogLevel         string
	LogEncoding      string
	RequestTimeout   time.Duration
	DetailFetchDelay time.Duration
	MaxRetries       int
}

// fileConfig mirrors the YAML document. Durations are strings so that
// "30s" style values work; conversion happens in Load.
type fileConfig struct {
	TodoistToken     string `yaml:"todoistToken"`
	TodoistProjectID string `yaml:"todoistProjectId"`
	GitRepositoryURL string `yaml:"gitRepositoryUrl"`
	GitName          string `yaml:"gitName"`
	GitEmail         string `yaml:"gitEmail"`
	ExportPath       string `yaml:"exportPath"`
	CommitMessage    string `yaml:"commitMessage"`
	SyncInterval     string `yaml:"syncInterval"`
	SyncAt           string `yaml:"syncAt"`
	TelegramToken    string `yaml:"telegramToken"`
	TelegramChatID   int64  `yaml:"telegramChatId"`
	LogLevel         string `yaml:"logLevel"`
	LogEncoding      string `yaml:"logEncoding"`
	RequestTimeout   string `yaml:"requestTimeout"`
	DetailFetchDelay string `yaml:"detailFetchDelay"`
	MaxRetries       int    `yaml:"maxRetries"`
}

// Load reads and validates the configuration file at path. An empty
// path falls back to $TODOIST_GIT_SYNC_CONFIG, then to config.yaml.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = defaultPath
	}

	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var raw fileConfig
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := Config{
		TodoistToken:     strings.TrimSpace(raw.TodoistToken),
		TodoistProjectID: strings.TrimSpace(raw.TodoistProjectID),
		GitRepositoryURL: strings.TrimSpace(raw.GitRepositoryURL),
		GitName:          strings.TrimSpace(raw.GitName),
		GitEmail:         strings.TrimSpace(raw.GitEmail),
		ExportPath:       strings.TrimSpace(raw.ExportPath),
		CommitMessage:    raw.CommitMessage,
		SyncAt:           strings.TrimSpace(raw.SyncAt),
		TelegramToken:    strings.TrimSpace(raw.TelegramToken),
		TelegramChatID:   raw.TelegramChatID,
		LogLevel:         raw.LogLevel,
		LogEncoding:      raw.LogEncoding,
		MaxRetries:       raw.MaxRetries,
	}

	var missing []string
	for _, field := range []struct {
		key   string
		value string
	}{
		{"todoistToken", cfg.TodoistToken},
		{"todoistProjectId", cfg.TodoistProjectID},
		{"gitRepositoryUrl", cfg.GitRepositoryURL},
		{"gitName", cfg.GitName},
		{"gitEmail", cfg.GitEmail},
		{"exportPath", cfg.ExportPath},
		{"commitMessage", cfg.CommitMessage},
	} {
		if field.value == "" {
			missing = append(missing, field.key)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config %s: missing required keys: %s", path, strings.Join(missing, ", "))
	}

	if filepath.IsAbs(cfg.ExportPath) {
		return Config{}, errors.New("exportPath must be relative to the repository root")
	}

	if cfg.SyncInterval, err = parseDuration(raw.SyncInterval, 0); err != nil {
		return Config{}, fmt.Errorf("syncInterval: %w", err)
	}
	if cfg.SyncInterval > 0 && cfg.SyncAt != "" {
		return Config{}, errors.New("syncInterval and syncAt are mutually exclusive")
	}

	if (cfg.TelegramToken == "") != (cfg.TelegramChatID == 0) {
		return Config{}, errors.New("telegramToken and telegramChatId must be set together")
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogEncoding == "" {
		cfg.LogEncoding = "console"
	}
	if cfg.RequestTimeout, err = parseDuration(raw.RequestTimeout, 30*time.Second); err != nil {
		return Config{}, fmt.Errorf("requestTimeout: %w", err)
	}
	if cfg.DetailFetchDelay, err = parseDuration(raw.DetailFetchDelay, 500*time.Millisecond); err != nil {
		return Config{}, fmt.Errorf("detailFetchDelay: %w", err)
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", raw)
	}
	return d, nil
}

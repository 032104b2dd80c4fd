package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config carries the process-level knobs: where state lives and how the
// background machinery behaves. Task discipline settings (capacity, buffer)
// live in the database, not here.
type Config struct {
	DBPath               string `yaml:"db_path"`
	LogPath              string `yaml:"log_path"`
	SweepIntervalMinutes int    `yaml:"sweep_interval_minutes"`
	ReminderLeadMinutes  int    `yaml:"reminder_lead_minutes"`
	DesktopNotifications bool   `yaml:"desktop_notifications"`
	NotifyBuffer         int    `yaml:"notify_buffer"`
}

func Default() Config {
	return Config{
		DBPath:               filepath.Join(homeDir(), ".timebox", "timebox.db"),
		LogPath:              filepath.Join(homeDir(), ".timebox", "timebox.log"),
		SweepIntervalMinutes: 1,
		ReminderLeadMinutes:  30,
		DesktopNotifications: false,
		NotifyBuffer:         64,
	}
}

func DefaultPath() string {
	return filepath.Join(homeDir(), ".timebox", "config.yaml")
}

// Load builds the effective config: defaults, overlaid by the YAML file at
// path when it exists, overlaid by TIMEBOX_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return FromEnv(cfg), nil
}

func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("TIMEBOX_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnvString("TIMEBOX_LOG_PATH"); ok {
		cfg.LogPath = v
	}
	if v, ok := getEnvInt("TIMEBOX_SWEEP_INTERVAL_MINUTES"); ok && v > 0 {
		cfg.SweepIntervalMinutes = v
	}
	if v, ok := getEnvInt("TIMEBOX_REMINDER_LEAD_MINUTES"); ok && v >= 0 {
		cfg.ReminderLeadMinutes = v
	}
	if v, ok := getEnvBool("TIMEBOX_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvInt("TIMEBOX_NOTIFY_BUFFER"); ok && v > 0 {
		cfg.NotifyBuffer = v
	}
	return cfg
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

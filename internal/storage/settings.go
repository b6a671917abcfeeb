package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Settings are the user-tunable runtime knobs, persisted as
// settings.json in the app directory.
type Settings struct {
	HistoryRetentionDays int    `mapstructure:"query_history_retention_days"`
	DefaultQueryTimeout  int    `mapstructure:"default_query_timeout_seconds"`
	DefaultRowLimit      int    `mapstructure:"default_row_limit"`
	AnalyticsPollSeconds int    `mapstructure:"analytics_poll_seconds"`
	BackupDir            string `mapstructure:"backup_dir"`
}

// SettingsStore reads and writes the settings document through viper.
type SettingsStore struct {
	mu sync.Mutex
	v  *viper.Viper
}

// NewSettingsStore loads settings.json from dir, creating defaults on
// first run.
func NewSettingsStore(dir string) (*SettingsStore, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "settings.json"))
	v.SetConfigType("json")

	v.SetDefault("query_history_retention_days", 30)
	v.SetDefault("default_query_timeout_seconds", 30)
	v.SetDefault("default_row_limit", 1000)
	v.SetDefault("analytics_poll_seconds", 3)
	v.SetDefault("backup_dir", filepath.Join(dir, "backups"))

	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		if err := v.SafeWriteConfigAs(filepath.Join(dir, "settings.json")); err != nil {
			return nil, fmt.Errorf("write default settings: %w", err)
		}
	}
	return &SettingsStore{v: v}, nil
}

// Get returns the current settings.
func (s *SettingsStore) Get() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := &Settings{}
	if err := s.v.Unmarshal(set); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return set, nil
}

// Set stores one setting and persists the document.
func (s *SettingsStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
	if err := s.v.WriteConfig(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeQueue(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	c.normalizeExport()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeQueue() error {
	if value, ok := os.LookupEnv(defaultDatabaseEnv); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			c.Queue.DBPath = trimmed
		}
	}
	c.Queue.DBPath = strings.TrimSpace(c.Queue.DBPath)
	if c.Queue.DBPath != "" {
		expanded, err := expandPath(c.Queue.DBPath)
		if err != nil {
			return fmt.Errorf("queue.db_path: %w", err)
		}
		c.Queue.DBPath = expanded
	}
	if c.Queue.BusyTimeoutMS == 0 {
		c.Queue.BusyTimeoutMS = defaultBusyTimeoutMS
	}
	if c.Queue.BusyRetryInitialMS == 0 {
		c.Queue.BusyRetryInitialMS = defaultBusyRetryInitialMS
	}
	if c.Queue.BusyRetryMaxMS == 0 {
		c.Queue.BusyRetryMaxMS = defaultBusyRetryMaxMS
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv(defaultNtfyTopicEnv); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			c.Notifications.NtfyTopic = trimmed
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeExport() {
	c.Export.DefaultFormat = strings.ToLower(strings.TrimSpace(c.Export.DefaultFormat))
	if c.Export.DefaultFormat == "" {
		c.Export.DefaultFormat = defaultExportFormat
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" && c.Queue.DBPath == "" {
		return errors.New("paths.data_dir must be set when queue.db_path is empty")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.BusyTimeoutMS < 0 {
		return errors.New("queue.busy_timeout_ms must be zero or positive")
	}
	if c.Queue.BusyRetryAttempts < 0 {
		return errors.New("queue.busy_retry_attempts must be zero or positive")
	}
	if c.Queue.BusyRetryInitialMS < 0 {
		return errors.New("queue.busy_retry_initial_ms must be positive")
	}
	if c.Queue.BusyRetryMaxMS < c.Queue.BusyRetryInitialMS {
		return fmt.Errorf("queue.busy_retry_max_ms (%d) must be >= busy_retry_initial_ms (%d)", c.Queue.BusyRetryMaxMS, c.Queue.BusyRetryInitialMS)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateExport() error {
	switch c.Export.DefaultFormat {
	case "json", "csv", "yaml":
		return nil
	default:
		return fmt.Errorf("export.default_format: unsupported value %q (want json, csv, or yaml)", c.Export.DefaultFormat)
	}
}

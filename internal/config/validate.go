package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateWatcher(); err != nil {
		return err
	}
	if err := c.validateHighlights(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InputDir) == "" {
		return errors.New("paths.input_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if bind := c.Paths.StatusBind; bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			return fmt.Errorf("paths.status_bind must be host:port: %w", err)
		}
	}
	return nil
}

func (c *Config) validateAPI() error {
	base := c.API.BaseURL
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("api.base_url must start with http:// or https:// (got %q)", base)
	}
	if c.API.MaxRetries < 1 {
		return errors.New("api.max_retries must be at least 1")
	}
	return nil
}

func (c *Config) validateWatcher() error {
	if c.Watcher.StableSeconds < 1 {
		return errors.New("watcher.stable_seconds must be at least 1")
	}
	if c.Watcher.Extension == "." {
		return errors.New("watcher.extension must name a file extension")
	}
	return nil
}

func (c *Config) validateHighlights() error {
	if c.Highlights.MaxCount < 1 {
		return errors.New("highlights.max_count must be at least 1")
	}
	if c.Highlights.MinDuration <= 0 {
		return errors.New("highlights.min_duration must be positive")
	}
	if c.Highlights.MaxDuration < c.Highlights.MinDuration {
		return errors.New("highlights.max_duration must be >= highlights.min_duration")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateRedis(); err != nil {
		return err
	}
	if err := c.validateAutotag(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.ArchiveDir == "" {
		return errors.New("paths.archive_dir must be set")
	}
	if c.Paths.MediaDir == "" {
		return errors.New("paths.media_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return fmt.Errorf(
			"workflow.heartbeat_timeout (%d) must exceed workflow.heartbeat_interval (%d)",
			c.Workflow.HeartbeatTimeout, c.Workflow.HeartbeatInterval,
		)
	}
	return nil
}

func (c *Config) validateRedis() error {
	if !c.Redis.Enabled {
		return nil
	}
	if c.Redis.Addr == "" {
		return errors.New("redis.addr must be set when redis.enabled is true")
	}
	if c.Redis.DB < 0 {
		return errors.New("redis.db must not be negative")
	}
	return nil
}

func (c *Config) validateAutotag() error {
	if !c.Autotag.Enabled {
		return nil
	}
	if c.Autotag.URL == "" {
		return errors.New("autotag.url must be set when autotag.enabled is true")
	}
	if len(c.Autotag.Labels) == 0 {
		return errors.New("autotag.labels must list at least one label when autotag.enabled is true")
	}
	if c.Autotag.ConfidenceThreshold < 0 || c.Autotag.ConfidenceThreshold > 1 {
		return errors.New("autotag.confidence_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}

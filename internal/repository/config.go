package repository

import "fmt"

// Config represents the configuration needed for repository implementations.
type Config struct {
	TableName     string // Single table holding users and integrations
	GSI1IndexName string // EMAIL# and MARKETPLACE# lookups
	GSI2IndexName string // STATUS# lookups

	// Page size used when a caller passes a non-positive limit.
	DefaultPageSize int
	// Upper bound on any requested page size.
	MaxPageSize int
}

// Validate checks if the configuration has all required fields and valid values.
func (c Config) Validate() error {
	if c.TableName == "" {
		return fmt.Errorf("TableName is required")
	}
	if c.GSI1IndexName == "" {
		return fmt.Errorf("GSI1IndexName is required")
	}
	if c.GSI2IndexName == "" {
		return fmt.Errorf("GSI2IndexName is required")
	}
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("DefaultPageSize must be at least 1")
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("MaxPageSize cannot be lower than DefaultPageSize")
	}
	return nil
}

// WithDefaults returns a new Config with default values applied for optional fields.
func (c Config) WithDefaults() Config {
	config := c

	if config.GSI1IndexName == "" {
		config.GSI1IndexName = "GSI1"
	}
	if config.GSI2IndexName == "" {
		config.GSI2IndexName = "GSI2"
	}
	if config.DefaultPageSize == 0 {
		config.DefaultPageSize = 10
	}
	if config.MaxPageSize == 0 {
		config.MaxPageSize = 100
	}

	return config
}

// NewConfig creates a new repository configuration with required fields.
func NewConfig(tableName, gsi1, gsi2 string) Config {
	return Config{
		TableName:     tableName,
		GSI1IndexName: gsi1,
		GSI2IndexName: gsi2,
	}.WithDefaults()
}

// ClampLimit bounds a requested page size to the configured range.
func (c Config) ClampLimit(limit int) int {
	if limit < 1 {
		return c.DefaultPageSize
	}
	if limit > c.MaxPageSize {
		return c.MaxPageSize
	}
	return limit
}

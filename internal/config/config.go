// Package config provides configuration loading from an optional YAML file
// and environment variables. Environment variables take precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/schema"
	"github.com/usestring/baselib/pkg/validators"
)

// Defaults
const (
	DefaultSchemasDir     = "schemas"
	DefaultValidatorValue = validators.IDJSONSchema
)

// Config holds all configuration for baselib. It is read-only once loaded.
type Config struct {
	// DefaultSchemaValidator is the validator used when a caller names none.
	// Empty means undefined: the gate then fails with a configuration error.
	DefaultSchemaValidator string // DEFAULT_SCHEMA_VALIDATOR, default "jsonschema"
	SchemasDir             string // SCHEMAS_DIR, default "schemas"
	SchemaCategory         string // SCHEMA_CATEGORY, default "actions"
	SchemaCacheMaxItems    int    // SCHEMA_CACHE_MAX_ITEMS, default 0 (no cache)
	MetricsAddr            string // METRICS_ADDR, default "" (disabled)

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFormat     string // LOG_FORMAT, default "text"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// fileConfig is the YAML layout. Pointers distinguish absent keys from zero
// values; an explicit null for default_schema_validator leaves it undefined.
type fileConfig struct {
	DefaultSchemaValidator yaml.Node `yaml:"default_schema_validator"`
	SchemasDir             *string   `yaml:"schemas_dir"`
	SchemaCategory         *string   `yaml:"schema_category"`
	SchemaCacheMaxItems    *int      `yaml:"schema_cache_max_items"`
	MetricsAddr            *string   `yaml:"metrics_addr"`
	Log                    struct {
		Level      *string `yaml:"level"`
		Format     *string `yaml:"format"`
		File       *string `yaml:"file"`
		MaxSizeMB  *int    `yaml:"max_size_mb"`
		MaxBackups *int    `yaml:"max_backups"`
		MaxAgeDays *int    `yaml:"max_age_days"`
		Compress   *bool   `yaml:"compress"`
	} `yaml:"log"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DefaultSchemaValidator: DefaultValidatorValue,
		SchemasDir:             DefaultSchemasDir,
		SchemaCategory:         schema.DefaultCategory,
		LogLevel:               "info",
		LogFormat:              "text",
		LogMaxSizeMB:           10,
		LogMaxBackups:          5,
		LogMaxAgeDays:          28,
		LogCompress:            true,
	}
}

// Load reads path (when not empty) and then applies environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, "cannot read configuration file", err)
		}
		if err := cfg.merge(data); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) merge(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, "invalid configuration file", err)
	}

	switch node := fc.DefaultSchemaValidator; {
	case node.Kind == 0:
		// absent, keep the default
	case node.Kind == yaml.ScalarNode && node.Tag == "!!null":
		c.DefaultSchemaValidator = ""
	case node.Kind == yaml.ScalarNode:
		c.DefaultSchemaValidator = node.Value
	default:
		return errors.New(errors.ErrCodeConfiguration,
			fmt.Sprintf("default_schema_validator must be a string, line %d", node.Line))
	}

	setString(&c.SchemasDir, fc.SchemasDir)
	setString(&c.SchemaCategory, fc.SchemaCategory)
	setInt(&c.SchemaCacheMaxItems, fc.SchemaCacheMaxItems)
	setString(&c.MetricsAddr, fc.MetricsAddr)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	setString(&c.LogFile, fc.Log.File)
	setInt(&c.LogMaxSizeMB, fc.Log.MaxSizeMB)
	setInt(&c.LogMaxBackups, fc.Log.MaxBackups)
	setInt(&c.LogMaxAgeDays, fc.Log.MaxAgeDays)
	if fc.Log.Compress != nil {
		c.LogCompress = *fc.Log.Compress
	}
	return nil
}

func (c *Config) applyEnv() {
	// set but empty means undefined
	if v, ok := os.LookupEnv("DEFAULT_SCHEMA_VALIDATOR"); ok {
		c.DefaultSchemaValidator = v
	}
	c.SchemasDir = getEnvString("SCHEMAS_DIR", c.SchemasDir)
	c.SchemaCategory = getEnvString("SCHEMA_CATEGORY", c.SchemaCategory)
	c.SchemaCacheMaxItems = getEnvInt("SCHEMA_CACHE_MAX_ITEMS", c.SchemaCacheMaxItems)
	c.MetricsAddr = getEnvString("METRICS_ADDR", c.MetricsAddr)

	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvString("LOG_FORMAT", c.LogFormat)
	c.LogFile = getEnvString("LOG_FILE", c.LogFile)
	c.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB)
	c.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.LogMaxBackups)
	c.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", c.LogMaxAgeDays)
	c.LogCompress = getEnvBool("LOG_COMPRESS", c.LogCompress)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

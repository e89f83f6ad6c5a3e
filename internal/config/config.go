package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "burrow.yml"

const (
	defaultRedisURL      = "redis://localhost:6379"
	defaultRedisImage    = "redis:7-alpine"
	defaultRedisPort     = 6379
	defaultGroupBy       = "family"
	defaultFallbackGroup = "(blank)"
	defaultLogLevel      = "warn"
)

var projectNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// BurrowConfig represents the top-level burrow.yml configuration
type BurrowConfig struct {
	Version  string            `yaml:"version"`
	Project  string            `yaml:"project"`
	Redis    *RedisConfig      `yaml:"redis,omitempty"`
	Loader   *LoaderConfig     `yaml:"loader,omitempty"`
	Families map[string]Family `yaml:"families,omitempty"`
	Log      *LogConfig        `yaml:"log,omitempty"`
}

// RedisConfig locates the asset database
type RedisConfig struct {
	URL   string `yaml:"url,omitempty"`   // Connection URL (default: redis://localhost:6379)
	Image string `yaml:"image,omitempty"` // Image used by `burrow db up` (default: redis:7-alpine)
	Port  int    `yaml:"port,omitempty"`  // Host port used by `burrow db up` (default: 6379)
}

// LoaderConfig specifies how the subset loader presents rows
type LoaderConfig struct {
	GroupBy       string   `yaml:"group_by,omitempty"`       // Column to group by, or "none" (default: family)
	FallbackGroup string   `yaml:"fallback_group,omitempty"` // Group for rows with an empty group value (default: "(blank)")
	Families      []string `yaml:"families"`                 // Families shown; omit to show all, [] to hide every row with a family
	SubsetIcon    string   `yaml:"subset_icon,omitempty"`
}

// Family describes how a family is presented
type Family struct {
	Label string `yaml:"label,omitempty"`
	Icon  string `yaml:"icon,omitempty"`
}

// LogConfig specifies logging behavior
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // panic, fatal, error, warn, info, debug, trace
}

// Default returns a validated configuration for the given project.
func Default(project string) *BurrowConfig {
	cfg := &BurrowConfig{Version: "1.0", Project: project}
	// Defaults cannot fail validation beyond the project name
	_ = cfg.Validate()
	return cfg
}

// Validate performs strict validation on the configuration and applies defaults
func (c *BurrowConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.Redis.URL == "" {
		c.Redis.URL = defaultRedisURL
	}
	if c.Redis.Image == "" {
		c.Redis.Image = defaultRedisImage
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = defaultRedisPort
	}

	if c.Loader == nil {
		c.Loader = &LoaderConfig{}
	}
	if c.Loader.GroupBy == "" {
		c.Loader.GroupBy = defaultGroupBy
	}
	if c.Loader.FallbackGroup == "" {
		c.Loader.FallbackGroup = defaultFallbackGroup
	}
	if c.Loader.Families == nil {
		c.Loader.Families = []string{"*"}
	}

	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}

	// Required: project
	if c.Project == "" {
		return fmt.Errorf("project is required")
	}
	if !projectNamePattern.MatchString(c.Project) {
		return fmt.Errorf("invalid project name '%s': must be lowercase alphanumeric with '-' or '_'", c.Project)
	}

	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("redis.port must be between 1 and 65535, got %d", c.Redis.Port)
	}

	for i, family := range c.Loader.Families {
		if strings.TrimSpace(family) == "" {
			return fmt.Errorf("loader.families[%d] cannot be empty", i)
		}
	}

	for name := range c.Families {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("families: family name cannot be empty")
		}
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level '%s': %w", c.Log.Level, err)
	}

	return nil
}

// FamilyNames returns the configured family names, sorted.
func (c *BurrowConfig) FamilyNames() []string {
	names := make([]string, 0, len(c.Families))
	for name := range c.Families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads and validates burrow.yml from the specified path
func Load(path string) (*BurrowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a burrow.yml document
func Parse(data []byte) (*BurrowConfig, error) {
	var config BurrowConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/waypoint/internal/errors"
)

const (
	// DefaultPort is the default playground server port.
	DefaultPort = 4000

	// DefaultHost is the default playground server host.
	DefaultHost = "localhost"

	// DefaultRoutesFile is the default route definition file.
	DefaultRoutesFile = "routes.yaml"

	// DefaultCacheSize is the default match cache size.
	DefaultCacheSize = 512

	// DefaultMaxRedirects bounds redirect chains.
	DefaultMaxRedirects = 20

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "waypoint"
)

// FileNames are the configuration files Load looks for, in order.
var FileNames = []string{"waypoint.json", "waypoint.yaml", "waypoint.yml"}

// Config represents waypoint.json.
type Config struct {
	// Routes is the path to the route definition file.
	Routes string `json:"routes,omitempty" yaml:"routes,omitempty"`

	// Basename is the URL prefix the app is mounted under.
	Basename string `json:"basename,omitempty" yaml:"basename,omitempty"`

	// Server configures the playground server.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// CacheSize is the match cache size; 0 disables the cache.
	CacheSize *int `json:"cacheSize,omitempty" yaml:"cacheSize,omitempty"`

	// MaxRedirects bounds redirect chains.
	MaxRedirects int `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`

	// Metrics configures the Prometheus collectors.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains playground server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from dir, trying each of FileNames.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("W303").
		WithDetail("No waypoint.json or waypoint.yaml found in " + dir).
		WithSuggestion("Create waypoint.json or pass the route file with --routes")
}

// LoadFile reads configuration from path. The format follows the file
// extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("W303").WithFile(path)
		}
		return nil, errors.New("W301").WithFile(path).Wrap(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("W301").
			WithFile(path).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes the configuration as JSON to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("W301").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("W301").WithFile(path).Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

func (c *Config) applyDefaults() {
	if c.Routes == "" {
		c.Routes = DefaultRoutesFile
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.CacheSize == nil {
		size := DefaultCacheSize
		c.CacheSize = &size
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("W304").WithDetail("server.port must be between 0 and 65535")
	}
	if c.CacheSize != nil && *c.CacheSize < 0 {
		return errors.New("W304").WithDetail("cacheSize must not be negative")
	}
	if c.MaxRedirects < 0 {
		return errors.New("W304").WithDetail("maxRedirects must not be negative")
	}
	if c.Basename != "" && !strings.HasPrefix(c.Basename, "/") {
		return errors.New("W304").
			WithDetail(fmt.Sprintf("basename %q must start with /", c.Basename)).
			WithSuggestion("Use \"/" + strings.TrimLeft(c.Basename, "/") + "\"")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return errors.New("W304").WithDetail(err.Error())
	}
	return nil
}

// Address returns the listen address of the playground server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// RoutesPath returns the route file path, relative to the config file.
func (c *Config) RoutesPath() string {
	if filepath.IsAbs(c.Routes) {
		return c.Routes
	}
	return filepath.Join(c.Dir(), c.Routes)
}

// MatchCacheSize returns the configured cache size.
func (c *Config) MatchCacheSize() int {
	if c.CacheSize == nil {
		return DefaultCacheSize
	}
	return *c.CacheSize
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("W303").
				WithDetail("No waypoint.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working
// directory or its nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	return Load(root)
}

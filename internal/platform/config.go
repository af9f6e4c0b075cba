package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the configuration file looked up by the CLI.
const ConfigFileName = ".sidenote.yaml"

// Config is the on-disk configuration of a notes directory.
type Config struct {
	Adapter     string        `yaml:"adapter,omitempty"`
	Path        string        `yaml:"path,omitempty"`
	Format      string        `yaml:"format,omitempty"`
	Versioning  *bool         `yaml:"versioning,omitempty"`
	AutoInit    bool          `yaml:"auto_init,omitempty"`
	RedisURL    string        `yaml:"redis_url,omitempty"`
	Namespace   string        `yaml:"namespace,omitempty"`
	LocalPath   string        `yaml:"local_path,omitempty"`
	Debounce    time.Duration `yaml:"debounce,omitempty"`
	EventBuffer int           `yaml:"event_buffer,omitempty"`

	// dir is where the file was read from; relative paths resolve against it.
	dir string
}

// LoadConfig reads a configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	c.dir = filepath.Dir(path)
	return c, nil
}

// DiscoverConfig loads the configuration of the root above startDir.
// It returns the zero Config when the root has no configuration file.
func DiscoverConfig(startDir string) (Config, string, error) {
	root, err := FindRoot(startDir)
	if errors.Is(err, ErrRootNotFound) {
		return Config{}, "", nil
	}
	if err != nil {
		return Config{}, "", err
	}

	path := filepath.Join(root, ConfigFileName)
	if !hasFile(root, ConfigFileName) {
		return Config{dir: root}, "", nil
	}
	c, err := LoadConfig(path)
	return c, path, err
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	if c.Adapter != "" && !slices.Contains(Adapters, c.Adapter) {
		return fmt.Errorf("unknown adapter %q", c.Adapter)
	}
	if c.Format != "" && c.Format != "json" && c.Format != "yaml" && c.Format != "yml" {
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("negative debounce %s", c.Debounce)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// URI returns the storage location: the redis URL for redis, otherwise the
// configured path resolved against the config directory.
func (c Config) URI() string {
	if c.Adapter == AdapterRedis {
		return c.RedisURL
	}
	return c.resolve(c.Path)
}

func (c Config) resolve(p string) string {
	if p == "" {
		if c.dir != "" {
			return c.dir
		}
		return "."
	}
	if filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Options converts the configuration into options.
func (c Config) Options() []Option {
	var opts []Option
	if c.Adapter != "" {
		opts = append(opts, WithAdapter(c.Adapter))
	}
	if c.Format != "" {
		opts = append(opts, WithFormat(c.Format))
	}
	if c.Versioning != nil {
		opts = append(opts, WithVersioning(*c.Versioning))
	}
	if c.AutoInit {
		opts = append(opts, WithAutoInit(true))
	}
	if c.RedisURL != "" {
		opts = append(opts, WithRedisURL(c.RedisURL))
	}
	if c.Namespace != "" {
		opts = append(opts, WithNamespace(c.Namespace))
	}
	if c.LocalPath != "" {
		opts = append(opts, WithLocalPath(c.resolve(c.LocalPath)))
	}
	if c.EventBuffer > 0 {
		opts = append(opts, WithEventBuffer(c.EventBuffer))
	}
	return opts
}

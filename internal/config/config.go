package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gpupool/gatewayd/internal/perms"
)

// Init writes cfg to a new configuration file at path.
func (d *DefaultLoader) Init(path string, cfg *Config) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to write invalid config: %w", err)
	}

	data, err := encode(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, perms.RegularFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// Load reads the configuration file at path.
// A missing file is not an error: an empty Config is returned and every setting takes its default.
func (d *DefaultLoader) Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: path cannot be empty", ErrConfigLoadFailed)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{configFilePath: path}, nil
		}
		return nil, fmt.Errorf("%w: failed to read config file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	cfg, err := decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode config from file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: failed to validate config (%s): %w", ErrConfigLoadFailed, path, err)
	}

	// Update the path that loaded this file to track it.
	cfg.configFilePath = path

	return cfg, nil
}

// Path returns the file this configuration was loaded from.
func (c *Config) Path() string {
	return c.configFilePath
}

// Validate checks every configured section, reporting all problems at once.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}

	var validationErrors []error

	if err := c.API.Validate(); err != nil {
		validationErrors = append(validationErrors, fmt.Errorf("api configuration error: %w", err))
	}
	if err := c.Webhook.Validate(); err != nil {
		validationErrors = append(validationErrors, fmt.Errorf("webhook configuration error: %w", err))
	}
	if err := c.Health.Validate(); err != nil {
		validationErrors = append(validationErrors, fmt.Errorf("health configuration error: %w", err))
	}
	if err := c.State.Validate(); err != nil {
		validationErrors = append(validationErrors, fmt.Errorf("state configuration error: %w", err))
	}
	if err := c.Proxy.Validate(); err != nil {
		validationErrors = append(validationErrors, fmt.Errorf("proxy configuration error: %w", err))
	}

	return errors.Join(validationErrors...)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// decode rejects keys that do not map onto a known setting.
func decode(path string, data []byte) (*Config, error) {
	cfg := &Config{}

	if isYAML(path) {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return cfg, nil
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)
		return nil, fmt.Errorf("unknown configuration keys: %s", strings.Join(keys, ", "))
	}

	return cfg, nil
}

func encode(path string, cfg *Config) ([]byte, error) {
	var buf bytes.Buffer

	if isYAML(path) {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

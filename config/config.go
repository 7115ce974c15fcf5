// Package config loads the service configuration from YAML with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full pdfdiff service configuration.
type Config struct {
	HTTPAddr       string        `yaml:"http_addr"`
	UploadDir      string        `yaml:"upload_dir"`
	DataDir        string        `yaml:"data_dir"`
	DatabaseURL    string        `yaml:"database_url"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	Preview        PreviewConfig `yaml:"preview"`
}

// PreviewConfig configures page preview rendering.
type PreviewConfig struct {
	Bin string `yaml:"bin"`
	DPI int    `yaml:"dpi"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:       ":8080",
		UploadDir:      ".uploads",
		DataDir:        ".data",
		MaxUploadBytes: 50 << 20,
		Preview: PreviewConfig{
			Bin: "pdftoppm",
			DPI: 96,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment
// overrides. An empty path skips the file. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, cfg.Validate()
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PDFDIFF_HTTP_ADDR"); ok && v != "" {
		c.HTTPAddr = v
	}
	if v, ok := lookup("PDFDIFF_DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("upload_dir is required")
	}
	if c.DataDir == "" && c.DatabaseURL == "" {
		return fmt.Errorf("one of data_dir or database_url is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be > 0")
	}
	if c.Preview.DPI <= 0 || c.Preview.DPI > 600 {
		return fmt.Errorf("preview.dpi must be between 1 and 600")
	}
	return nil
}

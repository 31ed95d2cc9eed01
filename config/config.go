// Package config loads the .propkit.yaml configuration file.
//
// A .propkit.yaml file in the working directory supplies the defaults for
// every translation command. Flags given on the command line take
// precedence over the file; fields missing from both fall back to the
// built-in defaults below.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = ".propkit.yaml"

// Built-in defaults.
const (
	DefaultSourceLang = "en"
	DefaultRegion     = "eastus2"
	DefaultProvider   = "azure"
	DefaultEndpoint   = "https://api.cognitive.microsofttranslator.com"
	DefaultTimeout    = 30 * time.Second
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the .propkit.yaml structure as written by users.
type File struct {
	// SourceLang is the language of the reference files (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// Region is the Azure translator resource region (default "eastus2").
	Region string `yaml:"region,omitempty"`
	// Provider selects the translation backend: "azure" or "google".
	Provider string `yaml:"provider,omitempty"`
	// Endpoint is the translator API base URL.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Timeout is the request timeout as a Go duration string ("30s").
	Timeout string `yaml:"timeout,omitempty"`
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string `yaml:"proxy,omitempty"`
	// RemoveBackslashes sends multiline values flattened to one line.
	RemoveBackslashes bool `yaml:"remove_backslashes,omitempty"`
	// Sort reorders translate-missing output to follow the source file.
	Sort bool `yaml:"sort,omitempty"`
}

// Config is the resolved configuration with defaults applied.
type Config struct {
	SourceLang        string
	Region            string
	Provider          string
	Endpoint          string
	Timeout           time.Duration
	Proxy             string
	RemoveBackslashes bool
	Sort              bool

	// Path is the file the configuration was read from, empty for defaults.
	Path string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SourceLang: DefaultSourceLang,
		Region:     DefaultRegion,
		Provider:   DefaultProvider,
		Endpoint:   DefaultEndpoint,
		Timeout:    DefaultTimeout,
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the configuration at path. When explicit is false a missing
// file yields the defaults; when true it is an error.
func Load(path string, explicit bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes .propkit.yaml content and applies defaults.
func Parse(data []byte) (*Config, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := Default()
	if f.SourceLang != "" {
		cfg.SourceLang = f.SourceLang
	}
	if f.Region != "" {
		cfg.Region = f.Region
	}
	if f.Provider != "" {
		cfg.Provider = strings.ToLower(f.Provider)
	}
	if f.Endpoint != "" {
		cfg.Endpoint = strings.TrimRight(f.Endpoint, "/")
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", f.Timeout, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid timeout %q: must be positive", f.Timeout)
		}
		cfg.Timeout = d
	}
	cfg.Proxy = f.Proxy
	cfg.RemoveBackslashes = f.RemoveBackslashes
	cfg.Sort = f.Sort

	switch cfg.Provider {
	case "azure", "google":
	default:
		return nil, fmt.Errorf("unknown provider %q (valid: azure, google)", cfg.Provider)
	}

	return cfg, nil
}

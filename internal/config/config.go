package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/recera/lumen/internal/cache"
	"github.com/recera/lumen/internal/template/directive"
	"github.com/recera/lumen/internal/template/ir"
)

// FileName is the project configuration file.
const FileName = "lumen.yaml"

// Config represents lumen.yaml
type Config struct {
	// Directory holding templates, relative to the project root
	SrcDir string `yaml:"srcDir,omitempty"`

	// Directory holding pages, relative to the project root
	PagesDir string `yaml:"pagesDir,omitempty"`

	// Directory compiled modules are written to
	OutDir string `yaml:"outDir,omitempty"`

	// Path prefixes rewritten in attribute values, e.g. "@/": "/src/"
	Aliases map[string]string `yaml:"aliases,omitempty"`

	// Site URL exposed to templates as site
	Site string `yaml:"site,omitempty"`

	// Values visible to every template
	Globals map[string]any `yaml:"globals,omitempty"`

	Directives *DirectivesConfig `yaml:"directives,omitempty"`

	Cache *CacheConfig `yaml:"cache,omitempty"`

	Dev *DevConfig `yaml:"dev,omitempty"`
}

// DirectivesConfig customizes directive and marker spellings.
type DirectivesConfig struct {
	// Prefix accepted in front of every directive, e.g. "data-"
	Prefix string `yaml:"prefix,omitempty"`

	Scripts *ScriptMarkers `yaml:"scripts,omitempty"`

	// Attribute prefixes left uninterpolated, e.g. "x-", "@"
	PassthroughPrefixes []string `yaml:"passthroughPrefixes,omitempty"`

	// Exact attribute names left uninterpolated
	Passthrough []string `yaml:"passthrough,omitempty"`

	// Tag suffixes marking component references
	ComponentSuffixes []string `yaml:"componentSuffixes,omitempty"`
}

// ScriptMarkers names the script taxonomy attributes.
type ScriptMarkers struct {
	Build    string `yaml:"build,omitempty"`
	Inline   string `yaml:"inline,omitempty"`
	Blocking string `yaml:"blocking,omitempty"`
}

// CacheConfig configures the compiled module cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`

	// Cache directory, relative to the project root
	Dir string `yaml:"dir,omitempty"`

	// Maximum size in megabytes
	MaxSizeMB int `yaml:"maxSizeMB,omitempty"`
}

// DevConfig contains development server configuration
type DevConfig struct {
	Port int    `yaml:"port,omitempty"`
	Host string `yaml:"host,omitempty"`

	// Page rendered when no page matches a request
	NotFound string `yaml:"notFound,omitempty"`

	// Whether browsers reload when templates change
	LiveReload bool `yaml:"liveReload"`
}

// Load loads configuration from lumen.yaml in projectPath. A missing file
// yields the defaults.
func Load(projectPath string) (*Config, error) {
	configPath := filepath.Join(projectPath, FileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &config, nil
}

// Save writes configuration to lumen.yaml in projectPath.
func Save(config *Config, projectPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectPath, FileName), data, 0644)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	table := directive.Default()
	return &Config{
		SrcDir:   "src",
		PagesDir: "src/pages",
		OutDir:   ".lumen/modules",
		Aliases:  map[string]string{},
		Globals:  map[string]any{},
		Directives: &DirectivesConfig{
			Prefix: table.Prefix,
			Scripts: &ScriptMarkers{
				Build:    table.Build,
				Inline:   table.Inline,
				Blocking: table.Blocking,
			},
			PassthroughPrefixes: append([]string(nil), table.PassthroughPrefixes...),
			Passthrough:         append([]string(nil), table.PassthroughNames...),
			ComponentSuffixes:   append([]string(nil), table.ComponentSuffixes...),
		},
		Cache: &CacheConfig{
			Enabled:   true,
			Dir:       ".lumen/cache",
			MaxSizeMB: 64,
		},
		Dev: &DevConfig{
			Port:       3000,
			Host:       "localhost",
			NotFound:   "404",
			LiveReload: true,
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.SrcDir == "" {
		config.SrcDir = defaults.SrcDir
	}
	if config.PagesDir == "" {
		config.PagesDir = defaults.PagesDir
	}
	if config.OutDir == "" {
		config.OutDir = defaults.OutDir
	}
	if config.Aliases == nil {
		config.Aliases = defaults.Aliases
	}
	if config.Globals == nil {
		config.Globals = defaults.Globals
	}

	if config.Directives == nil {
		config.Directives = defaults.Directives
	} else {
		d, dd := config.Directives, defaults.Directives
		if d.Prefix == "" {
			d.Prefix = dd.Prefix
		}
		if d.Scripts == nil {
			d.Scripts = dd.Scripts
		} else {
			if d.Scripts.Build == "" {
				d.Scripts.Build = dd.Scripts.Build
			}
			if d.Scripts.Inline == "" {
				d.Scripts.Inline = dd.Scripts.Inline
			}
			if d.Scripts.Blocking == "" {
				d.Scripts.Blocking = dd.Scripts.Blocking
			}
		}
		if d.PassthroughPrefixes == nil {
			d.PassthroughPrefixes = dd.PassthroughPrefixes
		}
		if d.Passthrough == nil {
			d.Passthrough = dd.Passthrough
		}
		if len(d.ComponentSuffixes) == 0 {
			d.ComponentSuffixes = dd.ComponentSuffixes
		}
	}

	if config.Cache == nil {
		config.Cache = defaults.Cache
	} else {
		if config.Cache.Dir == "" {
			config.Cache.Dir = defaults.Cache.Dir
		}
		if config.Cache.MaxSizeMB == 0 {
			config.Cache.MaxSizeMB = defaults.Cache.MaxSizeMB
		}
	}

	if config.Dev == nil {
		config.Dev = defaults.Dev
	} else {
		if config.Dev.Port == 0 {
			config.Dev.Port = defaults.Dev.Port
		}
		if config.Dev.Host == "" {
			config.Dev.Host = defaults.Dev.Host
		}
		if config.Dev.NotFound == "" {
			config.Dev.NotFound = defaults.Dev.NotFound
		}
	}
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	if c.Dev != nil && (c.Dev.Port < 0 || c.Dev.Port > 65535) {
		return fmt.Errorf("dev.port %d out of range", c.Dev.Port)
	}
	if c.Cache != nil && c.Cache.MaxSizeMB < 0 {
		return fmt.Errorf("cache.maxSizeMB must not be negative")
	}
	if d := c.Directives; d != nil && d.Scripts != nil {
		seen := map[string]string{}
		for role, name := range map[string]string{"build": d.Scripts.Build, "inline": d.Scripts.Inline, "blocking": d.Scripts.Blocking} {
			if other, ok := seen[name]; ok && name != "" {
				return fmt.Errorf("script markers %s and %s share the name %q", other, role, name)
			}
			seen[name] = role
		}
	}
	for prefix := range c.Aliases {
		if prefix == "" {
			return fmt.Errorf("aliases must not contain an empty prefix")
		}
	}
	return nil
}

// Table builds the directive table described by the configuration.
func (c *Config) Table() *directive.Table {
	t := directive.Default()
	d := c.Directives
	if d == nil {
		return t
	}
	t.Prefix = d.Prefix
	if d.Scripts != nil {
		t.Build, t.Inline, t.Blocking = d.Scripts.Build, d.Scripts.Inline, d.Scripts.Blocking
	}
	if d.PassthroughPrefixes != nil {
		t.PassthroughPrefixes = d.PassthroughPrefixes
	}
	if d.Passthrough != nil {
		t.PassthroughNames = d.Passthrough
	}
	if len(d.ComponentSuffixes) > 0 {
		t.ComponentSuffixes = d.ComponentSuffixes
	}
	return t
}

// Resolver returns the path resolver for the configured aliases, or nil.
func (c *Config) Resolver() ir.PathResolver {
	if len(c.Aliases) == 0 {
		return nil
	}
	return ir.AliasResolver(c.Aliases)
}

// Fingerprint identifies the settings that change compiled output.
func (c *Config) Fingerprint() string {
	data, _ := yaml.Marshal(struct {
		Aliases    map[string]string `yaml:"aliases"`
		Directives *DirectivesConfig `yaml:"directives"`
	}{c.Aliases, c.Directives})
	return cache.Key(string(data))
}

// CacheSettings returns the module cache settings for a project at root.
func (c *Config) CacheSettings(root string) cache.Config {
	cfg := cache.DefaultConfig(root)
	if c.Cache != nil {
		cfg.Dir = filepath.Join(root, c.Cache.Dir)
		cfg.MaxSize = int64(c.Cache.MaxSizeMB) << 20
	}
	return cfg
}

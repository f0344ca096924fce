package gen

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/syssam/mojen"
)

// Config is the configuration shared by the graph, the plan compiler
// and the writer. It is passed explicitly; there is no package level state.
type Config struct {
	// Package is the import path of the emitted package.
	Package string
	// Target is the output directory of emitted files.
	Target string
	// Header is the comment written at the top of each emitted file.
	Header string
	// Features enabled in addition to the default ones.
	Features []Feature
	// Disabled holds the names of default features that are switched off.
	Disabled []string
	// Workers limits the parallelism of plan compilation and file writes.
	Workers int
	// Logger receives build and generation diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// DefaultHeader is written when no header was configured.
const DefaultHeader = "Code generated by mojen, DO NOT EDIT."

// Log returns the configured logger or a no-op logger.
func (c *Config) Log() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// NumWorkers returns the configured worker count, defaulting to GOMAXPROCS.
func (c *Config) NumWorkers() int {
	if c == nil || c.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}

// HeaderText returns the configured header or DefaultHeader.
func (c *Config) HeaderText() string {
	if c == nil || c.Header == "" {
		return DefaultHeader
	}
	return c.Header
}

// FeatureEnabled reports if the given feature name is enabled.
// It returns an error if the name does not denote a known feature.
func (c *Config) FeatureEnabled(name string) (bool, error) {
	f, ok := FeatureByName(name)
	if !ok {
		return false, NewConfigError("Features", name, "unknown feature")
	}
	if c == nil {
		return f.Default, nil
	}
	for _, d := range c.Disabled {
		if d == name {
			return false, nil
		}
	}
	if f.Default {
		return true, nil
	}
	for _, e := range c.Features {
		if e.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Ops returns the cascade operations enabled by the configured features,
// in the order of AllFeatures.
func (c *Config) Ops() []mojen.Op {
	var ops []mojen.Op
	for _, f := range AllFeatures {
		if f.Op == mojen.OpUnknown {
			continue
		}
		if ok, _ := c.FeatureEnabled(f.Name); ok {
			ops = append(ops, f.Op)
		}
	}
	return ops
}

// fileConfig is the YAML representation of Config.
type fileConfig struct {
	Package  string   `yaml:"package"`
	Target   string   `yaml:"target"`
	Header   string   `yaml:"header"`
	Features []string `yaml:"features"`
	Disabled []string `yaml:"disabled"`
	Workers  int      `yaml:"workers"`
}

// ParseConfig decodes a YAML configuration document. Options are applied
// after the document, so they take precedence.
func ParseConfig(data []byte, opts ...Option) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, NewConfigError("File", nil, fmt.Sprintf("decode yaml: %v", err))
	}
	c := &Config{
		Package:  fc.Package,
		Target:   fc.Target,
		Header:   fc.Header,
		Disabled: fc.Disabled,
		Workers:  fc.Workers,
	}
	for _, name := range fc.Features {
		f, ok := FeatureByName(name)
		if !ok {
			return nil, NewConfigError("Features", name, "unknown feature")
		}
		c.Features = append(c.Features, f)
	}
	for _, name := range fc.Disabled {
		if _, ok := FeatureByName(name); !ok {
			return nil, NewConfigError("Disabled", name, "unknown feature")
		}
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadConfigFile reads and decodes a YAML configuration file.
func LoadConfigFile(path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError("File", path, err.Error())
	}
	return ParseConfig(data, opts...)
}

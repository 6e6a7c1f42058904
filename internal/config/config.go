package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/addondeps/internal/index"
	"github.com/frederic-klein/addondeps/internal/loader"
)

// DefaultFile is read when no --config flag is given. It is optional.
const DefaultFile = "addondeps.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ADDONDEPS_"

// Config represents the addondeps.yaml structure.
type Config struct {
	PackagesDir  string        `yaml:"packages_dir"`
	Python       string        `yaml:"python"`
	PipArgs      []string      `yaml:"pip_args"`
	ExtraArgs    []string      `yaml:"extra_args"`
	EntryFile    string        `yaml:"entry_file"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxLineBytes int           `yaml:"max_line_bytes"`
	LineBuffer   int           `yaml:"line_buffer"`
	IndexURL     string        `yaml:"index_url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PackagesDir:  "packages",
		Python:       "python3",
		PipArgs:      []string{"-m", "pip", "install"},
		EntryFile:    loader.DefaultEntryFile,
		Timeout:      10 * time.Minute,
		MaxLineBytes: 64 * 1024,
		LineBuffer:   64,
		IndexURL:     index.DefaultPyPIURL,
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotenv loads variables from a .env file into the process
// environment. A missing file is not an error.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from ADDONDEPS_* variables found by lookup
// (usually os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("PACKAGES_DIR"); ok {
		c.PackagesDir = v
	}
	if v, ok := get("PYTHON"); ok {
		c.Python = v
	}
	if v, ok := get("PIP_ARGS"); ok {
		c.PipArgs = strings.Fields(v)
	}
	if v, ok := get("EXTRA_ARGS"); ok {
		c.ExtraArgs = strings.Fields(v)
	}
	if v, ok := get("ENTRY_FILE"); ok {
		c.EntryFile = v
	}
	if v, ok := get("INDEX_URL"); ok {
		c.IndexURL = v
	}
	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v, ok := get("MAX_LINE_BYTES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_LINE_BYTES: %w", EnvPrefix, err)
		}
		c.MaxLineBytes = n
	}
	return nil
}

// Validate checks the fields the installer relies on.
func (c *Config) Validate() error {
	var errs []error
	if c.PackagesDir == "" {
		errs = append(errs, errors.New("packages_dir must not be empty"))
	}
	if c.Python == "" {
		errs = append(errs, errors.New("python must not be empty"))
	}
	if c.EntryFile == "" {
		errs = append(errs, errors.New("entry_file must not be empty"))
	}
	if strings.ContainsAny(c.EntryFile, `/\`) {
		errs = append(errs, fmt.Errorf("entry_file %q must be a file name", c.EntryFile))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	if c.MaxLineBytes < 0 || c.LineBuffer < 0 {
		errs = append(errs, errors.New("max_line_bytes and line_buffer must not be negative"))
	}
	return errors.Join(errs...)
}

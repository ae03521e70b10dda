// Package config loads carbonrun settings.
//
// Precedence, lowest first: Default, a YAML or TOML file, a .env file and
// the process environment (CARBONRUN_*), then explicit CLI flags, which the
// command applies itself.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ja7ad/carbonrun/pkg/consumption"
	"github.com/ja7ad/carbonrun/pkg/emissions"
	"github.com/ja7ad/carbonrun/pkg/types"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "CARBONRUN_"

// SearchPaths are tried in order when no file is given.
var SearchPaths = []string{"carbonrun.yaml", "carbonrun.yml", "carbonrun.toml"}

var ErrInvalid = errors.New("config: invalid value")

// Config is the file and environment view of a run.
type Config struct {
	Task        string `yaml:"task" toml:"task"`
	Seconds     int    `yaml:"seconds" toml:"seconds"`
	Mode        string `yaml:"mode" toml:"mode"`
	Country     string `yaml:"country" toml:"country"`
	Project     string `yaml:"project" toml:"project"`
	Output      string `yaml:"output" toml:"output"`
	Interval    int    `yaml:"interval" toml:"interval"`
	GeoURL      string `yaml:"geo_url" toml:"geo_url"`
	HTML        bool   `yaml:"html" toml:"html"`
	MatrixSize  int    `yaml:"matrix_size" toml:"matrix_size"`
	IOBlockSize string `yaml:"io_block_size" toml:"io_block_size"` // e.g. "2MB"

	Power consumption.Config `yaml:"power" toml:"power"`

	// Source is the file that was loaded, empty for none.
	Source string `yaml:"-" toml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Task:        "cpu",
		Seconds:     20,
		Mode:        "offline",
		Country:     "ARG",
		Project:     "TP_Green_Software",
		Output:      "results",
		Interval:    1,
		GeoURL:      emissions.DefaultGeoURL,
		MatrixSize:  256,
		IOBlockSize: "2MB",
		Power:       consumption.DefaultConfig(),
	}
}

// BlockSize parses IOBlockSize.
func (c *Config) BlockSize() (types.Bytes, error) {
	b, err := types.ParseBytes(c.IOBlockSize)
	if err != nil {
		return 0, fmt.Errorf("%w: io_block_size: %w", ErrInvalid, err)
	}
	return b, nil
}

// Load reads the settings file at path over Default. With an empty path the
// SearchPaths are tried and a missing file is not an error. The format
// follows the extension: .toml is TOML, anything else YAML.
func Load(path string) (*Config, error) {
	cfg := Default()

	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		for _, name := range SearchPaths {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				break
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// LoadDotEnv exports the variables of a .env file into the environment
// without overriding ones already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overrides cfg with the CARBONRUN_* variables found by lookup
// (os.LookupEnv when nil). Empty values are ignored.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"TASK", &cfg.Task},
		{"MODE", &cfg.Mode},
		{"COUNTRY", &cfg.Country},
		{"PROJECT", &cfg.Project},
		{"OUTPUT", &cfg.Output},
		{"GEO_URL", &cfg.GeoURL},
		{"IO_BLOCK_SIZE", &cfg.IOBlockSize},
	}
	for _, s := range strs {
		if v, ok := get(s.name); ok {
			*s.dst = v
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"SECONDS", &cfg.Seconds},
		{"INTERVAL", &cfg.Interval},
		{"MATRIX_SIZE", &cfg.MatrixSize},
	}
	for _, i := range ints {
		v, ok := get(i.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalid, EnvPrefix, i.name, v)
		}
		*i.dst = n
	}

	if v, ok := get("HTML"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sHTML=%q", ErrInvalid, EnvPrefix, v)
		}
		cfg.HTML = b
	}
	return nil
}

// Package config reads the TOML run configuration of an analysis: the cut
// values exposed to filter expressions as $params, histogram axes, the
// tables to load and logging.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/vegasq/colframe/logutil"
	"github.com/vegasq/colframe/reader"
	"github.com/vegasq/colframe/table"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is a whole run configuration.
type Config struct {
	// Workers bounds the number of tasks run at once, runtime.NumCPU() when 0.
	Workers int               `toml:"workers"`
	Log     logutil.LogConfig `toml:"log"`
	Params  Params            `toml:"params"`
	Axes    map[string]Axis   `toml:"axes"`
	Tables  []TableSource     `toml:"tables"`
}

// Params are named cut values. Params implements expr.Params.
type Params map[string]float64

// Param returns the value of name.
func (p Params) Param(name string) (float64, bool) {
	v, ok := p[name]
	return v, ok
}

// TableSource declares a table and the parquet files it is loaded from.
type TableSource struct {
	// ID is "ORIGIN/TAG".
	ID string `toml:"id"`
	// Files is a path or glob pattern.
	Files string `toml:"files"`
	// Refs maps index columns to the id of the table they point into.
	Refs   map[string]string `toml:"refs"`
	Widths map[string]int    `toml:"widths"`
	Skip   []string          `toml:"skip"`
}

// TableID parses ID.
func (s TableSource) TableID() (table.ID, error) {
	return table.ParseID(s.ID)
}

// Options returns the reader options of the source.
func (s TableSource) Options() (reader.Options, error) {
	opts := reader.Options{
		Refs:   make(map[string]table.ID, len(s.Refs)),
		Widths: s.Widths,
		Skip:   s.Skip,
	}
	for col, ref := range s.Refs {
		id, err := table.ParseID(ref)
		if err != nil {
			return reader.Options{}, fmt.Errorf("%s.%s: %w", s.ID, col, err)
		}
		opts.Refs[col] = id
	}
	return opts, nil
}

// Load decodes the file at path, fills defaults and validates the result.
// Keys that do not map to a field are an error. Relative table file
// patterns are taken relative to the directory of path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}
	for i, src := range cfg.Tables {
		if src.Files != "" && !filepath.IsAbs(src.Files) {
			cfg.Tables[i].Files = filepath.Join(filepath.Dir(path), src.Files)
		}
	}
	cfg.SetDefaultValues()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode is like Load for configuration text.
func Decode(data string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.SetDefaultValues()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaultValues fills unset fields.
func (c *Config) SetDefaultValues() {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Params == nil {
		c.Params = Params{}
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}

	names := make([]string, 0, len(c.Axes))
	for name := range c.Axes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.Axes[name].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("axis %s: %w", name, err))
		}
	}

	seen := make(map[table.ID]bool, len(c.Tables))
	for i, src := range c.Tables {
		id, err := src.TableID()
		if err != nil {
			errs = append(errs, fmt.Errorf("tables[%d]: %w", i, err))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("tables[%d]: %s listed twice", i, id))
		}
		seen[id] = true
		if src.Files == "" {
			errs = append(errs, fmt.Errorf("tables[%d]: %s has no files", i, id))
		}
		if _, err := src.Options(); err != nil {
			errs = append(errs, fmt.Errorf("tables[%d]: %w", i, err))
		}
		for col, w := range src.Widths {
			if w < 1 {
				errs = append(errs, fmt.Errorf("tables[%d]: width of %s must be positive, got %d", i, col, w))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Axis returns the axis named name.
func (c *Config) Axis(name string) (Axis, error) {
	a, ok := c.Axes[name]
	if !ok {
		return Axis{}, fmt.Errorf("%w: no axis %s", ErrInvalidConfig, name)
	}
	return a, nil
}

// Source returns the table source declaring id.
func (c *Config) Source(id table.ID) (TableSource, bool) {
	for _, src := range c.Tables {
		if sid, err := src.TableID(); err == nil && sid == id {
			return src, true
		}
	}
	return TableSource{}, false
}

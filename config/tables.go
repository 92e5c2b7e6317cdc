package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/logutil"
	"github.com/vegasq/colframe/reader"
	"github.com/vegasq/colframe/table"
)

// Declare declares the table of src in reg with the columns of its first
// file.
func (s TableSource) Declare(reg *table.Registry) (*table.Schema, error) {
	id, err := s.TableID()
	if err != nil {
		return nil, err
	}
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}
	files, err := reader.Glob(s.Files)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	cols, err := reader.InferColumns(files[0], opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return reg.Declare(id, cols...)
}

// Load reads the files of src into a new instance of its declared table.
func (s TableSource) Load(reg *table.Registry) (*table.Table, error) {
	id, err := s.TableID()
	if err != nil {
		return nil, err
	}
	t, err := reader.Load(reg, id, s.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", id, err)
	}
	logutil.Info("loaded table",
		zap.Stringer("table", id),
		zap.Int("rows", t.Len()),
		zap.Stringer("instance", t.Instance()))
	return t, nil
}

// DeclareTables declares every configured table.
func (c *Config) DeclareTables(reg *table.Registry) error {
	for _, src := range c.Tables {
		if _, err := src.Declare(reg); err != nil {
			return err
		}
	}
	return nil
}

// LoadTables declares every configured table, then loads them in file
// order. Each loaded table becomes the live instance of its id.
func (c *Config) LoadTables(reg *table.Registry) ([]*table.Table, error) {
	if err := c.DeclareTables(reg); err != nil {
		return nil, err
	}
	tables := make([]*table.Table, 0, len(c.Tables))
	for _, src := range c.Tables {
		t, err := src.Load(reg)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

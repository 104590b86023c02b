// Copyright (c) 2026 Netskope, Inc. All rights reserved.

// Package convert re-encodes staged CSV and JSON files as Parquet.
//
// The whole input is loaded into a column-oriented Table, column types are
// inferred from content, and the result replaces the staged file only once a
// complete Parquet file exists. On failure the staged input is untouched.
package convert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/netSkope/s3-adls-connector/internal/xfererr"
	"github.com/parquet-go/parquet-go/compress"
	"go.uber.org/zap"
)

// Kind is the source encoding of a staged file.
type Kind string

const (
	KindCSV     Kind = "csv"
	KindJSON    Kind = "json"
	KindParquet Kind = "parquet"
)

// ParquetExt is the extension of converted files.
const ParquetExt = ".parquet"

// KindFromPath maps a file name's extension to a Kind, case-insensitively.
func KindFromPath(path string) (Kind, bool) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "csv":
		return KindCSV, true
	case "json":
		return KindJSON, true
	case "parquet":
		return KindParquet, true
	default:
		return "", false
	}
}

// ParquetPath returns path with its extension replaced by .parquet.
func ParquetPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ParquetExt
}

// Converter turns staged tabular files into Parquet files.
type Converter struct {
	delimiter rune
	codec     compress.Codec
	logger    *zap.Logger
}

// NewConverter creates a converter. delimiter applies to CSV input; zero
// means comma. A nil codec means snappy.
func NewConverter(delimiter rune, codec compress.Codec, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		delimiter: delimiter,
		codec:     codec,
		logger:    logger,
	}
}

// Convert reads path as kind and writes <base>.parquet next to it. On success
// the input is removed and the new path returned. Parquet input is returned
// unchanged.
func (c *Converter) Convert(path string, kind Kind) (string, error) {
	const op = "convert"

	if kind == KindParquet {
		return path, nil
	}

	table, err := c.load(path, kind)
	if err != nil {
		return "", xfererr.New(xfererr.KindConversion, op, fmt.Errorf("%s: %w", filepath.Base(path), err))
	}

	out := ParquetPath(path)
	if err := c.writeAtomic(out, table); err != nil {
		return "", xfererr.New(xfererr.KindConversion, op, fmt.Errorf("%s: %w", filepath.Base(path), err))
	}

	if out != path {
		if err := os.Remove(path); err != nil {
			c.logger.Warn("Failed to remove staged source after conversion",
				zap.String("file", path),
				zap.Error(err))
		}
	}

	c.logger.Info("Converted file to parquet",
		zap.String("source", path),
		zap.String("output", out),
		zap.Int("rows", table.Rows),
		zap.Int("columns", len(table.Columns)))

	return out, nil
}

func (c *Converter) load(path string, kind Kind) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return ReadTable(f, kind, c.delimiter)
}

// writeAtomic writes to a temporary sibling and renames it over out, so out
// is either absent or a complete file.
func (c *Converter) writeAtomic(out string, table *Table) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(out), "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary output: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = WriteParquet(tmp, table, c.codec); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err = os.Rename(tmpName, out); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// ReadTable loads CSV or JSON content into memory.
func ReadTable(r io.Reader, kind Kind, delimiter rune) (*Table, error) {
	switch kind {
	case KindCSV:
		return ReadCSV(r, delimiter)
	case KindJSON:
		return ReadJSON(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q, only csv and json can be converted", kind)
	}
}

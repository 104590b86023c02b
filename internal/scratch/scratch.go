// Copyright (c) 2026 Netskope, Inc. All rights reserved.

// Package scratch owns the private local directory a run stages files in.
package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPrefix is used when New is called with an empty prefix.
const DefaultPrefix = "s3_adls_connector_"

// Dir is a run-scoped scratch directory. Everything under Path is removed by
// Close.
type Dir struct {
	path string
	once sync.Once
	err  error
}

// New creates a fresh private directory under base (os.TempDir when empty).
func New(base, prefix string) (*Dir, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if base != "" {
		if err := os.MkdirAll(base, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create scratch base %s: %w", base, err)
		}
	}

	path, err := os.MkdirTemp(base, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory's absolute or base-relative path.
func (d *Dir) Path() string {
	return d.path
}

// Sub creates (if needed) and returns a named subdirectory.
func (d *Dir) Sub(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid scratch subdirectory name %q", name)
	}
	sub := filepath.Join(d.path, name)
	if err := os.MkdirAll(sub, 0o700); err != nil {
		return "", fmt.Errorf("failed to create scratch subdirectory: %w", err)
	}
	return sub, nil
}

// Close removes the directory and its contents. Safe to call more than once.
func (d *Dir) Close() error {
	d.once.Do(func() {
		if err := os.RemoveAll(d.path); err != nil {
			d.err = fmt.Errorf("failed to remove scratch directory %s: %w", d.path, err)
		}
	})
	return d.err
}

// With runs fn with a new scratch directory and removes it on every exit
// path, including a panic in fn. A cleanup failure is joined to fn's error.
func With(base, prefix string, fn func(d *Dir) error) (err error) {
	d, err := New(base, prefix)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	return fn(d)
}

// Copyright (c) 2026 Netskope, Inc. All rights reserved.

// Package adls uploads staged files into an ADLS Gen2 filesystem under a
// fixed directory.
package adls

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/netSkope/s3-adls-connector/internal/checksum"
	"go.uber.org/zap"
)

// RawDataDir is the directory every file is uploaded into.
const RawDataDir = "raw_data"

// Destination writes files to raw_data/<base name>. Uploads replace any
// existing file with the same name.
type Destination struct {
	store  Store
	logger *zap.Logger
}

func NewDestination(store Store, logger *zap.Logger) *Destination {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Destination{store: store, logger: logger}
}

// TargetPath maps a local file to its remote path. Only the base name is
// kept, so files with the same name from different source prefixes collide.
func TargetPath(localPath string) string {
	return path.Join(RawDataDir, filepath.Base(localPath))
}

// CheckContainer verifies the filesystem exists and the credentials can read
// it.
func (d *Destination) CheckContainer(ctx context.Context) error {
	if err := d.store.CheckFilesystem(ctx); err != nil {
		return err
	}
	d.logger.Debug("Destination container reachable")
	return nil
}

// EnsureDirectory creates the raw_data directory when missing.
func (d *Destination) EnsureDirectory(ctx context.Context) error {
	if err := d.store.CreateDirectory(ctx, RawDataDir); err != nil {
		return err
	}
	d.logger.Debug("Destination directory ready", zap.String("directory", RawDataDir))
	return nil
}

// Upload writes the local file to its target path and returns that path.
func (d *Destination) Upload(ctx context.Context, localPath string) (string, error) {
	remote := TargetPath(localPath)

	d.logger.Info("Uploading file",
		zap.String("local", localPath),
		zap.String("remote", remote))

	if err := d.store.UploadFile(ctx, remote, localPath); err != nil {
		return "", err
	}

	d.logger.Info("File uploaded", zap.String("remote", remote))
	return remote, nil
}

// RemoteDigest streams the remote file through the given hash.
func (d *Destination) RemoteDigest(ctx context.Context, remotePath string, algo checksum.Algorithm) (string, error) {
	body, err := d.store.Open(ctx, remotePath)
	if err != nil {
		return "", err
	}
	defer body.Close()

	sum, err := checksum.DigestReader(body, algo)
	if err != nil {
		return "", fmt.Errorf("failed to hash remote file %s: %w", remotePath, err)
	}
	return sum, nil
}

// Copyright (c) 2026 Netskope, Inc. All rights reserved.

// Package checksum computes content digests of staged and uploaded files.
// Verification is advisory: it guards against corruption in transit, not
// tampering.
package checksum

import (
	"crypto/md5" //nolint:gosec // integrity check, not a security boundary
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	XXHash Algorithm = "xxhash"

	// chunkSize matches the 1MB read size used when streaming remote files.
	chunkSize = 1024 * 1024
)

// ParseAlgorithm validates an algorithm name. Empty selects MD5.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "", MD5:
		return MD5, nil
	case XXHash:
		return XXHash, nil
	default:
		return "", fmt.Errorf("unsupported checksum algorithm %q (must be md5 or xxhash)", name)
	}
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case MD5, "":
		return md5.New(), nil //nolint:gosec
	case XXHash:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm %q", string(a))
	}
}

// DigestReader returns the hex digest of everything read from r.
func DigestReader(r io.Reader, algo Algorithm) (string, error) {
	h, err := algo.newHash()
	if err != nil {
		return "", err
	}
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("failed to read content for digest: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Digest returns the hex digest of a local file.
func Digest(path string, algo Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for digest: %w", err)
	}
	defer f.Close()

	return DigestReader(f, algo)
}

// Verify reports whether two hex digests are equal. Empty digests never
// match.
func Verify(local, remote string) bool {
	if local == "" || remote == "" {
		return false
	}
	return strings.EqualFold(local, remote)
}

// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/netSkope/s3-adls-connector/internal/s3"
	"github.com/netSkope/s3-adls-connector/internal/transfer"
	"github.com/netSkope/s3-adls-connector/internal/xfererr"
	"github.com/stretchr/testify/assert"
)

func TestListing(t *testing.T) {
	var buf bytes.Buffer
	Listing(&buf, []s3.Object{
		{Key: "a.csv", Size: 1024},
		{Key: "b.parquet", Size: 3 * 1024 * 1024},
	})

	out := buf.String()
	assert.Contains(t, out, "File Name")
	assert.Contains(t, out, "a.csv")
	assert.Contains(t, out, "1.0 KiB")
	assert.Contains(t, out, "3.0 MiB")
	assert.Contains(t, out, "2 files")
}

func TestOutcomes(t *testing.T) {
	r := &transfer.Report{
		RunID: "run-1",
		Outcomes: []transfer.Outcome{
			{Key: "a.csv", RemotePath: "raw_data/a.parquet", Converted: true, Checksum: transfer.ChecksumMatch},
			{Key: "b.csv", Err: xfererr.New(xfererr.KindNotFound, "fetch b.csv", errors.New("NoSuchKey"))},
			{Key: "c.json", RemotePath: "raw_data/c.json", Checksum: transfer.ChecksumMismatch},
		},
	}

	var buf bytes.Buffer
	Outcomes(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "raw_data/a.parquet")
	assert.Contains(t, out, "Success (converted to parquet)")
	assert.Contains(t, out, "Failed: NotFoundError: fetch b.csv: NoSuchKey")
	assert.Contains(t, out, "MISMATCH")
	assert.Contains(t, out, "Run run-1: 2 succeeded, 1 failed, 1 checksum mismatches")
}

func TestOutcomes_RunFailure(t *testing.T) {
	r := &transfer.Report{RunID: "run-2", Err: xfererr.New(xfererr.KindAuth, "check container", nil)}

	var buf bytes.Buffer
	Outcomes(&buf, r)
	assert.Contains(t, buf.String(), "Run failed: AuthError: check container")
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "Success", Status(transfer.Outcome{}))
	assert.Equal(t, "Failed: boom", Status(transfer.Outcome{Err: errors.New("boom")}))
}

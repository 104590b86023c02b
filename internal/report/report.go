// Copyright (c) 2026 Netskope, Inc. All rights reserved.

// Package report renders listings and run outcomes as text tables.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/netSkope/s3-adls-connector/internal/s3"
	"github.com/netSkope/s3-adls-connector/internal/transfer"
	"github.com/olekukonko/tablewriter"
)

// Listing writes a {File Name, Size} table with a total footer.
func Listing(w io.Writer, objects []s3.Object) {
	table := newTable(w)
	table.SetHeader([]string{"File Name", "Size"})

	var total int64
	for _, obj := range objects {
		total += obj.Size
		table.Append([]string{obj.Key, humanize.IBytes(uint64(obj.Size))})
	}
	table.SetFooter([]string{
		fmt.Sprintf("%d files", len(objects)),
		humanize.IBytes(uint64(total)),
	})
	table.Render()
}

// Outcomes writes one row per file followed by a summary line.
func Outcomes(w io.Writer, r *transfer.Report) {
	table := newTable(w)
	table.SetHeader([]string{"File Name", "Destination", "Status", "Checksum"})

	for _, o := range r.Outcomes {
		table.Append([]string{o.Key, o.RemotePath, Status(o), checksumCell(o)})
	}
	table.Render()

	fmt.Fprintf(w, "Run %s: %d succeeded, %d failed", r.RunID, r.Succeeded(), r.Failed())
	if n := r.ChecksumMismatches(); n > 0 {
		fmt.Fprintf(w, ", %d checksum mismatches", n)
	}
	if !r.Started.IsZero() && !r.Finished.IsZero() {
		fmt.Fprintf(w, " in %s", r.Finished.Sub(r.Started).Round(time.Millisecond))
	}
	fmt.Fprintln(w)
	if r.Err != nil {
		fmt.Fprintf(w, "Run failed: %v\n", r.Err)
	}
}

// Status is the operator-facing status of an outcome.
func Status(o transfer.Outcome) string {
	if o.Err != nil {
		return "Failed: " + o.Err.Error()
	}
	if o.Converted {
		return "Success (converted to parquet)"
	}
	return "Success"
}

func checksumCell(o transfer.Outcome) string {
	switch o.Checksum {
	case transfer.ChecksumMatch:
		return "Match"
	case transfer.ChecksumMismatch:
		return "MISMATCH"
	case transfer.ChecksumUnavailable:
		if o.ChecksumErr != nil {
			return "Unavailable: " + o.ChecksumErr.Error()
		}
		return "Unavailable"
	default:
		return "-"
	}
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

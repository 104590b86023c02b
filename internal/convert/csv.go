// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package convert

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// ReadCSV loads a delimited file with a header row. Every record must have
// as many fields as the header; an empty field is null.
func ReadCSV(r io.Reader, delimiter rune) (*Table, error) {
	reader := csv.NewReader(r)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = 0 // set from the header
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("file is empty or has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	names := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		names[i] = strings.TrimSpace(h)
	}

	table, err := newTable(names)
	if err != nil {
		return nil, err
	}

	vals := make([]cell, len(names))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", table.Rows+2, err)
		}

		for i, field := range record {
			if field == "" {
				vals[i] = cell{null: true}
				continue
			}
			_, isNum := parseFloat(strings.TrimSpace(field))
			vals[i] = cell{text: field, numeric: isNum}
		}
		table.appendRow(vals)
	}

	table.inferTypes()
	return table, nil
}

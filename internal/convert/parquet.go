// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package convert

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

const (
	// ColumnOrderKey is the file metadata key holding the source column names
	// as a JSON array.
	ColumnOrderKey = "s3adls.columns"

	// rowBatch bounds how many rows are buffered per WriteRows call.
	rowBatch = 1024
)

// ParseCompression maps a codec name to a parquet codec. Empty selects
// snappy.
func ParseCompression(name string) (compress.Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "snappy":
		return &parquet.Snappy, nil
	case "zstd":
		return &parquet.Zstd, nil
	case "gzip":
		return &parquet.Gzip, nil
	case "none", "uncompressed":
		return &parquet.Uncompressed, nil
	default:
		return nil, fmt.Errorf("unsupported parquet compression %q (must be snappy, zstd, gzip or none)", name)
	}
}

// BuildSchema derives an all-optional flat parquet schema from the table's
// inferred column types. Fields follow the table's column order.
func BuildSchema(t *Table) *parquet.Schema {
	group := make(parquet.Group, len(t.Columns))
	for _, c := range t.Columns {
		var node parquet.Node
		switch c.Type {
		case TypeInt64:
			node = parquet.Int(64)
		case TypeDouble:
			node = parquet.Leaf(parquet.DoubleType)
		default:
			node = parquet.String()
		}
		group[c.Name] = parquet.Optional(node)
	}

	byName := make(map[string]parquet.Field, len(group))
	for _, f := range group.Fields() {
		byName[f.Name()] = f
	}
	fields := make([]parquet.Field, len(t.Columns))
	for i, c := range t.Columns {
		fields[i] = byName[c.Name]
	}
	return parquet.NewSchema("row", orderedGroup{Group: group, fields: fields})
}

// orderedGroup is a parquet.Group whose fields come back in a fixed order
// instead of sorted by name.
type orderedGroup struct {
	parquet.Group
	fields []parquet.Field
}

func (g orderedGroup) Fields() []parquet.Field { return g.fields }

// WriteParquet encodes the table to w. parquet-go reports some failures by
// panicking, so those are recovered into errors.
func WriteParquet(w io.Writer, t *Table, codec compress.Codec) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panic: %v", r)
		}
	}()

	if len(t.Columns) == 0 {
		return ErrNoColumns
	}
	if codec == nil {
		codec = &parquet.Snappy
	}

	order, err := json.Marshal(t.ColumnNames())
	if err != nil {
		return fmt.Errorf("failed to encode column order: %w", err)
	}

	schema := BuildSchema(t)
	writer := parquet.NewGenericWriter[struct{}](w,
		schema,
		parquet.Compression(codec),
		parquet.KeyValueMetadata(ColumnOrderKey, string(order)),
	)

	// Leaf column i of a flat schema is field i.
	fields := schema.Fields()
	columns := make([]*Column, len(fields))
	for i, f := range fields {
		c, ok := t.Column(f.Name())
		if !ok {
			return fmt.Errorf("schema field %q has no column", f.Name())
		}
		columns[i] = c
	}

	rows := make([]parquet.Row, 0, rowBatch)
	for r := 0; r < t.Rows; r++ {
		row := make(parquet.Row, len(columns))
		for i, c := range columns {
			if c.IsNull(r) {
				row[i] = parquet.NullValue().Level(0, 0, i)
				continue
			}
			v, err := parquetValue(c, r)
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", r+1, c.Name, err)
			}
			row[i] = v.Level(0, 1, i)
		}
		rows = append(rows, row)

		if len(rows) == rowBatch {
			if _, err := writer.WriteRows(rows); err != nil {
				return fmt.Errorf("failed to write rows: %w", err)
			}
			rows = rows[:0]
		}
	}
	if len(rows) > 0 {
		if _, err := writer.WriteRows(rows); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func parquetValue(c *Column, r int) (parquet.Value, error) {
	text := c.Text(r)
	switch c.Type {
	case TypeInt64:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.Int64Value(n), nil
	case TypeDouble:
		f, ok := parseFloat(strings.TrimSpace(text))
		if !ok {
			return parquet.Value{}, fmt.Errorf("not a number: %q", text)
		}
		return parquet.DoubleValue(f), nil
	default:
		return parquet.ByteArrayValue([]byte(text)), nil
	}
}

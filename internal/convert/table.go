// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNoColumns is returned for input that decodes cleanly but names no
// columns, such as an empty JSON array or a list of empty objects.
var ErrNoColumns = errors.New("input has no columns")

// ColumnType is the inferred physical type of a column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInt64
	TypeDouble
)

func (t ColumnType) String() string {
	switch t {
	case TypeInt64:
		return "int64"
	case TypeDouble:
		return "double"
	default:
		return "string"
	}
}

// cell is one raw value as read from the source file.
type cell struct {
	text string
	null bool
	// numeric marks a value that may be treated as a number. CSV fields are
	// numeric candidates when they parse; JSON values only when they are JSON
	// numbers.
	numeric bool
}

// Column holds one column's raw cells and its inferred type.
type Column struct {
	Name  string
	Type  ColumnType
	cells []cell
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	return len(c.cells)
}

// IsNull reports whether row i is null.
func (c *Column) IsNull(i int) bool {
	return c.cells[i].null
}

// Text returns row i's original text.
func (c *Column) Text(i int) string {
	return c.cells[i].text
}

// Table is a column-oriented in-memory copy of a tabular file.
type Table struct {
	Columns []*Column
	Rows    int
}

func newTable(names []string) (*Table, error) {
	seen := make(map[string]struct{}, len(names))
	t := &Table{Columns: make([]*Column, 0, len(names))}
	for i, name := range names {
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		seen[name] = struct{}{}
		t.Columns = append(t.Columns, &Column{Name: name})
	}
	return t, nil
}

// appendRow adds one row; vals must have one entry per column.
func (t *Table) appendRow(vals []cell) {
	for i, c := range t.Columns {
		c.cells = append(c.cells, vals[i])
	}
	t.Rows++
}

// ColumnNames returns column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// inferTypes applies the inference policy: a column is numeric when every
// non-null cell is a numeric candidate; integral numeric columns are int64,
// the rest double. All-null columns stay strings.
func (t *Table) inferTypes() {
	for _, c := range t.Columns {
		c.Type = inferColumn(c.cells)
	}
}

func inferColumn(cells []cell) ColumnType {
	nonNull := 0
	allInt := true
	for _, v := range cells {
		if v.null {
			continue
		}
		nonNull++
		if !v.numeric {
			return TypeString
		}
		text := strings.TrimSpace(v.text)
		if _, ok := parseFloat(text); !ok {
			return TypeString
		}
		if allInt {
			if _, err := strconv.ParseInt(text, 10, 64); err != nil {
				allInt = false
			}
		}
	}
	switch {
	case nonNull == 0:
		return TypeString
	case allInt:
		return TypeInt64
	default:
		return TypeDouble
	}
}

// parseFloat accepts finite numbers only; "NaN" and "Inf" spellings are text.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

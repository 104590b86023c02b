// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package convert

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
)

// ReadJSON loads either a single JSON array of objects or one object per
// line. Columns are the union of all keys in first-seen order; a missing key
// or a JSON null is null.
func ReadJSON(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	var records []record
	if trimmed[0] == '[' {
		records, err = decodeArray(trimmed)
	} else {
		records, err = decodeLines(trimmed)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var names []string
	for _, rec := range records {
		for _, k := range rec.keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return nil, ErrNoColumns
	}

	table, err := newTable(names)
	if err != nil {
		return nil, err
	}

	vals := make([]cell, len(names))
	for i, rec := range records {
		for j, name := range names {
			v, ok := rec.values[name]
			if !ok {
				vals[j] = cell{null: true}
				continue
			}
			c, err := jsonCell(v)
			if err != nil {
				return nil, fmt.Errorf("record %d field %q: %w", i+1, name, err)
			}
			vals[j] = c
		}
		table.appendRow(vals)
	}

	table.inferTypes()
	return table, nil
}

// record is one decoded JSON object with its keys in document order.
type record struct {
	keys   []string
	values map[string]any
}

func decodeArray(data []byte) ([]record, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}

	records := make([]record, 0, len(raw))
	for i, msg := range raw {
		rec, err := decodeObject(msg)
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeLines(data []byte) ([]record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var records []record
	for {
		var msg json.RawMessage
		err := dec.Decode(&msg)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: invalid JSON: %w", len(records)+1, err)
		}
		rec, err := decodeObject(msg)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeObject(msg []byte) (record, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return record{}, fmt.Errorf("invalid JSON: %w", err)
	}
	values, ok := v.(map[string]any)
	if !ok {
		return record{}, fmt.Errorf("expected a JSON object, got %T", v)
	}

	keys, err := objectKeys(msg)
	if err != nil {
		return record{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return record{keys: keys, values: values}, nil
}

// objectKeys returns the top-level keys of a JSON object in document order.
// Duplicate keys are reported once.
func objectKeys(msg []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))

	var keys []string
	seen := make(map[string]struct{})
	depth := 0
	expectKey := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return keys, nil
		}
		if err != nil {
			return nil, err
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				depth++
				expectKey = depth == 1 && v == '{'
			case '}', ']':
				depth--
				expectKey = depth == 1
				if depth == 0 {
					return keys, nil
				}
			}
		case string:
			if depth == 1 && expectKey {
				if _, dup := seen[v]; !dup {
					seen[v] = struct{}{}
					keys = append(keys, v)
				}
				expectKey = false
				continue
			}
			if depth == 1 {
				expectKey = true
			}
		default:
			if depth == 1 {
				expectKey = true
			}
		}
	}
}

// jsonCell flattens a decoded JSON value. Nested objects and arrays keep their
// compact JSON text; booleans become "true"/"false".
func jsonCell(v any) (cell, error) {
	switch val := v.(type) {
	case nil:
		return cell{null: true}, nil
	case json.Number:
		return cell{text: val.String(), numeric: true}, nil
	case string:
		return cell{text: val}, nil
	case bool:
		return cell{text: strconv.FormatBool(val)}, nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return cell{}, err
		}
		return cell{text: string(b)}, nil
	}
}

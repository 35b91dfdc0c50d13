// Package schema reads Studio 3T schema exports into ordered column descriptors.
package schema

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Header names of the required export columns.
const (
	NameColumn      = "name"
	FieldTypeColumn = "field_type"
)

var (
	// ErrSourceUnreadable is returned when the tabular source cannot be opened or parsed.
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrMissingColumn is returned when the tabular source lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Column describes one row of a schema export.
type Column struct {
	Name      string
	FieldType string // declared type, see package mongotypes
}

// Segments returns the dot separated parts of the column name.
func (c Column) Segments() []string {
	return strings.Split(c.Name, ".")
}

// Depth returns the nesting depth of the column, 1 for top level fields.
func (c Column) Depth() int {
	return len(c.Segments())
}

// Base returns the last segment of the column name.
func (c Column) Base() string {
	segments := c.Segments()
	return segments[len(segments)-1]
}

// Schema is an export as an ordered slice of columns.
type Schema []Column

// Source loads a schema from somewhere.
type Source interface {
	Load(ctx context.Context) (Schema, error)
}

// CSVSource loads a schema from a CSV file on disk.
type CSVSource struct {
	Path string
}

// Load reads the CSV file.
func (s CSVSource) Load(_ context.Context) (Schema, error) {
	return ReadCSVFile(s.Path)
}

var _ Source = CSVSource{}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	defer f.Close()

	s, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadCSV reads a comma separated export. The first record is the header; it must contain
// the name and field_type columns, in any position. Other columns are ignored.
func ReadCSV(r io.Reader) (Schema, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrSourceUnreadable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	nameIdx, typeIdx, err := columnIndexes(header)
	if err != nil {
		return nil, err
	}

	var s Schema
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		}
		if len(rec) <= nameIdx || len(rec) <= typeIdx {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrSourceUnreadable, line, len(rec))
		}
		s = append(s, Column{Name: rec[nameIdx], FieldType: rec[typeIdx]})
	}
	return s, nil
}

func columnIndexes(header []string) (nameIdx, typeIdx int, err error) {
	nameIdx, typeIdx = -1, -1
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		switch strings.TrimSpace(h) {
		case NameColumn:
			if nameIdx < 0 {
				nameIdx = i
			}
		case FieldTypeColumn:
			if typeIdx < 0 {
				typeIdx = i
			}
		}
	}
	if nameIdx < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMissingColumn, NameColumn)
	}
	if typeIdx < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMissingColumn, FieldTypeColumn)
	}
	return nameIdx, typeIdx, nil
}

// Package jsonextract converts Studio 3T schema exports to BigQuery JSON_EXTRACT select fragments
// for change-data-capture tables that store the MongoDB record as JSON in the `after` column.
package jsonextract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spandigital/jsonextract/filter"
	"github.com/spandigital/jsonextract/mongotypes"
	"github.com/spandigital/jsonextract/schema"
)

// ErrMalformedName is returned in strict mode for column names with empty segments.
var ErrMalformedName = errors.New("malformed column name")

// CreateSQLLine returns the select fragment extracting column from the JSON document.
//
// ObjectId and Date columns get the extended JSON wrapper key appended to their path,
// Array columns are extracted with JSON_EXTRACT_ARRAY and Object columns yield an empty
// string because their leaves are exported as separate columns. Any other declared type
// is extracted as a scalar. Every fragment ends with a trailing comma.
func CreateSQLLine(column, datatype string) string {
	if mongotypes.IsContainer(datatype) {
		return ""
	}
	jsonPath, baseName := FormatJSONPath(column)

	var b strings.Builder
	fn, found := extractFunctions[datatype]
	if !found {
		fn = jsonExtract
	}
	b.WriteString(fn)
	b.WriteString("(")
	b.WriteString(documentColumn)
	b.WriteString(`, "$.`)
	b.WriteString(jsonPath)
	if key, ok := mongotypes.WrapperKey(datatype); ok {
		writeSubscript(&b, key)
	}
	b.WriteString(`" AS `)
	if alias, ok := fixedAliases[datatype]; ok {
		b.WriteString(alias)
	} else {
		b.WriteString(baseName)
	}
	b.WriteString(",")
	return b.String()
}

// CombineSQLLines removes the empty fragments produced for suppressed columns.
func CombineSQLLines(lines []string) []string {
	combined := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			combined = append(combined, line)
		}
	}
	return combined
}

// Assemble drops empty fragments and joins the rest, one per line.
func Assemble(lines []string) string {
	return strings.Join(CombineSQLLines(lines), "\n")
}

// Option configures Generate.
type Option func(*generator)

type generator struct {
	filter      *filter.Filter
	strictNames bool
}

// WithFilter skips the columns rejected by f.
func WithFilter(f *filter.Filter) Option {
	return func(g *generator) {
		g.filter = f
	}
}

// WithStrictNames rejects column names with leading, trailing or repeated dots instead of
// emitting empty [''] subscripts for them.
func WithStrictNames() Option {
	return func(g *generator) {
		g.strictNames = true
	}
}

// Generate converts a schema to select fragments, one per emitted column, in schema order.
// Nothing is returned unless every column converts.
func Generate(s schema.Schema, opts ...Option) (string, error) {
	g := &generator{}
	for _, opt := range opts {
		opt(g)
	}

	lines := make([]string, 0, len(s))
	for _, col := range s {
		if g.strictNames {
			if err := validateColumnName(col.Name); err != nil {
				return "", err
			}
		}
		if g.filter != nil {
			ok, err := g.filter.Match(col)
			if err != nil {
				return "", fmt.Errorf("column %q: %w", col.Name, err)
			}
			if !ok {
				continue
			}
		}
		lines = append(lines, CreateSQLLine(col.Name, col.FieldType))
	}
	return Assemble(lines), nil
}

// GenerateFile reads the CSV export at path and converts it with Generate.
func GenerateFile(path string, opts ...Option) (string, error) {
	s, err := schema.ReadCSVFile(path)
	if err != nil {
		return "", err
	}
	return Generate(s, opts...)
}

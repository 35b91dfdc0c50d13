package jsonextract

import (
	"strings"
)

// nestingSeparator separates nested field names in an exported column name.
const nestingSeparator = "."

// FormatJSONPath builds the BigQuery JSON path for a column and returns it together with the
// column name stripped of its parent prefixes.
//
// A top level column is returned unchanged: FormatJSONPath("a") == ("a", "a").
// Nested columns keep the first segment as the path root and access every following
// segment with a quoted subscript: FormatJSONPath("a.b.c") == ("a['b']['c']", "c").
// Empty segments are not rejected and produce a literal [''] subscript.
func FormatJSONPath(columnName string) (jsonPath, baseName string) {
	if !strings.Contains(columnName, nestingSeparator) {
		return columnName, columnName
	}

	segments := strings.Split(columnName, nestingSeparator)
	var b strings.Builder
	b.WriteString(segments[0])
	for _, segment := range segments[1:] {
		writeSubscript(&b, segment)
	}
	return b.String(), segments[len(segments)-1]
}

// writeSubscript appends a quoted map key accessor, ['key'], to b.
func writeSubscript(b *strings.Builder, key string) {
	b.WriteString("['")
	b.WriteString(key)
	b.WriteString("']")
}

// Package pg provides a PostgreSQL schema source reading exports loaded into a database table.
package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spandigital/jsonextract/filter"
	"github.com/spandigital/jsonextract/schema"
)

// Querier is the subset of pgxpool.Pool used by Source.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithOrderColumn orders rows by column. Without it rows come back in physical table order.
func WithOrderColumn(column string) SourceOption {
	return func(s *Source) {
		s.orderBy = column
	}
}

// WithFilter restricts the loaded columns. When the predicate can be expressed in SQL it is
// evaluated by the database, otherwise rows are filtered after loading.
func WithFilter(f *filter.Filter) SourceOption {
	return func(s *Source) {
		s.filter = f
	}
}

// Source loads a schema export from a table with name and field_type columns.
type Source struct {
	table   string
	orderBy string
	filter  *filter.Filter
	db      Querier
	pool    *pgxpool.Pool
}

// NewSource creates a Source that reads table through db.
func NewSource(db Querier, table string, opts ...SourceOption) *Source {
	s := &Source{db: db, table: table}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSourceWithConnection creates a Source backed by its own connection pool.
func NewSourceWithConnection(ctx context.Context, connectionString, table string, opts ...SourceOption) (*Source, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create connection pool: %w", schema.ErrSourceUnreadable, err)
	}
	s := NewSource(pool, table, opts...)
	s.pool = pool
	return s, nil
}

// Close closes the connection pool, if the Source owns one.
func (s *Source) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// columnsQuery lists the columns of the relation $1 resolves to, using the same
// search_path lookup as the row query.
const columnsQuery = `
		SELECT attname::text
		FROM pg_catalog.pg_attribute
		WHERE attrelid = to_regclass($1) AND attnum > 0 AND NOT attisdropped
		ORDER BY attnum
	`

// Load reads the export rows.
func (s *Source) Load(ctx context.Context) (schema.Schema, error) {
	if err := s.checkColumns(ctx); err != nil {
		return nil, err
	}

	query, postFilter := s.selectQuery()
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query table %s: %w", schema.ErrSourceUnreadable, s.table, err)
	}
	defer rows.Close()

	var out schema.Schema
	for rows.Next() {
		var col schema.Column
		if err := rows.Scan(&col.Name, &col.FieldType); err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %w", schema.ErrSourceUnreadable, err)
		}
		out = append(out, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating rows: %w", schema.ErrSourceUnreadable, err)
	}

	if postFilter {
		return s.filter.Apply(out)
	}
	return out, nil
}

// checkColumns verifies the table exists and has the required columns.
func (s *Source) checkColumns(ctx context.Context) error {
	rows, err := s.db.Query(ctx, columnsQuery, tableIdentifier(s.table).Sanitize())
	if err != nil {
		return fmt.Errorf("%w: failed to query table columns: %w", schema.ErrSourceUnreadable, err)
	}
	columns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("%w: failed to scan table columns: %w", schema.ErrSourceUnreadable, err)
	}
	if len(columns) == 0 {
		return fmt.Errorf("%w: table %s not found", schema.ErrSourceUnreadable, s.table)
	}

	for _, required := range []string{schema.NameColumn, schema.FieldTypeColumn} {
		found := false
		for _, c := range columns {
			if c == required {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %q in table %s", schema.ErrMissingColumn, required, s.table)
		}
	}
	return nil
}

// selectQuery builds the row query. postFilter reports whether the filter still has to be
// applied to the result.
func (s *Source) selectQuery() (query string, postFilter bool) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(pgx.Identifier{schema.NameColumn}.Sanitize())
	b.WriteString(", ")
	b.WriteString(pgx.Identifier{schema.FieldTypeColumn}.Sanitize())
	b.WriteString(" FROM ")
	b.WriteString(tableIdentifier(s.table).Sanitize())

	if s.filter != nil {
		if where, err := s.filter.SQL(); err == nil {
			b.WriteString(" WHERE ")
			b.WriteString(where)
		} else {
			postFilter = true
		}
	}

	if s.orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(pgx.Identifier{s.orderBy}.Sanitize())
	}
	return b.String(), postFilter
}

// tableIdentifier splits an optionally schema qualified table name at its first dot.
func tableIdentifier(table string) pgx.Identifier {
	if i := strings.IndexByte(table, '.'); i >= 0 {
		return pgx.Identifier{table[:i], table[i+1:]}
	}
	return pgx.Identifier{table}
}

var _ schema.Source = (*Source)(nil)

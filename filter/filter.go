// Package filter selects schema columns with CEL (Common Expression Language) predicates.
//
// A predicate sees four variables for every column:
//
//	name        the full dotted column name
//	field_type  the declared type
//	base        the last segment of the name
//	depth       the number of name segments
//
// For example `field_type != "Object" && !name.startsWith("_")`.
package filter

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/spandigital/jsonextract/schema"
)

// Variable names available to predicates.
const (
	VarName      = "name"
	VarFieldType = "field_type"
	VarBase      = "base"
	VarDepth     = "depth"
)

var (
	// ErrNotBoolean is returned when a predicate does not evaluate to a bool.
	ErrNotBoolean = errors.New("filter expression must be boolean")
	// ErrUnsupported is returned when a predicate cannot be rendered as SQL.
	ErrUnsupported = errors.New("unsupported in SQL")
)

// Filter is a compiled column predicate. It is safe for concurrent use.
type Filter struct {
	source string
	ast    *cel.Ast
	prg    cel.Program
}

// NewEnv returns the CEL environment predicates are compiled in.
func NewEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable(VarName, cel.StringType),
		cel.Variable(VarFieldType, cel.StringType),
		cel.Variable(VarBase, cel.StringType),
		cel.Variable(VarDepth, cel.IntType),
	)
}

// Compile parses and type checks expr.
func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return nil, errors.New("empty filter expression")
	}
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling filter %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q has type %s", ErrNotBoolean, expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("building filter program: %w", err)
	}
	return &Filter{source: expr, ast: ast, prg: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.source
}

// Match evaluates the predicate for col.
func (f *Filter) Match(col schema.Column) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{
		VarName:      col.Name,
		VarFieldType: col.FieldType,
		VarBase:      col.Base(),
		VarDepth:     int64(col.Depth()),
	})
	if err != nil {
		return false, fmt.Errorf("evaluating filter %q: %w", f.source, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrNotBoolean, out.Value())
	}
	return b, nil
}

// Apply returns the columns of s matched by the predicate, in order.
func (f *Filter) Apply(s schema.Schema) (schema.Schema, error) {
	matched := make(schema.Schema, 0, len(s))
	for _, col := range s {
		ok, err := f.Match(col)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, col)
		}
	}
	return matched, nil
}

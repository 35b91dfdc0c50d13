package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/overloads"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// identSQL maps predicate variables to PostgreSQL expressions over the export table.
var identSQL = map[string]string{
	VarName:      "name",
	VarFieldType: "field_type",
	VarBase:      `regexp_replace(name, '^.*\.', '')`,
	VarDepth:     `(length(name) - length(replace(name, '.', '')) + 1)`,
}

// comparisonOperators maps CEL comparison operators to PostgreSQL operators.
var comparisonOperators = map[string]string{
	operators.Equals:        "=",
	operators.NotEquals:     "!=",
	operators.Less:          "<",
	operators.LessEquals:    "<=",
	operators.Greater:       ">",
	operators.GreaterEquals: ">=",
}

// logicalOperators maps CEL logical operators to PostgreSQL operators.
var logicalOperators = map[string]string{
	operators.LogicalAnd: "AND",
	operators.LogicalOr:  "OR",
}

// likePatterns maps string functions to the LIKE pattern wrapping their argument.
var likePatterns = map[string]string{
	overloads.StartsWith: "%s%%",
	overloads.EndsWith:   "%%%s",
	overloads.Contains:   "%%%s%%",
}

// SQL renders the predicate as a PostgreSQL condition over the name and field_type columns.
// Expressions outside the supported subset return ErrUnsupported.
//
// matches is rendered with the POSIX ~ operator, whose syntax differs from RE2 for escapes and
// (?...) groups. Only literal patterns free of both are rendered; others return ErrUnsupported.
func (f *Filter) SQL() (string, error) {
	checkedExpr, err := cel.AstToCheckedExpr(f.ast)
	if err != nil {
		return "", err
	}
	con := &converter{}
	if err := con.visit(checkedExpr.Expr); err != nil {
		return "", err
	}
	return con.str.String(), nil
}

type converter struct {
	str strings.Builder
}

func (con *converter) visit(expr *exprpb.Expr) error {
	switch expr.ExprKind.(type) {
	case *exprpb.Expr_CallExpr:
		return con.visitCall(expr)
	case *exprpb.Expr_ConstExpr:
		return con.visitConst(expr)
	case *exprpb.Expr_IdentExpr:
		return con.visitIdent(expr)
	}
	return fmt.Errorf("%w: %v", ErrUnsupported, expr)
}

func (con *converter) visitCall(expr *exprpb.Expr) error {
	c := expr.GetCallExpr()
	fun := c.GetFunction()
	args := c.GetArgs()
	if op, found := logicalOperators[fun]; found {
		con.str.WriteString("(")
		if err := con.visitBinary(args[0], op, args[1], false); err != nil {
			return err
		}
		con.str.WriteString(")")
		return nil
	}
	if op, found := comparisonOperators[fun]; found {
		return con.visitBinary(args[0], op, args[1], true)
	}
	switch fun {
	case operators.LogicalNot:
		con.str.WriteString("NOT (")
		if err := con.visit(args[0]); err != nil {
			return err
		}
		con.str.WriteString(")")
		return nil
	case operators.In:
		return con.visitIn(args[0], args[1])
	case overloads.StartsWith, overloads.EndsWith, overloads.Contains:
		if c.GetTarget() == nil || len(args) != 1 {
			return fmt.Errorf("%w: %s without receiver", ErrUnsupported, fun)
		}
		return con.visitLike(fun, c.GetTarget(), args[0])
	case overloads.Matches:
		target, pattern := c.GetTarget(), args[0]
		if target == nil {
			if len(args) != 2 {
				return fmt.Errorf("%w: %s arity", ErrUnsupported, fun)
			}
			target, pattern = args[0], args[1]
		}
		if !isPortableRegexp(pattern) {
			return fmt.Errorf("%w: %s pattern must be a literal without escapes or (?...) groups", ErrUnsupported, fun)
		}
		return con.visitBinary(target, "~", pattern, true)
	}
	return fmt.Errorf("%w: function %s", ErrUnsupported, fun)
}

// visitBinary writes lhs op rhs. With nestCalls, call operands are parenthesized since
// PostgreSQL comparison operators do not chain.
func (con *converter) visitBinary(lhs *exprpb.Expr, op string, rhs *exprpb.Expr, nestCalls bool) error {
	if err := con.visitMaybeNested(lhs, nestCalls && isCall(lhs)); err != nil {
		return err
	}
	con.str.WriteString(" ")
	con.str.WriteString(op)
	con.str.WriteString(" ")
	return con.visitMaybeNested(rhs, nestCalls && isCall(rhs))
}

func (con *converter) visitMaybeNested(expr *exprpb.Expr, nested bool) error {
	if nested {
		con.str.WriteString("(")
	}
	if err := con.visit(expr); err != nil {
		return err
	}
	if nested {
		con.str.WriteString(")")
	}
	return nil
}

// isCall checks if an expression is a function or operator call
func isCall(expr *exprpb.Expr) bool {
	_, ok := expr.ExprKind.(*exprpb.Expr_CallExpr)
	return ok
}

// isPortableRegexp checks if expr is a string literal that RE2 and PostgreSQL regular
// expressions read the same way
func isPortableRegexp(expr *exprpb.Expr) bool {
	c := expr.GetConstExpr()
	if c == nil {
		return false
	}
	if _, ok := c.ConstantKind.(*exprpb.Constant_StringValue); !ok {
		return false
	}
	pattern := c.GetStringValue()
	return !strings.Contains(pattern, `\`) && !strings.Contains(pattern, "(?")
}

func (con *converter) visitIn(elem, list *exprpb.Expr) error {
	l := list.GetListExpr()
	if l == nil {
		return fmt.Errorf("%w: in operand must be a list literal", ErrUnsupported)
	}
	elems := l.GetElements()
	if len(elems) == 0 {
		con.str.WriteString("FALSE")
		return nil
	}
	if err := con.visitMaybeNested(elem, isCall(elem)); err != nil {
		return err
	}
	con.str.WriteString(" IN (")
	for i, e := range elems {
		if i > 0 {
			con.str.WriteString(", ")
		}
		if err := con.visit(e); err != nil {
			return err
		}
	}
	con.str.WriteString(")")
	return nil
}

func (con *converter) visitLike(fun string, target, arg *exprpb.Expr) error {
	lit := arg.GetConstExpr()
	if lit == nil {
		return fmt.Errorf("%w: %s argument must be a string literal", ErrUnsupported, fun)
	}
	if _, ok := lit.ConstantKind.(*exprpb.Constant_StringValue); !ok {
		return fmt.Errorf("%w: %s argument must be a string literal", ErrUnsupported, fun)
	}
	if err := con.visit(target); err != nil {
		return err
	}
	con.str.WriteString(" LIKE ")
	writeStringLiteral(&con.str, fmt.Sprintf(likePatterns[fun], escapeLike(lit.GetStringValue())))
	return nil
}

func (con *converter) visitConst(expr *exprpb.Expr) error {
	c := expr.GetConstExpr()
	switch c.ConstantKind.(type) {
	case *exprpb.Constant_BoolValue:
		if c.GetBoolValue() {
			con.str.WriteString("TRUE")
		} else {
			con.str.WriteString("FALSE")
		}
	case *exprpb.Constant_Int64Value:
		con.str.WriteString(strconv.FormatInt(c.GetInt64Value(), 10))
	case *exprpb.Constant_StringValue:
		writeStringLiteral(&con.str, c.GetStringValue())
	default:
		return fmt.Errorf("%w: constant %v", ErrUnsupported, c)
	}
	return nil
}

func (con *converter) visitIdent(expr *exprpb.Expr) error {
	name := expr.GetIdentExpr().GetName()
	sql, found := identSQL[name]
	if !found {
		return fmt.Errorf("%w: identifier %s", ErrUnsupported, name)
	}
	con.str.WriteString(sql)
	return nil
}

// writeStringLiteral writes s as a single quoted PostgreSQL string, doubling embedded quotes.
func writeStringLiteral(b *strings.Builder, s string) {
	b.WriteString("'")
	b.WriteString(strings.ReplaceAll(s, "'", "''"))
	b.WriteString("'")
}

// escapeLike escapes the LIKE wildcards of s with the default backslash escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

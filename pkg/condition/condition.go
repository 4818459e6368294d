// Package condition implements the boolean expression language used by if and
// elif nodes. Expressions reference submitted form values as form.field and are
// evaluated against a Scope.
package condition

import (
	"fmt"
)

// Ref is a form.field variable reference.
type Ref struct {
	Form  string
	Field string
}

func (r Ref) String() string {
	return r.Form + "." + r.Field
}

// Expression is a parsed condition ready to be evaluated many times.
type Expression struct {
	source string
	root   node
	refs   []Ref
}

// Parse lexes and parses src.
func Parse(src string) (*Expression, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}

	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if tok := p.current(); tok.kind != tokenEOF {
		return nil, &ParseError{Pos: tok.pos, Found: tok.describe(), Expected: "end of expression"}
	}

	return &Expression{source: src, root: root, refs: p.refs}, nil
}

func (e *Expression) String() string {
	return e.source
}

// Refs returns every variable the expression reads, in source order.
func (e *Expression) Refs() []Ref {
	return e.refs
}

// Eval evaluates the expression. Any unresolved reference fails with an
// UndefinedVariableError before evaluation starts.
func (e *Expression) Eval(scope *Scope) (bool, error) {
	err := Check(e, scope)
	if err != nil {
		return false, err
	}

	value, err := e.root.eval(scope)
	if err != nil {
		return false, err
	}

	return truthy(value), nil
}

// Check verifies every reference of expr resolves in scope.
func Check(expr *Expression, scope *Scope) error {
	for _, ref := range expr.refs {
		if !scope.Has(ref.Form, ref.Field) {
			return &UndefinedVariableError{Ref: ref.String()}
		}
	}

	return nil
}

// Evaluate parses and evaluates src in one call.
func Evaluate(src string, scope *Scope) (bool, error) {
	expr, err := Parse(src)
	if err != nil {
		return false, fmt.Errorf("failed to parse condition: %w", err)
	}

	return expr.Eval(scope)
}

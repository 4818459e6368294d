package condition

import (
	"errors"
	"fmt"
)

// LexError reports a character that cannot start any token.
type LexError struct {
	Pos  int
	Char rune
}

func (e *LexError) Error() string {
	return fmt.Sprintf("unexpected character %q at position %d", e.Char, e.Pos)
}

// ParseError reports a token sequence that does not match the grammar.
type ParseError struct {
	Pos      int
	Found    string
	Expected string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("expected %s at position %d, found %s", e.Expected, e.Pos, e.Found)
}

// GrammarError reports a construct that parses but is not allowed, such as
// a variable that is not written as form.field.
type GrammarError struct {
	Pos     int
	Message string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}

type UndefinedVariableError struct {
	Ref string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("variable used in if is not defined '%s'", e.Ref)
}

type EvaluationError struct {
	Message string
}

func (e *EvaluationError) Error() string {
	return "failed to evaluate condition: " + e.Message
}

func IsLexError(err error) bool {
	var target *LexError

	return errors.As(err, &target)
}

func IsParseError(err error) bool {
	var target *ParseError

	return errors.As(err, &target)
}

func IsGrammarError(err error) bool {
	var target *GrammarError

	return errors.As(err, &target)
}

func IsUndefinedVariable(err error) bool {
	var target *UndefinedVariableError

	return errors.As(err, &target)
}

func IsEvaluationError(err error) bool {
	var target *EvaluationError

	return errors.As(err, &target)
}

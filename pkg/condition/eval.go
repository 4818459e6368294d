package condition

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type node interface {
	eval(scope *Scope) (any, error)
}

type literalNode struct {
	value any
}

func (n *literalNode) eval(*Scope) (any, error) {
	return n.value, nil
}

type listNode struct {
	items []node
}

func (n *listNode) eval(scope *Scope) (any, error) {
	values := make([]any, 0, len(n.items))

	for _, item := range n.items {
		value, err := item.eval(scope)
		if err != nil {
			return nil, err
		}

		values = append(values, value)
	}

	return values, nil
}

type refNode struct {
	ref Ref
}

func (n *refNode) eval(scope *Scope) (any, error) {
	value, ok := scope.Lookup(n.ref.Form, n.ref.Field)
	if !ok {
		return nil, &UndefinedVariableError{Ref: n.ref.String()}
	}

	return value, nil
}

type notNode struct {
	operand node
}

func (n *notNode) eval(scope *Scope) (any, error) {
	value, err := n.operand.eval(scope)
	if err != nil {
		return nil, err
	}

	return !truthy(value), nil
}

type logicalNode struct {
	op    string
	left  node
	right node
}

func (n *logicalNode) eval(scope *Scope) (any, error) {
	left, err := n.left.eval(scope)
	if err != nil {
		return nil, err
	}

	if n.op == "or" && truthy(left) {
		return true, nil
	}

	if n.op == "and" && !truthy(left) {
		return false, nil
	}

	right, err := n.right.eval(scope)
	if err != nil {
		return nil, err
	}

	return truthy(right), nil
}

type compareNode struct {
	op    string
	left  node
	right node
	pos   int
}

func (n *compareNode) eval(scope *Scope) (any, error) {
	left, err := n.left.eval(scope)
	if err != nil {
		return nil, err
	}

	right, err := n.right.eval(scope)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case "in":
		return contains(right, left, n.pos)
	}

	return order(n.op, left, right, n.pos)
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case float64:
		return typed != 0
	case []any:
		return len(typed) > 0
	}

	number, ok := toNumber(value)
	if ok {
		return number != 0
	}

	return true
}

func equal(left, right any) bool {
	if isNumber(left) || isNumber(right) {
		leftNumber, leftOK := toNumber(left)
		rightNumber, rightOK := toNumber(right)

		if leftOK && rightOK {
			return leftNumber == rightNumber
		}
	}

	leftString, leftOK := left.(string)
	rightString, rightOK := right.(string)

	if leftOK && rightOK {
		return leftString == rightString
	}

	return reflect.DeepEqual(left, right)
}

func contains(haystack, needle any, pos int) (bool, error) {
	switch typed := haystack.(type) {
	case []any:
		for _, item := range typed {
			if equal(item, needle) {
				return true, nil
			}
		}

		return false, nil
	case []string:
		for _, item := range typed {
			if equal(item, needle) {
				return true, nil
			}
		}

		return false, nil
	case string:
		return strings.Contains(typed, fmt.Sprint(needle)), nil
	}

	return false, &EvaluationError{Message: fmt.Sprintf("right side of 'in' at position %d is not a list", pos)}
}

func order(op string, left, right any, pos int) (bool, error) {
	leftNumber, leftOK := toNumber(left)
	rightNumber, rightOK := toNumber(right)

	if leftOK && rightOK {
		return compareOrdered(op, leftNumber, rightNumber), nil
	}

	return false, &EvaluationError{Message: fmt.Sprintf("cannot order %v and %v with '%s' at position %d", left, right, op, pos)}
}

func compareOrdered(op string, left, right float64) bool {
	switch op {
	case "<":
		return left < right
	case "<=":
		return left <= right
	case ">":
		return left > right
	default:
		return left >= right
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int32, int64:
		return true
	}

	return false
}

func toNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		number, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}

		return number, true
	}

	return 0, false
}

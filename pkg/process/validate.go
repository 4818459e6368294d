package process

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dukex/pvm/pkg/condition"
)

var (
	identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	fieldNamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// IsIdentifier reports whether s is a valid node, form or field identifier.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

type checker struct {
	file     string
	problems []Problem
	ids      map[string]bool
	actors   map[string]bool
	forms    map[string]*FormSpec
}

// validate walks the node tree in document order, keeping a condition scope
// of the forms declared so far so every reference is checked where it is
// evaluated at runtime.
func validate(file string, nodes []*NodeSpec) []Problem {
	c := &checker{
		file:   file,
		ids:    map[string]bool{},
		actors: map[string]bool{},
		forms:  map[string]*FormSpec{},
	}

	c.block(nodes, condition.NewScope())

	return c.problems
}

func (c *checker) report(line int, format string, args ...any) {
	c.problems = append(c.problems, Problem{File: c.file, Line: line, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) block(list []*NodeSpec, scope *condition.Scope) {
	for i, spec := range list {
		c.id(spec)

		switch spec.Type {
		case NodeTypeIf, NodeTypeElif, NodeTypeElse:
			if spec.Type != NodeTypeIf && (i == 0 || (list[i-1].Type != NodeTypeIf && list[i-1].Type != NodeTypeElif)) {
				c.report(spec.Line, "%s must follow an if or elif node", spec.Type)
			}

			if spec.Type != NodeTypeElse {
				c.condition(spec, scope)
			}

			scope.Push()
			c.block(spec.Block, scope)
			scope.Pop()
		case NodeTypeParallel:
			if len(spec.Branches) < 2 {
				c.report(spec.Line, "Parallel nodes need at least two branches")
			}

			for _, branch := range spec.Branches {
				scope.Push()
				c.block(branch, scope)
				scope.Pop()
			}
		default:
			c.authFilter(spec, scope)
			c.checkForms(spec, scope)
			c.dependencies(spec, scope)

			if spec.Type != NodeTypeExit {
				c.actors[spec.ID] = true
			}
		}
	}
}

func (c *checker) id(spec *NodeSpec) {
	switch {
	case spec.ID == "":
		c.report(spec.Line, "All nodes must have an id")
	case !IsIdentifier(spec.ID):
		c.report(spec.IDLine, "Id must be a valid variable name")
	case c.ids[spec.ID]:
		c.report(spec.IDLine, "Duplicated id: '%s'", spec.ID)
	default:
		c.ids[spec.ID] = true
	}
}

func (c *checker) condition(spec *NodeSpec, scope *condition.Scope) {
	expression, err := condition.Parse(spec.Condition)

	switch {
	case condition.IsLexError(err):
		c.report(spec.ConditionLine, "Lex error in condition")

		return
	case condition.IsGrammarError(err):
		c.report(spec.ConditionLine, "Grammar error in condition")

		return
	case err != nil:
		c.report(spec.ConditionLine, "Parse error in condition")

		return
	}

	spec.Expression = expression

	for _, ref := range expression.Refs() {
		if !scope.Has(ref.Form, ref.Field) {
			c.report(spec.ConditionLine, "variable used in if is not defined '%s'", ref)
		}
	}
}

func (c *checker) authFilter(spec *NodeSpec, scope *condition.Scope) {
	if spec.AuthFilter == nil {
		return
	}

	if spec.AuthFilter.Backend == "" {
		c.report(spec.AuthFilter.Line, "Auth filters need a backend")
	}

	for _, param := range spec.AuthFilter.Params {
		if param.Type != ParamTypeRef {
			continue
		}

		kind, target, _ := strings.Cut(param.Value, "#")

		switch kind {
		case RefKindUser:
			if !c.actors[target] {
				c.report(param.Line, "Referenced user is never created: %s", target)
			}
		case RefKindForm:
			form, field, ok := strings.Cut(target, ".")
			if !ok || !scope.Has(form, field) {
				c.report(param.Line, "Referenced param does not exist '%s'", target)
			}
		default:
			c.report(param.Line, "Referenced param does not exist '%s'", param.Value)
		}
	}
}

func (c *checker) checkForms(spec *NodeSpec, scope *condition.Scope) {
	for _, form := range spec.Forms {
		if form.Ref != "" {
			if !IsIdentifier(form.Ref) {
				c.report(form.Line, "Form refs must be valid variable names")
			} else if len(form.Inputs) == 0 {
				referenced, ok := c.forms[form.Ref]
				if !ok {
					c.report(form.Line, "Referenced form does not exist '%s'", form.Ref)
				} else {
					form.Inputs = referenced.Inputs
				}
			}

			if form.ID == "" {
				form.ID = form.Ref
			}
		}

		if !IsIdentifier(form.ID) {
			c.report(form.Line, "Form ids must be valid variable names")

			continue
		}

		for _, input := range form.Inputs {
			if !fieldNamePattern.MatchString(input.Name) {
				c.report(input.Line, "Field names must match [a-zA-Z0-9_]+")
			}

			if input.Regex != "" {
				_, err := regexp.Compile(input.Regex)
				if err != nil {
					c.report(input.Line, "Invalid regex in field '%s'", input.Name)
				}
			}
		}

		c.forms[form.ID] = form
		scope.Set(form.ID, form.Defaults())
	}
}

func (c *checker) dependencies(spec *NodeSpec, scope *condition.Scope) {
	for _, dependency := range spec.Dependencies {
		form, field, ok := strings.Cut(dependency.Ref, ".")
		if !ok || !scope.Has(form, field) {
			c.report(dependency.Line, "Referenced dependency does not exist '%s'", dependency.Ref)
		}
	}
}

// Package template renders execution names and descriptions from the form
// data collected by an execution.
package template

import (
	"fmt"
	"maps"
	"strings"
	"text/template"
	"text/template/parse"
	"time"
)

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"default": func(fallback, value any) any {
		if value == nil || value == "" {
			return fallback
		}

		return value
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

// Render executes templateStr against data. Missing keys render empty.
func Render(templateStr string, data any) (string, error) {
	if !strings.Contains(templateStr, "{{") {
		return templateStr, nil
	}

	tmpl, err := template.New("name").Funcs(funcs).Option("missingkey=zero").Parse(templateStr)
	if err != nil {
		return templateStr, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	if fields, ok := data.(map[string]any); ok || data == nil {
		data = seed(tmpl.Tree.Root, maps.Clone(fields))
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return templateStr, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return strings.ReplaceAll(strings.TrimSpace(buf.String()), "<no value>", ""), nil
}

// RenderForms renders templateStr with form data keyed as form -> field -> value,
// so templates read values as {{ .form.field }}.
func RenderForms(templateStr string, forms map[string]map[string]any) (string, error) {
	data := make(map[string]any, len(forms))
	for form, fields := range forms {
		data[form] = fields
	}

	return Render(templateStr, data)
}

// seed fills in an empty map for every intermediate key a field chain in
// node walks through, so {{ .form.field }} renders empty instead of failing
// when form is absent.
func seed(node parse.Node, data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}

	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return data
		}

		for _, child := range n.Nodes {
			data = seed(child, data)
		}
	case *parse.ActionNode:
		data = seed(n.Pipe, data)
	case *parse.PipeNode:
		if n == nil {
			return data
		}

		for _, cmd := range n.Cmds {
			data = seed(cmd, data)
		}
	case *parse.CommandNode:
		for _, arg := range n.Args {
			data = seed(arg, data)
		}
	case *parse.IfNode:
		data = seed(n.Pipe, data)
		data = seed(n.List, data)
		data = seed(n.ElseList, data)
	case *parse.WithNode:
		data = seed(n.Pipe, data)
	case *parse.RangeNode:
		data = seed(n.Pipe, data)
	case *parse.TemplateNode:
		data = seed(n.Pipe, data)
	case *parse.FieldNode:
		data = ensure(data, n.Ident)
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			data = ensure(data, n.Ident[1:])
		}
	}

	return data
}

func ensure(data map[string]any, path []string) map[string]any {
	if len(path) < 2 {
		return data
	}

	switch child := data[path[0]].(type) {
	case nil:
		data[path[0]] = ensure(map[string]any{}, path[1:])
	case map[string]any:
		data[path[0]] = ensure(maps.Clone(child), path[1:])
	}

	return data
}

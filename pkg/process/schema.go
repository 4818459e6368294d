package process

import (
	_ "embed"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed process.schema.json
var schemaSource string

var schemaLoader = gojsonschema.NewStringLoader(schemaSource)

// schemaProblems checks the structure of a definition before it is decoded.
func schemaProblems(file string, root *yaml.Node) []Problem {
	var document any

	err := root.Decode(&document)
	if err != nil {
		return []Problem{{File: file, Line: root.Line, Message: err.Error()}}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(document))
	if err != nil {
		return []Problem{{File: file, Line: root.Line, Message: "failed to validate structure: " + err.Error()}}
	}

	problems := make([]Problem, 0, len(result.Errors()))

	for _, resultError := range result.Errors() {
		// oneOf/anyOf summaries repeat the detailed errors
		if resultError.Type() == "number_one_of" || resultError.Type() == "number_any_of" {
			continue
		}

		problems = append(problems, Problem{
			File:    file,
			Line:    pathLine(root, resultError.Field()),
			Message: "Invalid structure at " + resultError.Field() + ": " + resultError.Description(),
		})
	}

	return problems
}

// pathLine walks a gojsonschema field path such as "nodes.0.action.id" and
// returns the line of the deepest node it reaches.
func pathLine(root *yaml.Node, path string) int {
	line := root.Line
	current := root

	if path == "(root)" || path == "" {
		return line
	}

	for _, part := range strings.Split(path, ".") {
		var next *yaml.Node

		switch current.Kind {
		case yaml.MappingNode:
			for i := 0; i+1 < len(current.Content); i += 2 {
				if current.Content[i].Value == part {
					line = current.Content[i].Line
					next = current.Content[i+1]
				}
			}
		case yaml.SequenceNode:
			index, err := strconv.Atoi(part)
			if err == nil && index < len(current.Content) {
				next = current.Content[index]
				line = next.Line
			}
		}

		if next == nil {
			return line
		}

		current = next
	}

	return line
}

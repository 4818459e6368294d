package process

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	fileNamePattern  = regexp.MustCompile(`^([^.]+)\.([^.]+)\.ya?ml$`)
	yamlLinePattern  = regexp.MustCompile(`line (\d+)`)
	headerAttributes = []string{"public", "author", "date", "name", "description"}
)

type rawNode struct {
	ID           string        `yaml:"id"`
	Info         NodeInfo      `yaml:"node-info"`
	AuthFilter   *AuthFilter   `yaml:"auth-filter"`
	Forms        []*FormSpec   `yaml:"form-array"`
	Dependencies []*Dependency `yaml:"dependencies"`
	Condition    string        `yaml:"condition"`
	Block        yaml.Node     `yaml:"block"`
	Branches     []yaml.Node   `yaml:"branches"`
}

func (i *InputSpec) UnmarshalYAML(value *yaml.Node) error {
	type plain InputSpec

	err := value.Decode((*plain)(i))
	if err != nil {
		return err
	}

	i.Line = keyLine(value, "name")

	return nil
}

func (f *FormSpec) UnmarshalYAML(value *yaml.Node) error {
	type plain FormSpec

	err := value.Decode((*plain)(f))
	if err != nil {
		return err
	}

	f.Line = value.Line

	return nil
}

func (p *Param) UnmarshalYAML(value *yaml.Node) error {
	type plain Param

	err := value.Decode((*plain)(p))
	if err != nil {
		return err
	}

	p.Line = keyLine(value, "value")

	return nil
}

func (a *AuthFilter) UnmarshalYAML(value *yaml.Node) error {
	type plain AuthFilter

	err := value.Decode((*plain)(a))
	if err != nil {
		return err
	}

	a.Line = value.Line

	return nil
}

func (d *Dependency) UnmarshalYAML(value *yaml.Node) error {
	d.Line = value.Line

	return value.Decode(&d.Ref)
}

// Load resolves name in dir and loads it. name is either "<id>", which picks
// the latest version, or "<id>.<version>".
func Load(dir, name string) (*Definition, error) {
	path, err := Resolve(dir, name)
	if err != nil {
		return nil, err
	}

	return LoadFile(path)
}

// Resolve finds the file backing name in dir.
func Resolve(dir, name string) (string, error) {
	if strings.Contains(name, ".") {
		for _, extension := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+extension)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		return "", fmt.Errorf("%w: %s", ErrProcessNotFound, name)
	}

	versions, err := versionsOf(dir, name)
	if err != nil {
		return "", err
	}

	if len(versions) == 0 {
		return "", fmt.Errorf("%w: %s", ErrProcessNotFound, name)
	}

	return versions[0].path, nil
}

type versionFile struct {
	id      string
	version string
	path    string
}

// versionsOf lists the files of process id, latest version first. An empty
// id lists every process in dir.
func versionsOf(dir, id string) ([]versionFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read processes directory: %w", err)
	}

	var files []versionFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		match := fileNamePattern.FindStringSubmatch(entry.Name())
		if match == nil || (id != "" && match[1] != id) {
			continue
		}

		files = append(files, versionFile{id: match[1], version: match[2], path: filepath.Join(dir, entry.Name())})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].id != files[j].id {
			return files[i].id < files[j].id
		}

		return files[i].version > files[j].version
	})

	return files, nil
}

// LoadFile loads and validates a single definition file.
func LoadFile(path string) (*Definition, error) {
	base := filepath.Base(path)

	match := fileNamePattern.FindStringSubmatch(base)
	if match == nil {
		return nil, &MalformedProcessError{
			File:     path,
			Problems: []Problem{{File: path, Line: 0, Message: "File name must have the form <id>.<version>.yaml"}},
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProcessNotFound, base)
		}

		return nil, fmt.Errorf("failed to read process file: %w", err)
	}

	header, nodes, problems := parse(path, data)
	if len(problems) > 0 {
		return nil, &MalformedProcessError{File: path, Problems: problems}
	}

	return newDefinition(match[1], match[2], path, header, nodes), nil
}

// ValidateFile returns every problem found in the file at path.
func ValidateFile(path string) []Problem {
	data, err := os.ReadFile(path)
	if err != nil {
		return []Problem{{File: path, Line: 0, Message: err.Error()}}
	}

	_, _, problems := parse(path, data)

	return problems
}

func parse(file string, data []byte) (Header, []*NodeSpec, []Problem) {
	var header Header

	var document yaml.Node

	err := yaml.Unmarshal(data, &document)
	if err != nil {
		return header, nil, []Problem{{File: file, Line: yamlErrorLine(err), Message: err.Error()}}
	}

	if document.Kind != yaml.DocumentNode || len(document.Content) == 0 || document.Content[0].Kind != yaml.MappingNode {
		return header, nil, []Problem{{File: file, Line: 1, Message: "This process lacks the process-info node"}}
	}

	root := document.Content[0]

	problems := schemaProblems(file, root)
	if len(problems) > 0 {
		return header, nil, problems
	}

	header, problems = decodeHeader(file, root)

	nodesValue := mappingValue(root, "nodes")
	if nodesValue == nil || len(nodesValue.Content) == 0 {
		problems = append(problems, Problem{File: file, Line: root.Line, Message: "This process has no nodes"})

		return header, nil, problems
	}

	nodes, err := decodeBlock(nodesValue)
	if err != nil {
		problems = append(problems, Problem{File: file, Line: yamlErrorLine(err), Message: err.Error()})

		return header, nil, problems
	}

	problems = append(problems, validate(file, nodes)...)

	return header, nodes, problems
}

func decodeHeader(file string, root *yaml.Node) (Header, []Problem) {
	var header Header

	position := -1

	for i := 0; i < len(root.Content); i += 2 {
		if root.Content[i].Value == "process-info" {
			position = i
		}
	}

	if position < 0 {
		return header, []Problem{{File: file, Line: root.Line, Message: "This process lacks the process-info node"}}
	}

	key, value := root.Content[position], root.Content[position+1]

	var problems []Problem

	if position != 0 {
		problems = append(problems, Problem{File: file, Line: key.Line, Message: "process-info node must be the first node"})
	}

	for _, attribute := range headerAttributes {
		if mappingValue(value, attribute) == nil {
			problems = append(problems, Problem{File: file, Line: key.Line, Message: "Process' metadata lacks node " + attribute})
		}
	}

	err := value.Decode(&header)
	if err != nil {
		problems = append(problems, Problem{File: file, Line: key.Line, Message: err.Error()})
	}

	return header, problems
}

func decodeBlock(sequence *yaml.Node) ([]*NodeSpec, error) {
	if sequence.Kind == 0 {
		return nil, nil
	}

	if sequence.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list of nodes", sequence.Line)
	}

	nodes := make([]*NodeSpec, 0, len(sequence.Content))

	for _, item := range sequence.Content {
		if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
			return nil, fmt.Errorf("line %d: a node must be a single-key mapping", item.Line)
		}

		key, body := item.Content[0], item.Content[1]

		nodeType, ok := nodeTypes[key.Value]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown node type '%s'", key.Line, key.Value)
		}

		var raw rawNode

		err := body.Decode(&raw)
		if err != nil {
			return nil, err
		}

		spec := &NodeSpec{
			ID:            raw.ID,
			Type:          nodeType,
			Info:          raw.Info,
			AuthFilter:    raw.AuthFilter,
			Forms:         raw.Forms,
			Dependencies:  raw.Dependencies,
			Condition:     raw.Condition,
			Line:          key.Line,
			IDLine:        keyLine(body, "id"),
			ConditionLine: keyLine(body, "condition"),
		}

		spec.Block, err = decodeBlock(&raw.Block)
		if err != nil {
			return nil, err
		}

		for i := range raw.Branches {
			branch, err := decodeBlock(&raw.Branches[i])
			if err != nil {
				return nil, err
			}

			spec.Branches = append(spec.Branches, branch)
		}

		nodes = append(nodes, spec)
	}

	return nodes, nil
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}

	return nil
}

func keyLine(mapping *yaml.Node, key string) int {
	if mapping.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(mapping.Content); i += 2 {
			if mapping.Content[i].Value == key {
				return mapping.Content[i].Line
			}
		}
	}

	return mapping.Line
}

func yamlErrorLine(err error) int {
	match := yamlLinePattern.FindStringSubmatch(err.Error())
	if match == nil {
		return 0
	}

	line, _ := strconv.Atoi(match[1])

	return line
}

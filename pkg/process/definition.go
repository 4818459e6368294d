// Package process loads, validates and navigates process definitions.
//
// A definition is a YAML document named <id>.<version>.yaml whose first key is
// process-info followed by an ordered list of nodes. if, elif, else and
// parallel are pseudo-nodes owning nested blocks; every other node type is
// handled by the node taxonomy in pkg/nodes.
package process

import (
	"github.com/dukex/pvm/pkg/condition"
)

type NodeType string

const (
	NodeTypeAction     NodeType = "action"
	NodeTypeValidation NodeType = "validation"
	NodeTypeExit       NodeType = "exit"
	NodeTypeIf         NodeType = "if"
	NodeTypeElif       NodeType = "elif"
	NodeTypeElse       NodeType = "else"
	NodeTypeParallel   NodeType = "parallel"
)

var nodeTypes = map[string]NodeType{
	"action":     NodeTypeAction,
	"validation": NodeTypeValidation,
	"exit":       NodeTypeExit,
	"if":         NodeTypeIf,
	"elif":       NodeTypeElif,
	"else":       NodeTypeElse,
	"parallel":   NodeTypeParallel,
}

// IsPseudo reports whether nodes of this type only steer traversal.
func (t NodeType) IsPseudo() bool {
	switch t {
	case NodeTypeIf, NodeTypeElif, NodeTypeElse, NodeTypeParallel:
		return true
	}

	return false
}

type Header struct {
	Public      bool   `yaml:"public" json:"public"`
	Author      string `yaml:"author" json:"author"`
	Date        string `yaml:"date" json:"date"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

type NodeInfo struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

type InputSpec struct {
	Name        string   `yaml:"name" json:"name"`
	Type        string   `yaml:"type" json:"type"`
	Label       string   `yaml:"label" json:"label,omitempty"`
	Default     string   `yaml:"default" json:"default,omitempty"`
	Helper      string   `yaml:"helper" json:"helper,omitempty"`
	Placeholder string   `yaml:"placeholder" json:"placeholder,omitempty"`
	Regex       string   `yaml:"regex" json:"regex,omitempty"`
	Required    bool     `yaml:"required" json:"required"`
	Options     []Option `yaml:"options" json:"options,omitempty"`
	Provider    string   `yaml:"provider" json:"provider,omitempty"`

	Line int `yaml:"-" json:"-"`
}

type FormSpec struct {
	ID       string       `yaml:"id" json:"id"`
	Ref      string       `yaml:"ref" json:"ref,omitempty"`
	Multiple bool         `yaml:"multiple" json:"multiple"`
	Inputs   []*InputSpec `yaml:"inputs" json:"inputs"`

	Line int `yaml:"-" json:"-"`
}

// Input returns the input named name, or nil.
func (f *FormSpec) Input(name string) *InputSpec {
	for _, input := range f.Inputs {
		if input.Name == name {
			return input
		}
	}

	return nil
}

// Defaults returns every input of the form bound to its default value.
func (f *FormSpec) Defaults() map[string]any {
	values := make(map[string]any, len(f.Inputs))
	for _, input := range f.Inputs {
		values[input.Name] = input.Default
	}

	return values
}

const (
	ParamTypeRef = "ref"

	RefKindForm = "form"
	RefKindUser = "user"
)

// Param is an auth-filter parameter. Params of type ref carry a value of the
// form "form#form.field" or "user#node".
type Param struct {
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type" json:"type,omitempty"`
	Value string `yaml:"value" json:"value"`

	Line int `yaml:"-" json:"-"`
}

type AuthFilter struct {
	Backend string   `yaml:"backend" json:"backend"`
	All     bool     `yaml:"all" json:"all"`
	Notify  string   `yaml:"notify" json:"notify,omitempty"`
	Params  []*Param `yaml:"params" json:"params"`

	Line int `yaml:"-" json:"-"`
}

type Dependency struct {
	Ref  string
	Line int
}

type NodeSpec struct {
	ID           string
	Type         NodeType
	Info         NodeInfo
	AuthFilter   *AuthFilter
	Forms        []*FormSpec
	Dependencies []*Dependency

	// Condition and Expression are set on if and elif nodes.
	Condition  string
	Expression *condition.Expression

	// Block holds the children of if, elif and else nodes.
	Block []*NodeSpec

	// Branches holds the blocks of a parallel node.
	Branches [][]*NodeSpec

	Line          int
	IDLine        int
	ConditionLine int
}

// Form returns the form spec with the given id, or nil.
func (n *NodeSpec) Form(id string) *FormSpec {
	for _, form := range n.Forms {
		if form.ID == id {
			return form
		}
	}

	return nil
}

// Definition is an immutable, validated process.
type Definition struct {
	ID       string
	Version  string
	Filename string
	Header   Header
	Nodes    []*NodeSpec

	order []*NodeSpec
	index map[string]location
}

// Name returns the "<id>.<version>" identifier executions refer to.
func (d *Definition) Name() string {
	return d.ID + "." + d.Version
}

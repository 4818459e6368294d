package models

// State is the validity of a node, actor, form or field in the state
// projection.
type State string

const (
	StateUnfilled State = "unfilled"
	StateValid    State = "valid"
	StateInvalid  State = "invalid"
)

type Field struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
	Value any    `json:"value"`
	State State  `json:"state"`
}

// Form is one submitted instance of a form spec.
type Form struct {
	Ref    string              `json:"ref"`
	State  State               `json:"state"`
	Inputs *OrderedMap[*Field] `json:"inputs"`
}

func NewForm(ref string) *Form {
	return &Form{Ref: ref, State: StateValid, Inputs: NewOrderedMap[*Field]()}
}

// Values returns field values keyed by field name.
func (f *Form) Values() map[string]any {
	values := make(map[string]any, f.Inputs.Len())
	f.Inputs.Each(func(name string, field *Field) {
		values[name] = field.Value
	})

	return values
}

// FormInput is a form as submitted in a step command.
type FormInput struct {
	Ref  string         `json:"ref"  mapstructure:"ref"  validate:"required"`
	Data map[string]any `json:"data" mapstructure:"data"`
}

package state

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidReference = errors.New("invalid field reference")

// Reference points at one submitted field, written as
// node.actor.instance[:form].field.
type Reference struct {
	Node     string
	Actor    string
	Instance int
	Form     string
	Field    string
}

func (r Reference) String() string {
	instance := strconv.Itoa(r.Instance)
	if r.Form != "" {
		instance += ":" + r.Form
	}

	return strings.Join([]string{r.Node, r.Actor, instance, r.Field}, ".")
}

func ParseReference(ref string) (Reference, error) {
	parts := strings.Split(ref, ".")
	if len(parts) != 4 {
		return Reference{}, fmt.Errorf("%w: '%s'", ErrInvalidReference, ref)
	}

	instance, form, _ := strings.Cut(parts[2], ":")

	index, err := strconv.Atoi(instance)
	if err != nil || index < 0 {
		return Reference{}, fmt.Errorf("%w: '%s'", ErrInvalidReference, ref)
	}

	for _, part := range []string{parts[0], parts[1], parts[3]} {
		if part == "" {
			return Reference{}, fmt.Errorf("%w: '%s'", ErrInvalidReference, ref)
		}
	}

	return Reference{Node: parts[0], Actor: parts[1], Instance: index, Form: form, Field: parts[3]}, nil
}

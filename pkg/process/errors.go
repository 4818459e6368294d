package process

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProcessNotFound indicates no definition file matches the requested name.
	ErrProcessNotFound = errors.New("process not found")

	// ErrElementNotFound indicates a lookup inside a definition had no match.
	ErrElementNotFound = errors.New("element not found")
)

// Problem is one diagnostic found while validating a definition file.
type Problem struct {
	File    string
	Line    int
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s:%d %s", p.File, p.Line, p.Message)
}

// MalformedProcessError carries every problem found in a definition.
type MalformedProcessError struct {
	File     string
	Problems []Problem
}

func (e *MalformedProcessError) Error() string {
	lines := make([]string, 0, len(e.Problems))
	for _, problem := range e.Problems {
		lines = append(lines, problem.String())
	}

	return fmt.Sprintf("malformed process %s: %s", e.File, strings.Join(lines, "; "))
}

// HasMessage reports whether any problem carries message.
func (e *MalformedProcessError) HasMessage(message string) bool {
	for _, problem := range e.Problems {
		if problem.Message == message {
			return true
		}
	}

	return false
}

func NewElementNotFoundError(process, id string) error {
	return fmt.Errorf("%w: node '%s' in process %s", ErrElementNotFound, id, process)
}

func IsProcessNotFound(err error) bool {
	return errors.Is(err, ErrProcessNotFound)
}

func IsElementNotFound(err error) bool {
	return errors.Is(err, ErrElementNotFound)
}

func IsMalformedProcess(err error) bool {
	var target *MalformedProcessError

	return errors.As(err, &target)
}

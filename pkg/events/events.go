// Package events defines the messages exchanged over the queue: commands
// driving executions and notifications for the people assigned to them.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/dukex/pvm/pkg/models"
)

// Default topics.
const (
	CommandsTopic      = "pvm.process"
	NotificationsTopic = "pvm.notify"
)

const (
	CommandMetadataKey    = "command"
	RoutingKeyMetadataKey = "routing_key"
	ExecutionMetadataKey  = "execution_id"
)

type CommandType string

const (
	StartCommand  CommandType = "start"
	StepCommand   CommandType = "step"
	CancelCommand CommandType = "cancel"
)

// ErrMalformedMessage is returned for payloads that can never be handled.
var ErrMalformedMessage = errors.New("malformed message")

type Command interface {
	GetCommand() CommandType
}

// Start begins an execution of the named process, either "<id>" for the
// latest version or "<id>.<version>".
type Start struct {
	Command CommandType `json:"command" mapstructure:"command" validate:"required,eq=start"`
	Process string      `json:"process" mapstructure:"process" validate:"required"`
}

func (s Start) GetCommand() CommandType {
	return StartCommand
}

// Step submits a user's input to the node a pointer waits on. Synchronous
// nodes are stepped with no user and no input.
type Step struct {
	Command        CommandType        `json:"command"                   mapstructure:"command"         validate:"required,eq=step"`
	PointerID      string             `json:"pointer_id"                mapstructure:"pointer_id"      validate:"required"`
	UserIdentifier string             `json:"user_identifier,omitempty" mapstructure:"user_identifier"`
	Input          []models.FormInput `json:"input,omitempty"           mapstructure:"input"           validate:"dive"`
}

func (s Step) GetCommand() CommandType {
	return StepCommand
}

type Cancel struct {
	Command     CommandType `json:"command"      mapstructure:"command"      validate:"required,eq=cancel"`
	ExecutionID string      `json:"execution_id" mapstructure:"execution_id" validate:"required"`
}

func (c Cancel) GetCommand() CommandType {
	return CancelCommand
}

// Notification tells a notifier backend to reach a person.
type Notification struct {
	RoutingKey string         `json:"routing_key"`
	Body       map[string]any `json:"body"`
}

var validate = validator.New()

// Parse decodes and validates a command payload. Every failure wraps
// ErrMalformedMessage.
func Parse(payload []byte) (Command, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	name, _ := raw["command"].(string)

	var command Command

	switch CommandType(name) {
	case StartCommand:
		command = &Start{}
	case StepCommand:
		command = &Step{}
	case CancelCommand:
		command = &Cancel{}
	default:
		return nil, fmt.Errorf("%w: unknown command '%v'", ErrMalformedMessage, raw["command"])
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		Result:           command,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	if err := validate.Struct(command); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	return deref(command), nil
}

func deref(command Command) Command {
	switch typed := command.(type) {
	case *Start:
		return *typed
	case *Step:
		return *typed
	case *Cancel:
		return *typed
	}

	return command
}

func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedMessage)
}

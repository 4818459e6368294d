package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/pvm/pkg/condition"
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
	"github.com/dukex/pvm/pkg/state"
)

const examplesDir = "../../examples/processes"

type fakeEnv struct {
	definition *process.Definition
	projection *state.Projection
	rejections []state.Rejection
}

func newFakeEnv(t *testing.T, name string) *fakeEnv {
	t.Helper()

	definition, err := process.Load(examplesDir, name)
	require.NoError(t, err)

	return &fakeEnv{definition: definition, projection: state.New(definition)}
}

func (e *fakeEnv) Scope(at *process.NodeSpec) (*condition.Scope, error) {
	return state.Scope(e.definition, e.projection, at)
}

func (e *fakeEnv) Reject(rejection state.Rejection) error {
	e.rejections = append(e.rejections, rejection)

	projection, err := state.Invalidate(e.projection, e.definition, rejection)
	if err != nil {
		return err
	}

	e.projection = projection

	return nil
}

func (e *fakeEnv) submit(t *testing.T, nodeID, user string, input ...models.FormInput) *models.Actor {
	t.Helper()

	spec, err := e.definition.Node(nodeID)
	require.NoError(t, err)

	node, err := Make(spec)
	require.NoError(t, err)

	forms, err := node.Validate(input)
	require.NoError(t, err)

	actor := &models.Actor{State: models.StateValid, User: models.UserSnapshot{Identifier: user}, Forms: forms}
	e.projection.Upsert(nodeID, actor)

	return actor
}

func nodeIDs(nodes []Node) []string {
	result := make([]string, 0, len(nodes))
	for _, node := range nodes {
		result = append(result, node.ID())
	}

	return result
}

func next(t *testing.T, env *fakeEnv, nodeID string, actor *models.Actor) []Node {
	t.Helper()

	spec, err := env.definition.Node(nodeID)
	require.NoError(t, err)

	node, err := Make(spec)
	require.NoError(t, err)

	result, err := node.Next(env.definition, actor, env)
	require.NoError(t, err)

	return result
}

func TestStart(t *testing.T) {
	env := newFakeEnv(t, "simple")

	started, err := Start(env.definition, env)
	require.NoError(t, err)

	assert.Equal(t, []string{"start_node"}, nodeIDs(started))
	assert.True(t, started[0].IsAsync())
	assert.False(t, started[0].IsEnd())
}

func TestMake_Types(t *testing.T) {
	env := newFakeEnv(t, "parallel")

	archive, err := env.definition.Node("archive_node")
	require.NoError(t, err)

	node, err := Make(archive)
	require.NoError(t, err)
	assert.IsType(t, &Action{}, node)
	assert.False(t, node.IsAsync())

	end, err := env.definition.Node("end_node")
	require.NoError(t, err)

	node, err = Make(end)
	require.NoError(t, err)
	assert.True(t, node.IsEnd())

	reviews, err := env.definition.Node("reviews")
	require.NoError(t, err)

	node, err = Make(reviews)
	require.NoError(t, err)
	assert.IsType(t, &Join{}, node)
}

func TestNext_Sequence(t *testing.T) {
	env := newFakeEnv(t, "simple")

	actor := env.submit(t, "start_node", "juan", models.FormInput{Ref: "start_form", Data: map[string]any{"data": "yes"}})

	assert.Equal(t, []string{"mid_node"}, nodeIDs(next(t, env, "start_node", actor)))
	assert.Empty(t, next(t, env, "final_node", nil))
}

func TestNext_Condition(t *testing.T) {
	cases := []struct {
		password string
		expected string
	}{
		{password: "abrete sésamo", expected: "mistical_node"},
		{password: "123456", expected: "numeric_node"},
		{password: "other", expected: "final_node"},
	}

	for _, tc := range cases {
		t.Run(tc.password, func(t *testing.T) {
			env := newFakeEnv(t, "condition")

			actor := env.submit(t, "start_node", "juan", models.FormInput{Ref: "mistery", Data: map[string]any{"password": tc.password}})

			assert.Equal(t, []string{tc.expected}, nodeIDs(next(t, env, "start_node", actor)))
		})
	}
}

func TestNext_BlockEndSkipsChain(t *testing.T) {
	env := newFakeEnv(t, "condition")

	assert.Empty(t, next(t, env, "mistical_node", nil))
}

func TestNext_ParallelForkAndJoin(t *testing.T) {
	env := newFakeEnv(t, "parallel")

	actor := env.submit(t, "start_node", "juan", models.FormInput{Ref: "request", Data: map[string]any{"title": "contract"}})

	forked := next(t, env, "start_node", actor)
	assert.Equal(t, []string{"legal_node", "finance_node"}, nodeIDs(forked))

	joined := next(t, env, "legal_node", nil)
	require.Len(t, joined, 1)
	assert.IsType(t, &Join{}, joined[0])
	assert.Equal(t, "reviews", joined[0].ID())

	after, err := joined[0].Next(env.definition, nil, env)
	require.NoError(t, err)
	assert.Equal(t, []string{"archive_node"}, nodeIDs(after))
}

func TestValidate_Forms(t *testing.T) {
	env := newFakeEnv(t, "validation")

	spec, err := env.definition.Node("start_node")
	require.NoError(t, err)

	node, err := Make(spec)
	require.NoError(t, err)

	forms, err := node.Validate([]models.FormInput{{Ref: "work", Data: map[string]any{"task": "paint"}}})
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, map[string]any{"task": "paint", "days": int64(1)}, forms[0].Values())

	forms, err = node.Validate([]models.FormInput{{Ref: "work", Data: map[string]any{"task": "paint", "days": "3"}}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), forms[0].Values()["days"])

	_, err = node.Validate(nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = node.Validate([]models.FormInput{{Ref: "work", Data: map[string]any{"days": "1.5"}}})
	require.Error(t, err)

	var validationError *ValidationError
	require.ErrorAs(t, err, &validationError)
	assert.Len(t, validationError.Errors, 2)

	_, err = node.Validate([]models.FormInput{
		{Ref: "work", Data: map[string]any{"task": "a"}},
		{Ref: "work", Data: map[string]any{"task": "b"}},
	})
	require.ErrorAs(t, err, &validationError)
	assert.Equal(t, "multiple", validationError.Errors[0].Code)

	_, err = node.Validate([]models.FormInput{
		{Ref: "work", Data: map[string]any{"task": "a"}},
		{Ref: "other", Data: map[string]any{}},
	})
	require.ErrorAs(t, err, &validationError)
	assert.Equal(t, "unknown", validationError.Errors[0].Code)
}

func TestValidate_Options(t *testing.T) {
	env := newFakeEnv(t, "parallel")

	spec, err := env.definition.Node("legal_node")
	require.NoError(t, err)

	node, err := Make(spec)
	require.NoError(t, err)

	_, err = node.Validate([]models.FormInput{{Ref: "legal", Data: map[string]any{"approved": "maybe"}}})
	assert.True(t, IsValidationError(err))

	_, err = node.Validate([]models.FormInput{{Ref: "legal", Data: map[string]any{"approved": "yes"}}})
	assert.NoError(t, err)
}

func TestConvert_Formats(t *testing.T) {
	cases := []struct {
		input *process.InputSpec
		value any
		valid bool
	}{
		{input: &process.InputSpec{Type: "email"}, value: "juan@example.com", valid: true},
		{input: &process.InputSpec{Type: "email"}, value: "juan", valid: false},
		{input: &process.InputSpec{Type: "date"}, value: "2018-05-09", valid: true},
		{input: &process.InputSpec{Type: "date"}, value: "09/05/2018", valid: false},
		{input: &process.InputSpec{Type: "datetime"}, value: "2018-05-09T10:00:00Z", valid: true},
		{input: &process.InputSpec{Type: "float"}, value: "1.5", valid: true},
		{input: &process.InputSpec{Type: "float"}, value: "abc", valid: false},
		{input: &process.InputSpec{Type: "text", Regex: "^[a-z]+$"}, value: "abc", valid: true},
		{input: &process.InputSpec{Type: "text", Regex: "^[a-z]+$"}, value: "ABC", valid: false},
		{input: &process.InputSpec{Type: "text"}, value: 12.0, valid: false},
		{input: &process.InputSpec{Type: "checkbox", Options: []process.Option{{Value: "a"}, {Value: "b"}}}, value: []any{"a", "b"}, valid: true},
		{input: &process.InputSpec{Type: "checkbox", Options: []process.Option{{Value: "a"}}}, value: []any{"c"}, valid: false},
	}

	for _, tc := range cases {
		_, detail := convert(tc.input, tc.value)
		assert.Equal(t, tc.valid, detail == "", "%s %v", tc.input.Type, tc.value)
	}
}

func TestValidation_Accept(t *testing.T) {
	env := newFakeEnv(t, "validation")

	env.submit(t, "start_node", "juan", models.FormInput{Ref: "work", Data: map[string]any{"task": "paint"}})
	actor := env.submit(t, "approval_node", "pedro", models.FormInput{Ref: state.ApprovalForm, Data: map[string]any{"response": ResponseAccept}})

	assert.False(t, Rejected(actor))
	assert.Equal(t, []string{"final_node"}, nodeIDs(next(t, env, "approval_node", actor)))
	assert.Empty(t, env.rejections)
}

func TestValidation_Reject(t *testing.T) {
	env := newFakeEnv(t, "validation")

	env.submit(t, "start_node", "juan", models.FormInput{Ref: "work", Data: map[string]any{"task": "paint"}})
	actor := env.submit(t, "approval_node", "pedro", models.FormInput{Ref: state.ApprovalForm, Data: map[string]any{
		"response": ResponseReject,
		"comment":  "wrong task",
		"inputs":   []any{"start_node.juan.0:work.task"},
	}})

	assert.True(t, Rejected(actor))
	assert.Equal(t, []string{"start_node"}, nodeIDs(next(t, env, "approval_node", actor)))

	require.Len(t, env.rejections, 1)
	assert.Equal(t, "start_node", env.rejections[0].Target)
	assert.Equal(t, "pedro", env.rejections[0].Actor)

	start, ok := env.projection.Get("start_node")
	require.True(t, ok)
	assert.Equal(t, models.StateInvalid, start.State)
	assert.Equal(t, "wrong task", start.Comment)

	activity := &models.Activity{Actors: models.NewOrderedMap[*models.Actor]()}
	activity.Actors.Set("pedro", actor)

	spec, err := env.definition.Node("approval_node")
	require.NoError(t, err)

	node, err := Make(spec)
	require.NoError(t, err)
	assert.True(t, node.CanContinue(activity))
}

func TestValidation_RejectErrors(t *testing.T) {
	env := newFakeEnv(t, "validation")

	spec, err := env.definition.Node("approval_node")
	require.NoError(t, err)

	node, err := Make(spec)
	require.NoError(t, err)

	_, err = node.Validate([]models.FormInput{{Ref: state.ApprovalForm, Data: map[string]any{"response": ResponseReject}}})
	assert.True(t, IsValidationError(err))

	_, err = node.Validate([]models.FormInput{{Ref: state.ApprovalForm, Data: map[string]any{
		"response": ResponseReject,
		"inputs":   []any{"not-a-reference"},
	}}})
	assert.True(t, IsValidationError(err))

	forms, err := node.Validate([]models.FormInput{{Ref: state.ApprovalForm, Data: map[string]any{
		"response": ResponseReject,
		"inputs":   []any{"final_node.juan.0:closing.notes"},
	}}})
	require.NoError(t, err)

	actor := &models.Actor{User: models.UserSnapshot{Identifier: "pedro"}, Forms: forms}

	_, err = node.Next(env.definition, actor, env)
	assert.True(t, IsCannotMove(err))
	assert.Empty(t, env.rejections)
}

func TestCanContinue_AllActors(t *testing.T) {
	env := newFakeEnv(t, "committee")

	spec, err := env.definition.Node("vote_node")
	require.NoError(t, err)

	node, err := Make(spec)
	require.NoError(t, err)

	activity := &models.Activity{Actors: models.NewOrderedMap[*models.Actor](), RequiredActors: []string{"juan", "pedro"}}
	activity.Actors.Set("juan", &models.Actor{User: models.UserSnapshot{Identifier: "juan"}})
	assert.False(t, node.CanContinue(activity))

	activity.Actors.Set("pedro", &models.Actor{User: models.UserSnapshot{Identifier: "pedro"}})
	assert.True(t, node.CanContinue(activity))
}

func TestCheckDependencies(t *testing.T) {
	env := newFakeEnv(t, "validation")

	spec, err := env.definition.Node("approval_node")
	require.NoError(t, err)

	node, err := Make(spec)
	require.NoError(t, err)

	assert.NoError(t, CheckDependencies(node, nil, env))

	spec.Dependencies = append(spec.Dependencies, &process.Dependency{Ref: "closing.notes"})
	assert.True(t, IsValidationError(CheckDependencies(node, nil, env)))
}

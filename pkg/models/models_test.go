package models

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecution_Validation(t *testing.T) {
	validate := validator.New()

	execution := &Execution{ID: "e1", ProcessName: "simple.2018-02-19", Status: ExecutionStatusOngoing}
	require.NoError(t, validate.Struct(execution))

	execution.Status = "paused"
	assert.Error(t, validate.Struct(execution))

	assert.Error(t, validate.Struct(&Execution{Status: ExecutionStatusOngoing}))
}

func TestExecution_Finish(t *testing.T) {
	at := time.Date(2018, 5, 9, 10, 0, 0, 0, time.UTC)
	execution := &Execution{ID: "e1", Status: ExecutionStatusOngoing}
	assert.True(t, execution.IsOngoing())

	execution.Finish(ExecutionStatusCancelled, at)

	assert.False(t, execution.IsOngoing())
	assert.Equal(t, ExecutionStatusCancelled, execution.Status)
	require.NotNil(t, execution.FinishedAt)
	assert.Equal(t, at, *execution.FinishedAt)
}

func TestActivity_CloseOnce(t *testing.T) {
	first := time.Date(2018, 5, 9, 10, 0, 0, 0, time.UTC)
	activity := &Activity{ID: "a1", StartedAt: first}
	assert.True(t, activity.IsOpen())

	activity.Close(first.Add(time.Minute))
	activity.Close(first.Add(time.Hour))

	assert.False(t, activity.IsOpen())
	assert.Equal(t, first.Add(time.Minute), *activity.FinishedAt)
}

func TestUser_Validation(t *testing.T) {
	validate := validator.New()

	require.NoError(t, validate.Struct(&User{Identifier: "juan", Email: "juan@example.com"}))
	require.NoError(t, validate.Struct(&User{Identifier: "juan"}))
	assert.Error(t, validate.Struct(&User{Identifier: "juan", Email: "not an email"}))
	assert.Error(t, validate.Struct(&User{Email: "juan@example.com"}))

	snapshot := (&User{Identifier: "juan", Fullname: "Juan", Email: "juan@example.com"}).Snapshot()
	assert.Equal(t, UserSnapshot{Identifier: "juan", Fullname: "Juan", Email: "juan@example.com"}, snapshot)
}

func TestForm_Values(t *testing.T) {
	form := NewForm("start_form")
	form.Inputs.Set("data", &Field{Name: "data", Type: "text", Value: "yes", State: StateValid})
	form.Inputs.Set("amount", &Field{Name: "amount", Type: "int", Value: 3, State: StateValid})

	assert.Equal(t, map[string]any{"data": "yes", "amount": 3}, form.Values())
}

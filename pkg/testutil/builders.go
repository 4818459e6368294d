// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/dukex/pvm/pkg/models"
)

// CreateTestExecution creates an ongoing Execution with default values that can be overridden.
func CreateTestExecution(overrides ...func(*models.Execution)) *models.Execution {
	execution := &models.Execution{
		ID:          uuid.NewString(),
		ProcessName: "simple.2018-02-19",
		Name:        "Simple process",
		Description: "A simple three step process",
		Status:      models.ExecutionStatusOngoing,
		StartedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	for _, override := range overrides {
		override(execution)
	}

	return execution
}

// CreateTestPointer creates a Pointer with default values that can be overridden.
func CreateTestPointer(executionID string, overrides ...func(*models.Pointer)) *models.Pointer {
	pointer := &models.Pointer{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		NodeID:      "start_node",
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	for _, override := range overrides {
		override(pointer)
	}

	return pointer
}

// WithNode places the pointer on a node.
func WithNode(nodeID string) func(*models.Pointer) {
	return func(p *models.Pointer) {
		p.NodeID = nodeID
	}
}

// CreateTestUser creates a User whose email derives from the identifier.
func CreateTestUser(identifier string) *models.User {
	return &models.User{
		Identifier: identifier,
		Email:      identifier + "@example.com",
		Fullname:   identifier,
	}
}

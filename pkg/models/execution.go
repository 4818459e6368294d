package models

import "time"

type ExecutionStatus string

const (
	ExecutionStatusOngoing   ExecutionStatus = "ongoing"
	ExecutionStatusFinished  ExecutionStatus = "finished"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Execution is one running instance of a process definition.
type Execution struct {
	ID          string          `json:"id"                    validate:"required"`
	ProcessName string          `json:"process_name"          validate:"required"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      ExecutionStatus `json:"status"                validate:"required,oneof=ongoing finished cancelled"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

func (e *Execution) IsOngoing() bool {
	return e.Status == ExecutionStatusOngoing
}

// Finish moves the execution to a terminal status.
func (e *Execution) Finish(status ExecutionStatus, at time.Time) {
	e.Status = status
	e.FinishedAt = &at
}

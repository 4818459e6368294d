package models

import "time"

// PointerState tracks where a pointer is in its lifecycle. Only live
// pointers are persisted; the other states appear in logs and metrics.
type PointerState string

const (
	PointerStatePending    PointerState = "pending-start"
	PointerStateActive     PointerState = "active"
	PointerStateCompleting PointerState = "completing"
	PointerStateAdvanced   PointerState = "advanced"
	PointerStateRejected   PointerState = "rejected"
	PointerStateTerminated PointerState = "terminated"
)

// Pointer marks a node of an execution that is waiting to be resolved.
type Pointer struct {
	ID          string    `json:"id"           validate:"required"`
	ExecutionID string    `json:"execution_id" validate:"required"`
	NodeID      string    `json:"node_id"      validate:"required"`
	CreatedAt   time.Time `json:"created_at"`
}

package models

import "time"

type NodeSnapshot struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Actor is what one user contributed to a node.
type Actor struct {
	State State        `json:"state"`
	User  UserSnapshot `json:"user"`
	Forms []*Form      `json:"forms"`
}

// Activity is the audit record of one visit of an execution to a node. It
// is append-only except for FinishedAt, set once when the node resolves.
type Activity struct {
	ID             string              `json:"id"`
	ExecutionID    string              `json:"execution_id"`
	PointerID      string              `json:"pointer_id,omitempty"`
	NodeID         string              `json:"node_id"`
	Node           NodeSnapshot        `json:"node"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     *time.Time          `json:"finished_at"`
	Actors         *OrderedMap[*Actor] `json:"actors"`
	NotifiedUsers  []UserSnapshot      `json:"notified_users"`
	RequiredActors []string            `json:"required_actors,omitempty"`
}

func (a *Activity) IsOpen() bool {
	return a.FinishedAt == nil
}

func (a *Activity) Close(at time.Time) {
	if a.FinishedAt == nil {
		a.FinishedAt = &at
	}
}

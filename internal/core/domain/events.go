package domain

import "time"

type ControlAction string

const (
	ControlStart ControlAction = "start"
	ControlPause ControlAction = "pause"
)

type ControlCommand struct {
	Action      ControlAction `json:"action"`
	RequestedAt time.Time     `json:"requested_at"`
	Reason      string        `json:"reason,omitempty"`
}

type OrchestratorState struct {
	Processing bool      `json:"processing"`
	Paused     bool      `json:"paused"`
	InFlight   int       `json:"in_flight"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type QueueEventType string

const (
	EventEntryUpdated      QueueEventType = "entry_updated"
	EventEntriesEnqueued   QueueEventType = "entries_enqueued"
	EventEntriesCleared    QueueEventType = "entries_cleared"
	EventOrchestratorState QueueEventType = "orchestrator_state"
)

// QueueEvent is broadcast whenever queue contents or orchestrator state change.
type QueueEvent struct {
	Type         QueueEventType     `json:"type"`
	EntryID      string             `json:"entry_id,omitempty"`
	PartNumber   string             `json:"part_number,omitempty"`
	BatchID      string             `json:"batch_id,omitempty"`
	Status       QueueStatus        `json:"status,omitempty"`
	Error        string             `json:"error,omitempty"`
	RetryCount   int                `json:"retry_count,omitempty"`
	Count        int                `json:"count,omitempty"`
	Orchestrator *OrchestratorState `json:"orchestrator,omitempty"`
	At           time.Time          `json:"at"`
}

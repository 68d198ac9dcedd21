package model

import "time"

type LedgerEventType string

const (
	EventTimerStarted LedgerEventType = "timer.started"
	EventTimerStopped LedgerEventType = "timer.stopped"
	EventTimerAborted LedgerEventType = "timer.aborted"
)

// LedgerEvent is the payload written to the outbox and published to Kafka.
type LedgerEvent struct {
	ID           string          `json:"id"` // ULID
	Type         LedgerEventType `json:"type"`
	EntryID      int64           `json:"entry_id"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	ProjectID    int64           `json:"project_id"`
	ProjectName  string          `json:"project_name"`
	ExternalRef  *int64          `json:"external_ref,omitempty"`
	Comment      *string         `json:"comment,omitempty"`
	ElapsedHours *float64        `json:"elapsed_hours,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

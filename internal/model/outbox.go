package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxEvent is a change event recorded in the same transaction scope as
// the mutation it describes, drained to the message broker by the worker.
// Subscribed calendar clients refresh on these, standing in for the hosted
// platform's realtime channels.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"eventType"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"errorMessage,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retryCount"`
	RetryAt      *time.Time      `db:"retry_at" json:"retryAt,omitempty"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processedAt,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// ChangeEvent is the payload published for entity mutations.
type ChangeEvent struct {
	Action     string      `json:"action"`
	EntityType string      `json:"entityType"`
	EntityID   *uuid.UUID  `json:"entityId,omitempty"`
	Record     interface{} `json:"record,omitempty"`
}

package models

import (
	"encoding/json"
	"time"
)

// Snapshot is the envelope published downstream (Kafka, WebSocket)
// whenever a source refresh succeeds.
type Snapshot struct {
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Payload   json.RawMessage `json:"payload"`
}

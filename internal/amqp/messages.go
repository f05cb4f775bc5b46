package amqp

import (
	"encoding/json"
	"time"
)

// FinanceSyncMessage is a lightweight notification that a finance
// entity changed. It carries only the kind and ID, the worker fetches
// the current row from the database.
type FinanceSyncMessage struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewFinanceSyncMessage(kind, id string) *FinanceSyncMessage {
	return &FinanceSyncMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *FinanceSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func FinanceSyncMessageFromJSON(data []byte) (*FinanceSyncMessage, error) {
	var msg FinanceSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

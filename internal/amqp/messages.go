package amqp

import (
	"encoding/json"
	"time"

	"skillchisel/internal/livequery"
)

// ChangeMessage announces that a user's skills changed on one server instance.
// Receivers re-read from the shared store; the message carries no document data.
type ChangeMessage struct {
	UserID    string    `json:"user_id"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(c livequery.Change) *ChangeMessage {
	return &ChangeMessage{
		UserID:    c.UserID,
		Origin:    c.Origin,
		Timestamp: time.Now(),
	}
}

// Change returns the live query change carried by the message.
func (m *ChangeMessage) Change() livequery.Change {
	return livequery.Change{UserID: m.UserID, Origin: m.Origin}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

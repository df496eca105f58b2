package amqp

import (
	"encoding/json"
	"time"
)

// AlertEventMessage is a lightweight pointer to a stored alert event.
// The worker fetches the full event from the database by EventID.
type AlertEventMessage struct {
	EventID   int64     `json:"event_id"`
	UserID    string    `json:"user_id"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

func NewAlertEventMessage(eventID int64, userID, level string) *AlertEventMessage {
	return &AlertEventMessage{
		EventID:   eventID,
		UserID:    userID,
		Level:     level,
		Timestamp: time.Now(),
	}
}

func (m *AlertEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AlertEventMessageFromJSON(data []byte) (*AlertEventMessage, error) {
	var msg AlertEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

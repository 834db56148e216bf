package event

import "time"

type Type string

const (
	TypeAccessGranted  Type = "access.granted"
	TypeAccessRevoked  Type = "access.revoked"
	TypeRecordAccessed Type = "record.accessed"
)

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	PatientID string    `json:"patient_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}

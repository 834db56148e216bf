package model

import "time"

type AuditAction string

const (
	ActionUpload      AuditAction = "upload"
	ActionViewReports AuditAction = "view_reports"
	ActionViewProfile AuditAction = "view_profile"
	ActionRevoke      AuditAction = "revoke"
)

// AuditEvent is append-only; it is never updated or deleted.
type AuditEvent struct {
	ID         string      `json:"id"`
	PatientID  string      `json:"patient_id"`
	Action     AuditAction `json:"action"`
	ActorID    string      `json:"actor_id"`
	Resource   string      `json:"resource,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

type AuditQuery struct {
	PatientID string
	Action    string
	Page      int
	Limit     int
}

type AuditListData struct {
	Items []AuditEvent `json:"items"`
}

// GuardedAction describes one protected operation presented to the access guard.
type GuardedAction struct {
	AccessToken string
	Capability  Scope
	PatientID   string
	Action      AuditAction
}

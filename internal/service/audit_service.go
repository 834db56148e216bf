package service

import (
	"context"
	"strings"

	"med-connect/internal/model"
)

var knownAuditActions = map[model.AuditAction]bool{
	model.ActionUpload:      true,
	model.ActionViewReports: true,
	model.ActionViewProfile: true,
	model.ActionRevoke:      true,
}

type AuditService struct {
	audit auditStore
}

func NewAuditService(audit auditStore) *AuditService {
	return &AuditService{audit: audit}
}

// ListForPatient returns the patient's audit trail, newest first.
func (s *AuditService) ListForPatient(ctx context.Context, query model.AuditQuery) ([]model.AuditEvent, model.Meta, error) {
	query.PatientID = strings.TrimSpace(query.PatientID)
	if query.PatientID == "" {
		return nil, model.Meta{}, badRequest("patient_id is required", "patient_id")
	}

	query.Action = strings.ToLower(strings.TrimSpace(query.Action))
	if query.Action != "" && !knownAuditActions[model.AuditAction(query.Action)] {
		return nil, model.Meta{}, badRequest("unknown audit action", query.Action)
	}

	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	return s.audit.Query(ctx, query)
}

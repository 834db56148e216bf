package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"med-connect/internal/event"
	"med-connect/internal/ids"
	"med-connect/internal/metrics"
	"med-connect/internal/model"
	"med-connect/internal/token"
)

type accessDecoder interface {
	DecodeAccess(raw string) (model.AccessClaims, error)
}

// GuardedOp performs the protected work once authorization has passed and returns the
// resource identifier recorded in the audit trail.
type GuardedOp func(ctx context.Context, claims model.AccessClaims) (string, error)

// AccessGuard sits in front of every record operation. It verifies the access token, checks
// the capability and patient binding, runs the operation and appends exactly one audit event
// per successful operation.
type AccessGuard struct {
	codec   accessDecoder
	tokens  accessTokenStore
	audit   auditStore
	bus     event.Bus
	metrics *metrics.Metrics
	strict  bool
	now     func() time.Time
}

func NewAccessGuard(codec accessDecoder, tokens accessTokenStore, audit auditStore, bus event.Bus, m *metrics.Metrics, strictRevocation bool) *AccessGuard {
	return &AccessGuard{
		codec:   codec,
		tokens:  tokens,
		audit:   audit,
		bus:     bus,
		metrics: m,
		strict:  strictRevocation,
		now:     time.Now,
	}
}

func (g *AccessGuard) SetClock(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// Authorize checks raw against the needed capability. An empty patientID means the patient the
// token was issued for. In strict revocation mode the token must also still have a stored record.
func (g *AccessGuard) Authorize(ctx context.Context, raw string, need model.Scope, patientID string) (model.AccessClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.AccessClaims{}, model.ErrAuthenticationFailed
	}

	claims, err := g.codec.DecodeAccess(raw)
	if err != nil {
		return model.AccessClaims{}, model.ErrAuthenticationFailed
	}

	if g.strict {
		exists, err := g.tokens.ExistsByFingerprint(ctx, token.Fingerprint(raw))
		if err != nil {
			return model.AccessClaims{}, err
		}
		if !exists {
			slog.Debug("access token has no stored record", "token_id", claims.TokenID)
			return model.AccessClaims{}, model.ErrAuthenticationFailed
		}
	}

	if !claims.Allows(need) {
		return model.AccessClaims{}, model.ErrAuthorizationFailed
	}

	patientID = strings.TrimSpace(patientID)
	if patientID != "" && patientID != claims.PatientID {
		slog.Warn("access token presented for another patient",
			"token_patient_id", claims.PatientID,
			"requested_patient_id", patientID,
			"requester_id", claims.RequesterID,
		)
		return model.AccessClaims{}, model.ErrAuthorizationFailed
	}

	return claims, nil
}

// Run authorizes action, performs op and records the audit event. Denied requests never reach op
// and are not audited; a failed audit append fails the whole operation.
func (g *AccessGuard) Run(ctx context.Context, action model.GuardedAction, op GuardedOp) error {
	claims, err := g.Authorize(ctx, action.AccessToken, action.Capability, action.PatientID)
	if err != nil {
		g.metrics.GuardDecision(string(action.Action), decisionFor(err))
		return err
	}

	resource, err := op(ctx, claims)
	if err != nil {
		g.metrics.GuardDecision(string(action.Action), "failed")
		return err
	}

	now := g.now().UTC()
	entry := model.AuditEvent{
		ID:         ids.New(),
		PatientID:  claims.PatientID,
		Action:     action.Action,
		ActorID:    claims.RequesterID,
		Resource:   resource,
		OccurredAt: now,
	}
	if err := requiredWrite("append audit event", g.audit.Append(ctx, entry)); err != nil {
		g.metrics.GuardDecision(string(action.Action), "failed")
		return err
	}

	g.metrics.GuardDecision(string(action.Action), "allowed")
	publish(g.bus, event.TypeRecordAccessed, claims.PatientID, claims.RequesterID, map[string]any{
		"action":   action.Action,
		"resource": resource,
	}, now)
	return nil
}

// Revoke deletes the stored records for the pair and audits the revocation. Unless strict revocation
// is enabled, tokens already handed out keep verifying until they expire.
func (g *AccessGuard) Revoke(ctx context.Context, patientID string, requesterID string) (int64, error) {
	patientID = strings.TrimSpace(patientID)
	requesterID = strings.TrimSpace(requesterID)
	if patientID == "" {
		return 0, badRequest("patient_id is required", "patient_id")
	}
	if requesterID == "" {
		return 0, badRequest("requester_id is required", "requester_id")
	}

	removed, err := g.tokens.DeleteByPair(ctx, patientID, requesterID)
	if err != nil {
		return 0, requiredWrite("delete access tokens", err)
	}

	now := g.now().UTC()
	entry := model.AuditEvent{
		ID:         ids.New(),
		PatientID:  patientID,
		Action:     model.ActionRevoke,
		ActorID:    patientID,
		Resource:   requesterID,
		OccurredAt: now,
	}
	if err := requiredWrite("append audit event", g.audit.Append(ctx, entry)); err != nil {
		return 0, err
	}

	slog.Info("access revoked",
		"patient_id", patientID,
		"requester_id", requesterID,
		"records_removed", removed,
		"strict", g.strict,
	)
	g.metrics.GuardDecision(string(model.ActionRevoke), "allowed")
	publish(g.bus, event.TypeAccessRevoked, patientID, patientID, map[string]any{
		"requester_id":    requesterID,
		"records_removed": removed,
	}, now)
	return removed, nil
}

func decisionFor(err error) string {
	switch {
	case errors.Is(err, model.ErrAuthenticationFailed):
		return "unauthenticated"
	case errors.Is(err, model.ErrAuthorizationFailed):
		return "forbidden"
	default:
		return "failed"
	}
}

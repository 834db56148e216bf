package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"med-connect/internal/model"
)

const recentPatientsLimit = 20

// GrantService backs the patient and requester dashboards.
type GrantService struct {
	tokens      accessTokenStore
	connections connectionStore
}

func NewGrantService(tokens accessTokenStore, connections connectionStore) *GrantService {
	return &GrantService{tokens: tokens, connections: connections}
}

// ListGrants returns the unexpired access-token records issued for a patient.
func (s *GrantService) ListGrants(ctx context.Context, patientID string) ([]model.AccessTokenRecord, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, badRequest("patient_id is required", "patient_id")
	}
	return s.tokens.ListActiveByPatient(ctx, patientID)
}

// RecentPatients returns the patients a requester connected to most recently.
func (s *GrantService) RecentPatients(ctx context.Context, requesterID string) ([]model.Connection, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return nil, badRequest("requester_id is required", "requester_id")
	}
	return s.connections.ListRecent(ctx, requesterID, recentPatientsLimit)
}

func (s *GrantService) CleanupExpired(ctx context.Context) {
	removed, err := s.tokens.CleanExpired(ctx)
	if err != nil {
		slog.Warn("expired access token cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("cleaned up expired access tokens", "count", removed)
	}
}

// StartCleanupTicker runs CleanupExpired on a regular interval until ctx is cancelled.
func (s *GrantService) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.CleanupExpired(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupExpired(ctx)
		}
	}
}

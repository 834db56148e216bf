package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"med-connect/internal/event"
	"med-connect/internal/ids"
	"med-connect/internal/metrics"
	"med-connect/internal/model"
	"med-connect/internal/token"
)

const (
	ChallengeTTL = 5 * time.Minute

	DefaultConnectTTL = 300 * time.Second
	MinConnectTTL     = 60 * time.Second
	MaxConnectTTL     = 3600 * time.Second

	DefaultAccessTTL = 1800 * time.Second
	MinAccessTTL     = 300 * time.Second
	MaxAccessTTL     = 86400 * time.Second
)

const (
	pathChallenge = "challenge"
	pathConnect   = "connect_token"
	pathToken     = "token"
	pathCode      = "code"
)

type codeResolver interface {
	Resolve(ctx context.Context, code string) (string, error)
}

// ExchangeService turns credentials (connect tokens, identity codes, challenges) into access tokens.
type ExchangeService struct {
	codec       tokenCodec
	codes       codeResolver
	tokens      accessTokenStore
	connections connectionStore
	bus         event.Bus
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewExchangeService(codec tokenCodec, codes codeResolver, tokens accessTokenStore, connections connectionStore, bus event.Bus, m *metrics.Metrics) *ExchangeService {
	return &ExchangeService{
		codec:       codec,
		codes:       codes,
		tokens:      tokens,
		connections: connections,
		bus:         bus,
		metrics:     m,
		now:         time.Now,
	}
}

func (s *ExchangeService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// IssueHospitalChallenge signs a short-lived challenge naming the requester, to be rendered as a QR code.
func (s *ExchangeService) IssueHospitalChallenge(_ context.Context, requesterID string) (model.IssuedToken, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return model.IssuedToken{}, badRequest("requester_id is required", "requester_id")
	}

	signed, expiresAt, err := s.codec.Encode(model.ChallengeClaims{RequesterID: requesterID}, ChallengeTTL)
	if err != nil {
		return model.IssuedToken{}, err
	}

	s.metrics.Exchange(pathChallenge, "issued")
	return model.IssuedToken{Token: signed, Kind: model.KindChallenge, ExpiresAt: expiresAt}, nil
}

// IssueConnectToken signs a connect token carrying the patient's chosen scope.
// Unknown scope names are rejected here rather than silently dropped.
func (s *ExchangeService) IssueConnectToken(_ context.Context, patientID string, rawScope []string, durationSeconds int) (model.IssuedToken, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return model.IssuedToken{}, badRequest("patient_id is required", "patient_id")
	}

	scope, err := model.ScopesFromStrings(rawScope)
	if err != nil {
		return model.IssuedToken{}, err
	}
	if len(scope) == 0 {
		scope = []model.Scope{model.ScopeView}
	}

	ttl := ClampDuration(durationSeconds, DefaultConnectTTL, MinConnectTTL, MaxConnectTTL)
	signed, expiresAt, err := s.codec.Encode(model.ConnectClaims{PatientID: patientID, Scope: scope}, ttl)
	if err != nil {
		return model.IssuedToken{}, err
	}

	slog.Info("connect token issued", "patient_id", patientID, "scope", model.ScopeStrings(scope), "ttl", ttl)
	return model.IssuedToken{Token: signed, Kind: model.KindConnect, Scope: scope, ExpiresAt: expiresAt}, nil
}

// ExchangeConnectToken grants the intersection of the requested scope and the scope the patient put
// in the connect token.
func (s *ExchangeService) ExchangeConnectToken(ctx context.Context, req model.TokenExchange) (model.Grant, error) {
	requesterID := strings.TrimSpace(req.RequesterID)
	if requesterID == "" {
		return model.Grant{}, badRequest("requester_id is required", "requester_id")
	}
	if strings.TrimSpace(req.ConnectToken) == "" {
		return model.Grant{}, badRequest("connect_token is required", "connect_token")
	}

	claims, err := s.codec.DecodeConnect(req.ConnectToken)
	if err != nil {
		s.metrics.Exchange(pathToken, "invalid_credential")
		return model.Grant{}, model.ErrInvalidCredential
	}

	granted := model.IntersectScopes(RequestedScope(req.RequestedScope), claims.Scope)
	if len(granted) == 0 {
		s.metrics.Exchange(pathToken, "no_scope")
		return model.Grant{}, model.ErrNoScopeGranted
	}

	grant, err := s.mint(ctx, claims.PatientID, requesterID, granted, req.DurationSeconds, model.ViaToken)
	if err != nil {
		s.metrics.Exchange(pathToken, "error")
		return model.Grant{}, err
	}

	s.trackConnection(ctx, actingRequester(req.ActingUserID, requesterID), claims.PatientID)
	s.metrics.Exchange(pathToken, "granted")
	return grant, nil
}

// ExchangeCode resolves an identity code to its patient and grants the requested scope,
// bounded only by the scope universe.
func (s *ExchangeService) ExchangeCode(ctx context.Context, req model.CodeExchange) (model.Grant, error) {
	requesterID := strings.TrimSpace(req.RequesterID)
	if requesterID == "" {
		return model.Grant{}, badRequest("requester_id is required", "requester_id")
	}

	patientID, err := s.codes.Resolve(ctx, req.Code)
	if err != nil {
		if errors.Is(err, model.ErrCodeNotFound) {
			s.metrics.Exchange(pathCode, "not_found")
		} else {
			s.metrics.Exchange(pathCode, "error")
		}
		return model.Grant{}, err
	}

	granted := model.IntersectScopes(RequestedScope(req.RequestedScope), model.AllScopes)
	if len(granted) == 0 {
		s.metrics.Exchange(pathCode, "no_scope")
		return model.Grant{}, model.ErrNoScopeGranted
	}

	grant, err := s.mint(ctx, patientID, requesterID, granted, req.DurationSeconds, model.ViaCode)
	if err != nil {
		s.metrics.Exchange(pathCode, "error")
		return model.Grant{}, err
	}

	s.trackConnection(ctx, actingRequester(req.ActingUserID, requesterID), patientID)
	s.metrics.Exchange(pathCode, "granted")
	return grant, nil
}

// GrantFromChallenge lets a patient who scanned a requester's challenge grant access directly.
func (s *ExchangeService) GrantFromChallenge(ctx context.Context, req model.ChallengeGrant) (model.Grant, error) {
	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		return model.Grant{}, badRequest("patient_id is required", "patient_id")
	}
	if strings.TrimSpace(req.Challenge) == "" {
		return model.Grant{}, badRequest("challenge is required", "challenge")
	}

	claims, err := s.codec.DecodeChallenge(req.Challenge)
	if err != nil {
		s.metrics.Exchange(pathChallenge, "invalid_credential")
		return model.Grant{}, model.ErrInvalidCredential
	}

	scope, err := model.ScopesFromStrings(req.Scope)
	if err != nil {
		return model.Grant{}, err
	}
	if len(scope) == 0 {
		scope = []model.Scope{model.ScopeView}
	}

	grant, err := s.mint(ctx, patientID, claims.RequesterID, scope, req.DurationSeconds, model.ViaChallenge)
	if err != nil {
		s.metrics.Exchange(pathChallenge, "error")
		return model.Grant{}, err
	}

	s.trackConnection(ctx, claims.RequesterID, patientID)
	s.metrics.Exchange(pathChallenge, "granted")
	return grant, nil
}

func (s *ExchangeService) mint(ctx context.Context, patientID string, requesterID string, scope []model.Scope, durationSeconds int, via model.Provenance) (model.Grant, error) {
	ttl := ClampDuration(durationSeconds, DefaultAccessTTL, MinAccessTTL, MaxAccessTTL)
	tokenID := uuid.NewString()

	signed, expiresAt, err := s.codec.Encode(model.AccessClaims{
		TokenID:     tokenID,
		PatientID:   patientID,
		RequesterID: requesterID,
		Scope:       scope,
	}, ttl)
	if err != nil {
		return model.Grant{}, err
	}

	record := model.AccessTokenRecord{
		ID:          tokenID,
		PatientID:   patientID,
		RequesterID: requesterID,
		Scope:       scope,
		Token:       signed,
		Fingerprint: token.Fingerprint(signed),
		Via:         via,
		CreatedAt:   s.now().UTC(),
		ExpiresAt:   expiresAt,
	}
	if err := requiredWrite("persist access token", s.tokens.Create(ctx, record)); err != nil {
		return model.Grant{}, err
	}

	slog.Info("access granted",
		"patient_id", patientID,
		"requester_id", requesterID,
		"scope", model.ScopeStrings(scope),
		"via", via,
		"ttl", ttl,
	)

	grant := model.Grant{
		AccessToken: signed,
		Scope:       scope,
		PatientID:   patientID,
		RequesterID: requesterID,
		Via:         via,
		ExpiresAt:   expiresAt,
	}
	publish(s.bus, event.TypeAccessGranted, patientID, requesterID, map[string]any{
		"scope":      model.ScopeStrings(scope),
		"via":        via,
		"expires_at": expiresAt,
	}, s.now())
	return grant, nil
}

func (s *ExchangeService) trackConnection(ctx context.Context, requesterID string, patientID string) {
	conn := model.Connection{
		ID:             ids.New(),
		RequesterID:    requesterID,
		PatientID:      patientID,
		LastAccessedAt: s.now().UTC(),
	}
	bestEffortWrite(s.metrics, "track_connection", s.connections.Touch(ctx, conn))
}

// RequestedScope parses a requester's scope list. Unknown names are dropped; an empty list means view.
func RequestedScope(raw []string) []model.Scope {
	if len(raw) == 0 {
		return []model.Scope{model.ScopeView}
	}
	scopes, unknown := model.ParseScopes(raw)
	if len(unknown) > 0 {
		slog.Debug("dropping unknown requested scope", "unknown", unknown)
	}
	return scopes
}

// ClampDuration converts seconds to a duration within [lo, hi]; zero selects def.
func ClampDuration(seconds int, def time.Duration, lo time.Duration, hi time.Duration) time.Duration {
	if seconds == 0 {
		return def
	}
	n := time.Duration(seconds)
	switch {
	case n < lo/time.Second:
		return lo
	case n > hi/time.Second:
		return hi
	}
	return n * time.Second
}

func actingRequester(actingUserID string, requesterID string) string {
	if acting := strings.TrimSpace(actingUserID); acting != "" {
		return acting
	}
	return requesterID
}

func publish(bus event.Bus, typ event.Type, patientID string, actorID string, payload any, at time.Time) {
	if bus == nil {
		return
	}
	bus.Publish(event.Event{
		ID:        ids.New(),
		Type:      typ,
		PatientID: patientID,
		ActorID:   actorID,
		Payload:   payload,
		Timestamp: at.UTC(),
	})
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"med-connect/internal/event"
	"med-connect/internal/metrics"
	"med-connect/internal/model"
	"med-connect/internal/repository/memory"
	"med-connect/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

var errOffline = errors.New("store offline")

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

type fixture struct {
	clock    *testClock
	store    *memory.Store
	codec    *token.Codec
	bus      *event.InMemoryBus
	metrics  *metrics.Metrics
	codes    *CodeService
	exchange *ExchangeService
	guard    *AccessGuard
	records  *RecordService
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	strict      bool
	tokens      accessTokenStore
	connections connectionStore
	audit       auditStore
}

func withStrictRevocation() fixtureOption {
	return func(d *fixtureDeps) { d.strict = true }
}

func withConnections(c connectionStore) fixtureOption {
	return func(d *fixtureDeps) { d.connections = c }
}

func withTokens(t accessTokenStore) fixtureOption {
	return func(d *fixtureDeps) { d.tokens = t }
}

func withAudit(a auditStore) fixtureOption {
	return func(d *fixtureDeps) { d.audit = a }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	store.Tokens.SetClock(clock.Now)

	deps := fixtureDeps{tokens: store.Tokens, connections: store.Connections, audit: store.Audit}
	for _, opt := range opts {
		opt(&deps)
	}

	codec, err := token.NewCodec(testSecret, token.WithClock(clock.Now))
	require.NoError(t, err)

	bus := event.NewBus()
	m := metrics.New()

	codes := NewCodeService(store.Codes)
	codes.now = clock.Now

	exchange := NewExchangeService(codec, codes, deps.tokens, deps.connections, bus, m)
	exchange.SetClock(clock.Now)

	guard := NewAccessGuard(codec, deps.tokens, deps.audit, bus, m, deps.strict)
	guard.SetClock(clock.Now)

	records := NewRecordService(guard, store.Reports, store.Clinical, 10*1024*1024)
	records.SetClock(clock.Now)

	return &fixture{
		clock:    clock,
		store:    store,
		codec:    codec,
		bus:      bus,
		metrics:  m,
		codes:    codes,
		exchange: exchange,
		guard:    guard,
		records:  records,
	}
}

// grant mints an access token for patientID through the identity code path.
func (f *fixture) grant(t *testing.T, patientID string, requesterID string, scope ...string) model.Grant {
	t.Helper()

	ctx := context.Background()
	code, err := f.codes.Register(ctx, patientID, "")
	require.NoError(t, err)

	grant, err := f.exchange.ExchangeCode(ctx, model.CodeExchange{
		Code:           code.Code,
		RequesterID:    requesterID,
		RequestedScope: scope,
	})
	require.NoError(t, err)
	return grant
}

type failingConnections struct{}

func (failingConnections) Touch(context.Context, model.Connection) error { return errOffline }

func (failingConnections) ListRecent(context.Context, string, int) ([]model.Connection, error) {
	return nil, errOffline
}

type failingTokenCreate struct {
	*memory.AccessTokenStore
}

func (failingTokenCreate) Create(context.Context, model.AccessTokenRecord) error { return errOffline }

type failingAudit struct{}

func (failingAudit) Append(context.Context, model.AuditEvent) error { return errOffline }

func (failingAudit) Query(context.Context, model.AuditQuery) ([]model.AuditEvent, model.Meta, error) {
	return nil, model.Meta{}, errOffline
}

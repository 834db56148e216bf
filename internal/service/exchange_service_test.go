package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"med-connect/internal/model"
	"med-connect/pkg/apierror"
)

func TestExchangeConnectToken(t *testing.T) {
	t.Parallel()

	t.Run("grants the intersection of requested and connect scope", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		connect, err := f.exchange.IssueConnectToken(ctx, "patient-1", []string{"view"}, 0)
		require.NoError(t, err)

		grant, err := f.exchange.ExchangeConnectToken(ctx, model.TokenExchange{
			ConnectToken:   connect.Token,
			RequesterID:    "hospital-1",
			RequestedScope: []string{"view", "upload"},
		})
		require.NoError(t, err)
		require.Equal(t, []model.Scope{model.ScopeView}, grant.Scope)
		require.Equal(t, "patient-1", grant.PatientID)
		require.Equal(t, "hospital-1", grant.RequesterID)
		require.Equal(t, model.ViaToken, grant.Via)
		require.WithinDuration(t, f.clock.now.Add(DefaultAccessTTL), grant.ExpiresAt, 0)

		claims, err := f.codec.DecodeAccess(grant.AccessToken)
		require.NoError(t, err)
		require.Equal(t, grant.Scope, claims.Scope)

		records := f.store.Tokens.All()
		require.Len(t, records, 1)
		require.Equal(t, claims.TokenID, records[0].ID)
		require.Equal(t, model.ViaToken, records[0].Via)
	})

	t.Run("defaults the requested scope to view", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		connect, err := f.exchange.IssueConnectToken(ctx, "patient-1", []string{"view", "upload"}, 0)
		require.NoError(t, err)

		grant, err := f.exchange.ExchangeConnectToken(ctx, model.TokenExchange{
			ConnectToken: connect.Token,
			RequesterID:  "hospital-1",
		})
		require.NoError(t, err)
		require.Equal(t, []model.Scope{model.ScopeView}, grant.Scope)
	})

	t.Run("empty intersection persists nothing", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		connect, err := f.exchange.IssueConnectToken(ctx, "patient-1", []string{"upload"}, 0)
		require.NoError(t, err)

		_, err = f.exchange.ExchangeConnectToken(ctx, model.TokenExchange{
			ConnectToken:   connect.Token,
			RequesterID:    "hospital-1",
			RequestedScope: []string{"view"},
		})
		require.ErrorIs(t, err, model.ErrNoScopeGranted)
		require.Empty(t, f.store.Tokens.All())

		recent, err := f.store.Connections.ListRecent(ctx, "hospital-1", 10)
		require.NoError(t, err)
		require.Empty(t, recent)
	})

	t.Run("rejects credentials that are not connect tokens", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		challenge, err := f.exchange.IssueHospitalChallenge(ctx, "hospital-1")
		require.NoError(t, err)
		access := f.grant(t, "patient-1", "hospital-1", "view")

		for _, raw := range []string{"not-a-token", challenge.Token, access.AccessToken} {
			_, err := f.exchange.ExchangeConnectToken(ctx, model.TokenExchange{
				ConnectToken: raw,
				RequesterID:  "hospital-2",
			})
			require.ErrorIs(t, err, model.ErrInvalidCredential)
		}
		require.Len(t, f.store.Tokens.All(), 1)
	})

	t.Run("rejects an expired connect token", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		connect, err := f.exchange.IssueConnectToken(ctx, "patient-1", nil, 60)
		require.NoError(t, err)

		f.clock.now = f.clock.now.Add(61 * time.Second)
		_, err = f.exchange.ExchangeConnectToken(ctx, model.TokenExchange{
			ConnectToken: connect.Token,
			RequesterID:  "hospital-1",
		})
		require.ErrorIs(t, err, model.ErrInvalidCredential)
	})

	t.Run("requires requester and token", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.exchange.ExchangeConnectToken(context.Background(), model.TokenExchange{ConnectToken: "x"})
		var apiErr *apierror.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, "requester_id", apiErr.Details)

		_, err = f.exchange.ExchangeConnectToken(context.Background(), model.TokenExchange{RequesterID: "hospital-1"})
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, "connect_token", apiErr.Details)
	})
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()

	t.Run("full scope for a registered code", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		_, err := f.codes.Register(ctx, "patient-1", "AB3DE9K2")
		require.NoError(t, err)

		grant, err := f.exchange.ExchangeCode(ctx, model.CodeExchange{
			Code:           "ab3de9k2",
			RequesterID:    "hospital-1",
			RequestedScope: []string{"upload", "view"},
		})
		require.NoError(t, err)
		require.Equal(t, []model.Scope{model.ScopeView, model.ScopeUpload}, grant.Scope)
		require.Equal(t, "patient-1", grant.PatientID)
		require.Equal(t, model.ViaCode, grant.Via)

		recent, err := f.store.Connections.ListRecent(ctx, "hospital-1", 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		require.Equal(t, "patient-1", recent[0].PatientID)
	})

	t.Run("unknown code", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.exchange.ExchangeCode(context.Background(), model.CodeExchange{
			Code:        "ZZZZZZZZ",
			RequesterID: "hospital-1",
		})
		require.ErrorIs(t, err, model.ErrCodeNotFound)
		require.Empty(t, f.store.Tokens.All())
	})

	t.Run("only unknown scope requested", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		_, err := f.codes.Register(ctx, "patient-1", "AB3DE9K2")
		require.NoError(t, err)

		_, err = f.exchange.ExchangeCode(ctx, model.CodeExchange{
			Code:           "AB3DE9K2",
			RequesterID:    "hospital-1",
			RequestedScope: []string{"delete"},
		})
		require.ErrorIs(t, err, model.ErrNoScopeGranted)
		require.Empty(t, f.store.Tokens.All())
	})

	t.Run("connection is recorded for the acting user", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		_, err := f.codes.Register(ctx, "patient-1", "AB3DE9K2")
		require.NoError(t, err)

		_, err = f.exchange.ExchangeCode(ctx, model.CodeExchange{
			Code:         "AB3DE9K2",
			RequesterID:  "hospital-1",
			ActingUserID: "doctor-7",
		})
		require.NoError(t, err)

		recent, err := f.store.Connections.ListRecent(ctx, "doctor-7", 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
	})

	t.Run("connection tracking failure does not fail the exchange", func(t *testing.T) {
		f := newFixture(t, withConnections(failingConnections{}))
		ctx := context.Background()

		_, err := f.codes.Register(ctx, "patient-1", "AB3DE9K2")
		require.NoError(t, err)

		grant, err := f.exchange.ExchangeCode(ctx, model.CodeExchange{Code: "AB3DE9K2", RequesterID: "hospital-1"})
		require.NoError(t, err)
		require.NotEmpty(t, grant.AccessToken)
		require.Len(t, f.store.Tokens.All(), 1)
	})

	t.Run("token persistence failure fails the exchange", func(t *testing.T) {
		store := newFixture(t).store
		f := newFixture(t, withTokens(failingTokenCreate{store.Tokens}))
		ctx := context.Background()

		_, err := f.codes.Register(ctx, "patient-1", "AB3DE9K2")
		require.NoError(t, err)

		_, err = f.exchange.ExchangeCode(ctx, model.CodeExchange{Code: "AB3DE9K2", RequesterID: "hospital-1"})
		require.ErrorIs(t, err, model.ErrStorageUnavailable)

		recent, err := f.store.Connections.ListRecent(ctx, "hospital-1", 10)
		require.NoError(t, err)
		require.Empty(t, recent)
	})
}

func TestExchangeDurationClamping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		seconds int
		want    time.Duration
	}{
		{name: "default", seconds: 0, want: DefaultAccessTTL},
		{name: "below minimum", seconds: 10, want: MinAccessTTL},
		{name: "negative", seconds: -5, want: MinAccessTTL},
		{name: "in range", seconds: 7200, want: 2 * time.Hour},
		{name: "above maximum", seconds: 10_000_000, want: MaxAccessTTL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.codes.Register(ctx, "patient-1", "AB3DE9K2")
			require.NoError(t, err)

			grant, err := f.exchange.ExchangeCode(ctx, model.CodeExchange{
				Code:            "AB3DE9K2",
				RequesterID:     "hospital-1",
				DurationSeconds: tc.seconds,
			})
			require.NoError(t, err)
			require.WithinDuration(t, f.clock.now.Add(tc.want), grant.ExpiresAt, 0)
		})
	}
}

func TestIssueConnectToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.exchange.IssueConnectToken(ctx, "patient-1", nil, 5)
	require.NoError(t, err)
	require.Equal(t, []model.Scope{model.ScopeView}, issued.Scope)
	require.WithinDuration(t, f.clock.now.Add(MinConnectTTL), issued.ExpiresAt, 0)

	issued, err = f.exchange.IssueConnectToken(ctx, "patient-1", []string{"upload"}, 99999)
	require.NoError(t, err)
	require.WithinDuration(t, f.clock.now.Add(MaxConnectTTL), issued.ExpiresAt, 0)

	_, err = f.exchange.IssueConnectToken(ctx, "patient-1", []string{"view", "delete"}, 0)
	require.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = f.exchange.IssueConnectToken(ctx, "", nil, 0)
	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
}

func TestGrantFromChallenge(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	challenge, err := f.exchange.IssueHospitalChallenge(ctx, "hospital-1")
	require.NoError(t, err)
	require.WithinDuration(t, f.clock.now.Add(ChallengeTTL), challenge.ExpiresAt, 0)

	grant, err := f.exchange.GrantFromChallenge(ctx, model.ChallengeGrant{
		Challenge: challenge.Token,
		PatientID: "patient-1",
		Scope:     []string{"upload"},
	})
	require.NoError(t, err)
	require.Equal(t, "hospital-1", grant.RequesterID)
	require.Equal(t, []model.Scope{model.ScopeUpload}, grant.Scope)
	require.Equal(t, model.ViaChallenge, grant.Via)

	connect, err := f.exchange.IssueConnectToken(ctx, "patient-1", nil, 0)
	require.NoError(t, err)
	_, err = f.exchange.GrantFromChallenge(ctx, model.ChallengeGrant{Challenge: connect.Token, PatientID: "patient-1"})
	require.ErrorIs(t, err, model.ErrInvalidCredential)

	_, err = f.exchange.GrantFromChallenge(ctx, model.ChallengeGrant{
		Challenge: challenge.Token,
		PatientID: "patient-1",
		Scope:     []string{"admin"},
	})
	require.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestIntersectionNeverExceedsEitherSide(t *testing.T) {
	t.Parallel()

	subsets := [][]string{{}, {"view"}, {"upload"}, {"view", "upload"}, {"upload", "bogus"}}
	for _, requested := range subsets {
		for _, allowedRaw := range subsets[1:] {
			allowed, _ := model.ParseScopes(allowedRaw)
			granted := model.IntersectScopes(RequestedScope(requested), allowed)
			for _, s := range granted {
				require.True(t, model.ContainsScope(allowed, s))
				require.True(t, model.ContainsScope(RequestedScope(requested), s))
			}
		}
	}
}

func TestClampDuration(t *testing.T) {
	t.Parallel()

	require.Equal(t, 5*time.Minute, ClampDuration(0, 5*time.Minute, time.Minute, time.Hour))
	require.Equal(t, time.Minute, ClampDuration(1, 5*time.Minute, time.Minute, time.Hour))
	require.Equal(t, 90*time.Second, ClampDuration(90, 5*time.Minute, time.Minute, time.Hour))
	require.Equal(t, time.Hour, ClampDuration(1<<62, 5*time.Minute, time.Minute, time.Hour))
}

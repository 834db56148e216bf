// Package token signs and verifies the capability tokens exchanged between patients and requesters.
package token

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"med-connect/internal/model"
)

// MinSecretLength is the shortest HMAC key the codec accepts.
const MinSecretLength = 32

const DefaultIssuer = "med-connect"

var ErrWeakSecret = fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)

type signedClaims struct {
	Kind        model.TokenKind `json:"kind"`
	PatientID   string          `json:"patient_id,omitempty"`
	RequesterID string          `json:"requester_id,omitempty"`
	Scope       []model.Scope   `json:"scope,omitempty"`
	ExpiresAtMs int64           `json:"expires_at"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type Option func(*Codec)

func WithIssuer(issuer string) Option {
	return func(c *Codec) {
		if strings.TrimSpace(issuer) != "" {
			c.issuer = strings.TrimSpace(issuer)
		}
	}
}

// WithClock replaces the wall clock used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	c := &Codec{
		secret: []byte(secret),
		issuer: DefaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Encode signs claims with an absolute expiry of ttl from now. The expiry is carried twice:
// as the declared expires_at field and as the JWT exp claim.
func (c *Codec) Encode(claims model.TokenClaims, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("%w: token ttl must be positive", model.ErrInvalidInput)
	}

	now := c.now().UTC()
	expiresAt := now.Add(ttl)

	payload := signedClaims{
		Kind:        claims.Kind(),
		ExpiresAtMs: expiresAt.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	switch v := claims.(type) {
	case model.ChallengeClaims:
		payload.RequesterID = v.RequesterID
		payload.Subject = v.RequesterID
	case model.ConnectClaims:
		payload.PatientID = v.PatientID
		payload.Scope = v.Scope
		payload.Subject = v.PatientID
	case model.AccessClaims:
		payload.PatientID = v.PatientID
		payload.RequesterID = v.RequesterID
		payload.Scope = v.Scope
		payload.Subject = v.PatientID
		if v.TokenID != "" {
			payload.ID = v.TokenID
		}
	default:
		return "", time.Time{}, fmt.Errorf("unsupported claims type %T", claims)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", claims.Kind(), err)
	}

	return signed, time.UnixMilli(payload.ExpiresAtMs).UTC(), nil
}

// Decode verifies signature and both expiries and returns the claims variant named by the
// payload. Every failure is reported as model.ErrInvalidCredential.
func (c *Codec) Decode(raw string) (model.TokenClaims, error) {
	var payload signedClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &payload, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, reject("parse", err)
	}

	expiresAt := time.UnixMilli(payload.ExpiresAtMs).UTC()
	if payload.ExpiresAtMs <= 0 || !c.now().Before(expiresAt) {
		return nil, reject("declared expiry", nil)
	}

	for _, s := range payload.Scope {
		if !s.Valid() {
			return nil, reject("scope", nil)
		}
	}

	switch payload.Kind {
	case model.KindChallenge:
		if payload.RequesterID == "" {
			return nil, reject("challenge subject", nil)
		}
		return model.ChallengeClaims{RequesterID: payload.RequesterID, ExpiresAt: expiresAt}, nil
	case model.KindConnect:
		if payload.PatientID == "" {
			return nil, reject("connect subject", nil)
		}
		return model.ConnectClaims{PatientID: payload.PatientID, Scope: payload.Scope, ExpiresAt: expiresAt}, nil
	case model.KindAccess:
		if payload.PatientID == "" || payload.RequesterID == "" {
			return nil, reject("access subject", nil)
		}
		return model.AccessClaims{
			TokenID:     payload.ID,
			PatientID:   payload.PatientID,
			RequesterID: payload.RequesterID,
			Scope:       payload.Scope,
			ExpiresAt:   expiresAt,
		}, nil
	default:
		return nil, reject("kind", nil)
	}
}

func (c *Codec) DecodeChallenge(raw string) (model.ChallengeClaims, error) {
	claims, err := c.Decode(raw)
	if err != nil {
		return model.ChallengeClaims{}, err
	}
	challenge, ok := claims.(model.ChallengeClaims)
	if !ok {
		return model.ChallengeClaims{}, reject("expected challenge", nil)
	}
	return challenge, nil
}

func (c *Codec) DecodeConnect(raw string) (model.ConnectClaims, error) {
	claims, err := c.Decode(raw)
	if err != nil {
		return model.ConnectClaims{}, err
	}
	connect, ok := claims.(model.ConnectClaims)
	if !ok {
		return model.ConnectClaims{}, reject("expected connect", nil)
	}
	return connect, nil
}

func (c *Codec) DecodeAccess(raw string) (model.AccessClaims, error) {
	claims, err := c.Decode(raw)
	if err != nil {
		return model.AccessClaims{}, err
	}
	access, ok := claims.(model.AccessClaims)
	if !ok {
		return model.AccessClaims{}, reject("expected access", nil)
	}
	return access, nil
}

// Fingerprint identifies a signed token in storage without keeping a second copy of the secret.
func Fingerprint(raw string) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// reject logs the reason at debug level only; callers see a single outcome.
func reject(stage string, cause error) error {
	attrs := []any{"stage", stage}
	if cause != nil && !errors.Is(cause, model.ErrInvalidCredential) {
		attrs = append(attrs, "cause", cause.Error())
	}
	slog.Debug("token rejected", attrs...)
	return model.ErrInvalidCredential
}

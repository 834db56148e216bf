package model

import "time"

type TokenKind string

const (
	KindChallenge TokenKind = "challenge"
	KindConnect   TokenKind = "connect"
	KindAccess    TokenKind = "access"
)

// TokenClaims is the fixed-shape payload of one signed token kind.
type TokenClaims interface {
	Kind() TokenKind
}

// ChallengeClaims identify a requester; shown as a QR code for a patient to scan.
type ChallengeClaims struct {
	RequesterID string
	ExpiresAt   time.Time
}

func (ChallengeClaims) Kind() TokenKind { return KindChallenge }

// ConnectClaims are issued by the patient side and redeemed by a requester.
type ConnectClaims struct {
	PatientID string
	Scope     []Scope
	ExpiresAt time.Time
}

func (ConnectClaims) Kind() TokenKind { return KindConnect }

// AccessClaims authorize a requester's operations on one patient's records.
type AccessClaims struct {
	TokenID     string
	PatientID   string
	RequesterID string
	Scope       []Scope
	ExpiresAt   time.Time
}

func (AccessClaims) Kind() TokenKind { return KindAccess }

func (c AccessClaims) Allows(s Scope) bool {
	return ContainsScope(c.Scope, s)
}

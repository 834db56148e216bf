package model

import "time"

type Provenance string

const (
	ViaToken     Provenance = "token"
	ViaCode      Provenance = "code"
	ViaChallenge Provenance = "challenge"
)

type IdentityCode struct {
	Code      string    `json:"code"`
	PatientID string    `json:"patient_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AccessTokenRecord is the bookkeeping copy of a minted access token.
// The signature on Token, not this record, decides validity unless strict revocation is enabled.
type AccessTokenRecord struct {
	ID          string     `json:"id"`
	PatientID   string     `json:"patient_id"`
	RequesterID string     `json:"requester_id"`
	Scope       []Scope    `json:"scope"`
	Token       string     `json:"-"`
	Fingerprint string     `json:"-"`
	Via         Provenance `json:"via"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

type Connection struct {
	ID             string    `json:"id"`
	RequesterID    string    `json:"requester_id"`
	PatientID      string    `json:"patient_id"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// IssuedToken is a freshly signed challenge or connect token.
type IssuedToken struct {
	Token     string    `json:"token"`
	Kind      TokenKind `json:"kind"`
	Scope     []Scope   `json:"scope,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Grant is the result of a successful exchange.
type Grant struct {
	AccessToken string     `json:"access_token"`
	Scope       []Scope    `json:"scope"`
	PatientID   string     `json:"patient_id"`
	RequesterID string     `json:"requester_id"`
	Via         Provenance `json:"via"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

type TokenExchange struct {
	ConnectToken    string
	RequesterID     string
	RequestedScope  []string
	DurationSeconds int
	ActingUserID    string
}

type CodeExchange struct {
	Code            string
	RequesterID     string
	RequestedScope  []string
	DurationSeconds int
	ActingUserID    string
}

// ChallengeGrant is a patient granting access to the requester named in a scanned challenge.
type ChallengeGrant struct {
	Challenge       string
	PatientID       string
	Scope           []string
	DurationSeconds int
}

package service

import (
	"context"
	"time"

	"med-connect/internal/model"
)

type codeStore interface {
	DeleteByPatient(ctx context.Context, patientID string) (int64, error)
	FindPatient(ctx context.Context, code string) (string, error)
	Insert(ctx context.Context, code model.IdentityCode) error
}

type accessTokenStore interface {
	Create(ctx context.Context, record model.AccessTokenRecord) error
	DeleteByPair(ctx context.Context, patientID string, requesterID string) (int64, error)
	ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error)
	ListActiveByPatient(ctx context.Context, patientID string) ([]model.AccessTokenRecord, error)
	CleanExpired(ctx context.Context) (int64, error)
}

type connectionStore interface {
	Touch(ctx context.Context, conn model.Connection) error
	ListRecent(ctx context.Context, requesterID string, limit int) ([]model.Connection, error)
}

type auditStore interface {
	Append(ctx context.Context, event model.AuditEvent) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEvent, model.Meta, error)
}

type reportStore interface {
	Create(ctx context.Context, report model.Report) error
	ListByPatient(ctx context.Context, patientID string, limit int) ([]model.Report, error)
}

type clinicalStore interface {
	ListByPatient(ctx context.Context, patientID string, category model.ClinicalCategory) ([]model.ClinicalEntry, error)
}

type tokenCodec interface {
	Encode(claims model.TokenClaims, ttl time.Duration) (string, time.Time, error)
	DecodeChallenge(raw string) (model.ChallengeClaims, error)
	DecodeConnect(raw string) (model.ConnectClaims, error)
	DecodeAccess(raw string) (model.AccessClaims, error)
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"med-connect/internal/model"
)

type CodeStore interface {
	DeleteByPatient(ctx context.Context, patientID string) (int64, error)
	FindPatient(ctx context.Context, code string) (string, error)
	Insert(ctx context.Context, code model.IdentityCode) error
}

type AccessTokenStore interface {
	Create(ctx context.Context, record model.AccessTokenRecord) error
	DeleteByPair(ctx context.Context, patientID string, requesterID string) (int64, error)
	ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error)
	ListActiveByPatient(ctx context.Context, patientID string) ([]model.AccessTokenRecord, error)
	CleanExpired(ctx context.Context) (int64, error)
}

type ConnectionStore interface {
	Touch(ctx context.Context, conn model.Connection) error
	ListRecent(ctx context.Context, requesterID string, limit int) ([]model.Connection, error)
}

type AuditStore interface {
	Append(ctx context.Context, event model.AuditEvent) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEvent, model.Meta, error)
}

type ReportStore interface {
	Create(ctx context.Context, report model.Report) error
	ListByPatient(ctx context.Context, patientID string, limit int) ([]model.Report, error)
}

type ClinicalStore interface {
	Create(ctx context.Context, entry model.ClinicalEntry) error
	ListByPatient(ctx context.Context, patientID string, category model.ClinicalCategory) ([]model.ClinicalEntry, error)
}

// Set is one implementation of every store, selected by STORE_DRIVER.
type Set struct {
	Driver      string
	Codes       CodeStore
	Tokens      AccessTokenStore
	Connections ConnectionStore
	Audit       AuditStore
	Reports     ReportStore
	Clinical    ClinicalStore
	Ping        func(ctx context.Context) error
	// PoolStat is nil for drivers without a connection pool.
	PoolStat    func() *pgxpool.Stat
}

func NewPostgresSet(pool *pgxpool.Pool) Set {
	return Set{
		Driver:      "postgres",
		Codes:       NewCodeRepository(pool),
		Tokens:      NewAccessTokenRepository(pool),
		Connections: NewConnectionRepository(pool),
		Audit:       NewAuditRepository(pool),
		Reports:     NewReportRepository(pool),
		Clinical:    NewClinicalRepository(pool),
		Ping:        pool.Ping,
		PoolStat:    pool.Stat,
	}
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"med-connect/internal/model"
)

type AccessTokenRepository struct {
	pool *pgxpool.Pool
}

func NewAccessTokenRepository(pool *pgxpool.Pool) *AccessTokenRepository {
	return &AccessTokenRepository{pool: pool}
}

func (r *AccessTokenRepository) Create(ctx context.Context, record model.AccessTokenRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO access_tokens
		 (id, patient_id, requester_id, scope, token, fingerprint, via, created_at, expires_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.PatientID, record.RequesterID, model.ScopeStrings(record.Scope),
		record.Token, record.Fingerprint, string(record.Via), record.CreatedAt, record.ExpiresAt)
	if err != nil {
		return storageError("store access token", err)
	}
	return nil
}

func (r *AccessTokenRepository) DeleteByPair(ctx context.Context, patientID string, requesterID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM access_tokens WHERE patient_id = $1 AND requester_id = $2`, patientID, requesterID)
	if err != nil {
		return 0, storageError("revoke access tokens", err)
	}
	return tag.RowsAffected(), nil
}

func (r *AccessTokenRepository) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM access_tokens WHERE fingerprint = $1 AND expires_at > now())`,
		fingerprint).Scan(&exists)
	if err != nil {
		return false, storageError("lookup access token", err)
	}
	return exists, nil
}

func (r *AccessTokenRepository) ListActiveByPatient(ctx context.Context, patientID string) ([]model.AccessTokenRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, patient_id, requester_id, scope, via, created_at, expires_at
		 FROM access_tokens
		 WHERE patient_id = $1 AND expires_at > now()
		 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, storageError("list access tokens", err)
	}
	defer rows.Close()

	records := make([]model.AccessTokenRecord, 0)
	for rows.Next() {
		var rec model.AccessTokenRecord
		var scope []string
		var via string
		if err := rows.Scan(&rec.ID, &rec.PatientID, &rec.RequesterID, &scope, &via, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
			return nil, storageError("scan access token", err)
		}
		rec.Scope, _ = model.ParseScopes(scope)
		rec.Via = model.Provenance(via)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list access tokens", err)
	}
	return records, nil
}

func (r *AccessTokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM access_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, storageError("clean expired access tokens", err)
	}
	return tag.RowsAffected(), nil
}

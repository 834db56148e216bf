package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"med-connect/internal/model"
)

type CodeRepository struct {
	pool *pgxpool.Pool
}

func NewCodeRepository(pool *pgxpool.Pool) *CodeRepository {
	return &CodeRepository{pool: pool}
}

func (r *CodeRepository) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM identity_codes WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, storageError("delete identity codes", err)
	}
	return tag.RowsAffected(), nil
}

func (r *CodeRepository) FindPatient(ctx context.Context, code string) (string, error) {
	var patientID string
	err := r.pool.QueryRow(ctx,
		`SELECT patient_id FROM identity_codes WHERE code = $1`, code).Scan(&patientID)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrCodeNotFound
	}
	if err != nil {
		return "", storageError("find identity code", err)
	}
	return patientID, nil
}

// Insert relies on the primary key for uniqueness; a taken code yields model.ErrCodeTaken.
func (r *CodeRepository) Insert(ctx context.Context, code model.IdentityCode) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO identity_codes (code, patient_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (code) DO NOTHING`,
		code.Code, code.PatientID, code.CreatedAt)
	if err != nil {
		return storageError("insert identity code", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCodeTaken
	}
	return nil
}

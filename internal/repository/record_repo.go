package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"med-connect/internal/model"
)

type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) Create(ctx context.Context, report model.Report) error {
	var summary []byte
	if len(report.Summary) > 0 {
		summary = report.Summary
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO reports
		 (id, patient_id, title, type, report_date, uploaded_at, uploaded_by,
		  download_url, file_size, file_type, storage_provider, summary)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		report.ID, report.PatientID, report.Title, report.Type, report.Date, report.UploadedAt,
		report.UploadedBy, report.DownloadURL, report.FileSize, report.FileType,
		report.StorageProvider, summary)
	if err != nil {
		return storageError("create report", err)
	}
	return nil
}

// ListByPatient returns newest first; limit <= 0 means no limit.
func (r *ReportRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]model.Report, error) {
	query := `SELECT id::text, patient_id, title, type, report_date, uploaded_at, uploaded_by,
	                 download_url, file_size, file_type, storage_provider, summary
	          FROM reports
	          WHERE patient_id = $1
	          ORDER BY uploaded_at DESC`
	args := []any{patientID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("list reports", err)
	}
	defer rows.Close()

	reports := make([]model.Report, 0)
	for rows.Next() {
		var rep model.Report
		var summary []byte
		if err := rows.Scan(&rep.ID, &rep.PatientID, &rep.Title, &rep.Type, &rep.Date, &rep.UploadedAt,
			&rep.UploadedBy, &rep.DownloadURL, &rep.FileSize, &rep.FileType, &rep.StorageProvider, &summary); err != nil {
			return nil, storageError("scan report", err)
		}
		if len(summary) > 0 {
			rep.Summary = summary
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list reports", err)
	}
	return reports, nil
}

type ClinicalRepository struct {
	pool *pgxpool.Pool
}

func NewClinicalRepository(pool *pgxpool.Pool) *ClinicalRepository {
	return &ClinicalRepository{pool: pool}
}

func (r *ClinicalRepository) Create(ctx context.Context, entry model.ClinicalEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO clinical_entries (id, patient_id, category, payload, recorded_at)
		 VALUES ($1::uuid, $2, $3, $4, $5)`,
		entry.ID, entry.PatientID, string(entry.Category), []byte(entry.Payload), entry.RecordedAt)
	if err != nil {
		return storageError("create clinical entry", err)
	}
	return nil
}

func (r *ClinicalRepository) ListByPatient(ctx context.Context, patientID string, category model.ClinicalCategory) ([]model.ClinicalEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, patient_id, category, payload, recorded_at
		 FROM clinical_entries
		 WHERE patient_id = $1 AND category = $2
		 ORDER BY recorded_at DESC`, patientID, string(category))
	if err != nil {
		return nil, storageError("list clinical entries", err)
	}
	defer rows.Close()

	entries := make([]model.ClinicalEntry, 0)
	for rows.Next() {
		var e model.ClinicalEntry
		var cat string
		var payload []byte
		if err := rows.Scan(&e.ID, &e.PatientID, &cat, &payload, &e.RecordedAt); err != nil {
			return nil, storageError("scan clinical entry", err)
		}
		e.Category = model.ClinicalCategory(cat)
		e.Payload = payload
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list clinical entries", err)
	}
	return entries, nil
}

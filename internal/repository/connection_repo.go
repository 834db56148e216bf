package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"med-connect/internal/model"
)

type ConnectionRepository struct {
	pool *pgxpool.Pool
}

func NewConnectionRepository(pool *pgxpool.Pool) *ConnectionRepository {
	return &ConnectionRepository{pool: pool}
}

// Touch creates the requester/patient pair or refreshes its last access time.
func (r *ConnectionRepository) Touch(ctx context.Context, conn model.Connection) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO requester_patient_connections (id, requester_id, patient_id, last_accessed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (requester_id, patient_id)
		 DO UPDATE SET last_accessed_at = EXCLUDED.last_accessed_at`,
		conn.ID, conn.RequesterID, conn.PatientID, conn.LastAccessedAt)
	if err != nil {
		return storageError("touch connection", err)
	}
	return nil
}

func (r *ConnectionRepository) ListRecent(ctx context.Context, requesterID string, limit int) ([]model.Connection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, requester_id, patient_id, last_accessed_at
		 FROM requester_patient_connections
		 WHERE requester_id = $1
		 ORDER BY last_accessed_at DESC
		 LIMIT $2`, requesterID, limit)
	if err != nil {
		return nil, storageError("list connections", err)
	}
	defer rows.Close()

	conns := make([]model.Connection, 0)
	for rows.Next() {
		var c model.Connection
		if err := rows.Scan(&c.ID, &c.RequesterID, &c.PatientID, &c.LastAccessedAt); err != nil {
			return nil, storageError("scan connection", err)
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list connections", err)
	}
	return conns, nil
}

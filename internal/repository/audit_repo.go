package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"med-connect/internal/model"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Append(ctx context.Context, event model.AuditEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_events (id, patient_id, action, actor_id, resource, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.PatientID, string(event.Action), event.ActorID, event.Resource, event.OccurredAt)
	if err != nil {
		return storageError("append audit event", err)
	}
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEvent, model.Meta, error) {
	query = normalizeAuditQuery(query)

	where := []string{"patient_id = $1"}
	args := []any{query.PatientID}
	argIdx := 2

	if action := strings.TrimSpace(query.Action); action != "" {
		where = append(where, fmt.Sprintf("action = lower($%d)", argIdx))
		args = append(args, action)
		argIdx++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_events "+whereClause, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, storageError("count audit events", err)
	}
	meta := model.NewMeta(query.Page, query.Limit, total)

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT id, patient_id, action, actor_id, resource, occurred_at
		 FROM audit_events %s
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, storageError("query audit events", err)
	}
	defer rows.Close()

	events := make([]model.AuditEvent, 0)
	for rows.Next() {
		var e model.AuditEvent
		var action string
		if err := rows.Scan(&e.ID, &e.PatientID, &action, &e.ActorID, &e.Resource, &e.OccurredAt); err != nil {
			return nil, model.Meta{}, storageError("scan audit event", err)
		}
		e.Action = model.AuditAction(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Meta{}, storageError("query audit events", err)
	}

	return events, meta, nil
}

func normalizeAuditQuery(query model.AuditQuery) model.AuditQuery {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}
	query.Action = strings.ToLower(strings.TrimSpace(query.Action))
	return query
}

package service

import (
	"errors"
	"fmt"
	"log/slog"

	"med-connect/internal/metrics"
	"med-connect/internal/model"
	"med-connect/pkg/apierror"
)

// requiredWrite is the must-succeed channel: a failed write aborts the operation that issued it
// and surfaces as model.ErrStorageUnavailable.
func requiredWrite(op string, err error) error {
	if err == nil {
		return nil
	}

	slog.Error("required write failed", "operation", op, "error", err)
	if errors.Is(err, model.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorageUnavailable, err)
}

// bestEffortWrite is the fire-and-forget channel: a failed write is logged and counted only.
func bestEffortWrite(m *metrics.Metrics, op string, err error) bool {
	if err == nil {
		return true
	}

	slog.Warn("best-effort write failed", "operation", op, "error", err)
	m.BestEffortFailure(op)
	return false
}

func badRequest(message string, field string) error {
	return apierror.BadRequest(message, field)
}

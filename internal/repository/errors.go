package repository

import (
	"fmt"

	"med-connect/internal/model"
)

// storageError marks a driver failure as model.ErrStorageUnavailable while keeping the cause.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorageUnavailable, err)
}

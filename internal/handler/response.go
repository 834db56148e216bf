package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"med-connect/internal/model"
	"med-connect/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	case errors.Is(err, model.ErrInvalidCredential):
		status = http.StatusBadRequest
		body.Code = "INVALID_CREDENTIAL"
		body.Message = "Invalid or expired credential"
	case errors.Is(err, model.ErrCodeNotFound):
		status = http.StatusNotFound
		body.Code = "CODE_NOT_FOUND"
		body.Message = "Code not found"
	case errors.Is(err, model.ErrNoScopeGranted):
		status = http.StatusForbidden
		body.Code = "NO_SCOPE_GRANTED"
		body.Message = "None of the requested scope can be granted"
	case errors.Is(err, model.ErrAuthenticationFailed):
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Invalid or expired access token"
	case errors.Is(err, model.ErrAuthorizationFailed):
		status = http.StatusForbidden
		body.Code = "FORBIDDEN_SCOPE"
		body.Message = "Access token does not permit this operation"
	case errors.Is(err, model.ErrCodeUnavailable):
		status = http.StatusConflict
		body.Code = "CODE_UNAVAILABLE"
		body.Message = "Could not allocate a unique code, try again"
	case errors.Is(err, model.ErrReportNotFound):
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Report not found"
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
		body.Details = err.Error()
	case errors.Is(err, model.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
		body.Code = "STORAGE_UNAVAILABLE"
		body.Message = "Storage is temporarily unavailable"
		slog.Error("storage unavailable", "error", err.Error())
	default:
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierror.BadRequest("invalid JSON body", "")
	}
	return nil
}

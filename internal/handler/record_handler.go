package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"med-connect/internal/middleware"
	"med-connect/internal/model"
	"med-connect/internal/service"
	"med-connect/pkg/apierror"
)

// RecordHandler serves the bearer-protected record endpoints. The token itself is checked by the
// access guard inside RecordService.
type RecordHandler struct {
	records *service.RecordService
}

func NewRecordHandler(records *service.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

func (h *RecordHandler) UploadReport(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	token, ok := middleware.AccessTokenFromContext(r.Context())
	if !ok {
		writeError(w, errMissingToken)
		return
	}

	var payload model.UploadReportRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	report, err := h.records.UploadReport(r.Context(), token, model.ReportUpload{
		PatientID:   payload.PatientID,
		Title:       payload.Title,
		Type:        payload.Type,
		Date:        payload.Date,
		DownloadURL: payload.ReportURL,
		FileSize:    payload.FileSize,
		FileType:    payload.FileType,
		Summary:     payload.Summary,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, report, nil)
}

func (h *RecordHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	token, payload, ok := h.patientRequest(w, r)
	if !ok {
		return
	}

	reports, err := h.records.ListReports(r.Context(), token, payload.PatientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ReportListData{Reports: reports}, nil)
}

func (h *RecordHandler) Profile(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	token, payload, ok := h.patientRequest(w, r)
	if !ok {
		return
	}

	profile, err := h.records.Profile(r.Context(), token, payload.PatientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile, nil)
}

var errMissingToken = apierror.Unauthorized("missing access token")

// patientRequest reads the optional patient_id body; an empty body targets the token's patient.
func (h *RecordHandler) patientRequest(w http.ResponseWriter, r *http.Request) (string, model.PatientRecordRequest, bool) {
	var payload model.PatientRecordRequest

	token, ok := middleware.AccessTokenFromContext(r.Context())
	if !ok {
		writeError(w, errMissingToken)
		return "", payload, false
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return "", payload, false
	}
	return token, payload, true
}

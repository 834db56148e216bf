package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"med-connect/internal/model"
	"med-connect/internal/service"
)

// AccessHandler serves revocation and the patient/requester dashboards.
type AccessHandler struct {
	guard  *service.AccessGuard
	grants *service.GrantService
	audit  *service.AuditService
}

func NewAccessHandler(guard *service.AccessGuard, grants *service.GrantService, audit *service.AuditService) *AccessHandler {
	return &AccessHandler{guard: guard, grants: grants, audit: audit}
}

func (h *AccessHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RevokeRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	removed, err := h.guard.Revoke(r.Context(), payload.PatientID, payload.RequesterID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.RevokeResponse{Revoked: true, RecordsRemoved: removed}, nil)
}

func (h *AccessHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := h.grants.ListGrants(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.GrantListData{Grants: grants}, nil)
}

func (h *AccessHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	items, meta, err := h.audit.ListForPatient(r.Context(), model.AuditQuery{
		PatientID: chi.URLParam(r, "patientID"),
		Action:    strings.TrimSpace(query.Get("action")),
		Page:      parseIntOrDefault(query.Get("page"), 1),
		Limit:     parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuditListData{Items: items}, &meta)
}

func (h *AccessHandler) RecentPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.grants.RecentPatients(r.Context(), chi.URLParam(r, "requesterID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ConnectionListData{Patients: patients}, nil)
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

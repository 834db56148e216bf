package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"med-connect/internal/model"
	"med-connect/internal/service"
)

// ConnectHandler serves the credential issuance and exchange endpoints.
type ConnectHandler struct {
	exchange *service.ExchangeService
	codes    *service.CodeService
}

func NewConnectHandler(exchange *service.ExchangeService, codes *service.CodeService) *ConnectHandler {
	return &ConnectHandler{exchange: exchange, codes: codes}
}

func (h *ConnectHandler) HospitalChallenge(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.HospitalChallengeRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	issued, err := h.exchange.IssueHospitalChallenge(r.Context(), payload.RequesterID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, issued, nil)
}

func (h *ConnectHandler) ChallengeGrant(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ChallengeGrantRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	grant, err := h.exchange.GrantFromChallenge(r.Context(), model.ChallengeGrant{
		Challenge:       payload.Challenge,
		PatientID:       payload.PatientID,
		Scope:           payload.Scope,
		DurationSeconds: payload.DurationSeconds,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, grant, nil)
}

func (h *ConnectHandler) ConnectToken(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ConnectTokenRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	issued, err := h.exchange.IssueConnectToken(r.Context(), payload.PatientID, payload.Scope, payload.DurationSeconds)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, issued, nil)
}

func (h *ConnectHandler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ExchangeTokenRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	grant, err := h.exchange.ExchangeConnectToken(r.Context(), model.TokenExchange{
		ConnectToken:    payload.ConnectToken,
		RequesterID:     payload.RequesterID,
		RequestedScope:  payload.RequestedScope,
		DurationSeconds: payload.DurationSeconds,
		ActingUserID:    payload.ActingUserID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, grant, nil)
}

func (h *ConnectHandler) RegisterCode(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterCodeRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.codes.Register(r.Context(), payload.PatientID, payload.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, entry, nil)
}

func (h *ConnectHandler) ExchangeCode(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ExchangeCodeRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	grant, err := h.exchange.ExchangeCode(r.Context(), model.CodeExchange{
		Code:            payload.Code,
		RequesterID:     payload.RequesterID,
		RequestedScope:  payload.RequestedScope,
		DurationSeconds: payload.DurationSeconds,
		ActingUserID:    payload.ActingUserID,
	})
	if err != nil {
		if errors.Is(err, model.ErrCodeNotFound) {
			slog.Warn("code exchange miss", "requester_id", payload.RequesterID, "client_ip", clientIP(r))
		}
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, grant, nil)
}

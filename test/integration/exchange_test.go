//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"med-connect/internal/config"
	"med-connect/internal/model"
	"med-connect/internal/repository"
	"med-connect/internal/service"
)

func registerCode(t *testing.T, baseURL string, patientID string) string {
	t.Helper()

	status, env := postJSON(t, baseURL+"/api/v1/connect/codes", model.RegisterCodeRequest{PatientID: patientID}, "")
	require.Equal(t, http.StatusCreated, status)

	var entry model.IdentityCode
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	require.True(t, service.ValidCode(entry.Code))
	return entry.Code
}

func TestCodeExchangeAgainstPostgres(t *testing.T) {
	server, repos := newServer(t, config.RevocationAdvisory)
	patientID := uniqueID("patient")
	requesterID := uniqueID("hospital")

	code := registerCode(t, server.URL, patientID)

	status, env := postJSON(t, server.URL+"/api/v1/connect/exchange-code", model.ExchangeCodeRequest{
		Code:           code,
		RequesterID:    requesterID,
		RequestedScope: []string{"view", "upload"},
	}, "")
	require.Equal(t, http.StatusOK, status)

	var grant model.Grant
	require.NoError(t, json.Unmarshal(env.Data, &grant))
	require.Equal(t, patientID, grant.PatientID)

	status, _ = postJSON(t, server.URL+"/api/v1/records/reports", model.UploadReportRequest{
		PatientID: patientID,
		FileType:  "image/png",
		FileSize:  1024,
	}, grant.AccessToken)
	require.Equal(t, http.StatusCreated, status)

	require.NoError(t, repos.Clinical.Create(t.Context(), model.ClinicalEntry{
		ID:         uuid.NewString(),
		PatientID:  patientID,
		Category:   model.CategoryCondition,
		Payload:    json.RawMessage(`{"name":"asthma"}`),
		RecordedAt: time.Now().UTC(),
	}))

	status, env = postJSON(t, server.URL+"/api/v1/records/profile", model.PatientRecordRequest{
		AccessToken: grant.AccessToken,
	}, "")
	require.Equal(t, http.StatusOK, status)

	var profile model.PatientProfile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	require.Len(t, profile.RecentReports, 1)
	require.Len(t, profile.Conditions, 1)
	require.Empty(t, profile.Medications)
	require.Equal(t, service.DefaultReportTitle, profile.RecentReports[0].Title)

	events, meta, err := repos.Audit.Query(t.Context(), model.AuditQuery{PatientID: patientID, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, meta.Total)
	require.Equal(t, model.ActionViewProfile, events[0].Action)

	recent, err := repos.Connections.ListRecent(t.Context(), requesterID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestCodeRegistryReplacesAndRejectsCollisions(t *testing.T) {
	_, repos := newServer(t, config.RevocationAdvisory)
	patientID := uniqueID("patient")

	first := registerCodeDirect(t, repos.Codes, patientID)
	second := registerCodeDirect(t, repos.Codes, patientID)
	require.NotEqual(t, first, second)

	_, err := repos.Codes.FindPatient(t.Context(), first)
	require.ErrorIs(t, err, model.ErrCodeNotFound)

	err = repos.Codes.Insert(t.Context(), model.IdentityCode{Code: second, PatientID: uniqueID("patient")})
	require.ErrorIs(t, err, model.ErrCodeTaken)
}

func registerCodeDirect(t *testing.T, codes repository.CodeStore, patientID string) string {
	t.Helper()

	entry, err := service.NewCodeService(codes).Register(t.Context(), patientID, "")
	require.NoError(t, err)
	return entry.Code
}

func TestStrictRevocationAgainstPostgres(t *testing.T) {
	server, _ := newServer(t, config.RevocationStrict)
	patientID := uniqueID("patient")
	requesterID := uniqueID("hospital")

	code := registerCode(t, server.URL, patientID)
	status, env := postJSON(t, server.URL+"/api/v1/connect/exchange-code", model.ExchangeCodeRequest{
		Code:        code,
		RequesterID: requesterID,
	}, "")
	require.Equal(t, http.StatusOK, status)

	var grant model.Grant
	require.NoError(t, json.Unmarshal(env.Data, &grant))

	status, _ = postJSON(t, server.URL+"/api/v1/records/reports/list", model.PatientRecordRequest{}, grant.AccessToken)
	require.Equal(t, http.StatusOK, status)

	status, env = getJSON(t, server.URL+"/api/v1/patients/"+patientID+"/grants")
	require.Equal(t, http.StatusOK, status)
	var grants model.GrantListData
	require.NoError(t, json.Unmarshal(env.Data, &grants))
	require.Len(t, grants.Grants, 1)

	status, _ = postJSON(t, server.URL+"/api/v1/access/revoke", model.RevokeRequest{
		PatientID:   patientID,
		RequesterID: requesterID,
	}, "")
	require.Equal(t, http.StatusOK, status)

	status, env = postJSON(t, server.URL+"/api/v1/records/reports/list", model.PatientRecordRequest{}, grant.AccessToken)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

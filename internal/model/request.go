package model

import "encoding/json"

type HospitalChallengeRequest struct {
	RequesterID string `json:"requester_id"`
}

type ChallengeGrantRequest struct {
	Challenge       string   `json:"challenge"`
	PatientID       string   `json:"patient_id"`
	Scope           []string `json:"scope"`
	DurationSeconds int      `json:"duration_seconds"`
}

type ConnectTokenRequest struct {
	PatientID       string   `json:"patient_id"`
	Scope           []string `json:"scope"`
	DurationSeconds int      `json:"duration_seconds"`
}

type ExchangeTokenRequest struct {
	ConnectToken    string   `json:"connect_token"`
	RequesterID     string   `json:"requester_id"`
	RequestedScope  []string `json:"requested_scope"`
	DurationSeconds int      `json:"duration_seconds"`
	ActingUserID    string   `json:"acting_user_id"`
}

type RegisterCodeRequest struct {
	PatientID string `json:"patient_id"`
	Code      string `json:"code"`
}

type ExchangeCodeRequest struct {
	Code            string   `json:"code"`
	RequesterID     string   `json:"requester_id"`
	RequestedScope  []string `json:"requested_scope"`
	DurationSeconds int      `json:"duration_seconds"`
	ActingUserID    string   `json:"acting_user_id"`
}

type RevokeRequest struct {
	PatientID   string `json:"patient_id"`
	RequesterID string `json:"requester_id"`
}

type RevokeResponse struct {
	Revoked        bool  `json:"revoked"`
	RecordsRemoved int64 `json:"records_removed"`
}

// UploadReportRequest may carry the bearer token in AccessToken when no Authorization header is sent.
type UploadReportRequest struct {
	AccessToken string          `json:"access_token,omitempty"`
	PatientID   string          `json:"patient_id"`
	Title       string          `json:"report_title"`
	Type        string          `json:"report_type"`
	Date        string          `json:"report_date"`
	ReportURL   string          `json:"report_url"`
	FileSize    int64           `json:"file_size"`
	FileType    string          `json:"file_type"`
	Summary     json.RawMessage `json:"summary"`
}

type PatientRecordRequest struct {
	AccessToken string `json:"access_token,omitempty"`
	PatientID   string `json:"patient_id"`
}

type ReportListData struct {
	Reports []Report `json:"reports"`
}

type GrantListData struct {
	Grants []AccessTokenRecord `json:"grants"`
}

type ConnectionListData struct {
	Patients []Connection `json:"patients"`
}

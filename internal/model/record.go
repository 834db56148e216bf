package model

import (
	"encoding/json"
	"time"
)

type Report struct {
	ID              string          `json:"id"`
	PatientID       string          `json:"patient_id"`
	Title           string          `json:"title"`
	Type            string          `json:"type"`
	Date            string          `json:"date"`
	UploadedAt      time.Time       `json:"uploaded_at"`
	UploadedBy      string          `json:"uploaded_by"`
	DownloadURL     string          `json:"download_url,omitempty"`
	FileSize        int64           `json:"file_size,omitempty"`
	FileType        string          `json:"file_type,omitempty"`
	StorageProvider string          `json:"storage_provider,omitempty"`
	Summary         json.RawMessage `json:"summary,omitempty"`
}

type ClinicalCategory string

const (
	CategoryMedication ClinicalCategory = "medication"
	CategoryCondition  ClinicalCategory = "condition"
	CategoryCase       ClinicalCategory = "case"
)

type ClinicalEntry struct {
	ID         string           `json:"id"`
	PatientID  string           `json:"patient_id"`
	Category   ClinicalCategory `json:"category"`
	Payload    json.RawMessage  `json:"payload"`
	RecordedAt time.Time        `json:"recorded_at"`
}

type PatientProfile struct {
	Medications   []ClinicalEntry `json:"medications"`
	Conditions    []ClinicalEntry `json:"conditions"`
	Cases         []ClinicalEntry `json:"cases"`
	RecentReports []Report        `json:"recent_reports"`
}

type ReportUpload struct {
	PatientID   string
	Title       string
	Type        string
	Date        string
	DownloadURL string
	FileSize    int64
	FileType    string
	Summary     json.RawMessage
}

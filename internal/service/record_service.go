package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"med-connect/internal/model"
	"med-connect/internal/util"
)

const (
	DefaultReportTitle = "Hospital Upload"
	DefaultReportType  = "Lab Results"
	reportListLimit    = 100
	profileReportLimit = 5
	storageExternal    = "external"

	maxReportTextLength = 200
)

// RecordService is the patient data behind the access guard. Every method takes the raw access token
// and returns only after the guard has authorized and audited the call.
type RecordService struct {
	guard         *AccessGuard
	reports       reportStore
	clinical      clinicalStore
	maxReportSize int64
	now           func() time.Time
}

func NewRecordService(guard *AccessGuard, reports reportStore, clinical clinicalStore, maxReportSize int64) *RecordService {
	return &RecordService{
		guard:         guard,
		reports:       reports,
		clinical:      clinical,
		maxReportSize: maxReportSize,
		now:           time.Now,
	}
}

func (s *RecordService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *RecordService) UploadReport(ctx context.Context, accessToken string, in model.ReportUpload) (model.Report, error) {
	var stored model.Report
	action := model.GuardedAction{
		AccessToken: accessToken,
		Capability:  model.ScopeUpload,
		PatientID:   in.PatientID,
		Action:      model.ActionUpload,
	}

	err := s.guard.Run(ctx, action, func(ctx context.Context, claims model.AccessClaims) (string, error) {
		report, err := s.buildReport(in, claims)
		if err != nil {
			return "", err
		}
		if err := s.reports.Create(ctx, report); err != nil {
			return "", requiredWrite("create report", err)
		}
		stored = report
		return report.ID, nil
	})
	if err != nil {
		return model.Report{}, err
	}
	return stored, nil
}

func (s *RecordService) ListReports(ctx context.Context, accessToken string, patientID string) ([]model.Report, error) {
	var reports []model.Report
	action := model.GuardedAction{
		AccessToken: accessToken,
		Capability:  model.ScopeView,
		PatientID:   patientID,
		Action:      model.ActionViewReports,
	}

	err := s.guard.Run(ctx, action, func(ctx context.Context, claims model.AccessClaims) (string, error) {
		items, err := s.reports.ListByPatient(ctx, claims.PatientID, reportListLimit)
		if err != nil {
			return "", err
		}
		reports = items
		return fmt.Sprintf("reports:%d", len(items)), nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Profile gathers medications, conditions, cases and the most recent reports concurrently.
func (s *RecordService) Profile(ctx context.Context, accessToken string, patientID string) (model.PatientProfile, error) {
	var profile model.PatientProfile
	action := model.GuardedAction{
		AccessToken: accessToken,
		Capability:  model.ScopeView,
		PatientID:   patientID,
		Action:      model.ActionViewProfile,
	}

	err := s.guard.Run(ctx, action, func(ctx context.Context, claims model.AccessClaims) (string, error) {
		g, gctx := errgroup.WithContext(ctx)
		var result model.PatientProfile

		g.Go(func() error {
			items, err := s.clinical.ListByPatient(gctx, claims.PatientID, model.CategoryMedication)
			result.Medications = items
			return err
		})
		g.Go(func() error {
			items, err := s.clinical.ListByPatient(gctx, claims.PatientID, model.CategoryCondition)
			result.Conditions = items
			return err
		})
		g.Go(func() error {
			items, err := s.clinical.ListByPatient(gctx, claims.PatientID, model.CategoryCase)
			result.Cases = items
			return err
		})
		g.Go(func() error {
			items, err := s.reports.ListByPatient(gctx, claims.PatientID, profileReportLimit)
			result.RecentReports = items
			return err
		})

		if err := g.Wait(); err != nil {
			return "", err
		}
		profile = normalizeProfile(result)
		return "profile", nil
	})
	if err != nil {
		return model.PatientProfile{}, err
	}
	return profile, nil
}

func (s *RecordService) buildReport(in model.ReportUpload, claims model.AccessClaims) (model.Report, error) {
	if in.FileSize < 0 {
		return model.Report{}, badRequest("file_size must not be negative", "file_size")
	}
	if s.maxReportSize > 0 && in.FileSize > s.maxReportSize {
		return model.Report{}, badRequest(
			fmt.Sprintf("file exceeds the maximum size of %d bytes", s.maxReportSize), "file_size")
	}

	fileType := util.NormalizeMIME(in.FileType)
	if fileType != "" && !util.IsReportMIME(fileType) {
		return model.Report{}, badRequest("file type must be an image or a PDF", "file_type")
	}

	downloadURL := strings.TrimSpace(in.DownloadURL)
	provider := ""
	if downloadURL != "" {
		parsed, err := url.Parse(downloadURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return model.Report{}, badRequest("report_url must be an absolute http(s) URL", "report_url")
		}
		provider = storageExternal
	}

	now := s.now().UTC()
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = now.Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		return model.Report{}, badRequest("report_date must be formatted YYYY-MM-DD", "report_date")
	}

	return model.Report{
		ID:              uuid.NewString(),
		PatientID:       claims.PatientID,
		Title:           valueOr(in.Title, DefaultReportTitle),
		Type:            valueOr(in.Type, DefaultReportType),
		Date:            date,
		UploadedAt:      now,
		UploadedBy:      claims.RequesterID,
		DownloadURL:     downloadURL,
		FileSize:        in.FileSize,
		FileType:        fileType,
		StorageProvider: provider,
		Summary:         in.Summary,
	}, nil
}

func valueOr(value string, fallback string) string {
	if cleaned := util.SanitizeText(value, maxReportTextLength); cleaned != "" {
		return cleaned
	}
	return fallback
}

func normalizeProfile(p model.PatientProfile) model.PatientProfile {
	if p.Medications == nil {
		p.Medications = []model.ClinicalEntry{}
	}
	if p.Conditions == nil {
		p.Conditions = []model.ClinicalEntry{}
	}
	if p.Cases == nil {
		p.Cases = []model.ClinicalEntry{}
	}
	if p.RecentReports == nil {
		p.RecentReports = []model.Report{}
	}
	return p
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"med-connect/internal/model"
)

const (
	// codeAlphabet leaves out 0, O, 1 and I. Its length is 32 so a masked byte is uniform.
	codeAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	DefaultCodeLength = 8
	minCodeLength     = 6
	maxCodeLength     = 8
	maxCodeAttempts   = 5
)

type CodeService struct {
	codes    codeStore
	generate func() (string, error)
	now      func() time.Time
}

func NewCodeService(codes codeStore) *CodeService {
	return &CodeService{
		codes:    codes,
		generate: func() (string, error) { return GenerateCode(DefaultCodeLength) },
		now:      time.Now,
	}
}

// Register replaces any code the patient holds with desired (or a generated code).
// The code is a bearer secret until exchanged, so generation uses crypto/rand.
func (s *CodeService) Register(ctx context.Context, patientID string, desired string) (model.IdentityCode, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return model.IdentityCode{}, badRequest("patient_id is required", "patient_id")
	}

	candidate := NormalizeCode(desired)
	if candidate != "" && !ValidCode(candidate) {
		return model.IdentityCode{}, badRequest(
			fmt.Sprintf("code must be %d-%d characters from %s", minCodeLength, maxCodeLength, codeAlphabet), "code")
	}

	if _, err := s.codes.DeleteByPatient(ctx, patientID); err != nil {
		return model.IdentityCode{}, requiredWrite("delete previous codes", err)
	}

	var err error
	if candidate == "" {
		if candidate, err = s.generate(); err != nil {
			return model.IdentityCode{}, fmt.Errorf("generate code: %w", err)
		}
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		entry := model.IdentityCode{Code: candidate, PatientID: patientID, CreatedAt: s.now().UTC()}

		owner, lookupErr := s.codes.FindPatient(ctx, candidate)
		switch {
		case errors.Is(lookupErr, model.ErrCodeNotFound):
			insertErr := s.codes.Insert(ctx, entry)
			if insertErr == nil {
				slog.Info("identity code registered", "patient_id", patientID, "attempt", attempt)
				return entry, nil
			}
			if !errors.Is(insertErr, model.ErrCodeTaken) {
				return model.IdentityCode{}, requiredWrite("insert identity code", insertErr)
			}
		case lookupErr != nil:
			return model.IdentityCode{}, lookupErr
		case owner == patientID:
			return entry, nil
		}

		slog.Debug("identity code collision", "attempt", attempt)
		if attempt == maxCodeAttempts {
			break
		}
		if candidate, err = s.generate(); err != nil {
			return model.IdentityCode{}, fmt.Errorf("generate code: %w", err)
		}
	}

	slog.Warn("identity code attempts exhausted", "patient_id", patientID, "attempts", maxCodeAttempts)
	return model.IdentityCode{}, model.ErrCodeUnavailable
}

func (s *CodeService) Resolve(ctx context.Context, code string) (string, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return "", badRequest("code is required", "code")
	}
	return s.codes.FindPatient(ctx, normalized)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidCode(code string) bool {
	if len(code) < minCodeLength || len(code) > maxCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			return false
		}
	}
	return true
}

func GenerateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)&(len(codeAlphabet)-1)]
	}
	return string(out), nil
}

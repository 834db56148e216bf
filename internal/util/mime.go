package util

import (
	"mime"
	"strings"
)

// NormalizeMIME lower-cases a media type and drops parameters such as charset.
func NormalizeMIME(mimeType string) string {
	cleaned := strings.ToLower(strings.TrimSpace(mimeType))
	if cleaned == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(cleaned); err == nil {
		return mediaType
	}
	base, _, _ := strings.Cut(cleaned, ";")
	return strings.TrimSpace(base)
}

func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(NormalizeMIME(mimeType), "image/")
}

func IsPDFMIME(mimeType string) bool {
	return NormalizeMIME(mimeType) == "application/pdf"
}

// IsReportMIME accepts the file types a medical report upload may carry.
func IsReportMIME(mimeType string) bool {
	return IsImageMIME(mimeType) || IsPDFMIME(mimeType)
}

package model

import "errors"

var (
	// Exchange protocol outcomes
	ErrInvalidCredential = errors.New("invalid or expired credential")
	ErrCodeNotFound      = errors.New("code not found")
	ErrNoScopeGranted    = errors.New("no scope granted")
	ErrCodeUnavailable   = errors.New("could not allocate a unique code")

	// Access guard outcomes
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAuthorizationFailed  = errors.New("authorization failed")

	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCodeTaken          = errors.New("code already assigned")

	ErrReportNotFound = errors.New("report not found")
	ErrInvalidInput   = errors.New("invalid input")
)

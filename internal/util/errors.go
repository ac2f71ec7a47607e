package util

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("permission denied")
	ErrNotFound          = errors.New("not found")
	ErrProvider          = errors.New("provider failure")
	ErrStore             = errors.New("store failure")
	ErrAlreadyCompleted  = errors.New("interaction already completed")
	ErrEmailRegistered   = errors.New("email is already registered")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrCompanyNameTaken  = errors.New("company name is already registered")
)

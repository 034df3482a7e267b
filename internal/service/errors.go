package service

import "errors"

var (
	ErrValidation = errors.New("validation") // 400
	ErrConflict   = errors.New("conflict")   // 400, duplicate email
	// ErrInvalidCredentials carries the one message both login failure
	// paths share, so accounts cannot be enumerated from the response.
	ErrInvalidCredentials = errors.New("invalid email or password") // 401
	ErrUnauthorized       = errors.New("unauthorized")              // 401
)

package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginSuperseded    = errors.New("login superseded by a newer attempt")
	ErrGateClosed         = errors.New("session gate closed")
	ErrManagerClosed      = errors.New("session manager closed")
	ErrMalformedSession   = errors.New("malformed session record")
	ErrInvalidSessionID   = errors.New("invalid session id")
	ErrInvalidToken       = errors.New("invalid token")
	ErrDuplicateEmail     = errors.New("duplicate credential email")
)

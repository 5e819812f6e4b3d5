package token

import "errors"

var (
	ErrNilState      = errors.New("token: state not configured")
	ErrInvalidAmount = errors.New("token: amount must be positive")
	ErrInvalidPeriod = errors.New("token: recurrent period must be positive")
	ErrZeroAddress   = errors.New("token: zero address")
)

package promotion

import "errors"

var (
	ErrNilState           = errors.New("promotion: state not configured")
	ErrInvalidContentID   = errors.New("promotion: content id required")
	ErrInvalidDuration    = errors.New("promotion: duration must be positive")
	ErrInvalidBudget      = errors.New("promotion: budget must be positive")
	ErrInvalidAmount      = errors.New("promotion: amount must be positive")
	ErrStartInPast        = errors.New("promotion: start height already passed")
	ErrInvalidSplit       = errors.New("promotion: referral split must be between 0 and 100")
	ErrInvalidWeights     = errors.New("promotion: interaction weight out of range")
	ErrInvalidInteraction = errors.New("promotion: unknown interaction type")
	ErrInvalidCoAccount   = errors.New("promotion: invalid co-account")
	ErrTooManyCoAccounts  = errors.New("promotion: too many co-accounts")
	ErrMetadataTooLarge   = errors.New("promotion: metadata too large")
	ErrInvalidService     = errors.New("promotion: verification service required")
	ErrZeroAddress        = errors.New("promotion: zero address")
	ErrUnknownOffer       = errors.New("subscription: unknown offer")
	ErrInvalidPeriod      = errors.New("subscription: period must be positive")
	ErrAlreadySubscribed  = errors.New("subscription: subscription still active")
	ErrNotSubscribed      = errors.New("subscription: account never subscribed")
)

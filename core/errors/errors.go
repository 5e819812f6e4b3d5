// Package errors declares the domain failure taxonomy shared by every
// native module. Engines wrap these sentinels with context via %w so callers
// can branch with errors.Is.
package errors

import stderrors "errors"

var (
	ErrInsufficientBalance  = stderrors.New("insufficient balance")
	ErrAllowanceExceeded    = stderrors.New("allowance exceeded")
	ErrNotAuthorized        = stderrors.New("not authorized")
	ErrUnknownCampaign      = stderrors.New("unknown campaign")
	ErrDuplicateCampaign    = stderrors.New("duplicate campaign")
	ErrNotVerified          = stderrors.New("not verified")
	ErrDuplicateInteraction = stderrors.New("duplicate interaction")
	ErrNotYetEligible       = stderrors.New("not yet eligible")
	ErrAlreadyEnded         = stderrors.New("already ended")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrAllowanceExceeded, "AllowanceExceeded"},
	{ErrNotAuthorized, "NotAuthorized"},
	{ErrUnknownCampaign, "UnknownCampaign"},
	{ErrDuplicateCampaign, "DuplicateCampaign"},
	{ErrNotVerified, "NotVerified"},
	{ErrDuplicateInteraction, "DuplicateInteraction"},
	{ErrNotYetEligible, "NotYetEligible"},
	{ErrAlreadyEnded, "AlreadyEnded"},
}

// Kind returns the taxonomy name of err, or "" when err does not wrap one of
// the domain sentinels.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if stderrors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

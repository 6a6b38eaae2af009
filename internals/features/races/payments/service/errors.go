// file: internals/features/races/payments/service/errors.go
package service

import (
	"errors"

	"racehub_backend/internals/features/races/ledger"
)

var (
	ErrNotFound            = ledger.ErrNotFound
	ErrConflict            = ledger.ErrConflict
	ErrInvalidExternalID   = errors.New("external_id is not a valid registration id")
	ErrUpstreamUnavailable = errors.New("payment provider unavailable")
	// ErrBusy: registrasi sedang diproses instance lain; aman di-retry.
	ErrBusy = errors.New("registration is being reconciled, retry later")
)

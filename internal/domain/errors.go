package domain

import "errors"

var (
	ErrInvoiceNotFound          = errors.New("invoice not found")
	ErrDeliveryNoteNotFound     = errors.New("delivery note not found")
	ErrMatchingPairNotFound     = errors.New("matching pair not found")
	ErrToleranceProfileNotFound = errors.New("tolerance profile not found")
	ErrInvalidTolerances        = errors.New("invalid tolerance configuration")
	ErrMatchConflict            = errors.New("delivery note conflicts with an existing match")
	ErrNoteAlreadyClaimed       = errors.New("delivery note already claimed by another invoice")
	ErrInvalidRecord            = errors.New("record failed ingest checks")
)

package port

import (
	"context"

	"github.com/google/uuid"
)

// ClaimStore tracks which delivery notes are consumed by a confirmed match.
// It is the only shared mutable state of concurrent reconciliations: Claim
// must behave as an atomic compare-and-set so two invoices can never confirm
// the same note.
type ClaimStore interface {
	// Claim binds the note to the invoice iff the note is unclaimed or
	// already bound to the same invoice. Returns domain.ErrNoteAlreadyClaimed
	// when another invoice holds it.
	Claim(ctx context.Context, noteID, invoiceID uuid.UUID) error
	// Release frees the note if the invoice holds it; releasing an unclaimed
	// note is a no-op.
	Release(ctx context.Context, noteID, invoiceID uuid.UUID) error
	// Holder reports which invoice holds the note, if any.
	Holder(ctx context.Context, noteID uuid.UUID) (uuid.UUID, bool, error)
}

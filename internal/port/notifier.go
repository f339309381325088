package port

import (
	"context"

	"dockmatch/internal/domain"
)

// Notifier delivers reconciliation alerts to a venue ops address.
type Notifier interface {
	// SendConflictAlert notifies that an invoice needs a human to pick
	// between candidates that scored too close to separate mechanically.
	SendConflictAlert(ctx context.Context, pair *domain.MatchingPair) error
	// SendBatchDigest summarizes a completed batch reconciliation run.
	SendBatchDigest(ctx context.Context, summary *domain.MatchingSummary) error
}

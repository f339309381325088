package noop

import (
	"context"

	"github.com/sirupsen/logrus"

	"dockmatch/internal/domain"
	"dockmatch/internal/port"
)

type noopNotifier struct {
	log *logrus.Entry
}

// NewNoopNotifier creates a Notifier that only logs. Used in development and
// when no ops address is configured.
func NewNoopNotifier(logger *logrus.Logger) port.Notifier {
	return &noopNotifier{log: logger.WithField("component", "notifier")}
}

func (n *noopNotifier) SendConflictAlert(_ context.Context, pair *domain.MatchingPair) error {
	n.log.WithFields(logrus.Fields{
		"invoice_id": pair.InvoiceID,
		"candidates": len(pair.Candidates),
	}).Info("conflict alert (noop)")
	return nil
}

func (n *noopNotifier) SendBatchDigest(_ context.Context, summary *domain.MatchingSummary) error {
	n.log.WithFields(logrus.Fields{
		"venue_id": summary.VenueID,
		"invoices": summary.Totals.TotalInvoices,
		"matched":  summary.Totals.Matched,
	}).Info("batch digest (noop)")
	return nil
}

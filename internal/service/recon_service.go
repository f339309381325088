package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dockmatch/internal/domain"
	"dockmatch/internal/matching"
	"dockmatch/internal/port"
)

// ReconService drives reconciliation: candidate generation, scoring, the
// confirm/reject lifecycle, and batch retries.
type ReconService interface {
	ReconcileInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.MatchingPair, error)
	ReconcileVenue(ctx context.Context, venueID uuid.UUID) (*domain.MatchingSummary, error)
	RetryLate(ctx context.Context, venueID uuid.UUID) (*domain.RetryLateResponse, error)
	Confirm(ctx context.Context, invoiceID, noteID uuid.UUID) (*domain.MatchingPair, error)
	Reject(ctx context.Context, invoiceID, noteID uuid.UUID) (*domain.MatchingPair, error)
	GetPair(ctx context.Context, invoiceID uuid.UUID) (*domain.MatchingPair, error)
	Candidates(ctx context.Context, invoiceID uuid.UUID) ([]domain.MatchCandidate, error)
	Summary(ctx context.Context, venueID uuid.UUID) (*domain.MatchingSummary, error)
	TolerancesForVenue(ctx context.Context, venueID uuid.UUID) (matching.Tolerances, error)
}

type reconService struct {
	invoices   port.InvoiceRepository
	notes      port.DeliveryNoteRepository
	pairs      port.MatchingPairRepository
	profiles   port.ToleranceProfileRepository
	claims     port.ClaimStore
	notifier   port.Notifier
	defaults   matching.Tolerances
	thresholds matching.Thresholds
	workers    int
	log        *logrus.Entry
}

// NewReconService creates a ReconService. The default tolerances and
// thresholds are validated here so a bad configuration is rejected at
// startup, never partially applied.
func NewReconService(
	invoices port.InvoiceRepository,
	notes port.DeliveryNoteRepository,
	pairs port.MatchingPairRepository,
	profiles port.ToleranceProfileRepository,
	claims port.ClaimStore,
	notifier port.Notifier,
	defaults matching.Tolerances,
	thresholds matching.Thresholds,
	workers int,
	logger *logrus.Logger,
) (ReconService, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	return &reconService{
		invoices:   invoices,
		notes:      notes,
		pairs:      pairs,
		profiles:   profiles,
		claims:     claims,
		notifier:   notifier,
		defaults:   defaults,
		thresholds: thresholds,
		workers:    workers,
		log:        logger.WithField("component", "recon"),
	}, nil
}

// TolerancesForVenue returns the venue's stored profile merged over the
// service defaults; a venue without a profile runs on the defaults.
func (s *reconService) TolerancesForVenue(ctx context.Context, venueID uuid.UUID) (matching.Tolerances, error) {
	profile, err := s.profiles.GetByVenue(ctx, venueID)
	if err != nil {
		if errors.Is(err, domain.ErrToleranceProfileNotFound) {
			return s.defaults, nil
		}
		return matching.Tolerances{}, err
	}
	return matching.FromProfile(profile), nil
}

// ReconcileInvoice runs one invoice through candidate generation and the
// state machine, persists the resulting pair and returns it. An invoice whose
// pair is already confirmed is returned untouched: a confirmed pair is
// immutable until explicitly rejected.
func (s *reconService) ReconcileInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.MatchingPair, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	pair, err := s.pairs.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		if !errors.Is(err, domain.ErrMatchingPairNotFound) {
			return nil, err
		}
		pair = &domain.MatchingPair{ID: uuid.New(), InvoiceID: invoiceID}
	}
	if pair.State == domain.StateMatched || pair.State == domain.StatePartial {
		return pair, nil
	}

	tol, err := s.TolerancesForVenue(ctx, inv.VenueID)
	if err != nil {
		return nil, err
	}
	gen, err := matching.NewGenerator(tol, s.thresholds)
	if err != nil {
		return nil, err
	}

	notes, err := s.noteSnapshot(ctx, inv, tol)
	if err != nil {
		return nil, err
	}
	claimed, err := s.claimedElsewhere(ctx, notes, invoiceID)
	if err != nil {
		return nil, err
	}

	cands := gen.Generate(inv, notes, func(id uuid.UUID) bool { return claimed[id] })

	if err := s.applyDecision(ctx, inv, pair, cands, tol); err != nil {
		return nil, err
	}
	if err := s.pairs.Upsert(ctx, pair); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"invoice_id": invoiceID,
		"state":      pair.State,
		"candidates": len(cands),
		"confidence": pair.Confidence,
	}).Info("invoice reconciled")

	if pair.State == domain.StateConflict && s.notifier != nil {
		if err := s.notifier.SendConflictAlert(ctx, pair); err != nil {
			s.log.WithError(err).Warn("conflict alert delivery failed")
		}
	}
	return pair, nil
}

// noteSnapshot loads the venue's delivery notes inside the invoice's date
// window. The snapshot is read-only for the rest of the run.
func (s *reconService) noteSnapshot(ctx context.Context, inv *domain.InvoiceRecord, tol matching.Tolerances) ([]*domain.DeliveryNoteRecord, error) {
	window := time.Duration(tol.DateWindowDays+1) * 24 * time.Hour
	from := inv.InvoiceDate.Add(-window)
	to := inv.InvoiceDate.Add(window)
	records, err := s.notes.ListByVenueWindow(ctx, inv.VenueID, from, to)
	if err != nil {
		return nil, err
	}
	notes := make([]*domain.DeliveryNoteRecord, len(records))
	for i := range records {
		notes[i] = &records[i]
	}
	return notes, nil
}

// claimedElsewhere reports which snapshot notes are held by a different
// invoice, so generation never proposes a note that is already consumed.
func (s *reconService) claimedElsewhere(ctx context.Context, notes []*domain.DeliveryNoteRecord, invoiceID uuid.UUID) (map[uuid.UUID]bool, error) {
	claimed := make(map[uuid.UUID]bool)
	for _, note := range notes {
		holder, held, err := s.claims.Holder(ctx, note.ID)
		if err != nil {
			return nil, err
		}
		if held && holder != invoiceID {
			claimed[note.ID] = true
		}
	}
	return claimed, nil
}

// applyDecision mutates the pair per the ranked candidates and the decision
// thresholds. The claim CAS is the single critical section: auto-confirmation
// that loses the race degrades to a proposal instead of stealing the note.
func (s *reconService) applyDecision(ctx context.Context, inv *domain.InvoiceRecord, pair *domain.MatchingPair, cands []domain.MatchCandidate, tol matching.Tolerances) error {
	pair.Candidates = cands
	pair.DeliveryNoteID = nil
	pair.Diffs = nil

	switch matching.Resolve(cands, s.thresholds) {
	case matching.DecisionNone:
		pair.State = domain.StateUnmatched
		pair.Confidence = 0
		pair.Reasons = []domain.MatchReason{{
			Code:   domain.ReasonNoCandidates,
			Detail: "no delivery note scored above the candidate floor",
			Weight: 1,
		}}

	case matching.DecisionConflict:
		pair.State = domain.StateConflict
		pair.Confidence = cands[0].Confidence
		pair.Reasons = []domain.MatchReason{{
			Code: domain.ReasonConflictBand,
			Detail: fmt.Sprintf("top candidates score %.2f and %.2f, too close to separate",
				cands[0].Confidence, cands[1].Confidence),
			Weight: 1,
		}}

	case matching.DecisionAutoConfirm:
		if err := s.autoConfirm(ctx, inv, pair, cands[0], tol); err != nil {
			return err
		}

	default: // DecisionPropose
		pair.State = domain.StateCandidatesProposed
		pair.Confidence = cands[0].Confidence
		pair.Reasons = []domain.MatchReason{{
			Code:   domain.ReasonAwaitingReview,
			Detail: fmt.Sprintf("%d candidate(s) proposed, top score %.2f below confirmation threshold", len(cands), cands[0].Confidence),
			Weight: 1,
		}}
	}

	pair.Status = pair.State.WireStatus()
	return nil
}

func (s *reconService) autoConfirm(ctx context.Context, inv *domain.InvoiceRecord, pair *domain.MatchingPair, top domain.MatchCandidate, tol matching.Tolerances) error {
	if err := s.claims.Claim(ctx, top.DeliveryNoteID, inv.ID); err != nil {
		if errors.Is(err, domain.ErrNoteAlreadyClaimed) {
			// Lost the race to a concurrent reconciliation; leave the pair
			// for a human instead of silently reassigning.
			pair.State = domain.StateCandidatesProposed
			pair.Confidence = top.Confidence
			pair.Reasons = []domain.MatchReason{{
				Code:   domain.ReasonAwaitingReview,
				Detail: fmt.Sprintf("top candidate %s was claimed by another invoice during scoring", top.DeliveryNoteID),
				Weight: 1,
			}}
			return nil
		}
		return err
	}

	note, err := s.notes.GetByID(ctx, top.DeliveryNoteID)
	if err != nil {
		return err
	}
	score := matching.ScorePair(inv, note, tol)

	noteID := top.DeliveryNoteID
	pair.DeliveryNoteID = &noteID
	pair.Diffs = score.Diffs
	pair.Confidence = score.Aggregate
	pair.State = matching.StatusFromDiffs(score.Diffs)
	pair.Reasons = append([]domain.MatchReason{{
		Code:   domain.ReasonAutoConfirmed,
		Detail: fmt.Sprintf("confidence %.2f above confirmation threshold", score.Aggregate),
		Weight: 1,
	}}, score.Reasons...)
	return nil
}

// Confirm applies a human confirmation. Confirming the already-confirmed note
// is an idempotent no-op; confirming a different note over a confirmed pair
// fails with ErrMatchConflict and requires an explicit reject first.
func (s *reconService) Confirm(ctx context.Context, invoiceID, noteID uuid.UUID) (*domain.MatchingPair, error) {
	pair, err := s.pairs.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	noop, err := matching.CanConfirm(pair, noteID)
	if err != nil {
		return nil, err
	}
	if noop {
		return pair, nil
	}

	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note.VenueID != inv.VenueID {
		return nil, fmt.Errorf("%w: note %s belongs to a different venue", domain.ErrMatchConflict, noteID)
	}

	if err := s.claims.Claim(ctx, noteID, invoiceID); err != nil {
		return nil, err
	}

	tol, err := s.TolerancesForVenue(ctx, inv.VenueID)
	if err != nil {
		return nil, err
	}
	score := matching.ScorePair(inv, note, tol)

	pair.DeliveryNoteID = &noteID
	pair.Diffs = score.Diffs
	pair.Confidence = score.Aggregate
	pair.State = matching.StatusFromDiffs(score.Diffs)
	pair.Status = pair.State.WireStatus()
	pair.Reasons = append([]domain.MatchReason{{
		Code:   domain.ReasonConfirmedByUser,
		Detail: fmt.Sprintf("pairing with note %s confirmed", noteID),
		Weight: 1,
	}}, score.Reasons...)

	if err := s.pairs.Upsert(ctx, pair); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"invoice_id": invoiceID, "note_id": noteID, "state": pair.State}).
		Info("pairing confirmed")
	return pair, nil
}

// Reject applies a human rejection: the delivery note is released for future
// candidacy by other invoices and the pair returns to the unmatched wire
// status.
func (s *reconService) Reject(ctx context.Context, invoiceID, noteID uuid.UUID) (*domain.MatchingPair, error) {
	pair, err := s.pairs.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := matching.CanReject(pair, noteID); err != nil {
		return nil, err
	}

	if pair.DeliveryNoteID != nil && *pair.DeliveryNoteID == noteID {
		if err := s.claims.Release(ctx, noteID, invoiceID); err != nil {
			return nil, err
		}
		pair.DeliveryNoteID = nil
	}
	remaining := make([]domain.MatchCandidate, 0, len(pair.Candidates))
	for _, c := range pair.Candidates {
		if c.DeliveryNoteID != noteID {
			remaining = append(remaining, c)
		}
	}
	pair.Candidates = remaining
	pair.Diffs = nil
	pair.Confidence = 0
	pair.State = domain.StateRejected
	pair.Status = pair.State.WireStatus()
	pair.Reasons = []domain.MatchReason{{
		Code:   domain.ReasonRejectedByUser,
		Detail: fmt.Sprintf("pairing with note %s rejected", noteID),
		Weight: 1,
	}}

	if err := s.pairs.Upsert(ctx, pair); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"invoice_id": invoiceID, "note_id": noteID}).
		Info("pairing rejected")
	return pair, nil
}

func (s *reconService) GetPair(ctx context.Context, invoiceID uuid.UUID) (*domain.MatchingPair, error) {
	return s.pairs.GetByInvoiceID(ctx, invoiceID)
}

func (s *reconService) Candidates(ctx context.Context, invoiceID uuid.UUID) ([]domain.MatchCandidate, error) {
	pair, err := s.pairs.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return pair.Candidates, nil
}

// Summary aggregates the venue's pairs for bulk reporting.
func (s *reconService) Summary(ctx context.Context, venueID uuid.UUID) (*domain.MatchingSummary, error) {
	pairs, err := s.pairs.ListByVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	summary := &domain.MatchingSummary{VenueID: venueID, Pairs: pairs}
	var confidenceSum float64
	for _, p := range pairs {
		summary.Totals.TotalInvoices++
		confidenceSum += p.Confidence
		switch p.Status {
		case domain.MatchStatusMatched:
			summary.Totals.Matched++
		case domain.MatchStatusPartial:
			summary.Totals.Partial++
		case domain.MatchStatusConflict:
			summary.Totals.Conflict++
		default:
			summary.Totals.Unmatched++
		}
	}
	if summary.Totals.TotalInvoices > 0 {
		summary.Totals.AvgConfidence = confidenceSum / float64(summary.Totals.TotalInvoices)
	}
	return summary, nil
}

// ReconcileVenue reconciles every invoice of a venue over a bounded worker
// pool and returns a summary. Cancellation is cooperative: no new invoice is
// dispatched after ctx is done, in-flight ones finish.
func (s *reconService) ReconcileVenue(ctx context.Context, venueID uuid.UUID) (*domain.MatchingSummary, error) {
	invoices, _, err := s.invoices.ListByVenue(ctx, venueID, 0, reconBatchLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(invoices))
	for i := range invoices {
		ids[i] = invoices[i].ID
	}
	s.runBatch(ctx, ids)

	summary, err := s.Summary(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.SendBatchDigest(ctx, summary); err != nil {
			s.log.WithError(err).Warn("batch digest delivery failed")
		}
	}
	return summary, nil
}

// RetryLate re-runs candidate generation for every pair of the venue that is
// not yet matched, used whenever new delivery notes become available.
// Confirmed pairs are never touched.
func (s *reconService) RetryLate(ctx context.Context, venueID uuid.UUID) (*domain.RetryLateResponse, error) {
	pairs, err := s.pairs.ListRetryable(ctx, venueID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(pairs))
	before := make(map[uuid.UUID]domain.MatchState, len(pairs))
	for i, p := range pairs {
		ids[i] = p.InvoiceID
		before[p.InvoiceID] = p.State
	}

	result := s.runBatch(ctx, ids)

	resp := &domain.RetryLateResponse{
		Processed: result.processed,
		Skipped:   result.skipped,
		Errors:    result.errors,
	}
	for invoiceID, prev := range before {
		after, ok := result.states[invoiceID]
		if !ok {
			continue
		}
		nowMatched := after == domain.StateMatched || after == domain.StatePartial
		wasMatched := prev == domain.StateMatched || prev == domain.StatePartial
		if nowMatched && !wasMatched {
			resp.NewMatchesFound++
		}
	}
	s.log.WithFields(logrus.Fields{
		"venue_id":    venueID,
		"processed":   resp.Processed,
		"new_matches": resp.NewMatchesFound,
	}).Info("retry-late pass complete")
	return resp, nil
}

// reconBatchLimit caps how many invoices a single batch call loads.
const reconBatchLimit = 10000

type batchResult struct {
	processed int
	skipped   int
	errors    int
	states    map[uuid.UUID]domain.MatchState
}

// runBatch reconciles the invoices over a bounded worker pool. The check on
// ctx sits between invoices: scoring one pair is bounded in cost and never
// interrupted mid-algorithm.
func (s *reconService) runBatch(ctx context.Context, invoiceIDs []uuid.UUID) batchResult {
	result := batchResult{states: make(map[uuid.UUID]domain.MatchState, len(invoiceIDs))}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workers)

	for _, id := range invoiceIDs {
		if ctx.Err() != nil {
			mu.Lock()
			result.skipped++
			mu.Unlock()
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(invoiceID uuid.UUID) {
			defer wg.Done()
			defer func() { <-sem }()

			pair, err := s.ReconcileInvoice(ctx, invoiceID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.errors++
				s.log.WithError(err).WithField("invoice_id", invoiceID).Error("reconciliation failed")
				return
			}
			result.processed++
			result.states[invoiceID] = pair.State
		}(id)
	}
	wg.Wait()
	return result
}

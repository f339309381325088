package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dockmatch/internal/claim"
	"dockmatch/internal/domain"
	"dockmatch/internal/matching"
	"dockmatch/internal/port"
	"dockmatch/internal/service"
	"dockmatch/mocks"
)

type reconFixture struct {
	invoices *mocks.MockInvoiceRepo
	notes    *mocks.MockDeliveryNoteRepo
	pairs    *mocks.MockMatchingPairRepo
	profiles *mocks.MockToleranceProfileRepo
	claims   port.ClaimStore
	notifier *mocks.MockNotifier
	svc      service.ReconService
}

func newReconFixture(t *testing.T, claims port.ClaimStore) *reconFixture {
	t.Helper()
	if claims == nil {
		claims = claim.NewMemoryStore()
	}
	f := &reconFixture{
		invoices: new(mocks.MockInvoiceRepo),
		notes:    new(mocks.MockDeliveryNoteRepo),
		pairs:    new(mocks.MockMatchingPairRepo),
		profiles: new(mocks.MockToleranceProfileRepo),
		claims:   claims,
		notifier: new(mocks.MockNotifier),
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc, err := service.NewReconService(
		f.invoices, f.notes, f.pairs, f.profiles, f.claims, f.notifier,
		matching.DefaultTolerances(), matching.DefaultThresholds(), 2, logger,
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func testDay(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func testLine() domain.LineItem {
	return domain.LineItem{Description: "Tomatoes Cherry 250g", Quantity: 2, UnitPrice: 25.00, LineTotal: 50.00}
}

func testInvoice(venue uuid.UUID) *domain.InvoiceRecord {
	return &domain.InvoiceRecord{
		ID:           uuid.New(),
		VenueID:      venue,
		SupplierName: "Fresh Produce Co",
		InvoiceDate:  testDay(15),
		GrossTotal:   50.00,
		Lines:        []domain.LineItem{testLine()},
	}
}

func testNote(venue uuid.UUID) *domain.DeliveryNoteRecord {
	return &domain.DeliveryNoteRecord{
		ID:           uuid.New(),
		VenueID:      venue,
		SupplierName: "Fresh Produce Co",
		DeliveryDate: testDay(15),
		Total:        50.00,
		Lines:        []domain.LineItem{testLine()},
	}
}

func TestNewReconService_RejectsBadConfig(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	bad := matching.DefaultTolerances()
	bad.DateWindowDays = -1

	_, err := service.NewReconService(nil, nil, nil, nil, nil, nil, bad, matching.DefaultThresholds(), 1, logger)
	assert.ErrorIs(t, err, domain.ErrInvalidTolerances)
}

func TestReconcileInvoice_AutoConfirmsClearWinner(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	note := testNote(venue)
	f := newReconFixture(t, nil)

	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(nil, domain.ErrMatchingPairNotFound)
	f.profiles.On("GetByVenue", mock.Anything, venue).Return(nil, domain.ErrToleranceProfileNotFound)
	f.notes.On("ListByVenueWindow", mock.Anything, venue, mock.Anything, mock.Anything).
		Return([]domain.DeliveryNoteRecord{*note}, nil)
	f.notes.On("GetByID", mock.Anything, note.ID).Return(note, nil)
	f.pairs.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	pair, err := f.svc.ReconcileInvoice(context.Background(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StateMatched, pair.State)
	assert.Equal(t, domain.MatchStatusMatched, pair.Status)
	require.NotNil(t, pair.DeliveryNoteID)
	assert.Equal(t, note.ID, *pair.DeliveryNoteID)
	assert.Equal(t, 1.0, pair.Confidence)
	require.NotEmpty(t, pair.Reasons)
	assert.Equal(t, domain.ReasonAutoConfirmed, pair.Reasons[0].Code)

	holder, held, err := f.claims.Holder(context.Background(), note.ID)
	require.NoError(t, err)
	assert.True(t, held)
	assert.Equal(t, inv.ID, holder)
	f.pairs.AssertCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "SendConflictAlert", mock.Anything, mock.Anything)
}

func TestReconcileInvoice_ConfirmedPairUntouched(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	noteID := uuid.New()
	f := newReconFixture(t, nil)

	existing := &domain.MatchingPair{
		ID:             uuid.New(),
		InvoiceID:      inv.ID,
		DeliveryNoteID: &noteID,
		State:          domain.StateMatched,
		Status:         domain.MatchStatusMatched,
		Confidence:     0.97,
	}
	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(existing, nil)

	pair, err := f.svc.ReconcileInvoice(context.Background(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, existing, pair)
	f.notes.AssertNotCalled(t, "ListByVenueWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.pairs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestReconcileInvoice_NoCandidates(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	f := newReconFixture(t, nil)

	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(nil, domain.ErrMatchingPairNotFound)
	f.profiles.On("GetByVenue", mock.Anything, venue).Return(nil, domain.ErrToleranceProfileNotFound)
	f.notes.On("ListByVenueWindow", mock.Anything, venue, mock.Anything, mock.Anything).
		Return([]domain.DeliveryNoteRecord{}, nil)
	f.pairs.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	pair, err := f.svc.ReconcileInvoice(context.Background(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StateUnmatched, pair.State)
	assert.Equal(t, domain.MatchStatusUnmatched, pair.Status)
	assert.Nil(t, pair.DeliveryNoteID)
	assert.Equal(t, 0.0, pair.Confidence)
	require.NotEmpty(t, pair.Reasons)
	assert.Equal(t, domain.ReasonNoCandidates, pair.Reasons[0].Code)
}

func TestReconcileInvoice_CloseCandidatesConflictAndNotify(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	noteA := testNote(venue)
	noteB := testNote(venue)
	f := newReconFixture(t, nil)

	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(nil, domain.ErrMatchingPairNotFound)
	f.profiles.On("GetByVenue", mock.Anything, venue).Return(nil, domain.ErrToleranceProfileNotFound)
	f.notes.On("ListByVenueWindow", mock.Anything, venue, mock.Anything, mock.Anything).
		Return([]domain.DeliveryNoteRecord{*noteA, *noteB}, nil)
	f.pairs.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("SendConflictAlert", mock.Anything, mock.Anything).Return(nil)

	pair, err := f.svc.ReconcileInvoice(context.Background(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StateConflict, pair.State)
	assert.Equal(t, domain.MatchStatusConflict, pair.Status)
	assert.Nil(t, pair.DeliveryNoteID)
	assert.Len(t, pair.Candidates, 2)
	f.notifier.AssertCalled(t, "SendConflictAlert", mock.Anything, pair)

	// Neither twin got claimed.
	_, heldA, _ := f.claims.Holder(context.Background(), noteA.ID)
	_, heldB, _ := f.claims.Holder(context.Background(), noteB.ID)
	assert.False(t, heldA)
	assert.False(t, heldB)
}

func TestReconcileInvoice_LostClaimRaceDegradesToProposal(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	note := testNote(venue)

	claims := new(mocks.MockClaimStore)
	// Unclaimed at snapshot time, but gone by the time we try to take it.
	claims.On("Holder", mock.Anything, note.ID).Return(uuid.Nil, false, nil)
	claims.On("Claim", mock.Anything, note.ID, inv.ID).Return(domain.ErrNoteAlreadyClaimed)

	f := newReconFixture(t, claims)
	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(nil, domain.ErrMatchingPairNotFound)
	f.profiles.On("GetByVenue", mock.Anything, venue).Return(nil, domain.ErrToleranceProfileNotFound)
	f.notes.On("ListByVenueWindow", mock.Anything, venue, mock.Anything, mock.Anything).
		Return([]domain.DeliveryNoteRecord{*note}, nil)
	f.pairs.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	pair, err := f.svc.ReconcileInvoice(context.Background(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StateCandidatesProposed, pair.State)
	assert.Equal(t, domain.MatchStatusUnmatched, pair.Status)
	assert.Nil(t, pair.DeliveryNoteID)
	require.NotEmpty(t, pair.Reasons)
	assert.Equal(t, domain.ReasonAwaitingReview, pair.Reasons[0].Code)
}

func TestConfirm_SameNoteIsIdempotent(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	noteID := uuid.New()
	f := newReconFixture(t, nil)

	existing := &domain.MatchingPair{
		InvoiceID:      inv.ID,
		DeliveryNoteID: &noteID,
		State:          domain.StateMatched,
		Status:         domain.MatchStatusMatched,
	}
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(existing, nil)

	pair, err := f.svc.Confirm(context.Background(), inv.ID, noteID)

	require.NoError(t, err)
	assert.Equal(t, existing, pair)
	f.pairs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.invoices.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestConfirm_DifferentNoteOverConfirmedFails(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	confirmed := uuid.New()
	f := newReconFixture(t, nil)

	existing := &domain.MatchingPair{
		InvoiceID:      inv.ID,
		DeliveryNoteID: &confirmed,
		State:          domain.StatePartial,
	}
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(existing, nil)

	_, err := f.svc.Confirm(context.Background(), inv.ID, uuid.New())

	assert.ErrorIs(t, err, domain.ErrMatchConflict)
	f.pairs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestConfirm_ProposedCandidate(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	note := testNote(venue)
	f := newReconFixture(t, nil)

	existing := &domain.MatchingPair{
		InvoiceID:  inv.ID,
		State:      domain.StateCandidatesProposed,
		Status:     domain.MatchStatusUnmatched,
		Candidates: []domain.MatchCandidate{{DeliveryNoteID: note.ID, Confidence: 0.7}},
	}
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(existing, nil)
	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	f.notes.On("GetByID", mock.Anything, note.ID).Return(note, nil)
	f.profiles.On("GetByVenue", mock.Anything, venue).Return(nil, domain.ErrToleranceProfileNotFound)
	f.pairs.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	pair, err := f.svc.Confirm(context.Background(), inv.ID, note.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StateMatched, pair.State)
	require.NotNil(t, pair.DeliveryNoteID)
	assert.Equal(t, note.ID, *pair.DeliveryNoteID)
	require.NotEmpty(t, pair.Reasons)
	assert.Equal(t, domain.ReasonConfirmedByUser, pair.Reasons[0].Code)

	holder, held, err := f.claims.Holder(context.Background(), note.ID)
	require.NoError(t, err)
	assert.True(t, held)
	assert.Equal(t, inv.ID, holder)
}

func TestConfirm_CrossVenueNoteRejected(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	note := testNote(uuid.New())
	f := newReconFixture(t, nil)

	existing := &domain.MatchingPair{InvoiceID: inv.ID, State: domain.StateCandidatesProposed}
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(existing, nil)
	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	f.notes.On("GetByID", mock.Anything, note.ID).Return(note, nil)

	_, err := f.svc.Confirm(context.Background(), inv.ID, note.ID)

	assert.ErrorIs(t, err, domain.ErrMatchConflict)
	_, held, _ := f.claims.Holder(context.Background(), note.ID)
	assert.False(t, held)
}

func TestReject_FreesNoteForOthers(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	noteID := uuid.New()
	otherInvoice := uuid.New()
	f := newReconFixture(t, nil)

	require.NoError(t, f.claims.Claim(context.Background(), noteID, inv.ID))
	existing := &domain.MatchingPair{
		InvoiceID:      inv.ID,
		DeliveryNoteID: &noteID,
		State:          domain.StatePartial,
		Status:         domain.MatchStatusPartial,
		Confidence:     0.9,
		Candidates:     []domain.MatchCandidate{{DeliveryNoteID: noteID, Confidence: 0.9}},
	}
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(existing, nil)
	f.pairs.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	pair, err := f.svc.Reject(context.Background(), inv.ID, noteID)

	require.NoError(t, err)
	assert.Equal(t, domain.StateRejected, pair.State)
	assert.Equal(t, domain.MatchStatusUnmatched, pair.Status)
	assert.Nil(t, pair.DeliveryNoteID)
	assert.Empty(t, pair.Candidates)
	assert.Equal(t, 0.0, pair.Confidence)

	// The note is free again for another invoice.
	assert.NoError(t, f.claims.Claim(context.Background(), noteID, otherInvoice))
}

func TestReject_UnrelatedNoteFails(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	f := newReconFixture(t, nil)

	existing := &domain.MatchingPair{InvoiceID: inv.ID, State: domain.StateCandidatesProposed}
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(existing, nil)

	_, err := f.svc.Reject(context.Background(), inv.ID, uuid.New())

	assert.ErrorIs(t, err, domain.ErrDeliveryNoteNotFound)
	f.pairs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestRetryLate_CountsNewMatches(t *testing.T) {
	venue := uuid.New()
	inv := testInvoice(venue)
	note := testNote(venue)
	f := newReconFixture(t, nil)

	open := domain.MatchingPair{
		ID:        uuid.New(),
		InvoiceID: inv.ID,
		State:     domain.StateUnmatched,
		Status:    domain.MatchStatusUnmatched,
	}
	f.pairs.On("ListRetryable", mock.Anything, venue).Return([]domain.MatchingPair{open}, nil)
	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	f.pairs.On("GetByInvoiceID", mock.Anything, inv.ID).Return(&open, nil)
	f.profiles.On("GetByVenue", mock.Anything, venue).Return(nil, domain.ErrToleranceProfileNotFound)
	f.notes.On("ListByVenueWindow", mock.Anything, venue, mock.Anything, mock.Anything).
		Return([]domain.DeliveryNoteRecord{*note}, nil)
	f.notes.On("GetByID", mock.Anything, note.ID).Return(note, nil)
	f.pairs.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.RetryLate(context.Background(), venue)

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Processed)
	assert.Equal(t, 1, resp.NewMatchesFound)
	assert.Equal(t, 0, resp.Errors)
}

func TestRetryLate_CancelledContextSkips(t *testing.T) {
	venue := uuid.New()
	f := newReconFixture(t, nil)

	pairs := []domain.MatchingPair{
		{InvoiceID: uuid.New(), State: domain.StateUnmatched},
		{InvoiceID: uuid.New(), State: domain.StateUnmatched},
		{InvoiceID: uuid.New(), State: domain.StateUnmatched},
	}
	f.pairs.On("ListRetryable", mock.Anything, venue).Return(pairs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := f.svc.RetryLate(ctx, venue)

	require.NoError(t, err)
	assert.Equal(t, 0, resp.Processed)
	assert.Equal(t, 3, resp.Skipped)
	assert.Equal(t, 0, resp.NewMatchesFound)
	f.invoices.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestSummary_AggregatesByWireStatus(t *testing.T) {
	venue := uuid.New()
	f := newReconFixture(t, nil)

	f.pairs.On("ListByVenue", mock.Anything, venue).Return([]domain.MatchingPair{
		{Status: domain.MatchStatusMatched, Confidence: 1.0},
		{Status: domain.MatchStatusPartial, Confidence: 0.8},
		{Status: domain.MatchStatusUnmatched, Confidence: 0.0},
		{Status: domain.MatchStatusConflict, Confidence: 0.8},
	}, nil)

	summary, err := f.svc.Summary(context.Background(), venue)

	require.NoError(t, err)
	assert.Equal(t, 4, summary.Totals.TotalInvoices)
	assert.Equal(t, 1, summary.Totals.Matched)
	assert.Equal(t, 1, summary.Totals.Partial)
	assert.Equal(t, 1, summary.Totals.Unmatched)
	assert.Equal(t, 1, summary.Totals.Conflict)
	assert.InDelta(t, 0.65, summary.Totals.AvgConfidence, 1e-9)
}

func TestTolerancesForVenue_FallsBackToDefaults(t *testing.T) {
	venue := uuid.New()
	f := newReconFixture(t, nil)
	f.profiles.On("GetByVenue", mock.Anything, venue).Return(nil, domain.ErrToleranceProfileNotFound)

	tol, err := f.svc.TolerancesForVenue(context.Background(), venue)

	require.NoError(t, err)
	assert.Equal(t, matching.DefaultTolerances(), tol)
}

func TestTolerancesForVenue_UsesStoredProfile(t *testing.T) {
	venue := uuid.New()
	f := newReconFixture(t, nil)
	f.profiles.On("GetByVenue", mock.Anything, venue).Return(&domain.ToleranceProfile{
		VenueID:            venue,
		DateWindowDays:     7,
		AmountProximityPct: 10,
		QtyTolRel:          0.1,
		PriceTolRel:        0.05,
		FuzzyDescThreshold: 0.7,
	}, nil)

	tol, err := f.svc.TolerancesForVenue(context.Background(), venue)

	require.NoError(t, err)
	assert.Equal(t, 7, tol.DateWindowDays)
	assert.Equal(t, 0.1, tol.QtyTolRel)
}

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

	"dockmatch/internal/domain"
	"dockmatch/internal/service"
	"dockmatch/mocks"
)

type ingestFixture struct {
	invoices *mocks.MockInvoiceRepo
	notes    *mocks.MockDeliveryNoteRepo
	recon    *mocks.MockReconService
	svc      service.IngestService
}

func newIngestFixture() *ingestFixture {
	f := &ingestFixture{
		invoices: new(mocks.MockInvoiceRepo),
		notes:    new(mocks.MockDeliveryNoteRepo),
		recon:    new(mocks.MockReconService),
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	f.svc = service.NewIngestService(f.invoices, f.notes, f.recon, logger)
	return f
}

func TestStoreInvoice_PersistsAndReconciles(t *testing.T) {
	f := newIngestFixture()
	inv := testInvoice(uuid.New())
	expected := &domain.MatchingPair{InvoiceID: inv.ID, State: domain.StateMatched}

	f.invoices.On("Create", mock.Anything, inv).Return(nil)
	f.recon.On("ReconcileInvoice", mock.Anything, inv.ID).Return(expected, nil)

	pair, err := f.svc.StoreInvoice(context.Background(), inv)

	require.NoError(t, err)
	assert.Equal(t, expected, pair)
}

func TestStoreInvoice_AssignsID(t *testing.T) {
	f := newIngestFixture()
	inv := testInvoice(uuid.New())
	inv.ID = uuid.Nil

	f.invoices.On("Create", mock.Anything, inv).Return(nil)
	f.recon.On("ReconcileInvoice", mock.Anything, mock.Anything).
		Return(&domain.MatchingPair{}, nil)

	_, err := f.svc.StoreInvoice(context.Background(), inv)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, inv.ID)
}

func TestStoreInvoice_MissingIdentityRejected(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.InvoiceRecord)
	}{
		{"no venue", func(i *domain.InvoiceRecord) { i.VenueID = uuid.Nil }},
		{"no supplier", func(i *domain.InvoiceRecord) { i.SupplierName = "" }},
		{"no date", func(i *domain.InvoiceRecord) { i.InvoiceDate = time.Time{} }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newIngestFixture()
			inv := testInvoice(uuid.New())
			c.mutate(inv)

			_, err := f.svc.StoreInvoice(context.Background(), inv)

			assert.ErrorIs(t, err, domain.ErrInvalidRecord)
			f.invoices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.recon.AssertNotCalled(t, "ReconcileInvoice", mock.Anything, mock.Anything)
		})
	}
}

func TestStoreInvoice_DegradedLinesAccepted(t *testing.T) {
	f := newIngestFixture()
	inv := testInvoice(uuid.New())
	inv.Lines = append(inv.Lines, domain.LineItem{Description: "Credit Adjustment", Quantity: -1, UnitPrice: 10})

	f.invoices.On("Create", mock.Anything, inv).Return(nil)
	f.recon.On("ReconcileInvoice", mock.Anything, inv.ID).
		Return(&domain.MatchingPair{InvoiceID: inv.ID}, nil)

	_, err := f.svc.StoreInvoice(context.Background(), inv)

	assert.NoError(t, err)
}

func TestStoreDeliveryNote_TriggersRetryLate(t *testing.T) {
	f := newIngestFixture()
	note := testNote(uuid.New())
	expected := &domain.RetryLateResponse{Processed: 2, NewMatchesFound: 1}

	f.notes.On("Create", mock.Anything, note).Return(nil)
	f.recon.On("RetryLate", mock.Anything, note.VenueID).Return(expected, nil)

	resp, err := f.svc.StoreDeliveryNote(context.Background(), note)

	require.NoError(t, err)
	assert.Equal(t, expected, resp)
}

func TestStoreDeliveryNote_MissingIdentityRejected(t *testing.T) {
	f := newIngestFixture()
	note := testNote(uuid.New())
	note.SupplierName = ""

	_, err := f.svc.StoreDeliveryNote(context.Background(), note)

	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
	f.notes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.recon.AssertNotCalled(t, "RetryLate", mock.Anything, mock.Anything)
}

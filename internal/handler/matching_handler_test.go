package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dockmatch/internal/domain"
	"dockmatch/internal/handler"
	"dockmatch/internal/matching"
	"dockmatch/mocks"
)

type matchingFixture struct {
	recon    *mocks.MockReconService
	export   *mocks.MockExportService
	profiles *mocks.MockToleranceProfileRepo
	router   *gin.Engine
}

func newMatchingFixture() *matchingFixture {
	gin.SetMode(gin.TestMode)
	f := &matchingFixture{
		recon:    new(mocks.MockReconService),
		export:   new(mocks.MockExportService),
		profiles: new(mocks.MockToleranceProfileRepo),
	}
	h := handler.NewMatchingHandler(f.recon, f.export, f.profiles)

	r := gin.New()
	r.GET("/api/v1/invoices/:id/matching", h.GetPair)
	r.GET("/api/v1/invoices/:id/matching/candidates", h.GetCandidates)
	r.POST("/api/v1/invoices/:id/matching/confirm", h.Confirm)
	r.POST("/api/v1/invoices/:id/matching/reject", h.Reject)
	r.POST("/api/v1/venues/:venue_id/matching/retry-late", h.RetryLate)
	r.GET("/api/v1/venues/:venue_id/matching/summary", h.Summary)
	r.GET("/api/v1/venues/:venue_id/matching/tolerances", h.GetTolerances)
	r.PUT("/api/v1/venues/:venue_id/matching/tolerances", h.PutTolerances)
	r.GET("/api/v1/venues/:venue_id/matching/export", h.Export)
	f.router = r
	return f
}

func (f *matchingFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetPair_OK(t *testing.T) {
	f := newMatchingFixture()
	invoiceID := uuid.New()
	pair := &domain.MatchingPair{InvoiceID: invoiceID, Status: domain.MatchStatusMatched}
	f.recon.On("GetPair", mock.Anything, invoiceID).Return(pair, nil)

	w := f.do(http.MethodGet, "/api/v1/invoices/"+invoiceID.String()+"/matching", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
}

func TestGetPair_NotFound(t *testing.T) {
	f := newMatchingFixture()
	invoiceID := uuid.New()
	f.recon.On("GetPair", mock.Anything, invoiceID).Return(nil, domain.ErrMatchingPairNotFound)

	w := f.do(http.MethodGet, "/api/v1/invoices/"+invoiceID.String()+"/matching", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeEnvelope(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MATCHING_PAIR_NOT_FOUND", resp.Error.Code)
}

func TestGetPair_InvalidID(t *testing.T) {
	f := newMatchingFixture()

	w := f.do(http.MethodGet, "/api/v1/invoices/not-a-uuid/matching", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_ID", resp.Error.Code)
}

func TestConfirm_OK(t *testing.T) {
	f := newMatchingFixture()
	invoiceID, noteID := uuid.New(), uuid.New()
	pair := &domain.MatchingPair{InvoiceID: invoiceID, DeliveryNoteID: &noteID, Status: domain.MatchStatusMatched}
	f.recon.On("Confirm", mock.Anything, invoiceID, noteID).Return(pair, nil)

	w := f.do(http.MethodPost, "/api/v1/invoices/"+invoiceID.String()+"/matching/confirm",
		handler.DecisionRequest{DeliveryNoteID: noteID.String()})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeEnvelope(t, w).Success)
}

func TestConfirm_ConflictMapsTo409(t *testing.T) {
	f := newMatchingFixture()
	invoiceID, noteID := uuid.New(), uuid.New()
	f.recon.On("Confirm", mock.Anything, invoiceID, noteID).Return(nil, domain.ErrMatchConflict)

	w := f.do(http.MethodPost, "/api/v1/invoices/"+invoiceID.String()+"/matching/confirm",
		handler.DecisionRequest{DeliveryNoteID: noteID.String()})

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MATCH_CONFLICT", resp.Error.Code)
}

func TestConfirm_MissingBody(t *testing.T) {
	f := newMatchingFixture()
	invoiceID := uuid.New()

	w := f.do(http.MethodPost, "/api/v1/invoices/"+invoiceID.String()+"/matching/confirm", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.recon.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything)
}

func TestReject_NoteAlreadyClaimedMapsTo409(t *testing.T) {
	f := newMatchingFixture()
	invoiceID, noteID := uuid.New(), uuid.New()
	f.recon.On("Reject", mock.Anything, invoiceID, noteID).Return(nil, domain.ErrNoteAlreadyClaimed)

	w := f.do(http.MethodPost, "/api/v1/invoices/"+invoiceID.String()+"/matching/reject",
		handler.DecisionRequest{DeliveryNoteID: noteID.String()})

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOTE_ALREADY_CLAIMED", resp.Error.Code)
}

func TestRetryLate_OK(t *testing.T) {
	f := newMatchingFixture()
	venueID := uuid.New()
	f.recon.On("RetryLate", mock.Anything, venueID).
		Return(&domain.RetryLateResponse{Processed: 4, NewMatchesFound: 2}, nil)

	w := f.do(http.MethodPost, "/api/v1/venues/"+venueID.String()+"/matching/retry-late", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	assert.True(t, resp.Success)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["new_matches_found"])
}

func TestPutTolerances_InvalidRejected(t *testing.T) {
	f := newMatchingFixture()
	venueID := uuid.New()
	tol := matching.DefaultTolerances()
	tol.QtyTolRel = -1

	w := f.do(http.MethodPut, "/api/v1/venues/"+venueID.String()+"/matching/tolerances", tol)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_TOLERANCES", resp.Error.Code)
	f.profiles.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestPutTolerances_StoresProfile(t *testing.T) {
	f := newMatchingFixture()
	venueID := uuid.New()
	f.profiles.On("Upsert", mock.Anything, mock.MatchedBy(func(p *domain.ToleranceProfile) bool {
		return p.VenueID == venueID && p.DateWindowDays == 7
	})).Return(nil)

	tol := matching.DefaultTolerances()
	tol.DateWindowDays = 7

	w := f.do(http.MethodPut, "/api/v1/venues/"+venueID.String()+"/matching/tolerances", tol)

	assert.Equal(t, http.StatusOK, w.Code)
	f.profiles.AssertExpectations(t)
}

func TestExport_XLSXReturnsURL(t *testing.T) {
	f := newMatchingFixture()
	venueID := uuid.New()
	f.export.On("ExportXLSX", mock.Anything, venueID).Return("https://example.com/report.xlsx", nil)

	w := f.do(http.MethodGet, "/api/v1/venues/"+venueID.String()+"/matching/export?format=xlsx", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "https://example.com/report.xlsx", data["url"])
}

func TestExport_CSVStreams(t *testing.T) {
	f := newMatchingFixture()
	venueID := uuid.New()
	f.export.On("WriteCSV", mock.Anything, venueID, mock.Anything).Return(nil)

	w := f.do(http.MethodGet, "/api/v1/venues/"+venueID.String()+"/matching/export", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "reconciliation.csv")
}

func TestExport_UnknownFormatRejected(t *testing.T) {
	f := newMatchingFixture()
	venueID := uuid.New()

	w := f.do(http.MethodGet, "/api/v1/venues/"+venueID.String()+"/matching/export?format=pdf", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

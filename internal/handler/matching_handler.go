package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dockmatch/internal/domain"
	"dockmatch/internal/matching"
	"dockmatch/internal/port"
	"dockmatch/internal/service"
)

// MatchingHandler exposes the reconciliation workflow: pair retrieval,
// confirm/reject commands, retry-late, summaries and tolerance profiles.
type MatchingHandler struct {
	recon    service.ReconService
	export   service.ExportService
	profiles port.ToleranceProfileRepository
}

// NewMatchingHandler creates a new MatchingHandler.
func NewMatchingHandler(recon service.ReconService, export service.ExportService, profiles port.ToleranceProfileRepository) *MatchingHandler {
	return &MatchingHandler{recon: recon, export: export, profiles: profiles}
}

// DecisionRequest carries the delivery note id of a confirm/reject command.
type DecisionRequest struct {
	DeliveryNoteID string `json:"delivery_note_id" binding:"required"`
}

// GetPair handles GET /api/v1/invoices/:id/matching
// @Summary Get the reconciliation record for an invoice
// @Tags matching
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} APIResponse{data=domain.MatchingPair}
// @Failure 404 {object} APIResponse "No reconciliation record"
// @Router /invoices/{id}/matching [get]
func (h *MatchingHandler) GetPair(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	pair, err := h.recon.GetPair(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, pair)
}

// GetCandidates handles GET /api/v1/invoices/:id/matching/candidates
// @Summary Get the ranked candidate notes for an invoice
// @Tags matching
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} APIResponse{data=[]domain.MatchCandidate}
// @Router /invoices/{id}/matching/candidates [get]
func (h *MatchingHandler) GetCandidates(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cands, err := h.recon.Candidates(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, cands)
}

// Confirm handles POST /api/v1/invoices/:id/matching/confirm
// @Summary Confirm a pairing
// @Description Bind the delivery note to the invoice. Idempotent for the already-bound note; confirming a different note over a confirmed pair returns 409.
// @Tags matching
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param body body DecisionRequest true "Delivery note to confirm"
// @Success 200 {object} APIResponse{data=domain.MatchingPair}
// @Failure 409 {object} APIResponse "Conflicting confirmation"
// @Router /invoices/{id}/matching/confirm [post]
func (h *MatchingHandler) Confirm(c *gin.Context) {
	invoiceID, noteID, ok := h.decisionIDs(c)
	if !ok {
		return
	}
	pair, err := h.recon.Confirm(c.Request.Context(), invoiceID, noteID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, pair)
}

// Reject handles POST /api/v1/invoices/:id/matching/reject
// @Summary Reject a pairing
// @Description Reject the delivery note for this invoice, freeing it for candidacy by other invoices.
// @Tags matching
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param body body DecisionRequest true "Delivery note to reject"
// @Success 200 {object} APIResponse{data=domain.MatchingPair}
// @Router /invoices/{id}/matching/reject [post]
func (h *MatchingHandler) Reject(c *gin.Context) {
	invoiceID, noteID, ok := h.decisionIDs(c)
	if !ok {
		return
	}
	pair, err := h.recon.Reject(c.Request.Context(), invoiceID, noteID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, pair)
}

// RetryLate handles POST /api/v1/venues/:venue_id/matching/retry-late
// @Summary Re-run candidate generation for a venue's open reconciliations
// @Tags matching
// @Produce json
// @Param venue_id path string true "Venue ID"
// @Success 200 {object} APIResponse{data=domain.RetryLateResponse}
// @Router /venues/{venue_id}/matching/retry-late [post]
func (h *MatchingHandler) RetryLate(c *gin.Context) {
	venueID, ok := parseID(c, "venue_id")
	if !ok {
		return
	}
	resp, err := h.recon.RetryLate(c.Request.Context(), venueID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, resp)
}

// Summary handles GET /api/v1/venues/:venue_id/matching/summary
// @Summary Get the reconciliation summary for a venue
// @Tags matching
// @Produce json
// @Param venue_id path string true "Venue ID"
// @Success 200 {object} APIResponse{data=domain.MatchingSummary}
// @Router /venues/{venue_id}/matching/summary [get]
func (h *MatchingHandler) Summary(c *gin.Context) {
	venueID, ok := parseID(c, "venue_id")
	if !ok {
		return
	}
	summary, err := h.recon.Summary(c.Request.Context(), venueID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, summary)
}

// GetTolerances handles GET /api/v1/venues/:venue_id/matching/tolerances
// @Summary Get the effective matching tolerances for a venue
// @Tags matching
// @Produce json
// @Param venue_id path string true "Venue ID"
// @Success 200 {object} APIResponse{data=matching.Tolerances}
// @Router /venues/{venue_id}/matching/tolerances [get]
func (h *MatchingHandler) GetTolerances(c *gin.Context) {
	venueID, ok := parseID(c, "venue_id")
	if !ok {
		return
	}
	tol, err := h.recon.TolerancesForVenue(c.Request.Context(), venueID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, tol)
}

// PutTolerances handles PUT /api/v1/venues/:venue_id/matching/tolerances
// @Summary Store a venue tolerance profile
// @Description Replace the venue's tolerance overrides. Rejected whole on any invalid value.
// @Tags matching
// @Accept json
// @Produce json
// @Param venue_id path string true "Venue ID"
// @Param body body matching.Tolerances true "Tolerance overrides"
// @Success 200 {object} APIResponse{data=domain.ToleranceProfile}
// @Failure 400 {object} APIResponse "Invalid tolerances"
// @Router /venues/{venue_id}/matching/tolerances [put]
func (h *MatchingHandler) PutTolerances(c *gin.Context) {
	venueID, ok := parseID(c, "venue_id")
	if !ok {
		return
	}
	var tol matching.Tolerances
	if err := c.ShouldBindJSON(&tol); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "request body is not a valid tolerance set")
		return
	}
	if err := tol.Validate(); err != nil {
		HandleError(c, err)
		return
	}

	profile := &domain.ToleranceProfile{
		VenueID:            venueID,
		DateWindowDays:     tol.DateWindowDays,
		AmountProximityPct: tol.AmountProximityPct,
		QtyTolRel:          tol.QtyTolRel,
		QtyTolAbs:          tol.QtyTolAbs,
		PriceTolRel:        tol.PriceTolRel,
		FuzzyDescThreshold: tol.FuzzyDescThreshold,
	}
	if err := h.profiles.Upsert(c.Request.Context(), profile); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, profile)
}

// Export handles GET /api/v1/venues/:venue_id/matching/export?format=csv|xlsx
// @Summary Export a venue reconciliation report
// @Description csv streams the report; xlsx archives the workbook to object storage and returns a presigned URL.
// @Tags matching
// @Produce json
// @Param venue_id path string true "Venue ID"
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {object} APIResponse{data=string} "Presigned URL for xlsx"
// @Router /venues/{venue_id}/matching/export [get]
func (h *MatchingHandler) Export(c *gin.Context) {
	venueID, ok := parseID(c, "venue_id")
	if !ok {
		return
	}

	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		url, err := h.export.ExportXLSX(c.Request.Context(), venueID)
		if err != nil {
			HandleError(c, err)
			return
		}
		RespondOK(c, gin.H{"url": url})
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="reconciliation.csv"`)
		if err := h.export.WriteCSV(c.Request.Context(), venueID, c.Writer); err != nil {
			HandleError(c, err)
			return
		}
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
	}
}

func (h *MatchingHandler) decisionIDs(c *gin.Context) (invoiceID, noteID uuid.UUID, ok bool) {
	invoiceID, ok = parseID(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "delivery_note_id is required")
		return uuid.Nil, uuid.Nil, false
	}
	noteID, err := uuid.Parse(req.DeliveryNoteID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "delivery_note_id is not a valid uuid")
		return uuid.Nil, uuid.Nil, false
	}
	return invoiceID, noteID, true
}

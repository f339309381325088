package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dockmatch/internal/domain"
	"dockmatch/internal/service"
)

// RecordHandler handles invoice and delivery note ingest and retrieval.
type RecordHandler struct {
	ingest service.IngestService
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(ingest service.IngestService) *RecordHandler {
	return &RecordHandler{ingest: ingest}
}

// CreateInvoice handles POST /api/v1/invoices
// @Summary Ingest an extracted invoice
// @Description Store an extracted invoice record and immediately reconcile it against the venue's delivery notes. Returns the resulting matching pair.
// @Tags records
// @Accept json
// @Produce json
// @Param invoice body domain.InvoiceRecord true "Extracted invoice record"
// @Success 201 {object} APIResponse{data=domain.MatchingPair} "Reconciliation result"
// @Failure 400 {object} APIResponse "Invalid record"
// @Router /invoices [post]
func (h *RecordHandler) CreateInvoice(c *gin.Context) {
	var inv domain.InvoiceRecord
	if err := c.ShouldBindJSON(&inv); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "request body is not a valid invoice record")
		return
	}

	pair, err := h.ingest.StoreInvoice(c.Request.Context(), &inv)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, pair)
}

// GetInvoice handles GET /api/v1/invoices/:id
// @Summary Get an invoice
// @Tags records
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} APIResponse{data=domain.InvoiceRecord}
// @Failure 404 {object} APIResponse "Invoice not found"
// @Router /invoices/{id} [get]
func (h *RecordHandler) GetInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	inv, err := h.ingest.GetInvoice(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, inv)
}

// ListInvoices handles GET /api/v1/invoices?venue_id=&page=&page_size=
// @Summary List a venue's invoices
// @Tags records
// @Produce json
// @Param venue_id query string true "Venue ID"
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} APIResponse{data=[]domain.InvoiceRecord}
// @Router /invoices [get]
func (h *RecordHandler) ListInvoices(c *gin.Context) {
	venueID, ok := parseQueryID(c, "venue_id")
	if !ok {
		return
	}
	offset, limit := pagination(c)

	invoices, total, err := h.ingest.ListInvoices(c.Request.Context(), venueID, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, invoices, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// CreateDeliveryNote handles POST /api/v1/delivery-notes
// @Summary Ingest an extracted delivery note
// @Description Store an extracted delivery note and retry open reconciliations of its venue. Returns the retry-late accounting.
// @Tags records
// @Accept json
// @Produce json
// @Param note body domain.DeliveryNoteRecord true "Extracted delivery note"
// @Success 201 {object} APIResponse{data=domain.RetryLateResponse} "Retry-late accounting"
// @Failure 400 {object} APIResponse "Invalid record"
// @Router /delivery-notes [post]
func (h *RecordHandler) CreateDeliveryNote(c *gin.Context) {
	var note domain.DeliveryNoteRecord
	if err := c.ShouldBindJSON(&note); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "request body is not a valid delivery note record")
		return
	}

	resp, err := h.ingest.StoreDeliveryNote(c.Request.Context(), &note)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, resp)
}

// GetDeliveryNote handles GET /api/v1/delivery-notes/:id
// @Summary Get a delivery note
// @Tags records
// @Produce json
// @Param id path string true "Delivery note ID"
// @Success 200 {object} APIResponse{data=domain.DeliveryNoteRecord}
// @Failure 404 {object} APIResponse "Delivery note not found"
// @Router /delivery-notes/{id} [get]
func (h *RecordHandler) GetDeliveryNote(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	note, err := h.ingest.GetDeliveryNote(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, note)
}

// ListDeliveryNotes handles GET /api/v1/delivery-notes?venue_id=&page=&page_size=
// @Summary List a venue's delivery notes
// @Tags records
// @Produce json
// @Param venue_id query string true "Venue ID"
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} APIResponse{data=[]domain.DeliveryNoteRecord}
// @Router /delivery-notes [get]
func (h *RecordHandler) ListDeliveryNotes(c *gin.Context) {
	venueID, ok := parseQueryID(c, "venue_id")
	if !ok {
		return
	}
	offset, limit := pagination(c)

	notes, total, err := h.ingest.ListDeliveryNotes(c.Request.Context(), venueID, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, notes, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// parseID parses a uuid path parameter, writing a 400 response on failure.
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// parseQueryID parses a uuid query parameter, writing a 400 response on failure.
func parseQueryID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Query(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", name+" query parameter is required")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (offset, limit int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}
	return (page - 1) * pageSize, pageSize
}

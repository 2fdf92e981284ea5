package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/noblepay-ledger/internal/api_gateway/middleware"
	"github.com/noblepay-ledger/internal/api_gateway/service"
	"github.com/noblepay-ledger/internal/domain/ledger"
)

// EntryHandler handles HTTP requests for ledger history
type EntryHandler struct {
	entryService service.EntryService
	logger       *slog.Logger
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(logger *slog.Logger, entryService service.EntryService) *EntryHandler {
	return &EntryHandler{
		entryService: entryService,
		logger:       logger,
	}
}

// GetByReference retrieves an entry by its receipt reference, returns 404 if not found
func (h *EntryHandler) GetByReference(c *gin.Context) {
	reference := c.Param("reference")

	entry, err := h.entryService.GetEntryByReference(c.Request.Context(), middleware.GetOwnerID(c), reference)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if entry == nil {
		RespondNotFound(c, "ENTRY_NOT_FOUND", "Entry not found")
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// GetByAccountID retrieves paginated history for one of the caller's accounts
func (h *EntryHandler) GetByAccountID(c *gin.Context) {
	accountID, ok := parseAccountID(c, h.logger)
	if !ok {
		return
	}

	params, ok := h.history(c)
	if !ok {
		return
	}

	entries, total, err := h.entryService.GetEntriesByAccountID(c.Request.Context(), middleware.GetOwnerID(c), accountID, params.filter(), params.Page, params.PerPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondPage(c, mapEntries(entries), params.PaginationParams, total)
}

// List retrieves paginated history across the caller's accounts, filtered by ?kind= and ?status=
func (h *EntryHandler) List(c *gin.Context) {
	params, ok := h.history(c)
	if !ok {
		return
	}
	h.listOwner(c, params)
}

// ListKind serves the history of one kind of movement, e.g. GET /bills/payments
func (h *EntryHandler) ListKind(kind ledger.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		params, ok := h.history(c)
		if !ok {
			return
		}
		params.Kind = string(kind)
		h.listOwner(c, params)
	}
}

func (h *EntryHandler) listOwner(c *gin.Context, params HistoryParams) {
	entries, total, err := h.entryService.GetEntriesByOwnerID(c.Request.Context(), middleware.GetOwnerID(c), params.filter(), params.Page, params.PerPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondPage(c, mapEntries(entries), params.PaginationParams, total)
}

// history binds pagination and filters, answering 400 for either being invalid
func (h *EntryHandler) history(c *gin.Context) (HistoryParams, bool) {
	var params HistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return params, false
	}
	if err := params.filter().Validate(); err != nil {
		respondError(c, h.logger, err)
		return params, false
	}
	return params, true
}

func mapEntries(entries []*ledger.Entry) []EntryResponse {
	response := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, mapEntryToResponse(entry))
	}
	return response
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/noblepay-ledger/internal/api_gateway/middleware"
)

// Response is the envelope every endpoint answers with. Exactly one of Data
// and Error is set.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorBody  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *PageMeta   `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PageMeta describes one page of a history listing
type PageMeta struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func newPageMeta(p PaginationParams, total int64) *PageMeta {
	items := int(total)
	pages := 0
	if p.PerPage > 0 {
		pages = (items + p.PerPage - 1) / p.PerPage
	}
	return &PageMeta{Page: p.Page, PerPage: p.PerPage, TotalPages: pages, TotalItems: items}
}

func write(c *gin.Context, status int, body Response) {
	body.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(status, body)
}

func respond(c *gin.Context, status int, data interface{}) {
	write(c, status, Response{Data: data})
}

func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, data)
}

// RespondPage sends one page of a listing with its paging metadata
func RespondPage(c *gin.Context, data interface{}, p PaginationParams, total int64) {
	write(c, http.StatusOK, Response{Data: data, Meta: newPageMeta(p, total)})
}

// RespondWithError sends the error envelope with the given status
func RespondWithError(c *gin.Context, status int, code, message string) {
	write(c, status, Response{Error: &ErrorBody{Code: code, Message: message}})
}

// RespondBadRequest covers malformed bodies, queries and path parameters
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondValidationError covers well-formed input the ledger rejects
func RespondValidationError(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusBadRequest, code, message)
}

func RespondNotFound(c *gin.Context, code, message string) {
	if code == "" {
		code = "NOT_FOUND"
	}
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, code, message)
}

func RespondConflict(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusConflict, code, message)
}

// RespondUnprocessable covers refusals such as an inactive account or a short balance
func RespondUnprocessable(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusUnprocessableEntity, code, message)
}

// RespondServiceUnavailable tells the caller the movement rolled back and may be retried
func RespondServiceUnavailable(c *gin.Context) {
	c.Header("Retry-After", "1")
	RespondWithError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is temporarily unavailable, retry the request")
}

func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

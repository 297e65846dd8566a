package handler

import (
	"github.com/gin-gonic/gin"

	lendingapp "github.com/openlib/backend/internal/application/lending"
)

// LendingHandler handles circulation API endpoints
type LendingHandler struct {
	BaseHandler
	lendingService *lendingapp.LendingService
}

// NewLendingHandler creates a new LendingHandler
func NewLendingHandler(lendingService *lendingapp.LendingService) *LendingHandler {
	return &LendingHandler{
		lendingService: lendingService,
	}
}

// RegisterRoutes registers circulation routes
func (h *LendingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	loans := rg.Group("/loans")
	{
		loans.GET("", h.List)
		loans.GET(":id", h.Get)
		loans.POST("", h.Borrow)
		loans.POST(":id/return", h.Return)
	}

	books := rg.Group("/books")
	{
		books.POST(":id/return", h.ReturnByBook)
		books.POST(":id/reconcile", h.ReconcileBook)
	}

	reconcile := rg.Group("/reconcile")
	{
		reconcile.POST("", h.ReconcileAll)
	}
}

// Borrow opens a loan for a book
func (h *LendingHandler) Borrow(c *gin.Context) {
	var req lendingapp.BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	loan, err := h.lendingService.Borrow(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, loan)
}

// Return settles a loan by its ID and reports the fine owed
func (h *LendingHandler) Return(c *gin.Context) {
	loanID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid loan ID")
		return
	}

	result, err := h.lendingService.Return(c.Request.Context(), loanID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ReturnByBook settles the open loan for a book
func (h *LendingHandler) ReturnByBook(c *gin.Context) {
	bookID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid book ID")
		return
	}

	result, err := h.lendingService.ReturnByBook(c.Request.Context(), bookID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Get returns a single loan
func (h *LendingHandler) Get(c *gin.Context) {
	loanID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid loan ID")
		return
	}

	loan, err := h.lendingService.GetLoan(c.Request.Context(), loanID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, loan)
}

// List returns loans. With a user_id query parameter it returns that user's
// full history, otherwise all open loans.
func (h *LendingHandler) List(c *gin.Context) {
	var filter lendingapp.LoanListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	ctx := c.Request.Context()
	if userID := c.Query("user_id"); userID != "" {
		loans, err := h.lendingService.ListUserLoans(ctx, userID, filter)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, loans)
		return
	}

	loans, err := h.lendingService.ListOpenLoans(ctx, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, loans)
}

// ReconcileBook repairs the availability flag of one book
func (h *LendingHandler) ReconcileBook(c *gin.Context) {
	bookID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid book ID")
		return
	}

	result, err := h.lendingService.ReconcileBook(c.Request.Context(), bookID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ReconcileAll sweeps the whole catalog and repairs stale flags
func (h *LendingHandler) ReconcileAll(c *gin.Context) {
	result, err := h.lendingService.ReconcileAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

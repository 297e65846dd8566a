package handler

import (
	"github.com/gin-gonic/gin"

	catalogapp "github.com/openlib/backend/internal/application/catalog"
)

// BookHandler handles catalog API endpoints
type BookHandler struct {
	BaseHandler
	bookService *catalogapp.BookService
}

// NewBookHandler creates a new BookHandler
func NewBookHandler(bookService *catalogapp.BookService) *BookHandler {
	return &BookHandler{
		bookService: bookService,
	}
}

// RegisterRoutes registers catalog routes
func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	books := rg.Group("/books")
	{
		books.GET("", h.List)
		books.GET(":id", h.Get)
		books.POST("", h.Create)
		books.PUT(":id", h.Update)
		books.DELETE(":id", h.Delete)
	}

	categories := rg.Group("/categories")
	{
		categories.GET("", h.CategorySummary)
	}
}

// Create adds a book to the catalog
func (h *BookHandler) Create(c *gin.Context) {
	var req catalogapp.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	book, err := h.bookService.AddBook(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, book)
}

// Get returns a single book
func (h *BookHandler) Get(c *gin.Context) {
	bookID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid book ID")
		return
	}

	book, err := h.bookService.GetBook(c.Request.Context(), bookID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, book)
}

// List returns a paginated book list with optional search and category filters
func (h *BookHandler) List(c *gin.Context) {
	var filter catalogapp.BookListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.bookService.ListBooks(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Update replaces a book's descriptive fields
func (h *BookHandler) Update(c *gin.Context) {
	bookID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid book ID")
		return
	}

	var req catalogapp.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	book, err := h.bookService.UpdateBook(c.Request.Context(), bookID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, book)
}

// Delete removes a book and its loan history
func (h *BookHandler) Delete(c *gin.Context) {
	bookID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid book ID")
		return
	}

	result, err := h.bookService.DeleteBook(c.Request.Context(), bookID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// CategorySummary returns per-category totals
func (h *BookHandler) CategorySummary(c *gin.Context) {
	summary, err := h.bookService.CategorySummary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

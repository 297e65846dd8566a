package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openlib/backend/internal/application/reporting"
)

// ReportHandler handles reporting API endpoints
type ReportHandler struct {
	BaseHandler
	reportService *reporting.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *reporting.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// RegisterRoutes registers reporting routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	{
		reports.GET("/overdue", h.Overdue)
		reports.GET("/users/:id", h.UserSummary)
		reports.GET("/popular", h.PopularBooks)
		reports.GET("/dashboard", h.Dashboard)
	}
}

// Overdue returns all overdue loans with their accrued fines
func (h *ReportHandler) Overdue(c *gin.Context) {
	report, err := h.reportService.Overdue(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// UserSummary returns one borrower's loan and fine totals
func (h *ReportHandler) UserSummary(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		h.BadRequest(c, "User ID is required")
		return
	}

	summary, err := h.reportService.UserSummary(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// PopularBooks returns the most borrowed books, all-time
func (h *ReportHandler) PopularBooks(c *gin.Context) {
	topN := reporting.DefaultTopN
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			h.BadRequest(c, "limit must be an integer between 1 and 100")
			return
		}
		topN = parsed
	}

	ranking, err := h.reportService.PopularBooks(c.Request.Context(), topN)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ranking)
}

// Dashboard returns the library-wide snapshot
func (h *ReportHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.reportService.Dashboard(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dashboard)
}

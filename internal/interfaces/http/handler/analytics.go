package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/application/analytics"
	"github.com/salesinsight/backend/internal/domain/sales"
)

// SummaryResponse holds the three precomputed groupings of an upload
type SummaryResponse struct {
	ProductTotals sales.Totals `json:"product_totals"`
	RegionTotals  sales.Totals `json:"region_totals"`
	MonthTotals   sales.Totals `json:"month_totals"`
}

// AnalyticsHandler serves revenue totals of processed uploads
type AnalyticsHandler struct {
	BaseHandler
	queryService *analytics.QueryService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(queryService *analytics.QueryService) *AnalyticsHandler {
	return &AnalyticsHandler{queryService: queryService}
}

type totalsFunc func(ctx context.Context, ownerID uuid.UUID, q analytics.Query) (sales.Totals, error)

// Summary godoc
// @Summary      Upload summary
// @Description  Revenue grouped by product, region and month
// @Tags         analytics
// @Produce      json
// @Param        file_id path string true "Upload ID"
// @Success      200 {object} APIResponse[SummaryResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /analytics/summary/{file_id} [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	uploadID, ok := h.pathUUID(c, "file_id")
	if !ok {
		return
	}

	result, err := h.queryService.Summary(c.Request.Context(), userID, uploadID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SummaryResponse{
		ProductTotals: result.ProductTotals,
		RegionTotals:  result.RegionTotals,
		MonthTotals:   result.MonthTotals,
	})
}

// Products godoc
// @Summary      Revenue per product
// @Tags         analytics
// @Produce      json
// @Param        file_id query string true "Upload ID"
// @Param        start_date query string false "Inclusive lower bound, YYYY-MM-DD"
// @Param        end_date query string false "Inclusive upper bound, YYYY-MM-DD"
// @Param        region query string false "Only this region"
// @Param        product_name query string false "Only this product"
// @Success      200 {object} APIResponse[map[string]float64]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /analytics/products [get]
func (h *AnalyticsHandler) Products(c *gin.Context) {
	h.serveTotals(c, h.queryService.ProductTotals, "start_date", "end_date", "region", "product_name")
}

// Regions godoc
// @Summary      Revenue per region
// @Tags         analytics
// @Produce      json
// @Param        file_id query string true "Upload ID"
// @Param        start_date query string false "Inclusive lower bound, YYYY-MM-DD"
// @Param        end_date query string false "Inclusive upper bound, YYYY-MM-DD"
// @Success      200 {object} APIResponse[map[string]float64]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /analytics/regions [get]
func (h *AnalyticsHandler) Regions(c *gin.Context) {
	h.serveTotals(c, h.queryService.RegionTotals, "start_date", "end_date")
}

// Monthly godoc
// @Summary      Revenue per month
// @Tags         analytics
// @Produce      json
// @Param        file_id query string true "Upload ID"
// @Success      200 {object} APIResponse[map[string]float64]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /analytics/monthly [get]
func (h *AnalyticsHandler) Monthly(c *gin.Context) {
	h.serveTotals(c, h.queryService.MonthlyTotals)
}

// serveTotals builds a query from file_id and the allowed filter parameters.
// Other query parameters are ignored.
func (h *AnalyticsHandler) serveTotals(c *gin.Context, fn totalsFunc, allowed ...string) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	rawID, present := c.GetQuery("file_id")
	if !present {
		h.BadRequest(c, "file_id is required")
		return
	}
	uploadID, err := uuid.Parse(rawID)
	if err != nil {
		h.BadRequest(c, "Invalid file_id format")
		return
	}

	q := analytics.Query{UploadID: uploadID}
	for _, name := range allowed {
		value, present := c.GetQuery(name)
		if !present {
			continue
		}
		switch name {
		case "start_date":
			q.StartDate = &value
		case "end_date":
			q.EndDate = &value
		case "region":
			q.Region = &value
		case "product_name":
			q.ProductName = &value
		}
	}

	totals, err := fn(c.Request.Context(), userID, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, totals)
}

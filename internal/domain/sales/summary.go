package sales

import (
	"time"

	"github.com/google/uuid"
)

// Totals maps a grouping key to total revenue
type Totals map[string]float64

// Summary is the single precomputed aggregate snapshot for an upload
type Summary struct {
	UploadID      uuid.UUID `json:"upload_id"`
	ProductTotals Totals    `json:"product_totals"`
	RegionTotals  Totals    `json:"region_totals"`
	MonthTotals   Totals    `json:"month_totals"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewSummary builds the snapshot for an upload from an aggregation result
func NewSummary(uploadID uuid.UUID, result AggregateResult) *Summary {
	return &Summary{
		UploadID:      uploadID,
		ProductTotals: result.ByProduct,
		RegionTotals:  result.ByRegion,
		MonthTotals:   result.ByMonth,
		CreatedAt:     time.Now(),
	}
}

package sales

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the canonical calendar-day format of FactRecord.Date
const DateLayout = "2006-01-02"

// MonthLayout is the month key format used by monthly grouping
const MonthLayout = "2006-01"

// acceptedDateLayouts lists the date formats recognised in uploaded files, most specific first
var acceptedDateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"2006-01",
}

// FactRecord is one validated sales row tied to an upload. Immutable once written.
type FactRecord struct {
	ID          int64     `json:"id"`
	UploadID    uuid.UUID `json:"upload_id"`
	Date        string    `json:"date"`
	ProductName string    `json:"product_name"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	Region      string    `json:"region"`
}

// Revenue returns quantity × price without rounding
func (r FactRecord) Revenue() float64 {
	return r.Quantity * r.Price
}

// ParsedDate parses the record date with any accepted layout
func (r FactRecord) ParsedDate() (time.Time, bool) {
	return ParseDate(r.Date)
}

// ParseDate parses a calendar day in any of the accepted layouts
func ParseDate(value string) (time.Time, bool) {
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate rewrites a parseable date as YYYY-MM-DD and leaves anything else untouched
func NormalizeDate(value string) string {
	if t, ok := ParseDate(value); ok {
		return t.Format(DateLayout)
	}
	return value
}

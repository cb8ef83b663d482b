// Package analytics answers revenue questions about processed uploads,
// serving repeated queries from a TTL cache.
package analytics

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/sales"
	"github.com/salesinsight/backend/internal/domain/shared"
)

// Operation names a query kind. It is part of the cache key.
type Operation string

const (
	OpSummary  Operation = "summary"
	OpProducts Operation = "products"
	OpRegions  Operation = "regions"
	OpMonthly  Operation = "monthly"
)

// Query selects the records of one upload. Nil fields are not applied;
// an empty string is a real filter value.
type Query struct {
	UploadID    uuid.UUID
	StartDate   *string
	EndDate     *string
	Region      *string
	ProductName *string
}

// IsFiltered reports whether any filter is set
func (q Query) IsFiltered() bool {
	return q.StartDate != nil || q.EndDate != nil || q.Region != nil || q.ProductName != nil
}

// RecordFilter converts the query to a record filter.
// A malformed date bound is a VALIDATION_ERROR domain error.
func (q Query) RecordFilter() (sales.RecordFilter, error) {
	filter := sales.RecordFilter{
		Region:      q.Region,
		ProductName: q.ProductName,
	}

	var err error
	if filter.StartDate, err = parseBound("start_date", q.StartDate); err != nil {
		return sales.RecordFilter{}, err
	}
	if filter.EndDate, err = parseBound("end_date", q.EndDate); err != nil {
		return sales.RecordFilter{}, err
	}
	return filter, nil
}

func parseBound(name string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, ok := sales.ParseDate(strings.TrimSpace(*value))
	if !ok {
		return nil, shared.NewDomainError("VALIDATION_ERROR",
			fmt.Sprintf("Invalid %s %q, expected YYYY-MM-DD", name, *value))
	}
	return &t, nil
}

// BuildCacheKey renders prefix:op:file_id=<id> followed by the set filters
// in a fixed order. Values are query-escaped so that distinct queries
// never share a key.
func BuildCacheKey(prefix string, op Operation, q Query) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(':')
	b.WriteString(string(op))
	b.WriteString(":file_id=")
	b.WriteString(q.UploadID.String())

	appendPart := func(name string, value *string) {
		if value == nil {
			return
		}
		b.WriteByte(':')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(*value))
	}
	appendPart("start_date", q.StartDate)
	appendPart("end_date", q.EndDate)
	appendPart("region", q.Region)
	appendPart("product_name", q.ProductName)
	return b.String()
}

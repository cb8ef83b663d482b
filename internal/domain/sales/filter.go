package sales

import "time"

// RecordFilter narrows the fact records of one upload.
// Nil fields are not applied; an empty string is a real filter value.
type RecordFilter struct {
	StartDate   *time.Time
	EndDate     *time.Time
	Region      *string
	ProductName *string
}

// IsEmpty reports whether no predicate is set
func (f RecordFilter) IsEmpty() bool {
	return f.StartDate == nil && f.EndDate == nil && f.Region == nil && f.ProductName == nil
}

// HasDateRange reports whether either date bound is set
func (f RecordFilter) HasDateRange() bool {
	return f.StartDate != nil || f.EndDate != nil
}

// Keep reports whether a record satisfies every set predicate.
// Date bounds are inclusive; a record with an unparseable date never matches a date bound.
func (f RecordFilter) Keep(r FactRecord) bool {
	if f.Region != nil && r.Region != *f.Region {
		return false
	}
	if f.ProductName != nil && r.ProductName != *f.ProductName {
		return false
	}
	if !f.HasDateRange() {
		return true
	}

	day, ok := r.ParsedDate()
	if !ok {
		return false
	}
	if f.StartDate != nil && day.Before(truncateDay(*f.StartDate)) {
		return false
	}
	if f.EndDate != nil && day.After(truncateDay(*f.EndDate)) {
		return false
	}
	return true
}

// Apply returns the records that satisfy the filter, preserving order
func (f RecordFilter) Apply(records []FactRecord) []FactRecord {
	if f.IsEmpty() {
		return records
	}
	kept := make([]FactRecord, 0, len(records))
	for _, r := range records {
		if f.Keep(r) {
			kept = append(kept, r)
		}
	}
	return kept
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

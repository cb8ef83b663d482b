package sales

// AggregateResult holds grouped revenue sums over a set of records
type AggregateResult struct {
	ByProduct Totals
	ByRegion  Totals
	ByMonth   Totals
	// UnparsedDates counts records left out of ByMonth because their date did not parse
	UnparsedDates int
	RecordCount   int
}

// Aggregate sums revenue by product, region and month.
// Groups without records are absent. Records whose date cannot be parsed still count
// towards product and region totals but are excluded from the monthly mapping.
func Aggregate(records []FactRecord) AggregateResult {
	result := AggregateResult{
		ByProduct:   make(Totals),
		ByRegion:    make(Totals),
		ByMonth:     make(Totals),
		RecordCount: len(records),
	}

	for _, r := range records {
		revenue := r.Revenue()
		result.ByProduct[r.ProductName] += revenue
		result.ByRegion[r.Region] += revenue

		day, ok := r.ParsedDate()
		if !ok {
			result.UnparsedDates++
			continue
		}
		result.ByMonth[day.Format(MonthLayout)] += revenue
	}

	return result
}

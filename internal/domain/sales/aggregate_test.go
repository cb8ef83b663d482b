package sales

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func sampleRecords(uploadID uuid.UUID) []FactRecord {
	return []FactRecord{
		{ID: 1, UploadID: uploadID, Date: "2024-01-05", ProductName: "Widget", Quantity: 3, Price: 10.0, Region: "North"},
		{ID: 2, UploadID: uploadID, Date: "2024-01-20", ProductName: "Widget", Quantity: 2, Price: 10.0, Region: "South"},
		{ID: 3, UploadID: uploadID, Date: "2024-02-01", ProductName: "Gadget", Quantity: 1, Price: 50.0, Region: "North"},
	}
}

func TestAggregate(t *testing.T) {
	t.Run("groups by product region and month", func(t *testing.T) {
		result := Aggregate(sampleRecords(uuid.New()))

		assert.Equal(t, Totals{"Widget": 50.0, "Gadget": 50.0}, result.ByProduct)
		assert.Equal(t, Totals{"North": 80.0, "South": 20.0}, result.ByRegion)
		assert.Equal(t, Totals{"2024-01": 50.0, "2024-02": 50.0}, result.ByMonth)
		assert.Equal(t, 3, result.RecordCount)
		assert.Zero(t, result.UnparsedDates)
	})

	t.Run("no records yields empty maps", func(t *testing.T) {
		result := Aggregate(nil)

		assert.Empty(t, result.ByProduct)
		assert.Empty(t, result.ByRegion)
		assert.Empty(t, result.ByMonth)
		assert.NotNil(t, result.ByMonth)
	})

	t.Run("unparseable dates only leave the monthly mapping", func(t *testing.T) {
		records := sampleRecords(uuid.New())
		records = append(records, FactRecord{ID: 4, Date: "sometime", ProductName: "Gadget", Quantity: 2, Price: 5, Region: "East"})

		result := Aggregate(records)

		assert.Equal(t, 60.0, result.ByProduct["Gadget"])
		assert.Equal(t, 10.0, result.ByRegion["East"])
		assert.Equal(t, Totals{"2024-01": 50.0, "2024-02": 50.0}, result.ByMonth)
		assert.Equal(t, 1, result.UnparsedDates)
	})

	t.Run("sums equal the arithmetic sum over the rows", func(t *testing.T) {
		records := []FactRecord{
			{Date: "2024-03-01", ProductName: "A", Quantity: 1.5, Price: 2, Region: "R"},
			{Date: "2024-03-02", ProductName: "A", Quantity: 0, Price: 99, Region: "R"},
			{Date: "2024-03-03", ProductName: "B", Quantity: 4, Price: 0.25, Region: "S"},
		}

		result := Aggregate(records)

		assert.InDelta(t, 3.0, result.ByProduct["A"], 1e-9)
		assert.InDelta(t, 1.0, result.ByProduct["B"], 1e-9)
		assert.InDelta(t, 4.0, result.ByMonth["2024-03"], 1e-9)
		_, zeroFilled := result.ByProduct["C"]
		assert.False(t, zeroFilled)
	})

	t.Run("other date layouts fall into the right month", func(t *testing.T) {
		records := []FactRecord{
			{Date: "2024/05/31", ProductName: "A", Quantity: 1, Price: 1, Region: "R"},
			{Date: "2024-05-02T10:00:00Z", ProductName: "A", Quantity: 1, Price: 1, Region: "R"},
			{Date: "06/01/2024", ProductName: "A", Quantity: 1, Price: 1, Region: "R"},
		}

		result := Aggregate(records)

		assert.Equal(t, Totals{"2024-05": 2, "2024-06": 1}, result.ByMonth)
	})
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2024-01-05", NormalizeDate("2024-01-05"))
	assert.Equal(t, "2024-01-05", NormalizeDate("2024/01/05"))
	assert.Equal(t, "2024-01-05", NormalizeDate("2024-01-05 13:45:00"))
	assert.Equal(t, "not a date", NormalizeDate("not a date"))
}

func TestNewSummary(t *testing.T) {
	id := uuid.New()
	summary := NewSummary(id, Aggregate(sampleRecords(id)))

	assert.Equal(t, id, summary.UploadID)
	assert.Equal(t, Totals{"Widget": 50.0, "Gadget": 50.0}, summary.ProductTotals)
	assert.False(t, summary.CreatedAt.IsZero())
}

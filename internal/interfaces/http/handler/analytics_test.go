package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/sales"
	"github.com/salesinsight/backend/internal/interfaces/http/dto"
	"github.com/salesinsight/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsHandler_Summary(t *testing.T) {
	f := newAPIFixture(t)
	owner := uuid.New()
	id := f.upload(t, owner, "sales.csv", scenarioCSV)

	code, body := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary/"+id.String(), nil), owner)
	require.Equal(t, http.StatusOK, code, string(body))

	summary := testutil.DecodeData[SummaryResponse](t, body)
	assert.Equal(t, sales.Totals{"Widget": 50, "Gadget": 50}, summary.ProductTotals)
	assert.Equal(t, sales.Totals{"North": 80, "South": 20}, summary.RegionTotals)
	assert.Equal(t, sales.Totals{"2024-01": 50, "2024-02": 50}, summary.MonthTotals)

	t.Run("other owner", func(t *testing.T) {
		code, body := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary/"+id.String(), nil), uuid.New())
		assert.Equal(t, http.StatusNotFound, code)
		testutil.AssertErrorCode(t, body, dto.ErrCodeNotFound)
	})
}

func TestAnalyticsHandler_Totals(t *testing.T) {
	f := newAPIFixture(t)
	owner := uuid.New()
	id := f.upload(t, owner, "sales.csv", scenarioCSV).String()

	tests := []struct {
		name     string
		path     string
		expected sales.Totals
	}{
		{"products", "/api/v1/analytics/products?file_id=" + id, sales.Totals{"Widget": 50, "Gadget": 50}},
		{"products by region", "/api/v1/analytics/products?file_id=" + id + "&region=North", sales.Totals{"Widget": 30, "Gadget": 50}},
		{"products by name", "/api/v1/analytics/products?file_id=" + id + "&product_name=Gadget", sales.Totals{"Gadget": 50}},
		{"regions", "/api/v1/analytics/regions?file_id=" + id, sales.Totals{"North": 80, "South": 20}},
		{"regions in january", "/api/v1/analytics/regions?file_id=" + id + "&start_date=2024-01-01&end_date=2024-01-31", sales.Totals{"North": 30, "South": 20}},
		{"regions ignore product filter", "/api/v1/analytics/regions?file_id=" + id + "&product_name=Gadget", sales.Totals{"North": 80, "South": 20}},
		{"monthly", "/api/v1/analytics/monthly?file_id=" + id, sales.Totals{"2024-01": 50, "2024-02": 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.do(httptest.NewRequest(http.MethodGet, tt.path, nil), owner)
			require.Equal(t, http.StatusOK, code, string(body))
			assert.Equal(t, tt.expected, testutil.DecodeData[sales.Totals](t, body))
		})
	}
}

func TestAnalyticsHandler_Errors(t *testing.T) {
	f := newAPIFixture(t)
	owner := uuid.New()
	id := f.upload(t, owner, "sales.csv", scenarioCSV).String()

	tests := []struct {
		name   string
		path   string
		user   uuid.UUID
		status int
		code   string
	}{
		{"missing file_id", "/api/v1/analytics/products", owner, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"malformed file_id", "/api/v1/analytics/products?file_id=abc", owner, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"malformed date", "/api/v1/analytics/products?file_id=" + id + "&start_date=yesterday", owner, http.StatusBadRequest, dto.ErrCodeValidation},
		{"unknown upload", "/api/v1/analytics/monthly?file_id=" + uuid.NewString(), owner, http.StatusNotFound, dto.ErrCodeNotFound},
		{"other owner", "/api/v1/analytics/regions?file_id=" + id, uuid.New(), http.StatusNotFound, dto.ErrCodeNotFound},
		{"anonymous", "/api/v1/analytics/monthly?file_id=" + id, uuid.Nil, http.StatusUnauthorized, dto.ErrCodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.do(httptest.NewRequest(http.MethodGet, tt.path, nil), tt.user)
			assert.Equal(t, tt.status, code, string(body))
			testutil.AssertErrorCode(t, body, tt.code)
		})
	}
}

package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/salesinsight/backend/internal/application/ingest"
	"github.com/salesinsight/backend/internal/domain/sales"
	"github.com/salesinsight/backend/internal/domain/shared"
	"github.com/salesinsight/backend/internal/infrastructure/cache"
	"github.com/salesinsight/backend/internal/infrastructure/persistence"
	"github.com/salesinsight/backend/internal/infrastructure/scheduler"
	"github.com/salesinsight/backend/internal/infrastructure/storage"
	"github.com/salesinsight/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const scenarioCSV = `date,product_name,quantity,price,region
2024-01-05,Widget,3,10,North
2024-01-20,Widget,2,10,South
2024-02-01,Gadget,1,50,North
`

type inlineSubmitter struct{}

func (inlineSubmitter) Submit(_ string, fn scheduler.TaskFunc) error {
	_ = fn(context.Background())
	return nil
}

// spyRecords counts reads and can substitute the stored rows.
type spyRecords struct {
	sales.FactRecordRepository
	mu       sync.Mutex
	reads    int
	override []sales.FactRecord
}

func (s *spyRecords) FindByUpload(ctx context.Context, id uuid.UUID, filter sales.RecordFilter) ([]sales.FactRecord, error) {
	s.mu.Lock()
	s.reads++
	override := s.override
	s.mu.Unlock()

	if override != nil {
		return filter.Apply(override), nil
	}
	return s.FactRecordRepository.FindByUpload(ctx, id, filter)
}

func (s *spyRecords) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingStore) Close() error { return nil }

type lookup struct {
	op  string
	hit bool
}

type recorder struct {
	mu      sync.Mutex
	lookups []lookup
}

func (r *recorder) RecordCacheLookup(_ context.Context, op string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, lookup{op: op, hit: hit})
}

type fixture struct {
	uploads   *persistence.GormUploadRepository
	records   *spyRecords
	summaries *persistence.GormSummaryRepository
	ingest    *ingest.UploadService
	clock     *fakeClock
	store     *cache.InMemoryStore
	recorder  *recorder
	service   *QueryService
	owner     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	blobs, err := storage.NewLocalStorage(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	f := &fixture{
		uploads:   persistence.NewGormUploadRepository(db),
		records:   &spyRecords{FactRecordRepository: persistence.NewGormFactRecordRepository(db, 100)},
		summaries: persistence.NewGormSummaryRepository(db),
		clock:     &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		recorder:  &recorder{},
		owner:     uuid.New(),
	}
	f.store = cache.NewInMemoryStore(cache.WithClock(f.clock.Now))
	t.Cleanup(func() { _ = f.store.Close() })

	log := zaptest.NewLogger(t)
	processor := ingest.NewProcessor(f.uploads, f.records, f.summaries, blobs, ingest.ProcessorConfig{}, log)
	f.ingest = ingest.NewUploadService(f.uploads, blobs, inlineSubmitter{}, processor, log)
	f.service = NewQueryService(f.uploads, f.records, f.summaries, f.store, Config{}, log,
		WithCacheRecorder(f.recorder))
	return f
}

func (f *fixture) upload(t *testing.T, content string) uuid.UUID {
	t.Helper()
	upload, err := f.ingest.Submit(context.Background(), ingest.SubmitInput{
		OwnerID:  f.owner,
		Filename: "sales.csv",
		Content:  []byte(content),
	})
	require.NoError(t, err)
	stored, err := f.uploads.FindByID(context.Background(), upload.ID)
	require.NoError(t, err)
	require.Equal(t, sales.UploadStatusDone, stored.Status, stored.ErrorMessage)
	return upload.ID
}

func ptr(s string) *string { return &s }

func TestQueryService_EndToEnd(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, scenarioCSV)
	ctx := context.Background()

	summary, err := f.service.Summary(ctx, f.owner, id)
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{"Widget": 50, "Gadget": 50}, summary.ProductTotals)
	assert.Equal(t, sales.Totals{"North": 80, "South": 20}, summary.RegionTotals)
	assert.Equal(t, sales.Totals{"2024-01": 50, "2024-02": 50}, summary.MonthTotals)

	products, err := f.service.ProductTotals(ctx, f.owner, Query{UploadID: id})
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{"Widget": 50, "Gadget": 50}, products)

	regions, err := f.service.RegionTotals(ctx, f.owner, Query{UploadID: id})
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{"North": 80, "South": 20}, regions)

	months, err := f.service.MonthlyTotals(ctx, f.owner, Query{UploadID: id})
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{"2024-01": 50, "2024-02": 50}, months)
}

func TestQueryService_FilteredMatchesRecompute(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, scenarioCSV)
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
		run   func(context.Context, uuid.UUID, Query) (sales.Totals, error)
		want  sales.Totals
	}{
		{
			name:  "products in region",
			query: Query{UploadID: id, Region: ptr("North")},
			run:   f.service.ProductTotals,
			want:  sales.Totals{"Widget": 30, "Gadget": 50},
		},
		{
			name:  "regions in date range",
			query: Query{UploadID: id, StartDate: ptr("2024-01-10"), EndDate: ptr("2024-01-31")},
			run:   f.service.RegionTotals,
			want:  sales.Totals{"South": 20},
		},
		{
			name:  "inclusive bounds",
			query: Query{UploadID: id, StartDate: ptr("2024-01-05"), EndDate: ptr("2024-02-01")},
			run:   f.service.ProductTotals,
			want:  sales.Totals{"Widget": 50, "Gadget": 50},
		},
		{
			name:  "months of one product",
			query: Query{UploadID: id, ProductName: ptr("Gadget")},
			run:   f.service.MonthlyTotals,
			want:  sales.Totals{"2024-02": 50},
		},
		{
			name:  "no match is empty",
			query: Query{UploadID: id, Region: ptr("")},
			run:   f.service.ProductTotals,
			want:  sales.Totals{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run(ctx, f.owner, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryService_FilterValuesCannotForgeKeys(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, scenarioCSV)
	ctx := context.Background()

	split := Query{UploadID: id, Region: ptr("North"), ProductName: ptr("Widget")}
	joined := Query{UploadID: id, Region: ptr("North:product_name=Widget")}
	require.NotEqual(t,
		BuildCacheKey(DefaultCachePrefix, OpProducts, split),
		BuildCacheKey(DefaultCachePrefix, OpProducts, joined))

	got, err := f.service.ProductTotals(ctx, f.owner, split)
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{"Widget": 30}, got)

	got, err = f.service.ProductTotals(ctx, f.owner, joined)
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{}, got)
}

func TestQueryService_DateFilterDropsUnparseableDates(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "date,product_name,quantity,price,region\n"+
		"2024-01-05,Widget,1,10,North\n"+
		"soon,Widget,1,99,North\n")

	all, err := f.service.ProductTotals(context.Background(), f.owner, Query{UploadID: id})
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{"Widget": 109}, all)

	ranged, err := f.service.ProductTotals(context.Background(), f.owner,
		Query{UploadID: id, StartDate: ptr("2024-01-01")})
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{"Widget": 10}, ranged)
}

func TestQueryService_InvalidDate(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, scenarioCSV)

	_, err := f.service.RegionTotals(context.Background(), f.owner,
		Query{UploadID: id, EndDate: ptr("31/31/2024")})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	assert.Contains(t, domainErr.Message, "end_date")
	assert.Zero(t, f.store.Len())
}

func TestQueryService_OwnershipMismatchIsNotFoundAndUncached(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, scenarioCSV)
	stranger := uuid.New()
	ctx := context.Background()

	_, err := f.service.Summary(ctx, stranger, id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.service.ProductTotals(ctx, stranger, Query{UploadID: id})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.service.MonthlyTotals(ctx, f.owner, Query{UploadID: uuid.New()})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.Zero(t, f.store.Len())
}

func TestQueryService_FailedUploadIsNotFound(t *testing.T) {
	f := newFixture(t)
	upload, err := f.ingest.Submit(context.Background(), ingest.SubmitInput{
		OwnerID:  f.owner,
		Filename: "broken.csv",
		Content:  []byte("date,product_name\n2024-01-01,Widget\n"),
	})
	require.NoError(t, err)

	_, err = f.service.ProductTotals(context.Background(), f.owner, Query{UploadID: upload.ID})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.service.ProductTotals(context.Background(), f.owner, Query{UploadID: upload.ID, Region: ptr("North")})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Zero(t, f.store.Len())
}

func TestQueryService_CacheExpiresAfterTTL(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, scenarioCSV)
	ctx := context.Background()
	q := Query{UploadID: id, Region: ptr("North")}

	first, err := f.service.ProductTotals(ctx, f.owner, q)
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{"Widget": 30, "Gadget": 50}, first)
	reads := f.records.readCount()

	f.records.override = []sales.FactRecord{
		{UploadID: id, Date: "2024-01-05", ProductName: "Widget", Quantity: 1, Price: 1, Region: "North"},
	}

	f.clock.Advance(DefaultCacheTTL - time.Second)
	cached, err := f.service.ProductTotals(ctx, f.owner, q)
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.Equal(t, reads, f.records.readCount())

	f.clock.Advance(2 * time.Second)
	fresh, err := f.service.ProductTotals(ctx, f.owner, q)
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{"Widget": 1}, fresh)
	assert.Equal(t, reads+1, f.records.readCount())
}

func TestQueryService_RecordsHitsAndMisses(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, scenarioCSV)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.service.MonthlyTotals(ctx, f.owner, Query{UploadID: id})
		require.NoError(t, err)
	}

	assert.Equal(t, []lookup{{op: "monthly", hit: false}, {op: "monthly", hit: true}}, f.recorder.lookups)
	_, hit, err := f.store.Get(ctx, "analytics:monthly:file_id="+id.String())
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestQueryService_CacheFailuresDegrade(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, scenarioCSV)
	service := NewQueryService(f.uploads, f.records, f.summaries, failingStore{}, Config{}, zaptest.NewLogger(t))

	got, err := service.RegionTotals(context.Background(), f.owner, Query{UploadID: id})
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{"North": 80, "South": 20}, got)
}

func TestQueryService_UnreachableRedisDegrades(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, scenarioCSV)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	store := cache.NewRedisStoreWithClient(client, "si:")
	t.Cleanup(func() { _ = store.Close() })
	service := NewQueryService(f.uploads, f.records, f.summaries, store, Config{}, zaptest.NewLogger(t))

	for i := 0; i < 2; i++ {
		got, err := service.ProductTotals(context.Background(), f.owner, Query{UploadID: id, Region: ptr("North")})
		require.NoError(t, err)
		assert.Equal(t, sales.Totals{"Widget": 30, "Gadget": 50}, got)
	}
}

func TestQueryService_UndecodableEntryIsRecomputed(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, scenarioCSV)
	ctx := context.Background()

	key := BuildCacheKey(DefaultCachePrefix, OpProducts, Query{UploadID: id})
	require.NoError(t, f.store.Set(ctx, key, []byte("{not json"), time.Minute))

	got, err := f.service.ProductTotals(ctx, f.owner, Query{UploadID: id})
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{"Widget": 50, "Gadget": 50}, got)

	data, hit, err := f.store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.JSONEq(t, `{"Widget":50,"Gadget":50}`, string(data))
}

func TestQueryService_ZeroRowUploadHasEmptyTotals(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "date,product_name,quantity,price,region\n")

	summary, err := f.service.Summary(context.Background(), f.owner, id)
	require.NoError(t, err)
	assert.Equal(t, sales.Totals{}, summary.ProductTotals)
	assert.Equal(t, sales.Totals{}, summary.RegionTotals)
	assert.Equal(t, sales.Totals{}, summary.MonthTotals)
}

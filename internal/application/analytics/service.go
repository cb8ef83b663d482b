package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/sales"
	"github.com/salesinsight/backend/internal/domain/shared"
	"github.com/salesinsight/backend/internal/infrastructure/cache"
	"github.com/salesinsight/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Defaults applied when Config fields are zero
const (
	DefaultCacheTTL    = 300 * time.Second
	DefaultCachePrefix = "analytics"
)

// Config controls result caching
type Config struct {
	CacheTTL    time.Duration
	CachePrefix string
}

// CacheRecorder observes cache hits and misses per operation
type CacheRecorder interface {
	RecordCacheLookup(ctx context.Context, op string, hit bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheLookup(context.Context, string, bool) {}

// SummaryResult is the full aggregate snapshot of an upload
type SummaryResult struct {
	ProductTotals sales.Totals `json:"product_totals"`
	RegionTotals  sales.Totals `json:"region_totals"`
	MonthTotals   sales.Totals `json:"month_totals"`
}

// QueryService serves analytics for uploads that finished processing.
// Results are cached as JSON; the cache is best effort and never fails a query.
type QueryService struct {
	uploads   sales.UploadRepository
	records   sales.FactRecordRepository
	summaries sales.SummaryRepository
	store     cache.Store
	recorder  CacheRecorder
	config    Config
	logger    *zap.Logger
}

// Option configures a QueryService
type Option func(*QueryService)

// WithCacheRecorder reports cache lookups to r
func WithCacheRecorder(r CacheRecorder) Option {
	return func(s *QueryService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewQueryService creates a QueryService. A nil store disables caching.
func NewQueryService(
	uploads sales.UploadRepository,
	records sales.FactRecordRepository,
	summaries sales.SummaryRepository,
	store cache.Store,
	config Config,
	logger *zap.Logger,
	opts ...Option,
) *QueryService {
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	if config.CachePrefix == "" {
		config.CachePrefix = DefaultCachePrefix
	}
	s := &QueryService{
		uploads:   uploads,
		records:   records,
		summaries: summaries,
		store:     store,
		recorder:  nopRecorder{},
		config:    config,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary returns the persisted snapshot of an upload
func (s *QueryService) Summary(ctx context.Context, ownerID, uploadID uuid.UUID) (*SummaryResult, error) {
	if _, err := s.uploads.FindByIDForOwner(ctx, ownerID, uploadID); err != nil {
		return nil, err
	}

	var result SummaryResult
	err := s.cached(ctx, OpSummary, Query{UploadID: uploadID}, &result, func() (any, error) {
		summary, err := s.summaries.FindByUploadID(ctx, uploadID)
		if err != nil {
			return nil, err
		}
		return SummaryResult{
			ProductTotals: nonNil(summary.ProductTotals),
			RegionTotals:  nonNil(summary.RegionTotals),
			MonthTotals:   nonNil(summary.MonthTotals),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	result.ProductTotals = nonNil(result.ProductTotals)
	result.RegionTotals = nonNil(result.RegionTotals)
	result.MonthTotals = nonNil(result.MonthTotals)
	return &result, nil
}

// ProductTotals returns revenue per product
func (s *QueryService) ProductTotals(ctx context.Context, ownerID uuid.UUID, q Query) (sales.Totals, error) {
	return s.totals(ctx, ownerID, OpProducts, q,
		func(sum *sales.Summary) sales.Totals { return sum.ProductTotals },
		func(r sales.AggregateResult) sales.Totals { return r.ByProduct },
	)
}

// RegionTotals returns revenue per region
func (s *QueryService) RegionTotals(ctx context.Context, ownerID uuid.UUID, q Query) (sales.Totals, error) {
	return s.totals(ctx, ownerID, OpRegions, q,
		func(sum *sales.Summary) sales.Totals { return sum.RegionTotals },
		func(r sales.AggregateResult) sales.Totals { return r.ByRegion },
	)
}

// MonthlyTotals returns revenue per YYYY-MM month. Rows with unparseable dates are not counted.
func (s *QueryService) MonthlyTotals(ctx context.Context, ownerID uuid.UUID, q Query) (sales.Totals, error) {
	return s.totals(ctx, ownerID, OpMonthly, q,
		func(sum *sales.Summary) sales.Totals { return sum.MonthTotals },
		func(r sales.AggregateResult) sales.Totals { return r.ByMonth },
	)
}

// totals validates the query, checks ownership and serves from cache or recomputes.
// Unfiltered queries read the persisted summary; filtered ones aggregate matching rows.
func (s *QueryService) totals(
	ctx context.Context,
	ownerID uuid.UUID,
	op Operation,
	q Query,
	fromSummary func(*sales.Summary) sales.Totals,
	fromResult func(sales.AggregateResult) sales.Totals,
) (sales.Totals, error) {
	filter, err := q.RecordFilter()
	if err != nil {
		return nil, err
	}

	upload, err := s.uploads.FindByIDForOwner(ctx, ownerID, q.UploadID)
	if err != nil {
		return nil, err
	}

	var totals sales.Totals
	err = s.cached(ctx, op, q, &totals, func() (any, error) {
		if !q.IsFiltered() {
			summary, err := s.summaries.FindByUploadID(ctx, q.UploadID)
			if err != nil {
				return nil, err
			}
			return nonNil(fromSummary(summary)), nil
		}

		// Only done uploads have a complete record set.
		if upload.Status != sales.UploadStatusDone {
			return nil, shared.ErrNotFound
		}
		records, err := s.records.FindByUpload(ctx, q.UploadID, filter)
		if err != nil {
			return nil, err
		}
		return nonNil(fromResult(sales.Aggregate(records))), nil
	})
	if err != nil {
		return nil, err
	}
	return nonNil(totals), nil
}

// cached decodes a hit into out, or calls compute, stores its JSON and decodes that into out.
// Errors from compute are returned and never cached.
func (s *QueryService) cached(ctx context.Context, op Operation, q Query, out any, compute func() (any, error)) error {
	key := BuildCacheKey(s.config.CachePrefix, op, q)
	log := logger.Enrich(ctx, s.logger).With(zap.String("cache_key", key))

	if s.store != nil {
		data, hit, err := s.store.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn("Analytics cache read failed, recomputing", zap.Error(err))
		case hit:
			if err := json.Unmarshal(data, out); err == nil {
				s.recorder.RecordCacheLookup(ctx, string(op), true)
				return nil
			}
			log.Warn("Discarding undecodable analytics cache entry")
		}
		s.recorder.RecordCacheLookup(ctx, string(op), false)
	}

	value, err := compute()
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if s.store != nil {
		if err := s.store.Set(ctx, key, data, s.config.CacheTTL); err != nil {
			log.Warn("Analytics cache write failed", zap.Error(err))
		}
	}
	return json.Unmarshal(data, out)
}

func nonNil(t sales.Totals) sales.Totals {
	if t == nil {
		return sales.Totals{}
	}
	return t
}

// Package ingest accepts sales uploads and turns them into fact records and summaries.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/sales"
	"github.com/salesinsight/backend/internal/infrastructure/logger"
	"github.com/salesinsight/backend/internal/infrastructure/storage"
	"github.com/salesinsight/backend/internal/infrastructure/tabular"
	"go.uber.org/zap"
)

// failureWriteTimeout bounds the status write after a failed or timed-out run.
const failureWriteTimeout = 10 * time.Second

// MetricsRecorder receives one observation per upload reaching a terminal status.
type MetricsRecorder interface {
	RecordUpload(ctx context.Context, status string, rows, dropped int, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordUpload(context.Context, string, int, int, time.Duration) {}

// ProcessorConfig tunes parsing.
type ProcessorConfig struct {
	// MaxRowErrors caps the dropped-row details kept for logging.
	MaxRowErrors int
	// CSVDelimiter overrides the comma field separator when non-zero.
	CSVDelimiter rune
	// XLSXSheet names the worksheet to read; empty means the first one.
	XLSXSheet string
}

// Processor runs the ingestion pipeline for one upload:
// parse the stored blob, persist fact records, aggregate, then mark done.
type Processor struct {
	uploads   sales.UploadRepository
	records   sales.FactRecordRepository
	completer sales.CompletionWriter
	blobs     storage.BlobStorage
	metrics   MetricsRecorder
	config    ProcessorConfig
	logger    *zap.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithMetrics records terminal outcomes on m.
func WithMetrics(m MetricsRecorder) ProcessorOption {
	return func(p *Processor) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewProcessor creates a Processor.
func NewProcessor(
	uploads sales.UploadRepository,
	records sales.FactRecordRepository,
	completer sales.CompletionWriter,
	blobs storage.BlobStorage,
	config ProcessorConfig,
	logger *zap.Logger,
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		uploads:   uploads,
		records:   records,
		completer: completer,
		blobs:     blobs,
		metrics:   nopMetrics{},
		config:    config,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process ingests a pending upload. Any error or panic after the upload
// has moved to processing leaves it failed with the error text; the
// returned error is for the caller's logs only.
func (p *Processor) Process(ctx context.Context, uploadID uuid.UUID) (err error) {
	log := logger.Enrich(ctx, p.logger).With(zap.String("upload_id", uploadID.String()))

	upload, err := p.uploads.FindByID(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("failed to load upload %s: %w", uploadID, err)
	}
	if err := upload.StartProcessing(); err != nil {
		log.Warn("Upload is not pending, skipping", zap.String("status", string(upload.Status)))
		return err
	}
	if err := p.uploads.UpdateStatus(ctx, upload); err != nil {
		err = fmt.Errorf("failed to mark upload processing: %w", err)
		p.fail(ctx, upload, err, log)
		return err
	}
	log.Info("Processing upload", zap.String("filename", upload.Filename), zap.String("format", string(upload.Format)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while processing upload",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("internal error while processing upload: %v", r)
			p.fail(ctx, upload, err, log)
		}
	}()

	if err := p.run(ctx, upload, log); err != nil {
		p.fail(ctx, upload, err, log)
		return err
	}

	p.metrics.RecordUpload(ctx, string(upload.Status), upload.RowCount, upload.DroppedCount, upload.Duration())
	log.Info("Upload processed",
		zap.Int("rows", upload.RowCount),
		zap.Int("dropped", upload.DroppedCount),
		zap.Duration("duration", upload.Duration()),
	)
	return nil
}

func (p *Processor) run(ctx context.Context, upload *sales.Upload, log *zap.Logger) error {
	parsed, err := p.parse(ctx, upload)
	if err != nil {
		return err
	}
	if parsed.DroppedCount() > 0 {
		log.Info("Dropped invalid rows",
			zap.Int("dropped", parsed.DroppedCount()),
			zap.Any("by_code", parsed.Dropped.Summary()),
		)
		log.Debug("Dropped row details", zap.String("details", parsed.Dropped.String()))
	}

	records := make([]sales.FactRecord, 0, len(parsed.Records))
	for _, rec := range parsed.Records {
		records = append(records, sales.FactRecord{
			UploadID:    upload.ID,
			Date:        sales.NormalizeDate(rec.Date),
			ProductName: rec.ProductName,
			Quantity:    rec.Quantity,
			Price:       rec.Price,
			Region:      rec.Region,
		})
	}
	if len(records) > 0 {
		if err := p.records.CreateBatch(ctx, upload.ID, records); err != nil {
			return fmt.Errorf("failed to store fact records: %w", err)
		}
	}

	stored, err := p.records.FindByUpload(ctx, upload.ID, sales.RecordFilter{})
	if err != nil {
		return fmt.Errorf("failed to read back fact records: %w", err)
	}
	result := sales.Aggregate(stored)
	if result.UnparsedDates > 0 {
		log.Warn("Rows with unparseable dates excluded from monthly totals",
			zap.Int("count", result.UnparsedDates))
	}

	done := *upload
	if err := done.Complete(len(stored), parsed.DroppedCount()); err != nil {
		return err
	}
	if err := p.completer.CompleteWithSummary(ctx, &done, sales.NewSummary(upload.ID, result)); err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}
	*upload = done
	return nil
}

func (p *Processor) parse(ctx context.Context, upload *sales.Upload) (*tabular.Result, error) {
	rc, err := p.blobs.Read(ctx, upload.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	defer rc.Close()

	var opts []tabular.ParseOption
	if p.config.MaxRowErrors > 0 {
		opts = append(opts, tabular.WithMaxErrors(p.config.MaxRowErrors))
	}
	if p.config.CSVDelimiter != 0 {
		opts = append(opts, tabular.WithDelimiter(p.config.CSVDelimiter))
	}
	if p.config.XLSXSheet != "" {
		opts = append(opts, tabular.WithSheet(p.config.XLSXSheet))
	}
	result, err := tabular.Parse(tabular.Format(upload.Format), rc, opts...)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// fail records err on the upload and drops any fact records it left
// behind. The writes use a detached context so a timed-out task still
// leaves a terminal status behind.
func (p *Processor) fail(ctx context.Context, upload *sales.Upload, cause error, log *zap.Logger) {
	message := cause.Error()
	if errors.Is(cause, context.DeadlineExceeded) {
		message = "processing timed out: " + message
	}
	if err := upload.Fail(message); err != nil {
		log.Error("Cannot mark upload failed", zap.Error(err))
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()
	if err := p.records.DeleteByUpload(writeCtx, upload.ID); err != nil {
		log.Warn("Failed to remove records of failed upload", zap.Error(err))
	}
	if err := p.uploads.UpdateStatus(writeCtx, upload); err != nil {
		log.Error("Failed to persist upload failure", zap.Error(err), zap.String("cause", message))
		return
	}

	p.metrics.RecordUpload(writeCtx, string(upload.Status), 0, 0, upload.Duration())
	log.Warn("Upload failed", zap.String("error", message))
}

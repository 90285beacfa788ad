package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"reorder-service/internal/broker"
	"reorder-service/internal/redisclient"
	"reorder-service/internal/schema"
	"reorder-service/internal/store"
	"reorder-service/internal/util"

	"go.uber.org/zap"
)

// ErrFileNotFound means the requested history file does not exist.
var ErrFileNotFound = errors.New("csv file not found")

// IngestService turns a tabular history file into validated, deduplicated
// store records.
type IngestService struct {
	store  *store.Store
	events *broker.EventPublisher
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewIngestService creates a new ingest service. events and cache may be nil.
func NewIngestService(st *store.Store, events *broker.EventPublisher, cache *redisclient.Client) *IngestService {
	return &IngestService{
		store:  st,
		events: events,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// IngestResult reports the outcome of one ingestion run.
type IngestResult struct {
	SourceFile string `json:"source_file"`
	Inserted   int    `json:"inserted"`
	Skipped    int    `json:"skipped"`
	Dropped    int    `json:"dropped"`
	Total      int    `json:"total"`
}

// IngestFile reads, validates and inserts a CSV file into the default store.
// Re-ingesting the same file always yields zero new inserts.
func (s *IngestService) IngestFile(ctx context.Context, csvPath string) (*IngestResult, error) {
	return s.ingest(ctx, s.store, csvPath)
}

// IngestFileInto ingests into a store at an explicit location instead of the
// configured one. The override store is opened for this call only.
func (s *IngestService) IngestFileInto(ctx context.Context, csvPath, storePath string) (*IngestResult, error) {
	if storePath == "" {
		return s.IngestFile(ctx, csvPath)
	}
	override, err := store.NewStore(storePath)
	if err != nil {
		return nil, err
	}
	defer override.Close()
	return s.ingest(ctx, override, csvPath)
}

func (s *IngestService) ingest(ctx context.Context, st *store.Store, csvPath string) (*IngestResult, error) {
	ctx, span := util.StartSpan(ctx, "IngestService.IngestFile")
	defer span.End()

	if _, err := os.Stat(csvPath); os.IsNotExist(err) {
		util.IngestFailedTotal.WithLabelValues("file_not_found").Inc()
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, csvPath)
	}

	header, rows, err := schema.ReadCSV(csvPath)
	if err != nil {
		util.IngestFailedTotal.WithLabelValues("read_error").Inc()
		return nil, err
	}

	s.logger.Info("Validating schema",
		zap.String("file", csvPath),
		zap.Int("rows", len(rows)))

	records, drops, err := schema.Validate(header, rows, s.logger)
	if err != nil {
		util.IngestFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	sourceFile := filepath.Base(csvPath)
	inserted, skipped, err := st.Ingest(ctx, records, sourceFile)
	if err != nil {
		util.IngestFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to ingest records: %w", err)
	}

	util.RecordsIngestedTotal.Add(float64(inserted))
	util.RecordsSkippedTotal.Add(float64(skipped))

	s.logger.Info("Ingestion complete",
		zap.String("file", sourceFile),
		zap.Int("inserted", inserted),
		zap.Int("skipped", skipped),
		zap.Int("dropped", drops.Total()))

	s.events.PublishDataIngested(ctx, sourceFile, inserted, skipped)
	s.invalidateCache(ctx)

	return &IngestResult{
		SourceFile: sourceFile,
		Inserted:   inserted,
		Skipped:    skipped,
		Dropped:    drops.Total(),
		Total:      inserted + skipped,
	}, nil
}

func (s *IngestService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.BumpDataVersion(ctx); err != nil {
		s.logger.Warn("Failed to bump cache data version", zap.Error(err))
	}
}

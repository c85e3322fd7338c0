package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	"github.com/noah-isme/teacher-stats-api/pkg/jobs"
)

// JobTypeStatsRecord tags persistence jobs on the queue.
const JobTypeStatsRecord = "stats_record"

// ResultPersister stores computed statistics records.
type ResultPersister interface {
	Persist(ctx context.Context, record models.StatsRecord) error
}

type statsStore interface {
	Upsert(ctx context.Context, record *models.StatsRecord) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// PersistenceService writes stats records, through a job queue when one is attached.
type PersistenceService struct {
	store   statsStore
	queue   jobDispatcher
	metrics *MetricsService
	logger  *zap.Logger
}

// NewPersistenceService constructs a synchronous persister. Attach a queue with UseQueue.
func NewPersistenceService(store statsStore, metrics *MetricsService, logger *zap.Logger) *PersistenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersistenceService{store: store, metrics: metrics, logger: logger}
}

// UseQueue routes subsequent writes through queue.
func (s *PersistenceService) UseQueue(queue jobDispatcher) {
	s.queue = queue
}

// Persist hands record to the queue, falling back to a direct write if it cannot be queued.
func (s *PersistenceService) Persist(ctx context.Context, record models.StatsRecord) error {
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypeStatsRecord, Payload: record})
		if err == nil {
			return nil
		}
		s.logger.Warn("stats record not queued, writing directly", zap.String("key", record.RecordKey()), zap.Error(err))
	}
	return s.write(ctx, record)
}

// Handle is the queue handler for JobTypeStatsRecord jobs.
func (s *PersistenceService) Handle(ctx context.Context, job jobs.Job) error {
	record, ok := job.Payload.(models.StatsRecord)
	if !ok {
		s.logger.Error("unexpected persistence payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	return s.write(ctx, record)
}

func (s *PersistenceService) write(ctx context.Context, record models.StatsRecord) error {
	start := time.Now()
	err := s.store.Upsert(ctx, &record)
	s.metrics.ObserveDBQuery("stats_upsert", time.Since(start))
	if err != nil {
		return fmt.Errorf("persist stats %s: %w", record.RecordKey(), err)
	}
	s.logger.Debug("stats record saved", zap.String("key", record.RecordKey()))
	return nil
}

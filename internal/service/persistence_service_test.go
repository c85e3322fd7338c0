package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	"github.com/noah-isme/teacher-stats-api/pkg/jobs"
)

type memoryStatsStore struct {
	mu      sync.Mutex
	records []models.StatsRecord
	err     error
}

func (m *memoryStatsStore) Upsert(_ context.Context, record *models.StatsRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryStatsStore) saved() []models.StatsRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.StatsRecord(nil), m.records...)
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestPersistWritesSynchronouslyWithoutQueue(t *testing.T) {
	store := &memoryStatsStore{}
	svc := NewPersistenceService(store, nil, nil)

	require.NoError(t, svc.Persist(context.Background(), models.StatsRecord{Email: "t@example.com", Kind: models.StatsKindMonthly}))
	assert.Len(t, store.saved(), 1)
}

func TestPersistEnqueuesAndHandles(t *testing.T) {
	store := &memoryStatsStore{}
	queue := &queueStub{}
	svc := NewPersistenceService(store, nil, nil)
	svc.UseQueue(queue)

	record := models.StatsRecord{Email: "t@example.com", Kind: models.StatsKindDateRange, PeriodKey: "2025-01-01_2025-01-10_range"}
	require.NoError(t, svc.Persist(context.Background(), record))
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeStatsRecord, queue.jobs[0].Type)
	assert.Empty(t, store.saved())

	require.NoError(t, svc.Handle(context.Background(), queue.jobs[0]))
	assert.Equal(t, record.PeriodKey, store.saved()[0].PeriodKey)
}

func TestPersistFallsBackWhenQueueClosed(t *testing.T) {
	store := &memoryStatsStore{}
	svc := NewPersistenceService(store, nil, nil)
	svc.UseQueue(&queueStub{err: jobs.ErrQueueClosed})

	require.NoError(t, svc.Persist(context.Background(), models.StatsRecord{Email: "t@example.com"}))
	assert.Len(t, store.saved(), 1)
}

func TestHandleSurfacesStoreErrorsForRetry(t *testing.T) {
	svc := NewPersistenceService(&memoryStatsStore{err: errors.New("db down")}, nil, nil)

	err := svc.Handle(context.Background(), jobs.Job{Payload: models.StatsRecord{Email: "t@example.com"}})
	assert.ErrorContains(t, err, "db down")
	assert.NoError(t, svc.Handle(context.Background(), jobs.Job{Payload: "garbage"}))
}

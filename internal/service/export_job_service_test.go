package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	"github.com/noah-isme/ecole-adm-api/internal/repository"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
	"github.com/noah-isme/ecole-adm-api/pkg/jobs"
)

type mockExportJobStore struct {
	jobsByID map[string]*models.ExportJob
	seq      int
}

func newMockExportJobStore() *mockExportJobStore {
	return &mockExportJobStore{jobsByID: make(map[string]*models.ExportJob)}
}

func (m *mockExportJobStore) Create(_ context.Context, job *models.ExportJob) error {
	m.seq++
	job.ID = fmt.Sprintf("export-%d", m.seq)
	stored := *job
	m.jobsByID[job.ID] = &stored
	return nil
}

func (m *mockExportJobStore) FindByID(_ context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobsByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *job
	return &copy, nil
}

func (m *mockExportJobStore) Update(_ context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := m.jobsByID[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *mockExportJobStore) ListQueued(_ context.Context, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range m.jobsByID {
		if job.Status == models.ExportStatusQueued && len(out) < limit {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockExportJobStore) ListFinishedBefore(_ context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range m.jobsByID {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) && len(out) < limit {
			out = append(out, *job)
		}
	}
	return out, nil
}

type dispatcherSpy struct {
	enqueued []jobs.Job
	fail     bool
}

func (d *dispatcherSpy) Enqueue(job jobs.Job) error {
	if d.fail {
		return errors.New("queue unavailable")
	}
	d.enqueued = append(d.enqueued, job)
	return nil
}

type generatorStub struct {
	result *ExportResult
	err    error
	calls  int
}

func (g *generatorStub) Generate(_ context.Context, _ *models.ExportJob) (*ExportResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func newExportJobFixture() (*ExportJobService, *mockExportJobStore, *dispatcherSpy) {
	store := newMockExportJobStore()
	queue := &dispatcherSpy{}
	svc := NewExportJobService(store, queue, nil, nil, ExportJobServiceConfig{})
	return svc, store, queue
}

func TestCreateJobBulletinRequiresEleve(t *testing.T) {
	svc, _, _ := newExportJobFixture()

	_, err := svc.CreateJob(context.Background(), CreateExportRequest{
		Type:   models.ExportTypeBulletin,
		Format: models.ExportFormatPDF,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateJobRegistreRequiresPeriode(t *testing.T) {
	svc, _, _ := newExportJobFixture()

	_, err := svc.CreateJob(context.Background(), CreateExportRequest{
		Type:   models.ExportTypeRegistreSalaires,
		Format: models.ExportFormatCSV,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateJobQueuesAndReportsStatus(t *testing.T) {
	svc, store, queue := newExportJobFixture()
	eleveID := uuid.NewString()

	status, err := svc.CreateJob(context.Background(), CreateExportRequest{
		Type:    models.ExportTypeBulletin,
		Format:  models.ExportFormatPDF,
		EleveID: &eleveID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, status.Status)
	assert.Zero(t, status.Progress)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, status.ID, queue.enqueued[0].ID)

	fetched, err := svc.GetStatus(context.Background(), status.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, fetched.Status)
	assert.NotNil(t, store.jobsByID[status.ID])
}

func TestCreateJobEnqueueFailureMarksJobFailed(t *testing.T) {
	store := newMockExportJobStore()
	queue := &dispatcherSpy{fail: true}
	svc := NewExportJobService(store, queue, nil, nil, ExportJobServiceConfig{})
	eleveID := uuid.NewString()

	_, err := svc.CreateJob(context.Background(), CreateExportRequest{
		Type:    models.ExportTypeBulletin,
		Format:  models.ExportFormatCSV,
		EleveID: &eleveID,
	})
	require.Error(t, err)

	require.Len(t, store.jobsByID, 1)
	for _, job := range store.jobsByID {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
		require.NotNil(t, job.ErrorMessage)
	}
}

func TestGetStatusUnknownJob(t *testing.T) {
	svc, _, _ := newExportJobFixture()

	_, err := svc.GetStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecoverPendingJobsRequeues(t *testing.T) {
	svc, store, queue := newExportJobFixture()

	job := &models.ExportJob{Type: models.ExportTypeBulletin, Status: models.ExportStatusQueued}
	require.NoError(t, store.Create(context.Background(), job))

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
}

func queuedJob(t *testing.T, store *mockExportJobStore) *models.ExportJob {
	t.Helper()
	job := &models.ExportJob{
		Type:   models.ExportTypeBulletin,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
		Status: models.ExportStatusQueued,
	}
	require.NoError(t, store.Create(context.Background(), job))
	return job
}

func TestWorkerMarksJobFinished(t *testing.T) {
	store := newMockExportJobStore()
	generator := &generatorStub{result: &ExportResult{URL: "/api/v1/exports/download/tok123"}}
	worker := NewExportWorker(store, generator, 3, nil)
	job := queuedJob(t, store)

	err := worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1})
	require.NoError(t, err)

	stored := store.jobsByID[job.ID]
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.ResultURL)
	assert.Equal(t, "/api/v1/exports/download/tok123", *stored.ResultURL)
	require.NotNil(t, stored.FinishedAt)
}

func TestWorkerRequeuesOnRetriableFailure(t *testing.T) {
	store := newMockExportJobStore()
	generator := &generatorStub{err: errors.New("database timeout")}
	worker := NewExportWorker(store, generator, 3, nil)
	job := queuedJob(t, store)

	err := worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1})
	require.Error(t, err)

	stored := store.jobsByID[job.ID]
	assert.Equal(t, models.ExportStatusQueued, stored.Status)
	assert.Zero(t, stored.Progress)
	require.NotNil(t, stored.ErrorMessage)
	assert.Nil(t, stored.FinishedAt)
}

func TestWorkerFailsJobAfterMaxRetries(t *testing.T) {
	store := newMockExportJobStore()
	generator := &generatorStub{err: errors.New("database timeout")}
	worker := NewExportWorker(store, generator, 3, nil)
	job := queuedJob(t, store)

	err := worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 3})
	require.Error(t, err)

	stored := store.jobsByID[job.ID]
	assert.Equal(t, models.ExportStatusFailed, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.FinishedAt)
}

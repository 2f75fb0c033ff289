package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type journalRepository interface {
	Create(ctx context.Context, entree *models.JournalEntree) error
	List(ctx context.Context, filter models.JournalFilter) ([]models.JournalEntree, int, error)
	HistoriqueEntite(ctx context.Context, entite, entiteID string) ([]models.JournalEntree, error)
	Purge(ctx context.Context, avant time.Time) (int64, error)
}

// JournalService records and serves the audit trail. Recording never fails
// the caller: a write error is logged and swallowed so business operations
// do not abort on audit trouble.
type JournalService struct {
	repo   journalRepository
	logger *zap.Logger
}

// NewJournalService constructs the journal service.
func NewJournalService(repo journalRepository, logger *zap.Logger) *JournalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalService{repo: repo, logger: logger}
}

// Record appends an audit entry, logging instead of returning on failure.
func (s *JournalService) Record(ctx context.Context, entree models.JournalEntree) {
	if err := s.repo.Create(ctx, &entree); err != nil {
		s.logger.Error("journal write failed",
			zap.String("action", entree.Action),
			zap.String("entite", entree.Entite),
			zap.String("entite_id", entree.EntiteID),
			zap.Error(err))
	}
}

// List returns audit entries and pagination metadata.
func (s *JournalService) List(ctx context.Context, filter models.JournalFilter) ([]models.JournalEntree, *models.Pagination, error) {
	entrees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list journal entries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return entrees, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// HistoriqueEntite returns the audit trail of a single entity.
func (s *JournalService) HistoriqueEntite(ctx context.Context, entite, entiteID string) ([]models.JournalEntree, error) {
	entrees, err := s.repo.HistoriqueEntite(ctx, entite, entiteID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entity journal")
	}
	return entrees, nil
}

// StartRetention purges entries older than the retention window once a day
// until ctx is cancelled. A zero or negative retention disables purging.
func (s *JournalService) StartRetention(ctx context.Context, retention time.Duration) {
	if retention <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				purged, err := s.repo.Purge(ctx, cutoff)
				if err != nil {
					s.logger.Error("journal purge failed", zap.Error(err))
					continue
				}
				if purged > 0 {
					s.logger.Info("journal purged", zap.Int64("entries", purged), zap.Time("avant", cutoff))
				}
			}
		}
	}()
}

// journalRecorder is what write-path services need from the journal.
type journalRecorder interface {
	Record(ctx context.Context, entree models.JournalEntree)
}

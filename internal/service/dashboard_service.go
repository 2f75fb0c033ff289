package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type statsRepository interface {
	CountEleves(ctx context.Context) (int, error)
	CountProfesseurs(ctx context.Context) (int, error)
	ResumeFinancier(ctx context.Context, debut, fin time.Time) (*models.ResumeFinancier, error)
}

type effectifsProvider interface {
	Effectifs(ctx context.Context, anneeScolaireID string) ([]models.EffectifClasse, error)
}

type tauxAbsenceProvider interface {
	TauxParClasse(ctx context.Context, debut, fin time.Time) ([]models.TauxAbsence, error)
}

type anneeActiveProvider interface {
	FindActive(ctx context.Context) (*models.AnneeScolaire, error)
	FindByID(ctx context.Context, id string) (*models.AnneeScolaire, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the administrative overview payload.
type DashboardService struct {
	stats    statsRepository
	classes  effectifsProvider
	absences tauxAbsenceProvider
	annees   anneeActiveProvider
	cache    dashboardCache
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Stats    statsRepository
	Classes  effectifsProvider
	Absences tauxAbsenceProvider
	Annees   anneeActiveProvider
	Cache    dashboardCache
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		stats:    params.Stats,
		classes:  params.Classes,
		absences: params.Absences,
		annees:   params.Annees,
		cache:    params.Cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Resume returns the dashboard for the given school year, falling back
// to the active year when none is specified. The second return value
// reports whether the payload was served from cache.
func (s *DashboardService) Resume(ctx context.Context, anneeScolaireID string) (*models.TableauDeBord, bool, error) {
	annee, err := s.resolveAnnee(ctx, anneeScolaireID)
	if err != nil {
		return nil, false, err
	}

	cacheKey := fmt.Sprintf("dash:resume:%s", annee.ID)
	if s.cache != nil {
		var cached models.TableauDeBord
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache lookup failed", zap.Error(err))
		}
	}

	tableau, err := s.compose(ctx, annee)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, tableau, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}

	return tableau, false, nil
}

// InvalidateCache drops every cached dashboard payload. Called after
// writes that change the underlying aggregates.
func (s *DashboardService) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash:resume:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) resolveAnnee(ctx context.Context, anneeScolaireID string) (*models.AnneeScolaire, error) {
	if anneeScolaireID == "" {
		annee, err := s.annees.FindActive(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active school year")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active school year")
		}
		return annee, nil
	}

	annee, err := s.annees.FindByID(ctx, anneeScolaireID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school year")
	}
	return annee, nil
}

func (s *DashboardService) compose(ctx context.Context, annee *models.AnneeScolaire) (*models.TableauDeBord, error) {
	totalEleves, err := s.stats.CountEleves(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}

	totalProfesseurs, err := s.stats.CountProfesseurs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teachers")
	}

	effectifs, err := s.classes.Effectifs(ctx, annee.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class headcounts")
	}

	finances, err := s.stats.ResumeFinancier(ctx, annee.DateDebut, annee.DateFin)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load financial summary")
	}

	absences, err := s.absences.TauxParClasse(ctx, annee.DateDebut, annee.DateFin)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence rates")
	}

	return &models.TableauDeBord{
		AnneeScolaireID:  annee.ID,
		TotalEleves:      totalEleves,
		TotalProfesseurs: totalProfesseurs,
		Effectifs:        effectifs,
		Finances:         *finances,
		Absences:         absences,
	}, nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/ecole-adm-api/api/swagger"
	"github.com/noah-isme/ecole-adm-api/internal/handler"
	"github.com/noah-isme/ecole-adm-api/internal/middleware"
	"github.com/noah-isme/ecole-adm-api/internal/models"
	"github.com/noah-isme/ecole-adm-api/internal/repository"
	"github.com/noah-isme/ecole-adm-api/internal/service"
	"github.com/noah-isme/ecole-adm-api/pkg/cache"
	"github.com/noah-isme/ecole-adm-api/pkg/config"
	"github.com/noah-isme/ecole-adm-api/pkg/database"
	"github.com/noah-isme/ecole-adm-api/pkg/jobs"
	"github.com/noah-isme/ecole-adm-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ecole-adm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ecole-adm-api/pkg/middleware/requestid"
	"github.com/noah-isme/ecole-adm-api/pkg/storage"
)

// @title Ecole ADM API
// @version 1.0.0
// @description School administration backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	eleveRepo := repository.NewEleveRepository(db)
	responsableRepo := repository.NewResponsableRepository(db)
	professeurRepo := repository.NewProfesseurRepository(db)
	classeRepo := repository.NewClasseRepository(db)
	anneeRepo := repository.NewAnneeRepository(db)
	matiereRepo := repository.NewMatiereRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	absenceRepo := repository.NewAbsenceRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)
	fraisRepo := repository.NewFraisRepository(db)
	paiementRepo := repository.NewPaiementRepository(db)
	depenseRepo := repository.NewDepenseRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	salaireRepo := repository.NewSalaireRepository(db)
	journalRepo := repository.NewJournalRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	// The journal comes first: every write-path service records into it.
	journalSvc := service.NewJournalService(journalRepo, logr)
	journalSvc.StartRetention(ctx, time.Duration(cfg.Journal.RetentionDays)*24*time.Hour)

	authSvc := service.NewAuthService(userRepo, journalSvc, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		Audience:           cfg.JWT.Audience,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, journalSvc, nil, logr)
	eleveSvc := service.NewEleveService(eleveRepo, journalSvc, nil, logr)
	responsableSvc := service.NewResponsableService(responsableRepo, journalSvc, nil, logr)
	professeurSvc := service.NewProfesseurService(professeurRepo, journalSvc, nil, logr)
	classeSvc := service.NewClasseService(classeRepo, journalSvc, nil, logr)
	anneeSvc := service.NewAnneeService(anneeRepo, journalSvc, nil, logr)
	matiereSvc := service.NewMatiereService(matiereRepo, journalSvc, nil, logr)
	evaluationSvc := service.NewEvaluationService(evaluationRepo, journalSvc, nil, logr)
	noteSvc := service.NewNoteService(noteRepo, evaluationRepo, matiereRepo, journalSvc, nil, logr)
	absenceSvc := service.NewAbsenceService(absenceRepo, journalSvc, nil, logr)
	presenceSvc := service.NewPresenceService(presenceRepo, journalSvc, nil, logr)
	fraisSvc := service.NewFraisService(fraisRepo, journalSvc, nil, logr)
	paiementSvc := service.NewPaiementService(paiementRepo, journalSvc, nil, logr)
	depenseSvc := service.NewDepenseService(depenseRepo, journalSvc, nil, logr)
	budgetSvc := service.NewBudgetService(budgetRepo, journalSvc, nil, logr)
	salaireSvc := service.NewSalaireService(salaireRepo, depenseRepo, journalSvc, nil, logr)

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Stats:    statsRepo,
		Classes:  classeRepo,
		Absences: absenceRepo,
		Annees:   anneeRepo,
		Cache:    cacheRepo,
		Logger:   logr,
		Config:   service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	// Export pipeline: local file storage, signed download URLs, in-proc queue.
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(noteRepo, eleveRepo, salaireRepo, exportStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)
	exportWorker := service.NewExportWorker(exportRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
	exportQueue := jobs.NewQueue("exports", exportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	exportJobSvc := service.NewExportJobService(exportRepo, exportQueue, exportSvc, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		MaxRetries:      cfg.Exports.WorkerRetries,
	})
	exportQueue.Start(ctx)
	defer exportQueue.Stop()
	exportJobSvc.RecoverPendingJobs(ctx)
	exportJobSvc.StartCleanup(ctx)

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(middleware.Metrics(metricsSvc))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if metricsSvc != nil {
		r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, routeServices{
		auth:        authSvc,
		users:       userSvc,
		eleves:      eleveSvc,
		responsable: responsableSvc,
		professeurs: professeurSvc,
		classes:     classeSvc,
		annees:      anneeSvc,
		matieres:    matiereSvc,
		evaluations: evaluationSvc,
		notes:       noteSvc,
		absences:    absenceSvc,
		presences:   presenceSvc,
		frais:       fraisSvc,
		paiements:   paiementSvc,
		depenses:    depenseSvc,
		budgets:     budgetSvc,
		salaires:    salaireSvc,
		journal:     journalSvc,
		dashboard:   dashboardSvc,
		exports:     exportJobSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server stopping")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

type routeServices struct {
	auth        *service.AuthService
	users       *service.UserService
	eleves      *service.EleveService
	responsable *service.ResponsableService
	professeurs *service.ProfesseurService
	classes     *service.ClasseService
	annees      *service.AnneeService
	matieres    *service.MatiereService
	evaluations *service.EvaluationService
	notes       *service.NoteService
	absences    *service.AbsenceService
	presences   *service.PresenceService
	frais       *service.FraisService
	paiements   *service.PaiementService
	depenses    *service.DepenseService
	budgets     *service.BudgetService
	salaires    *service.SalaireService
	journal     *service.JournalService
	dashboard   *service.DashboardService
	exports     *service.ExportJobService
}

func registerRoutes(r *gin.Engine, cfg *config.Config, svcs routeServices) {
	authHandler := handler.NewAuthHandler(svcs.auth)
	userHandler := handler.NewUserHandler(svcs.users)
	eleveHandler := handler.NewEleveHandler(svcs.eleves)
	responsableHandler := handler.NewResponsableHandler(svcs.responsable)
	professeurHandler := handler.NewProfesseurHandler(svcs.professeurs)
	classeHandler := handler.NewClasseHandler(svcs.classes)
	anneeHandler := handler.NewAnneeHandler(svcs.annees)
	matiereHandler := handler.NewMatiereHandler(svcs.matieres)
	evaluationHandler := handler.NewEvaluationHandler(svcs.evaluations)
	noteHandler := handler.NewNoteHandler(svcs.notes)
	absenceHandler := handler.NewAbsenceHandler(svcs.absences)
	presenceHandler := handler.NewPresenceHandler(svcs.presences)
	fraisHandler := handler.NewFraisHandler(svcs.frais)
	paiementHandler := handler.NewPaiementHandler(svcs.paiements)
	depenseHandler := handler.NewDepenseHandler(svcs.depenses)
	budgetHandler := handler.NewBudgetHandler(svcs.budgets)
	salaireHandler := handler.NewSalaireHandler(svcs.salaires)
	journalHandler := handler.NewJournalHandler(svcs.journal)
	dashboardHandler := handler.NewDashboardHandler(svcs.dashboard)
	exportHandler := handler.NewExportHandler(svcs.exports)

	authRequired := middleware.JWT(svcs.auth)
	adminOnly := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	comptabilite := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleComptable)
	vieScolaire := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleSurveillant)
	pedagogie := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleProfesseur)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authRequired, authHandler.Logout)
		auth.GET("/me", authRequired, authHandler.Me)
		auth.PUT("/password", authRequired, authHandler.ChangePassword)
	}

	// Export downloads carry their own signed token, no session required.
	api.GET("/exports/download/:token", exportHandler.Download)

	secured := api.Group("")
	secured.Use(authRequired)

	users := secured.Group("/users", adminOnly)
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Deactivate)
		users.PUT("/:id/password", userHandler.ResetPassword)
	}

	eleves := secured.Group("/eleves")
	{
		eleves.GET("", eleveHandler.List)
		eleves.POST("", adminOnly, eleveHandler.Create)
		eleves.GET("/:id", eleveHandler.Get)
		eleves.PUT("/:id", adminOnly, eleveHandler.Update)
		eleves.POST("/:id/transfert", adminOnly, eleveHandler.Transfer)
		eleves.DELETE("/:id", adminOnly, eleveHandler.Delete)
		eleves.POST("/:id/restauration", adminOnly, eleveHandler.Restore)
		eleves.GET("/:id/responsables", responsableHandler.ListByEleve)
		eleves.POST("/:id/responsables", adminOnly, responsableHandler.Attach)
		eleves.PUT("/:id/responsables/:responsableId", adminOnly, responsableHandler.UpdateLink)
		eleves.DELETE("/:id/responsables/:responsableId", adminOnly, responsableHandler.Detach)
	}

	responsables := secured.Group("/responsables")
	{
		responsables.GET("", responsableHandler.List)
		responsables.POST("", adminOnly, responsableHandler.Create)
		responsables.GET("/:id", responsableHandler.Get)
		responsables.PUT("/:id", adminOnly, responsableHandler.Update)
		responsables.DELETE("/:id", adminOnly, responsableHandler.Delete)
	}

	professeurs := secured.Group("/professeurs")
	{
		professeurs.GET("", professeurHandler.List)
		professeurs.POST("", adminOnly, professeurHandler.Create)
		professeurs.GET("/:id", professeurHandler.Get)
		professeurs.PUT("/:id", adminOnly, professeurHandler.Update)
		professeurs.DELETE("/:id", adminOnly, professeurHandler.Delete)
		professeurs.GET("/:id/salaire", comptabilite, salaireHandler.GetConfig)
		professeurs.GET("/:id/salaire/historique", comptabilite, salaireHandler.ListConfigs)
	}

	classes := secured.Group("/classes")
	{
		classes.GET("", classeHandler.List)
		classes.POST("", adminOnly, classeHandler.Create)
		classes.GET("/:id", classeHandler.Get)
		classes.PUT("/:id", adminOnly, classeHandler.Update)
		classes.DELETE("/:id", adminOnly, classeHandler.Delete)
		classes.GET("/:id/frais", fraisHandler.GetByClasse)
	}

	annees := secured.Group("/annees")
	{
		annees.GET("", anneeHandler.List)
		annees.GET("/active", anneeHandler.GetActive)
		annees.POST("", adminOnly, anneeHandler.Create)
		annees.GET("/:id", anneeHandler.Get)
		annees.PUT("/:id", adminOnly, anneeHandler.Update)
		annees.POST("/:id/activation", adminOnly, anneeHandler.Activate)
	}

	trimestres := secured.Group("/trimestres")
	{
		trimestres.GET("", anneeHandler.ListTrimestres)
		trimestres.POST("", adminOnly, anneeHandler.CreateTrimestre)
		trimestres.POST("/:id/activation", adminOnly, anneeHandler.ActivateTrimestre)
	}

	matieres := secured.Group("/matieres")
	{
		matieres.GET("", matiereHandler.List)
		matieres.POST("", adminOnly, matiereHandler.Create)
		matieres.GET("/:id", matiereHandler.Get)
		matieres.PUT("/:id", adminOnly, matiereHandler.Update)
		matieres.DELETE("/:id", adminOnly, matiereHandler.Delete)
	}

	evaluations := secured.Group("/evaluations", pedagogie)
	{
		evaluations.GET("", evaluationHandler.List)
		evaluations.POST("", evaluationHandler.Create)
		evaluations.GET("/:id", evaluationHandler.Get)
		evaluations.PUT("/:id", evaluationHandler.Update)
		evaluations.DELETE("/:id", evaluationHandler.Delete)
	}

	notes := secured.Group("/notes", pedagogie)
	{
		notes.GET("", noteHandler.List)
		notes.POST("", noteHandler.Create)
		notes.GET("/moyenne", noteHandler.Moyenne)
		notes.GET("/:id", noteHandler.Get)
		notes.PUT("/:id", noteHandler.Update)
		notes.POST("/:id/validation", noteHandler.Valider)
		notes.POST("/:id/publication", adminOnly, noteHandler.Publier)
		notes.POST("/:id/exclusion", adminOnly, noteHandler.Exclure)
		notes.POST("/:id/reintegration", adminOnly, noteHandler.Reintegrer)
		notes.POST("/:id/rattrapage", noteHandler.Rattrapage)
		notes.DELETE("/:id", adminOnly, noteHandler.Delete)
	}

	absences := secured.Group("/absences", vieScolaire)
	{
		absences.GET("", absenceHandler.List)
		absences.POST("", absenceHandler.Create)
		absences.GET("/taux", absenceHandler.Taux)
		absences.GET("/:id", absenceHandler.Get)
		absences.POST("/:id/justification", absenceHandler.Justifier)
		absences.POST("/:id/refus", absenceHandler.Refuser)
		absences.POST("/:id/sanction", absenceHandler.Sanctionner)
		absences.DELETE("/:id", adminOnly, absenceHandler.Delete)
	}

	presences := secured.Group("/presences", vieScolaire)
	{
		presences.GET("", presenceHandler.Feuille)
		presences.POST("", presenceHandler.Enregistrer)
	}

	frais := secured.Group("/frais", comptabilite)
	{
		frais.GET("", fraisHandler.List)
		frais.POST("", fraisHandler.Create)
		frais.GET("/:id", fraisHandler.Get)
		frais.PUT("/:id", fraisHandler.Update)
		frais.DELETE("/:id", fraisHandler.Delete)
	}

	paiements := secured.Group("/paiements", comptabilite)
	{
		paiements.GET("", paiementHandler.List)
		paiements.POST("", paiementHandler.Create)
		paiements.GET("/:id", paiementHandler.Get)
		paiements.PUT("/:id", paiementHandler.Update)
		paiements.DELETE("/:id", paiementHandler.Delete)
		paiements.GET("/:id/historique", paiementHandler.Historique)
	}

	depenses := secured.Group("/depenses", comptabilite)
	{
		depenses.GET("", depenseHandler.List)
		depenses.POST("", depenseHandler.Create)
		depenses.GET("/categories", depenseHandler.ListCategories)
		depenses.POST("/categories", depenseHandler.CreateCategorie)
		depenses.GET("/:id", depenseHandler.Get)
		depenses.PUT("/:id", depenseHandler.Update)
		depenses.POST("/:id/soumission", depenseHandler.Soumettre)
		depenses.POST("/:id/decision", adminOnly, depenseHandler.Decider)
		depenses.POST("/:id/paiement", depenseHandler.Payer)
		depenses.DELETE("/:id", depenseHandler.Delete)
		depenses.GET("/:id/approbations", depenseHandler.Approbations)
	}

	budgets := secured.Group("/budgets", comptabilite)
	{
		budgets.GET("", budgetHandler.List)
		budgets.POST("", budgetHandler.Create)
		budgets.GET("/:id", budgetHandler.Get)
		budgets.PUT("/:id", budgetHandler.Update)
		budgets.DELETE("/:id", budgetHandler.Delete)
	}

	salaires := secured.Group("/salaires", comptabilite)
	{
		salaires.POST("/configs", salaireHandler.SetConfig)
		salaires.GET("/avances", salaireHandler.ListAvances)
		salaires.POST("/avances", salaireHandler.CreateAvance)
		salaires.POST("/avances/:id/paiement", salaireHandler.PayerAvance)
		salaires.GET("/paiements", salaireHandler.ListPaiements)
		salaires.POST("/paiements", salaireHandler.CreatePaiement)
		salaires.GET("/paiements/:id", salaireHandler.GetPaiement)
		salaires.POST("/paiements/:id/paiement", salaireHandler.Payer)
	}

	journal := secured.Group("/journal", adminOnly)
	{
		journal.GET("", journalHandler.List)
		journal.GET("/:entite/:id", journalHandler.Historique)
	}

	dashboard := secured.Group("/dashboard")
	{
		dashboard.GET("", dashboardHandler.Resume)
		dashboard.DELETE("/cache", adminOnly, dashboardHandler.InvalidateCache)
	}

	exports := secured.Group("/exports")
	{
		exports.POST("", exportHandler.Create)
		exports.GET("/:id", exportHandler.Status)
	}
}

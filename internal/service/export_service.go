package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	"github.com/noah-isme/ecole-adm-api/pkg/export"
	"github.com/noah-isme/ecole-adm-api/pkg/storage"
)

type exportNoteReader interface {
	List(ctx context.Context, filter models.NoteFilter) ([]models.NoteDetail, int, error)
}

type exportEleveReader interface {
	FindByID(ctx context.Context, id string) (*models.EleveDetail, error)
}

type exportSalaireReader interface {
	ListPaiements(ctx context.Context, filter models.PaiementSalaireFilter) ([]models.PaiementSalaire, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds export datasets and persists rendered files.
type ExportService struct {
	notes    exportNoteReader
	eleves   exportEleveReader
	salaires exportSalaireReader
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(notes exportNoteReader, eleves exportEleveReader, salaires exportSalaireReader, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		notes:    notes,
		eleves:   eleves,
		salaires: salaires,
		storage:  store,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds the dataset according to job definition and stores
// the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/exports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeBulletin:
		return s.buildBulletinDataset(ctx, job.Params)
	case models.ExportTypeRegistreSalaires:
		return s.buildRegistreSalairesDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

// buildBulletinDataset assembles a student report card: one row per
// published grade plus the weighted average. Grades flagged
// exclue_moyenne appear in the table but do not weigh in.
func (s *ExportService) buildBulletinDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	if params.EleveID == nil || *params.EleveID == "" {
		return export.Dataset{}, "", fmt.Errorf("bulletin requires eleve_id")
	}
	eleve, err := s.eleves.FindByID(ctx, *params.EleveID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	publiee := true
	filter := models.NoteFilter{
		EleveID:    *params.EleveID,
		EstPubliee: &publiee,
		PageSize:   100,
	}
	if params.TrimestreID != nil {
		filter.TrimestreID = *params.TrimestreID
	}
	notes, _, err := s.notes.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(notes)+1)
	var sommePonderee, sommeCoefficients float64
	for _, note := range notes {
		matiere := note.MatiereID
		if note.MatiereLibelle != nil {
			matiere = *note.MatiereLibelle
		}
		dataRows = append(dataRows, map[string]string{
			"Matiere":      matiere,
			"Note":         fmt.Sprintf("%.2f/%.0f", note.Valeur, note.NoteSur),
			"Note sur 20":  fmt.Sprintf("%.2f", note.NoteSur20),
			"Coefficient":  fmt.Sprintf("%.2f", note.Coefficient),
			"Appreciation": note.Appreciation,
		})
		if !note.ExclueMoyenne {
			sommePonderee += note.NoteSur20 * note.Coefficient
			sommeCoefficients += note.Coefficient
		}
	}
	if sommeCoefficients > 0 {
		moyenne := models.Round2(sommePonderee / sommeCoefficients)
		dataRows = append(dataRows, map[string]string{
			"Matiere":      "Moyenne generale",
			"Note":         "",
			"Note sur 20":  fmt.Sprintf("%.2f", moyenne),
			"Coefficient":  "",
			"Appreciation": models.Appreciation(moyenne),
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Matiere", "Note", "Note sur 20", "Coefficient", "Appreciation"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Bulletin %s %s (%s)", eleve.Prenom, eleve.Nom, eleve.Matricule)
	return dataset, title, nil
}

// buildRegistreSalairesDataset assembles the payroll register for one
// pay period: every salary payment row regardless of status.
func (s *ExportService) buildRegistreSalairesDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	if params.Periode == nil {
		return export.Dataset{}, "", fmt.Errorf("payroll register requires periode")
	}
	paiements, _, err := s.salaires.ListPaiements(ctx, models.PaiementSalaireFilter{
		Periode:  params.Periode,
		PageSize: 100,
	})
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(paiements))
	for _, p := range paiements {
		payeLe := ""
		if p.PayeLe != nil {
			payeLe = p.PayeLe.UTC().Format("2006-01-02")
		}
		dataRows = append(dataRows, map[string]string{
			"Professeur":  p.ProfesseurID,
			"Type":        p.Type,
			"Base":        p.SalaireBase.StringFixed(2),
			"Avances":     p.AvancesDeduites.StringFixed(2),
			"Retenues":    p.Retenues.StringFixed(2),
			"Net a payer": p.NetAPayer.StringFixed(2),
			"Statut":      p.Statut,
			"Paye le":     payeLe,
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Professeur", "Type", "Base", "Avances", "Retenues", "Net a payer", "Statut", "Paye le"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Registre des salaires %s", params.Periode.Format("2006-01"))
	return dataset, title, nil
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "na"
	switch {
	case job.Params.EleveID != nil && *job.Params.EleveID != "":
		scope = sanitizeFilename(*job.Params.EleveID)
	case job.Params.Periode != nil:
		scope = job.Params.Periode.Format("2006-01")
	}
	return fmt.Sprintf("%s_%s_%s.%s", string(job.Type), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecole-adm-api/internal/middleware"
	"github.com/noah-isme/ecole-adm-api/internal/models"
	"github.com/noah-isme/ecole-adm-api/internal/service"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
	"github.com/noah-isme/ecole-adm-api/pkg/response"
)

// NoteHandler exposes grade endpoints.
type NoteHandler struct {
	notes *service.NoteService
}

// NewNoteHandler constructs NoteHandler.
func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// List godoc
// @Summary List grades
// @Tags Notes
// @Produce json
// @Param eleve_id query string false "Student ID"
// @Param matiere_id query string false "Subject ID"
// @Param evaluation_id query string false "Evaluation ID"
// @Param classe_id query string false "Class ID"
// @Param trimestre_id query string false "Term ID"
// @Param est_validee query bool false "Validated only"
// @Param est_publiee query bool false "Published only"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	filter := models.NoteFilter{
		EleveID:      strings.TrimSpace(c.Query("eleve_id")),
		MatiereID:    strings.TrimSpace(c.Query("matiere_id")),
		EvaluationID: strings.TrimSpace(c.Query("evaluation_id")),
		ClasseID:     strings.TrimSpace(c.Query("classe_id")),
		TrimestreID:  strings.TrimSpace(c.Query("trimestre_id")),
		EstValidee:   queryBool(c, "est_validee"),
		EstPubliee:   queryBool(c, "est_publiee"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "limit", 20),
	}
	notes, pagination, err := h.notes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes, pagination)
}

// Get godoc
// @Summary Get grade detail
// @Tags Notes
// @Produce json
// @Param id path string true "Grade ID"
// @Success 200 {object} response.Envelope
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	note, err := h.notes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Create godoc
// @Summary Record grade
// @Tags Notes
// @Accept json
// @Produce json
// @Param payload body service.CreateNoteRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Router /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	var req service.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	note, err := h.notes.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// Update godoc
// @Summary Update grade
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Grade ID"
// @Param payload body service.UpdateNoteRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	var req service.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	note, err := h.notes.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Valider godoc
// @Summary Validate grade
// @Tags Notes
// @Produce json
// @Param id path string true "Grade ID"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/validation [post]
func (h *NoteHandler) Valider(c *gin.Context) {
	note, err := h.notes.Valider(c.Request.Context(), c.Param("id"), middleware.ActeurID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Publier godoc
// @Summary Publish grade
// @Tags Notes
// @Produce json
// @Param id path string true "Grade ID"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/publication [post]
func (h *NoteHandler) Publier(c *gin.Context) {
	note, err := h.notes.Publier(c.Request.Context(), c.Param("id"), middleware.ActeurID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Exclure godoc
// @Summary Exclude grade from averages
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Grade ID"
// @Param payload body service.ExcludeNoteRequest true "Exclusion reason"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/exclusion [post]
func (h *NoteHandler) Exclure(c *gin.Context) {
	var req service.ExcludeNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	note, err := h.notes.Exclure(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Reintegrer godoc
// @Summary Reintegrate excluded grade
// @Tags Notes
// @Produce json
// @Param id path string true "Grade ID"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/reintegration [post]
func (h *NoteHandler) Reintegrer(c *gin.Context) {
	note, err := h.notes.Reintegrer(c.Request.Context(), c.Param("id"), middleware.ActeurID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Rattrapage godoc
// @Summary Record retake grade
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Original grade ID"
// @Param payload body service.RattrapageRequest true "Retake value"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/rattrapage [post]
func (h *NoteHandler) Rattrapage(c *gin.Context) {
	var req service.RattrapageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	note, err := h.notes.Rattrapage(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Delete godoc
// @Summary Delete grade
// @Tags Notes
// @Produce json
// @Param id path string true "Grade ID"
// @Success 204
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Moyenne godoc
// @Summary Student average for a subject and term
// @Tags Notes
// @Produce json
// @Param eleve_id query string true "Student ID"
// @Param matiere_id query string true "Subject ID"
// @Param trimestre_id query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /notes/moyenne [get]
func (h *NoteHandler) Moyenne(c *gin.Context) {
	eleveID := strings.TrimSpace(c.Query("eleve_id"))
	matiereID := strings.TrimSpace(c.Query("matiere_id"))
	trimestreID := strings.TrimSpace(c.Query("trimestre_id"))
	if eleveID == "" || matiereID == "" || trimestreID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "eleve_id, matiere_id and trimestre_id are required"))
		return
	}
	moyenne, err := h.notes.MoyenneEleve(c.Request.Context(), eleveID, matiereID, trimestreID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"moyenne": moyenne}, nil)
}

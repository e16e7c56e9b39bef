// Package handlers exposes the engine's operations over HTTP. Transport
// concerns only; all scoring lives in the detector packages.
package handlers

import (
	"errors"
	"net/http"

	"surveyguard/internal/models"
	"surveyguard/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AnalysisHandler struct {
	log      *zap.Logger
	analysis *services.AnalysisService
}

func NewAnalysisHandler(log *zap.Logger, analysis *services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{log: log, analysis: analysis}
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps engine error kinds onto responses. Insufficient data is
// reported as an explicit "unavailable" with a reason, never a default
// numeric score that would silently misclassify the session.
func (h *AnalysisHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, models.ErrInsufficientData):
		c.JSON(http.StatusConflict, gin.H{
			"unavailable": true,
			"reason":      err.Error(),
		})
	case errors.Is(err, models.ErrPersistenceFailure):
		h.log.Error("Result persistence failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result could not be stored, retry the analysis"})
	default:
		h.log.Error("Analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
	}
}

// AnalyzeSession runs the full bot-detection pipeline for one session.
func (h *AnalysisHandler) AnalyzeSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.analysis.AnalyzeSession(c.Request.Context(), id, nil)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ComputeFraud evaluates the fraud indicator for one session.
func (h *AnalysisHandler) ComputeFraud(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	ind, err := h.analysis.ComputeFraud(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ind)
}

// ComputeGrid classifies one grid question for one session.
func (h *AnalysisHandler) ComputeGrid(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	questionID := c.Param("questionID")
	if questionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing question id"})
		return
	}

	rows, err := h.analysis.ComputeGridAnalysis(c.Request.Context(), id, questionID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ComputeTiming evaluates per-question timing for one session.
func (h *AnalysisHandler) ComputeTiming(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	rows, err := h.analysis.ComputeTiming(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

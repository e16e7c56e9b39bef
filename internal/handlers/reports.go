package handlers

import (
	"net/http"
	"time"

	"surveyguard/internal/reports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReportsHandler struct {
	log        *zap.Logger
	aggregator *reports.Aggregator
}

func NewReportsHandler(log *zap.Logger, aggregator *reports.Aggregator) *ReportsHandler {
	return &ReportsHandler{log: log, aggregator: aggregator}
}

// GetReport serves the hierarchical rollup. Scope narrows through query
// parameters: survey (required), then platform, respondent, session. A
// session id switches the response to the detailed per-session shape.
func (h *ReportsHandler) GetReport(c *gin.Context) {
	scope := reports.Scope{
		SurveyID:     c.Query("survey"),
		PlatformID:   c.Query("platform"),
		RespondentID: c.Query("respondent"),
	}
	if scope.SurveyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "survey query parameter is required"})
		return
	}

	if raw := c.Query("session"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
			return
		}
		scope.SessionID = id
	}

	var dr reports.DateRange
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		dr.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		dr.To = t
	}

	report, err := h.aggregator.Aggregate(c.Request.Context(), scope, dr)
	if err != nil {
		h.log.Error("Report aggregation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report could not be computed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/progress"
	"github.com/calmstack/declutter/pkg/rules"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleListRules(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	ruleSet, err := s.db.ListRules(activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ruleSet == nil {
		ruleSet = []models.CleaningRule{}
	}
	c.JSON(http.StatusOK, gin.H{"rules": ruleSet})
}

func (s *Server) handleCreateRule(c *gin.Context) {
	var rule models.CleaningRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := rules.Validate(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().Unix()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	id, err := s.db.CreateRule(c.Request.Context(), &rule)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	rule.ID = id

	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

func (s *Server) handleUpdateRule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var rule models.CleaningRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule.ID = id

	if err := rules.Validate(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule.UpdatedAt = time.Now().Unix()

	if err := s.db.UpdateRule(c.Request.Context(), &rule); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

func (s *Server) handleToggleRule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.db.SetRuleActive(c.Request.Context(), id, req.Active, time.Now().Unix()); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "active": req.Active})
}

func (s *Server) handleDeleteRule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	if err := s.db.DeleteRule(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	if s.ai == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI assistant not configured"})
		return
	}

	ctx := c.Request.Context()

	p, err := s.recorder.Progress(ctx, s.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sessions, err := s.db.ListSessions(s.user, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	prefs, err := s.db.ListPreferences(s.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	analysis, err := s.ai.AnalyzeHabits(ctx, p, sessions, prefs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	// A completed analysis earns points.
	award, err := s.recorder.Award(ctx, s.user, progress.ReasonAIAnalysis)
	if err != nil {
		log.WithError(err).Warn("Analysis succeeded but point award failed")
	}

	c.JSON(http.StatusOK, gin.H{"analysis": analysis, "award": award})
}

func (s *Server) handleSuggestRules(c *gin.Context) {
	if s.ai == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI assistant not configured"})
		return
	}

	ctx := c.Request.Context()

	prefs, err := s.db.ListPreferences(s.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	suggested, err := s.ai.SuggestRules(ctx, prefs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	// Suggestions are stored disabled; the user activates the ones they
	// want via the toggle endpoint.
	for i := range suggested {
		id, err := s.db.CreateRule(ctx, &suggested[i])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		suggested[i].ID = id
	}

	c.JSON(http.StatusCreated, gin.H{"rules": suggested})
}

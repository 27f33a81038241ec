package server

import (
	"net/http"
	"strconv"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/progress"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleGetProgress(c *gin.Context) {
	p, err := s.recorder.Progress(c.Request.Context(), s.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress":               p,
		"progress_to_next_level": progress.ProgressToNextLevel(*p),
	})
}

func (s *Server) handleListAchievements(c *gin.Context) {
	achievements, err := s.db.ListAchievements(s.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if achievements == nil {
		achievements = []*models.Achievement{}
	}
	c.JSON(http.StatusOK, gin.H{"achievements": achievements})
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	sessions, err := s.db.ListSessions(s.user, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleListAwards(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	awards, err := s.db.ListAwards(s.user, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"awards": awards})
}

func (s *Server) handleAwardPoints(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	award, err := s.recorder.Award(c.Request.Context(), s.user, req.Reason)
	if err != nil {
		if _, lookupErr := progress.PointsFor(req.Reason); lookupErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"award": award})
}

func (s *Server) handleRecordFolders(c *gin.Context) {
	var req struct {
		Count int `json:"count" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Count <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be positive"})
		return
	}

	outcome, err := s.recorder.RecordFolders(c.Request.Context(), s.user, req.Count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"progress":         outcome.Progress,
		"new_achievements": outcome.NewAchievements,
	})
}

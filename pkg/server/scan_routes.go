package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/rules"
	"github.com/calmstack/declutter/pkg/scan"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleScanStart(c *gin.Context) {
	var req struct {
		UseRules bool `json:"use_rules"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var ruleSet []models.CleaningRule
	if req.UseRules {
		var err error
		ruleSet, err = s.db.ListRules(false)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if ruleSet == nil {
			ruleSet = []models.CleaningRule{}
		}
	}

	if err := s.machine.StartScan(ruleSet); err != nil {
		c.JSON(scanErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	// Drive the scan in the background; the loop exits on its own when
	// the phase completes or the machine is reset. It must outlive the
	// request, so it does not inherit the request context.
	go s.machine.Run(context.Background(), s.cfg.Scan.TickInterval)

	c.JSON(http.StatusAccepted, gin.H{"stage": s.machine.Stage()})
}

func (s *Server) handleScanStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stage":             s.machine.Stage(),
		"scan_progress":     s.machine.ScanProgress(),
		"cleaning_progress": s.machine.CleaningProgress(),
		"items":             s.machine.Items(),
		"selected_ids":      s.machine.SelectedIDs(),
		"selected_size_mb":  s.machine.SelectedSizeMB(),
	})
}

func (s *Server) handleToggleSelection(c *gin.Context) {
	var req struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.machine.ToggleSelection(req.ID); err != nil {
		c.JSON(scanErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected_ids": s.machine.SelectedIDs()})
}

func (s *Server) handleSetSelection(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.machine.SetSelection(req.IDs); err != nil {
		c.JSON(scanErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected_ids": s.machine.SelectedIDs()})
}

func (s *Server) handleItemAction(c *gin.Context) {
	var req struct {
		Action models.BulkAction `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.machine.ItemAction(c.Param("id"), req.Action); err != nil {
		c.JSON(scanErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": s.machine.Items()})
}

func (s *Server) handleStartCleaning(c *gin.Context) {
	var req struct {
		Action models.BulkAction `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.machine.StartCleaning(req.Action); err != nil {
		c.JSON(scanErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	go s.machine.Run(context.Background(), s.cfg.Scan.TickInterval)

	c.JSON(http.StatusAccepted, gin.H{
		"stage":              s.machine.Stage(),
		"estimated_freed_mb": s.machine.EstimatedSpaceFreedMB(req.Action),
	})
}

func (s *Server) handleScanReset(c *gin.Context) {
	s.machine.Reset()
	c.JSON(http.StatusOK, gin.H{"stage": s.machine.Stage()})
}

// scanErrorStatus maps machine errors onto HTTP statuses: state conflicts
// are 409, bad input is 400, unknown items are 404.
func scanErrorStatus(err error) int {
	switch {
	case errors.Is(err, scan.ErrScanInProgress),
		errors.Is(err, scan.ErrNotInResults),
		errors.Is(err, scan.ErrEmptySelection):
		return http.StatusConflict
	case errors.Is(err, scan.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, scan.ErrInvalidAction),
		errors.Is(err, rules.ErrNoActiveRules):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

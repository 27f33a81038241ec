package server

import (
	"net/http"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/schedule"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) handleListSchedules(c *gin.Context) {
	schedules, err := s.db.ListScheduledCleanings(s.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if schedules == nil {
		schedules = []*models.ScheduledCleaning{}
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

func (s *Server) handleCreateSchedule(c *gin.Context) {
	var sched models.ScheduledCleaning
	if err := c.ShouldBindJSON(&sched); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sched.ID = uuid.NewString()
	sched.UserEmail = s.user
	sched.CreatedAt = time.Now().Unix()

	next, err := schedule.NextCleaningRun(&sched, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sched.NextRun = next.Unix()

	if err := s.db.SaveScheduledCleaning(c.Request.Context(), &sched); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schedule": sched})
}

func (s *Server) handleDeleteSchedule(c *gin.Context) {
	if err := s.db.DeleteScheduledCleaning(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListBackups(c *gin.Context) {
	backups, err := s.db.ListBackupConfigurations(s.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if backups == nil {
		backups = []*models.BackupConfiguration{}
	}
	c.JSON(http.StatusOK, gin.H{"backups": backups})
}

func (s *Server) handleCreateBackup(c *gin.Context) {
	var cfg models.BackupConfiguration
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg.ID = uuid.NewString()
	cfg.UserEmail = s.user
	cfg.CreatedAt = time.Now().Unix()

	next, err := schedule.NextBackupRun(cfg.Schedule, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg.NextBackup = next.Unix()

	if err := s.db.SaveBackupConfiguration(c.Request.Context(), &cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"backup": cfg})
}

func (s *Server) handleDeleteBackup(c *gin.Context) {
	if err := s.db.DeleteBackupConfiguration(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

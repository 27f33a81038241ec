// Package server exposes the declutter engine over a JSON HTTP API: scan
// lifecycle, progress and achievements, cleaning rules, AI analysis, and
// schedules.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/assistant"
	"github.com/calmstack/declutter/pkg/catalog"
	"github.com/calmstack/declutter/pkg/config"
	"github.com/calmstack/declutter/pkg/logger"
	"github.com/calmstack/declutter/pkg/progress"
	"github.com/calmstack/declutter/pkg/scan"
	"github.com/calmstack/declutter/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log *logrus.Entry

func init() {
	log = logger.WithName("server")
}

// Server wires the scan machine, the progress recorder, and the store into
// an HTTP API for a single user.
type Server struct {
	cfg      *config.Config
	db       *store.DB
	recorder *progress.Recorder
	machine  *scan.Machine
	ai       *assistant.Assistant
	user     string
	router   *gin.Engine
	httpSrv  *http.Server
}

// Options configures optional server collaborators.
type Options struct {
	// UserEmail is the account the API operates on.
	UserEmail string
	// Assistant enables the AI analysis endpoints when non-nil.
	Assistant *assistant.Assistant
	// Source overrides the item catalog, for tests.
	Source catalog.Source
}

// New assembles a Server. The scan machine's commit sink feeds the
// progress recorder, and its per-item actions feed the learned-preference
// log, so completing a cleaning through the API updates everything
// downstream with no extra calls.
func New(cfg *config.Config, db *store.DB, opts Options) *Server {
	recorder := progress.NewRecorder(db)

	s := &Server{
		cfg:      cfg,
		db:       db,
		recorder: recorder,
		ai:       opts.Assistant,
		user:     opts.UserEmail,
	}

	s.machine = scan.New(scan.Config{
		UserEmail: opts.UserEmail,
		Source:    opts.Source,
		Sink:      s.commitSession,
		Recorder:  &preferenceSink{db: db},
	})

	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger())
	s.registerRoutes()

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves the API until Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	log.WithField("addr", addr).Info("Starting HTTP server")

	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts the HTTP listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	log.Info("Stopping HTTP server")
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")

	api.POST("/scan/start", s.handleScanStart)
	api.GET("/scan/status", s.handleScanStatus)
	api.POST("/scan/selection/toggle", s.handleToggleSelection)
	api.PUT("/scan/selection", s.handleSetSelection)
	api.POST("/scan/items/:id/action", s.handleItemAction)
	api.POST("/scan/clean", s.handleStartCleaning)
	api.POST("/scan/reset", s.handleScanReset)

	api.GET("/progress", s.handleGetProgress)
	api.GET("/achievements", s.handleListAchievements)
	api.GET("/sessions", s.handleListSessions)
	api.GET("/points", s.handleListAwards)
	api.POST("/points", s.handleAwardPoints)
	api.POST("/folders", s.handleRecordFolders)

	api.GET("/rules", s.handleListRules)
	api.POST("/rules", s.handleCreateRule)
	api.PUT("/rules/:id", s.handleUpdateRule)
	api.POST("/rules/:id/toggle", s.handleToggleRule)
	api.DELETE("/rules/:id", s.handleDeleteRule)

	api.POST("/analyze", s.handleAnalyze)
	api.POST("/rules/suggest", s.handleSuggestRules)

	api.GET("/schedules", s.handleListSchedules)
	api.POST("/schedules", s.handleCreateSchedule)
	api.DELETE("/schedules/:id", s.handleDeleteSchedule)

	api.GET("/backups", s.handleListBackups)
	api.POST("/backups", s.handleCreateBackup)
	api.DELETE("/backups/:id", s.handleDeleteBackup)
}

// commitSession is the machine's sink: one call per completed cycle.
func (s *Server) commitSession(session models.CleaningSession) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.recorder.CommitSession(ctx, session); err != nil {
		log.WithError(err).Error("Failed to commit cleaning session")
	}
}

// preferenceSink adapts the store to the scan machine's preference
// recorder.
type preferenceSink struct {
	db *store.DB
}

func (p *preferenceSink) Record(pref models.LearnedPreference) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.db.InsertPreference(ctx, &pref); err != nil {
		log.WithError(err).Warn("Failed to record learned preference")
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("Request handled")
	}
}

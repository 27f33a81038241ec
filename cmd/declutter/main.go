package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/assistant"
	"github.com/calmstack/declutter/pkg/catalog"
	"github.com/calmstack/declutter/pkg/config"
	"github.com/calmstack/declutter/pkg/logger"
	"github.com/calmstack/declutter/pkg/progress"
	"github.com/calmstack/declutter/pkg/scan"
	"github.com/calmstack/declutter/pkg/schedule"
	"github.com/calmstack/declutter/pkg/server"
	"github.com/calmstack/declutter/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	log *logrus.Entry

	// Global options
	dbPath    string
	userEmail string

	// Scan command options
	useRules    bool
	cleanAction string

	// Serve command options
	configPath string
	port       int

	// Rule command options
	ruleName   string
	ruleExt    string
	olderThan  int
	largerThan float64
	folderPath string
	ruleAction string
	ruleActive bool

	// History options
	limit int
)

func init() {
	log = logger.WithName("cli")
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "declutter",
		Short: "Digital decluttering engine",
		Long: `declutter - Simulated file cleanup with progress tracking.

It scans a catalog of removable items, applies cleaning rules, records
cleaning sessions, and tracks streaks, points, and achievement badges.`,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "declutter.db", "Path to SQLite database file")
	rootCmd.PersistentFlags().StringVar(&userEmail, "user", "demo@declutter.local", "User the command operates on")

	var scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Run a scan and show what it flags",
		Run:   runScan,
	}
	scanCmd.Flags().BoolVar(&useRules, "use-rules", false, "Restrict results to items matching active cleaning rules")
	scanCmd.Flags().StringVar(&cleanAction, "clean", "", "Clean everything the scan flags with this action (delete, archive, compress)")

	var progressCmd = &cobra.Command{
		Use:   "progress",
		Short: "Show lifetime progress and streaks",
		Run:   runProgress,
	}

	var achievementsCmd = &cobra.Command{
		Use:   "achievements",
		Short: "List earned badges",
		Run:   runAchievements,
	}

	var sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "Show cleaning session history",
		Run:   runSessions,
	}
	sessionsCmd.Flags().IntVar(&limit, "limit", 10, "Maximum sessions to show (0 for all)")

	var ruleListCmd = &cobra.Command{
		Use:   "rule-list",
		Short: "List cleaning rules",
		Run:   runRuleList,
	}

	var ruleAddCmd = &cobra.Command{
		Use:   "rule-add",
		Short: "Add a cleaning rule",
		Run:   runRuleAdd,
	}
	ruleAddCmd.Flags().StringVar(&ruleName, "name", "", "Rule name")
	ruleAddCmd.Flags().StringVar(&ruleExt, "ext", "*", "File extension to match, or * for any")
	ruleAddCmd.Flags().IntVar(&olderThan, "older-than", 0, "Only match items older than this many days")
	ruleAddCmd.Flags().Float64Var(&largerThan, "larger-than", 0, "Only match items larger than this many MB")
	ruleAddCmd.Flags().StringVar(&folderPath, "folder", "", "Only match items under this folder")
	ruleAddCmd.Flags().StringVar(&ruleAction, "action", "delete", "Action the rule applies (delete, archive, compress)")
	ruleAddCmd.Flags().BoolVar(&ruleActive, "active", true, "Whether the rule starts active")

	var ruleToggleCmd = &cobra.Command{
		Use:   "rule-toggle <rule-id>",
		Short: "Flip a rule between active and inactive",
		Args:  cobra.ExactArgs(1),
		Run:   runRuleToggle,
	}

	var ruleDeleteCmd = &cobra.Command{
		Use:   "rule-delete <rule-id>",
		Short: "Delete a cleaning rule",
		Args:  cobra.ExactArgs(1),
		Run:   runRuleDelete,
	}

	var awardCmd = &cobra.Command{
		Use:   "award <reason>",
		Short: "Credit points for an action (daily_login, organize_folder, share_folder)",
		Args:  cobra.ExactArgs(1),
		Run:   runAward,
	}

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the schedule runner",
		Run:   runServe,
	}
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	serveCmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")

	rootCmd.AddCommand(scanCmd, progressCmd, achievementsCmd, sessionsCmd,
		ruleListCmd, ruleAddCmd, ruleToggleCmd, ruleDeleteCmd, awardCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func openDB() *store.DB {
	db, err := store.New(dbPath)
	if err != nil {
		log.WithError(err).Error("Failed to open database")
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		os.Exit(1)
	}
	return db
}

func runScan(cmd *cobra.Command, args []string) {
	log.WithFields(logrus.Fields{
		"command":  "scan",
		"useRules": useRules,
		"clean":    cleanAction,
	}).Info("Executing command")

	db := openDB()
	defer db.Close()

	recorder := progress.NewRecorder(db)

	var outcome *progress.Outcome
	machine := scan.New(scan.Config{
		UserEmail: userEmail,
		Sink: func(session models.CleaningSession) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			var err error
			outcome, err = recorder.CommitSession(ctx, session)
			if err != nil {
				log.WithError(err).Error("Failed to commit session")
			}
		},
	})

	var ruleSet []models.CleaningRule
	if useRules {
		var err error
		ruleSet, err = db.ListRules(false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if ruleSet == nil {
			ruleSet = []models.CleaningRule{}
		}
	}

	if err := machine.StartScan(ruleSet); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for machine.Stage() == scan.StageScanning {
		machine.Tick()
	}

	items := machine.Items()
	if len(items) == 0 {
		fmt.Println("Nothing to clean up.")
		return
	}

	var total float64
	for _, item := range items {
		fmt.Printf("  %-30s %8.1f MB  %s\n", item.Name, item.SizeMB, item.Category)
		total += item.SizeMB
	}
	fmt.Printf("Flagged %d items, %.1f MB total\n", len(items), total)

	if cleanAction == "" {
		return
	}

	action := models.BulkAction(cleanAction)
	if err := machine.StartCleaning(action); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for machine.Stage() == scan.StageCleaning {
		machine.Tick()
	}

	if outcome != nil {
		fmt.Printf("Cleaned %d files, freed %.1f MB\n",
			len(items), machine.EstimatedSpaceFreedMB(action))
		for _, badge := range outcome.NewAchievements {
			fmt.Printf("New badge: %s %s\n", badge.BadgeIcon, badge.BadgeName)
		}
	}
}

func runProgress(cmd *cobra.Command, args []string) {
	db := openDB()
	defer db.Close()

	recorder := progress.NewRecorder(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := recorder.Progress(ctx, userEmail)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Progress for %s\n", p.UserEmail)
	fmt.Printf("  Files cleaned:     %d\n", p.TotalFilesCleaned)
	fmt.Printf("  Space freed:       %.1f MB\n", p.TotalSpaceFreedMB)
	fmt.Printf("  Sessions:          %d\n", p.SessionsCompleted)
	fmt.Printf("  Folders organized: %d\n", p.FoldersOrganized)
	fmt.Printf("  Streak:            %d days (longest %d)\n", p.CurrentStreak, p.LongestStreak)
	fmt.Printf("  Points:            %d total, %d this week\n", p.TotalPoints, p.PointsThisWeek)
	fmt.Printf("  Level:             %d (%.0f%% to next)\n", p.Level, progress.ProgressToNextLevel(*p)*100)
}

func runAchievements(cmd *cobra.Command, args []string) {
	db := openDB()
	defer db.Close()

	achievements, err := db.ListAchievements(userEmail)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(achievements) == 0 {
		fmt.Println("No badges earned yet.")
		return
	}

	for _, a := range achievements {
		fmt.Printf("  %s %-20s %s (%s)\n", a.BadgeIcon, a.BadgeName, a.Description,
			time.Unix(a.EarnedAt, 0).Format("2006-01-02"))
	}
}

func runSessions(cmd *cobra.Command, args []string) {
	db := openDB()
	defer db.Close()

	sessions, err := db.ListSessions(userEmail, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(sessions) == 0 {
		fmt.Println("No cleaning sessions yet.")
		return
	}

	for _, s := range sessions {
		fmt.Printf("  %s  %-8s  %3d files  %8.1f MB  %d min\n",
			time.Unix(s.CompletedAt, 0).Format("2006-01-02 15:04"),
			s.Action, s.FilesCleaned, s.SpaceFreedMB, s.DurationMinutes)
	}
}

func runRuleList(cmd *cobra.Command, args []string) {
	db := openDB()
	defer db.Close()

	ruleSet, err := db.ListRules(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(ruleSet) == 0 {
		fmt.Println("No cleaning rules defined.")
		return
	}

	for _, r := range ruleSet {
		state := "inactive"
		if r.Active {
			state = "active"
		}
		fmt.Printf("  [%d] %-25s ext=%-8s action=%-8s %s\n", r.ID, r.Name, r.FileExtension, r.Action, state)
	}
}

func runRuleAdd(cmd *cobra.Command, args []string) {
	db := openDB()
	defer db.Close()

	now := time.Now().Unix()
	rule := models.CleaningRule{
		Name:          ruleName,
		FileExtension: ruleExt,
		Action:        models.BulkAction(ruleAction),
		Active:        ruleActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if olderThan > 0 {
		rule.OlderThanDays = &olderThan
	}
	if largerThan > 0 {
		rule.LargerThanMB = &largerThan
	}
	if folderPath != "" {
		rule.FolderPath = &folderPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := db.CreateRule(ctx, &rule)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created rule %d (%s)\n", id, rule.Name)
}

func runRuleToggle(cmd *cobra.Command, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid rule id %q\n", args[0])
		os.Exit(1)
	}

	db := openDB()
	defer db.Close()

	rule, err := db.GetRule(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if rule == nil {
		fmt.Fprintf(os.Stderr, "Error: rule %d not found\n", id)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.SetRuleActive(ctx, id, !rule.Active, time.Now().Unix()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rule %d is now active=%t\n", id, !rule.Active)
}

func runRuleDelete(cmd *cobra.Command, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid rule id %q\n", args[0])
		os.Exit(1)
	}

	db := openDB()
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.DeleteRule(ctx, id); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted rule %d\n", id)
}

func runAward(cmd *cobra.Command, args []string) {
	db := openDB()
	defer db.Close()

	recorder := progress.NewRecorder(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	award, err := recorder.Award(ctx, userEmail, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Awarded %d points for %s\n", award.Points, award.Reason)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("db") || cfg.Database.Path == "" {
		cfg.Database.Path = dbPath
	}
	if err := logger.Configure(cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	recorder := progress.NewRecorder(db)

	var ai *assistant.Assistant
	if cfg.Assistant.Endpoint != "" {
		ai = assistant.New(assistant.NewHTTPInvoker(cfg.Assistant.Endpoint, cfg.Assistant.APIKey))
		log.WithField("endpoint", cfg.Assistant.Endpoint).Info("Assistant enabled")
	}

	srv := server.New(cfg, db, server.Options{
		UserEmail: userEmail,
		Assistant: ai,
	})

	sched := schedule.New(db, schedule.Config{
		UserEmail: userEmail,
		Run: func(ctx context.Context, sc *models.ScheduledCleaning) {
			runScheduledCleaning(ctx, db, recorder, sc, nil)
		},
	})
	sched.Start()
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.WithError(err).Warn("Shutdown was not clean")
		}
	}
}

// runScheduledCleaning drives one unattended scan/clean cycle for a due
// schedule. The scan applies the user's active cleaning rules when any
// exist, and the selection is narrowed to the schedule's configured
// categories. Only auto-clean schedules commit a session; the rest simply
// refresh the scan so the next visit shows current results.
func runScheduledCleaning(ctx context.Context, db *store.DB, recorder *progress.Recorder, sc *models.ScheduledCleaning, source catalog.Source) {
	machine := scan.New(scan.Config{
		UserEmail: sc.UserEmail,
		Source:    source,
		Sink: func(session models.CleaningSession) {
			commitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := recorder.CommitSession(commitCtx, session); err != nil {
				log.WithError(err).Error("Scheduled cleaning commit failed")
			}
		},
	})

	activeRules, err := db.ListRules(true)
	if err != nil {
		log.WithError(err).Error("Failed to load rules for scheduled cleaning")
		return
	}
	if len(activeRules) == 0 {
		// No rules to apply; scan the full catalog.
		activeRules = nil
	}

	if err := machine.StartScan(activeRules); err != nil {
		log.WithError(err).Error("Scheduled scan failed to start")
		return
	}
	for machine.Stage() == scan.StageScanning {
		if ctx.Err() != nil {
			machine.Reset()
			return
		}
		machine.Tick()
	}

	if len(sc.Categories) > 0 {
		allowed := make(map[string]bool, len(sc.Categories))
		for _, category := range sc.Categories {
			allowed[category] = true
		}
		var ids []string
		for _, item := range machine.Items() {
			if allowed[item.Category] {
				ids = append(ids, item.ID)
			}
		}
		if err := machine.SetSelection(ids); err != nil {
			log.WithError(err).Error("Failed to scope scheduled selection")
			return
		}
	}

	if !sc.AutoClean || machine.SelectedCount() == 0 {
		return
	}

	if err := machine.StartCleaning(models.ActionDelete); err != nil {
		log.WithError(err).Error("Scheduled cleaning failed to start")
		return
	}
	for machine.Stage() == scan.StageCleaning {
		if ctx.Err() != nil {
			machine.Reset()
			return
		}
		machine.Tick()
	}
}

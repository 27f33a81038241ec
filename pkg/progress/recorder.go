package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/store"
	"github.com/sirupsen/logrus"
)

// PointsFor maps a ledger reason to its award amount.
func PointsFor(reason string) (int, error) {
	switch reason {
	case ReasonCleanFiles:
		return PointsCleanTenFiles, nil
	case ReasonOrganizeFolder:
		return PointsOrganizeFolder, nil
	case ReasonDailyLogin:
		return PointsDailyLogin, nil
	case ReasonAIAnalysis:
		return PointsAIAnalysis, nil
	case ReasonShareFolder:
		return PointsShareFolder, nil
	}
	return 0, fmt.Errorf("unknown point reason: %q", reason)
}

// Recorder is the commit boundary between completed gamification events and
// the store. It loads the current snapshot, runs the pure aggregation, and
// persists the session record, updated progress, and any new achievements.
type Recorder struct {
	db *store.DB
}

// NewRecorder creates a Recorder backed by db.
func NewRecorder(db *store.DB) *Recorder {
	return &Recorder{db: db}
}

// CommitSession persists one completed cleaning session and everything that
// follows from it. Returns the outcome so callers can surface newly earned
// badges.
func (r *Recorder) CommitSession(ctx context.Context, session models.CleaningSession) (*Outcome, error) {
	current, err := r.db.GetOrCreateProgress(ctx, session.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	earned, err := r.db.EarnedBadges(session.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load earned badges: %w", err)
	}

	outcome := ApplySessionCompletion(*current, session, earned, time.Now())

	if _, err := r.db.InsertSession(ctx, &session); err != nil {
		return nil, fmt.Errorf("failed to record session: %w", err)
	}
	if err := r.db.SaveProgress(ctx, &outcome.Progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	if err := r.db.InsertAchievements(ctx, outcome.NewAchievements); err != nil {
		return nil, fmt.Errorf("failed to record achievements: %w", err)
	}

	log.WithFields(logrus.Fields{
		"user":      session.UserEmail,
		"newBadges": len(outcome.NewAchievements),
	}).Info("Session committed")

	return &outcome, nil
}

// RecordFolders credits organized folders and persists any achievements
// that crossing a folder milestone earns.
func (r *Recorder) RecordFolders(ctx context.Context, userEmail string, count int) (*Outcome, error) {
	current, err := r.db.GetOrCreateProgress(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	earned, err := r.db.EarnedBadges(userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load earned badges: %w", err)
	}

	outcome := ApplyFoldersOrganized(*current, count, earned, time.Now())

	if err := r.db.SaveProgress(ctx, &outcome.Progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	if err := r.db.InsertAchievements(ctx, outcome.NewAchievements); err != nil {
		return nil, fmt.Errorf("failed to record achievements: %w", err)
	}

	return &outcome, nil
}

// Award credits points for one action, both on the progress counters and in
// the durable ledger.
func (r *Recorder) Award(ctx context.Context, userEmail, reason string) (*models.PointAward, error) {
	amount, err := PointsFor(reason)
	if err != nil {
		return nil, err
	}

	current, err := r.db.GetOrCreateProgress(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	updated, award := AwardPoints(*current, amount, reason, time.Now())

	if err := r.db.SaveProgress(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	if err := r.db.InsertAward(ctx, &award); err != nil {
		return nil, fmt.Errorf("failed to record award: %w", err)
	}

	return &award, nil
}

// Progress returns a user's progress with the streak reconciled against the
// current date. A lapsed streak is zeroed and persisted before returning.
func (r *Recorder) Progress(ctx context.Context, userEmail string) (*models.UserProgress, error) {
	current, err := r.db.GetOrCreateProgress(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	reconciled := ReconcileStreak(*current, time.Now())
	if reconciled.CurrentStreak != current.CurrentStreak {
		if err := r.db.SaveProgress(ctx, &reconciled); err != nil {
			return nil, fmt.Errorf("failed to persist reconciled streak: %w", err)
		}
	}

	return &reconciled, nil
}

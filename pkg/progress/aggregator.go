// Package progress maintains a user's lifetime counters and derived
// gamification state.
//
// Every operation takes an explicit UserProgress snapshot and returns an
// updated one plus the records the caller should persist; nothing here holds
// ambient per-user state.
package progress

import (
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/achieve"
	"github.com/calmstack/declutter/pkg/logger"
	"github.com/sirupsen/logrus"
)

var log *logrus.Entry

func init() {
	log = logger.WithName("progress")
}

// Point award amounts, by action.
const (
	PointsCleanTenFiles  = 10
	PointsOrganizeFolder = 15
	PointsDailyLogin     = 5
	PointsAIAnalysis     = 25
	PointsShareFolder    = 20
)

// Point award reasons recorded in the ledger.
const (
	ReasonCleanFiles     = "clean_files"
	ReasonOrganizeFolder = "organize_folder"
	ReasonDailyLogin     = "daily_login"
	ReasonAIAnalysis     = "ai_analysis"
	ReasonShareFolder    = "share_folder"
)

const dateLayout = "2006-01-02"

// Outcome carries the updated snapshot and the side effects the caller is
// responsible for persisting.
type Outcome struct {
	Progress        models.UserProgress
	NewAchievements []models.Achievement
}

// ApplySessionCompletion folds one completed session into the lifetime
// counters, updates the streak, and evaluates badge unlocks using the
// pre-event snapshot (evaluate-before-mutate, so milestone badges
// edge-trigger correctly).
func ApplySessionCompletion(p models.UserProgress, session models.CleaningSession, earned map[string]bool, now time.Time) Outcome {
	before := p

	p.TotalFilesCleaned += session.FilesCleaned
	p.TotalSpaceFreedMB += session.SpaceFreedMB
	p.SessionsCompleted++
	p = advanceStreak(p, now)
	p.UpdatedAt = now.Unix()

	unlocked := achieve.Evaluate(&before, &p, &session, earned, now)

	log.WithFields(logrus.Fields{
		"user":         p.UserEmail,
		"filesCleaned": session.FilesCleaned,
		"spaceFreedMB": session.SpaceFreedMB,
		"streak":       p.CurrentStreak,
		"newBadges":    len(unlocked),
	}).Info("Applied session completion")

	return Outcome{Progress: p, NewAchievements: unlocked}
}

// ApplyFoldersOrganized adds organized folders to the lifetime counter and
// evaluates the organizing badges.
func ApplyFoldersOrganized(p models.UserProgress, count int, earned map[string]bool, now time.Time) Outcome {
	if count <= 0 {
		return Outcome{Progress: p}
	}

	before := p
	p.FoldersOrganized += count
	p.UpdatedAt = now.Unix()

	unlocked := achieve.Evaluate(&before, &p, nil, earned, now)
	return Outcome{Progress: p, NewAchievements: unlocked}
}

// AwardPoints credits points to the running and weekly totals and returns
// the ledger record. Level is deliberately untouched: it is supplied by an
// external process and re-read from storage, never recomputed here.
func AwardPoints(p models.UserProgress, amount int, reason string, now time.Time) (models.UserProgress, models.PointAward) {
	p.TotalPoints += amount
	p.PointsThisWeek += amount
	p.UpdatedAt = now.Unix()

	award := models.PointAward{
		UserEmail: p.UserEmail,
		Reason:    reason,
		Points:    amount,
		AwardedAt: now.Unix(),
	}
	return p, award
}

// ResetWeeklyPoints zeroes the weekly total. The week-boundary schedule
// itself belongs to an external process; this is the hook it calls.
func ResetWeeklyPoints(p models.UserProgress, now time.Time) models.UserProgress {
	p.PointsThisWeek = 0
	p.UpdatedAt = now.Unix()
	return p
}

// ProgressToNextLevel returns the fraction of the way to the next level:
// (total points mod level*100) / (level*100), always within [0, 1).
func ProgressToNextLevel(p models.UserProgress) float64 {
	level := p.Level
	if level < 1 {
		level = 1
	}
	span := level * 100
	return float64(p.TotalPoints%span) / float64(span)
}

// ReconcileStreak zeroes the current streak when more than one calendar day
// has elapsed since the last counted session. Intended to run on read paths
// so a lapsed streak does not display stale.
func ReconcileStreak(p models.UserProgress, now time.Time) models.UserProgress {
	if p.LastCleaningDate == "" || p.CurrentStreak == 0 {
		return p
	}
	if daysBetween(p.LastCleaningDate, now.Format(dateLayout)) > 1 {
		p.CurrentStreak = 0
	}
	return p
}

// advanceStreak applies the streak policy for a session completing at now:
// a second session on the same calendar day leaves the streak unchanged; a
// session on the day immediately after the last counted day extends it; any
// larger gap restarts the streak at 1.
func advanceStreak(p models.UserProgress, now time.Time) models.UserProgress {
	today := now.Format(dateLayout)

	switch {
	case p.LastCleaningDate == today:
		// Already counted today.
	case p.LastCleaningDate != "" && daysBetween(p.LastCleaningDate, today) == 1:
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}

	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	p.LastCleaningDate = today
	return p
}

// daysBetween returns the number of calendar days from one YYYY-MM-DD date
// to another. Unparseable dates count as an arbitrarily large gap, which
// restarts the streak rather than extending it.
func daysBetween(from, to string) int {
	a, err := time.Parse(dateLayout, from)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	b, err := time.Parse(dateLayout, to)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return int(b.Sub(a).Hours() / 24)
}

package achieve

import (
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/logger"
	"github.com/sirupsen/logrus"
)

var log *logrus.Entry

func init() {
	log = logger.WithName("achieve")
}

// Evaluate determines which badges newly unlock for a user.
//
// before and after are the UserProgress snapshots from either side of the
// triggering event; the caller must capture before prior to mutating the
// lifetime counters. session is the completion record that triggered the
// evaluation, or nil for non-session actions (folder organizing, point
// awards). earned is the set of badge names already recorded for the user.
//
// Lifetime-counter badges are strictly edge-triggered: awarded only when the
// counter crosses the requirement on this event. Session and streak badges
// are re-checked idempotently against the earned set. Regardless of kind, a
// badge already in earned is never awarded again.
func Evaluate(before, after *models.UserProgress, session *models.CleaningSession, earned map[string]bool, now time.Time) []models.Achievement {
	var unlocked []models.Achievement

	for _, badge := range Badges {
		if earned[badge.Name] {
			continue
		}

		var award bool
		switch badge.Kind {
		case KindLifetime:
			pre := counterValue(before, badge.Counter)
			post := counterValue(after, badge.Counter)
			award = post >= badge.Requirement && pre < badge.Requirement
		case KindSession:
			award = session != nil && session.SpaceFreedMB >= badge.Requirement
		case KindStreak:
			award = float64(after.CurrentStreak) >= badge.Requirement
		}

		if !award {
			continue
		}

		log.WithFields(logrus.Fields{
			"user":  after.UserEmail,
			"badge": badge.Name,
		}).Info("Badge unlocked")

		unlocked = append(unlocked, models.Achievement{
			UserEmail:   after.UserEmail,
			BadgeName:   badge.Name,
			BadgeIcon:   badge.Icon,
			Description: badge.Description,
			Category:    badge.Category,
			EarnedAt:    now.Unix(),
		})
	}

	return unlocked
}

// EarnedSet builds the badge-name membership set from existing achievements.
func EarnedSet(achievements []models.Achievement) map[string]bool {
	earned := make(map[string]bool, len(achievements))
	for _, a := range achievements {
		earned[a.BadgeName] = true
	}
	return earned
}

func counterValue(p *models.UserProgress, c Counter) float64 {
	switch c {
	case CounterFilesCleaned:
		return float64(p.TotalFilesCleaned)
	case CounterSpaceFreed:
		return p.TotalSpaceFreedMB
	case CounterSessions:
		return float64(p.SessionsCompleted)
	case CounterFolders:
		return float64(p.FoldersOrganized)
	case CounterStreak:
		return float64(p.CurrentStreak)
	}
	return 0
}

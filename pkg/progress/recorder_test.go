package progress

import (
	"context"
	"testing"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecorder(t *testing.T) (*Recorder, *store.DB) {
	t.Helper()
	db, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRecorder(db), db
}

func TestCommitSessionPersistsEverything(t *testing.T) {
	r, db := newRecorder(t)
	ctx := context.Background()

	outcome, err := r.CommitSession(ctx, models.CleaningSession{
		UserEmail:    "test@example.com",
		FilesScanned: 12,
		FilesCleaned: 12,
		SpaceFreedMB: 450,
		Action:       models.ActionDelete,
		CompletedAt:  time.Now().Unix(),
	})
	require.NoError(t, err)

	// 12 files crosses the first milestone.
	require.Len(t, outcome.NewAchievements, 1)
	assert.Equal(t, "First Steps", outcome.NewAchievements[0].BadgeName)

	saved, err := db.GetProgress("test@example.com")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 12, saved.TotalFilesCleaned)
	assert.Equal(t, 1, saved.SessionsCompleted)
	assert.Equal(t, 1, saved.CurrentStreak)

	sessions, err := db.ListSessions("test@example.com", 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	earned, err := db.EarnedBadges("test@example.com")
	require.NoError(t, err)
	assert.True(t, earned["First Steps"])
}

func TestCommitSessionDoesNotReawardBadges(t *testing.T) {
	r, db := newRecorder(t)
	ctx := context.Background()

	session := models.CleaningSession{
		UserEmail:    "test@example.com",
		FilesCleaned: 12,
		SpaceFreedMB: 100,
		Action:       models.ActionDelete,
		CompletedAt:  time.Now().Unix(),
	}

	first, err := r.CommitSession(ctx, session)
	require.NoError(t, err)
	require.Len(t, first.NewAchievements, 1)

	second, err := r.CommitSession(ctx, session)
	require.NoError(t, err)
	for _, a := range second.NewAchievements {
		assert.NotEqual(t, "First Steps", a.BadgeName)
	}

	achievements, err := db.ListAchievements("test@example.com")
	require.NoError(t, err)
	names := make(map[string]int)
	for _, a := range achievements {
		names[a.BadgeName]++
	}
	assert.Equal(t, 1, names["First Steps"])
}

func TestRecordFolders(t *testing.T) {
	r, db := newRecorder(t)
	ctx := context.Background()

	outcome, err := r.RecordFolders(ctx, "test@example.com", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, outcome.Progress.FoldersOrganized)

	require.Len(t, outcome.NewAchievements, 1)
	assert.Equal(t, "Folder Whisperer", outcome.NewAchievements[0].BadgeName)

	saved, err := db.GetProgress("test@example.com")
	require.NoError(t, err)
	assert.Equal(t, 10, saved.FoldersOrganized)
}

func TestAwardWritesLedger(t *testing.T) {
	r, db := newRecorder(t)
	ctx := context.Background()

	award, err := r.Award(ctx, "test@example.com", ReasonAIAnalysis)
	require.NoError(t, err)
	assert.Equal(t, PointsAIAnalysis, award.Points)

	saved, err := db.GetProgress("test@example.com")
	require.NoError(t, err)
	assert.Equal(t, PointsAIAnalysis, saved.TotalPoints)
	assert.Equal(t, PointsAIAnalysis, saved.PointsThisWeek)

	awards, err := db.ListAwards("test@example.com", 0)
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, ReasonAIAnalysis, awards[0].Reason)
}

func TestAwardUnknownReason(t *testing.T) {
	r, _ := newRecorder(t)

	_, err := r.Award(context.Background(), "test@example.com", "found_a_penny")
	assert.Error(t, err)
}

func TestProgressReconcilesLapsedStreak(t *testing.T) {
	r, db := newRecorder(t)
	ctx := context.Background()

	stale := &models.UserProgress{
		UserEmail:        "test@example.com",
		CurrentStreak:    6,
		LongestStreak:    6,
		Level:            1,
		LastCleaningDate: time.Now().AddDate(0, 0, -3).Format("2006-01-02"),
		UpdatedAt:        time.Now().Unix(),
	}
	require.NoError(t, db.SaveProgress(ctx, stale))

	p, err := r.Progress(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.Equal(t, 6, p.LongestStreak)

	// The zeroed streak was persisted, not just returned.
	saved, err := db.GetProgress("test@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, saved.CurrentStreak)
}

func TestPointsFor(t *testing.T) {
	got, err := PointsFor(ReasonDailyLogin)
	require.NoError(t, err)
	assert.Equal(t, PointsDailyLogin, got)

	got, err = PointsFor(ReasonShareFolder)
	require.NoError(t, err)
	assert.Equal(t, PointsShareFolder, got)

	_, err = PointsFor("mystery")
	assert.Error(t, err)
}

package scan

import (
	"context"
	"testing"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/catalog"
	"github.com/calmstack/declutter/pkg/prefs"
	"github.com/calmstack/declutter/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []models.FlaggedItem {
	return []models.FlaggedItem{
		{ID: "1", Name: "a.tmp", SizeMB: 100, Kind: models.KindCache, Category: models.CategoryTempFiles},
		{ID: "2", Name: "b.log", SizeMB: 200, Kind: models.KindDocument, Category: models.CategoryOldFiles},
		{ID: "3", Name: "c.zip", SizeMB: 300, Kind: models.KindArchive, Category: models.CategoryOldBackups},
	}
}

func newTestMachine(t *testing.T, sink Sink) *Machine {
	t.Helper()
	return New(Config{
		UserEmail: "test@example.com",
		Source:    catalog.NewStatic(testItems()),
		Sink:      sink,
	})
}

// tickUntil advances the machine until the given stage is reached, with a
// generous bound so a broken transition fails instead of hanging.
func tickUntil(t *testing.T, m *Machine, stage Stage) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if m.Tick() == stage {
			return
		}
	}
	t.Fatalf("machine never reached stage %q, stuck at %q", stage, m.Stage())
}

func TestScanAdvancesByTwoAndClamps(t *testing.T) {
	m := newTestMachine(t, nil)
	require.NoError(t, m.StartScan(nil))
	assert.Equal(t, StageScanning, m.Stage())

	m.Tick()
	assert.Equal(t, 2, m.ScanProgress())
	m.Tick()
	assert.Equal(t, 4, m.ScanProgress())

	tickUntil(t, m, StageResults)
	assert.Equal(t, 100, m.ScanProgress())
	assert.Len(t, m.Items(), 3)
}

func TestScanSelectsEverythingOnCompletion(t *testing.T) {
	m := newTestMachine(t, nil)
	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)

	assert.Equal(t, 3, m.SelectedCount())
	assert.Equal(t, []string{"1", "2", "3"}, m.SelectedIDs())
	assert.InDelta(t, 600.0, m.SelectedSizeMB(), 0.001)
}

func TestCompressAccountsFortyPercent(t *testing.T) {
	var got *models.CleaningSession
	m := newTestMachine(t, func(s models.CleaningSession) { got = &s })

	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)
	require.NoError(t, m.StartCleaning(models.ActionCompress))
	tickUntil(t, m, StageComplete)

	require.NotNil(t, got)
	assert.Equal(t, 3, got.FilesCleaned)
	assert.InDelta(t, 240.0, got.SpaceFreedMB, 0.001)
	assert.Equal(t, models.ActionCompress, got.Action)
}

func TestDeleteAccountsFullSize(t *testing.T) {
	var got *models.CleaningSession
	m := newTestMachine(t, func(s models.CleaningSession) { got = &s })

	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)
	require.NoError(t, m.StartCleaning(models.ActionDelete))
	tickUntil(t, m, StageComplete)

	require.NotNil(t, got)
	assert.InDelta(t, 600.0, got.SpaceFreedMB, 0.001)
	assert.Equal(t, 3, got.FilesScanned)
	assert.Equal(t, 3, got.FilesCleaned)
	assert.GreaterOrEqual(t, got.DurationMinutes, 1)
}

func TestEmptySelectionRejected(t *testing.T) {
	emitted := 0
	m := newTestMachine(t, func(models.CleaningSession) { emitted++ })

	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)

	require.NoError(t, m.SetSelection(nil))
	assert.Equal(t, 0, m.SelectedCount())

	err := m.StartCleaning(models.ActionDelete)
	require.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, StageResults, m.Stage())
	assert.Equal(t, 0, emitted)
}

func TestResetDuringCleaningEmitsNothing(t *testing.T) {
	emitted := 0
	m := newTestMachine(t, func(models.CleaningSession) { emitted++ })

	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)
	require.NoError(t, m.StartCleaning(models.ActionDelete))

	for i := 0; i < 57; i++ {
		m.Tick()
	}
	assert.Equal(t, 57, m.CleaningProgress())

	m.Reset()
	assert.Equal(t, StageIdle, m.Stage())
	assert.Equal(t, 0, m.CleaningProgress())

	// Stray ticks after the reset must not resurrect the cycle.
	for i := 0; i < 150; i++ {
		m.Tick()
	}
	assert.Equal(t, StageIdle, m.Stage())
	assert.Equal(t, 0, emitted)
}

func TestSessionEmittedExactlyOnce(t *testing.T) {
	emitted := 0
	m := newTestMachine(t, func(models.CleaningSession) { emitted++ })

	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)
	require.NoError(t, m.StartCleaning(models.ActionArchive))
	tickUntil(t, m, StageComplete)

	for i := 0; i < 50; i++ {
		m.Tick()
	}
	assert.Equal(t, 1, emitted)
	assert.Equal(t, StageComplete, m.Stage())
}

func TestToggleSelectionNarrowsAccounting(t *testing.T) {
	var got *models.CleaningSession
	m := newTestMachine(t, func(s models.CleaningSession) { got = &s })

	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)

	require.NoError(t, m.ToggleSelection("2"))
	assert.Equal(t, []string{"1", "3"}, m.SelectedIDs())
	assert.InDelta(t, 400.0, m.SelectedSizeMB(), 0.001)

	require.NoError(t, m.StartCleaning(models.ActionDelete))
	tickUntil(t, m, StageComplete)

	require.NotNil(t, got)
	assert.Equal(t, 2, got.FilesCleaned)
	assert.InDelta(t, 400.0, got.SpaceFreedMB, 0.001)
	assert.Equal(t, 3, got.FilesScanned)
}

func TestToggleUnknownIDIgnored(t *testing.T) {
	m := newTestMachine(t, nil)
	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)

	require.NoError(t, m.ToggleSelection("no-such-id"))
	assert.Equal(t, 3, m.SelectedCount())
}

func TestSetSelectionDropsUnknownIDs(t *testing.T) {
	m := newTestMachine(t, nil)
	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)

	require.NoError(t, m.SetSelection([]string{"1", "ghost", "3"}))
	assert.Equal(t, []string{"1", "3"}, m.SelectedIDs())
}

func TestItemDeleteRemovesFromResults(t *testing.T) {
	recorder := prefs.NewLog()
	m := New(Config{
		UserEmail: "test@example.com",
		Source:    catalog.NewStatic(testItems()),
		Recorder:  recorder,
	})

	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)

	require.NoError(t, m.ItemAction("1", models.ActionDelete))
	assert.Len(t, m.Items(), 2)
	assert.Equal(t, []string{"2", "3"}, m.SelectedIDs())

	entries := recorder.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "delete", entries[0].Action)
	assert.Equal(t, string(models.KindCache), entries[0].FileType)
	assert.Equal(t, models.CategoryTempFiles, entries[0].Category)
}

func TestItemArchiveRecordsWithoutRemoving(t *testing.T) {
	recorder := prefs.NewLog()
	m := New(Config{
		UserEmail: "test@example.com",
		Source:    catalog.NewStatic(testItems()),
		Recorder:  recorder,
	})

	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)

	require.NoError(t, m.ItemAction("2", models.ActionArchive))
	assert.Len(t, m.Items(), 3)
	assert.Equal(t, 3, m.SelectedCount())
	assert.Equal(t, 1, recorder.Len())
}

func TestItemActionUnknownID(t *testing.T) {
	m := newTestMachine(t, nil)
	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)

	err := m.ItemAction("ghost", models.ActionDelete)
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestRuleFilteredScan(t *testing.T) {
	items := []models.FlaggedItem{
		{ID: "1", Name: "a.tmp", SizeMB: 10, Category: models.CategoryTempFiles},
		{ID: "2", Name: "b.log", SizeMB: 100, Category: models.CategoryTempFiles},
		{ID: "3", Name: "c.log", SizeMB: 600, Category: models.CategoryTempFiles},
	}
	minSize := 500.0
	ruleSet := []models.CleaningRule{
		{ID: 1, Name: "tmp", FileExtension: ".tmp", Action: models.ActionDelete, Active: true},
		{ID: 2, Name: "big logs", FileExtension: ".log", LargerThanMB: &minSize, Action: models.ActionDelete, Active: true},
	}

	m := New(Config{
		UserEmail: "test@example.com",
		Source:    catalog.NewStatic(items),
	})
	require.NoError(t, m.StartScan(ruleSet))
	tickUntil(t, m, StageResults)

	result := m.Items()
	require.Len(t, result, 2)
	assert.Equal(t, "a.tmp", result[0].Name)
	assert.Equal(t, "c.log", result[1].Name)
}

func TestScanWithNoActiveRulesRejected(t *testing.T) {
	m := newTestMachine(t, nil)
	ruleSet := []models.CleaningRule{
		{ID: 1, Name: "off", FileExtension: ".tmp", Action: models.ActionDelete, Active: false},
	}

	err := m.StartScan(ruleSet)
	require.ErrorIs(t, err, rules.ErrNoActiveRules)
	assert.Equal(t, StageIdle, m.Stage())
}

func TestStartScanWhileRunningRejected(t *testing.T) {
	m := newTestMachine(t, nil)
	require.NoError(t, m.StartScan(nil))
	m.Tick()

	err := m.StartScan(nil)
	assert.ErrorIs(t, err, ErrScanInProgress)
}

func TestSelectionOutsideResultsRejected(t *testing.T) {
	m := newTestMachine(t, nil)

	assert.ErrorIs(t, m.ToggleSelection("1"), ErrNotInResults)
	assert.ErrorIs(t, m.StartCleaning(models.ActionDelete), ErrNotInResults)

	require.NoError(t, m.StartScan(nil))
	assert.ErrorIs(t, m.SetSelection([]string{"1"}), ErrNotInResults)
}

func TestInvalidActionRejected(t *testing.T) {
	m := newTestMachine(t, nil)
	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)

	assert.ErrorIs(t, m.StartCleaning(models.BulkAction("shred")), ErrInvalidAction)
	assert.ErrorIs(t, m.ItemAction("1", models.BulkAction("shred")), ErrInvalidAction)
}

func TestEstimatedSpaceFreed(t *testing.T) {
	m := newTestMachine(t, nil)
	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)

	assert.InDelta(t, 600.0, m.EstimatedSpaceFreedMB(models.ActionDelete), 0.001)
	assert.InDelta(t, 240.0, m.EstimatedSpaceFreedMB(models.ActionCompress), 0.001)
}

func TestSessionCategoriesDeduplicated(t *testing.T) {
	items := []models.FlaggedItem{
		{ID: "1", Name: "a", SizeMB: 1, Category: models.CategoryTempFiles},
		{ID: "2", Name: "b", SizeMB: 1, Category: models.CategoryTempFiles},
		{ID: "3", Name: "c", SizeMB: 1, Category: models.CategoryOldBackups},
	}
	var got *models.CleaningSession
	m := New(Config{
		UserEmail: "test@example.com",
		Source:    catalog.NewStatic(items),
		Sink:      func(s models.CleaningSession) { got = &s },
	})

	require.NoError(t, m.StartScan(nil))
	tickUntil(t, m, StageResults)
	require.NoError(t, m.StartCleaning(models.ActionDelete))
	tickUntil(t, m, StageComplete)

	require.NotNil(t, got)
	assert.Equal(t, []string{models.CategoryTempFiles, models.CategoryOldBackups}, got.Categories)
}

func TestRunDrivesScanToResults(t *testing.T) {
	m := newTestMachine(t, nil)
	require.NoError(t, m.StartScan(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Run(ctx, time.Millisecond)

	assert.Equal(t, StageResults, m.Stage())
	assert.Equal(t, 100, m.ScanProgress())
}

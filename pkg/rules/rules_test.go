package rules

import (
	"os"
	"testing"

	"github.com/calmstack/declutter/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("GO_ENV", "test")
	os.Exit(m.Run())
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
func strPtr(s string) *string     { return &s }

func TestFilterIsOrAcrossRulesAndAcrossFields(t *testing.T) {
	ruleSet := []models.CleaningRule{
		{Name: "tmp", FileExtension: ".tmp", LargerThanMB: floatPtr(0), Action: models.ActionDelete, Active: true},
		{Name: "big-logs", FileExtension: ".log", LargerThanMB: floatPtr(500), Action: models.ActionDelete, Active: true},
	}
	items := []models.FlaggedItem{
		{ID: "1", Name: "a.tmp", SizeMB: 10},
		{ID: "2", Name: "b.log", SizeMB: 100},
		{ID: "3", Name: "c.log", SizeMB: 600},
	}

	matched, err := Filter(items, ruleSet)
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "a.tmp", matched[0].Name)
	assert.Equal(t, "c.log", matched[1].Name)
}

func TestFilterWildcardExtension(t *testing.T) {
	ruleSet := []models.CleaningRule{
		{Name: "anything-big", FileExtension: "*", LargerThanMB: floatPtr(200), Action: models.ActionArchive, Active: true},
	}
	items := []models.FlaggedItem{
		{ID: "1", Name: "small.txt", SizeMB: 50},
		{ID: "2", Name: "big-cache", SizeMB: 500},
	}

	matched, err := Filter(items, ruleSet)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "big-cache", matched[0].Name)
}

func TestFilterUnsetThresholdsMeanNoConstraint(t *testing.T) {
	ruleSet := []models.CleaningRule{
		{Name: "all-tmp", FileExtension: ".tmp", Action: models.ActionDelete, Active: true},
	}
	items := []models.FlaggedItem{
		{ID: "1", Name: "tiny.tmp", SizeMB: 0},
		{ID: "2", Name: "old.tmp", SizeMB: 9999, AgeDays: 10000},
	}

	matched, err := Filter(items, ruleSet)
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}

func TestFilterAgeConstraint(t *testing.T) {
	ruleSet := []models.CleaningRule{
		{Name: "stale", FileExtension: "*", OlderThanDays: intPtr(30), Action: models.ActionDelete, Active: true},
	}
	items := []models.FlaggedItem{
		{ID: "1", Name: "fresh.log", AgeDays: 5},
		{ID: "2", Name: "stale.log", AgeDays: 45},
	}

	matched, err := Filter(items, ruleSet)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "stale.log", matched[0].Name)
}

func TestFilterFolderScope(t *testing.T) {
	ruleSet := []models.CleaningRule{
		{Name: "downloads", FileExtension: "*", FolderPath: strPtr("/downloads"), Action: models.ActionDelete, Active: true},
	}
	items := []models.FlaggedItem{
		{ID: "1", Name: "a.zip", Folder: "/downloads/archives"},
		{ID: "2", Name: "b.zip", Folder: "/documents"},
	}

	matched, err := Filter(items, ruleSet)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "a.zip", matched[0].Name)
}

func TestFilterIgnoresInactiveRules(t *testing.T) {
	ruleSet := []models.CleaningRule{
		{Name: "off", FileExtension: "*", Action: models.ActionDelete, Active: false},
	}
	_, err := Filter([]models.FlaggedItem{{ID: "1", Name: "a.tmp"}}, ruleSet)
	assert.ErrorIs(t, err, ErrNoActiveRules)
}

func TestFilterNoRules(t *testing.T) {
	_, err := Filter([]models.FlaggedItem{{ID: "1"}}, nil)
	assert.ErrorIs(t, err, ErrNoActiveRules)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    models.CleaningRule
		wantErr bool
	}{
		{"valid", models.CleaningRule{Name: "r", FileExtension: ".tmp", Action: models.ActionDelete}, false},
		{"valid wildcard", models.CleaningRule{Name: "r", FileExtension: "*", Action: models.ActionCompress}, false},
		{"empty extension", models.CleaningRule{Name: "r", Action: models.ActionDelete}, true},
		{"negative age", models.CleaningRule{Name: "r", FileExtension: "*", OlderThanDays: intPtr(-1), Action: models.ActionDelete}, true},
		{"negative size", models.CleaningRule{Name: "r", FileExtension: "*", LargerThanMB: floatPtr(-5), Action: models.ActionDelete}, true},
		{"unknown action", models.CleaningRule{Name: "r", FileExtension: "*", Action: "shred"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.rule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

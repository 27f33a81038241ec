package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSpec(t *testing.T) {
	tests := []struct {
		name    string
		sched   models.ScheduledCleaning
		want    string
		wantErr bool
	}{
		{
			name:  "daily",
			sched: models.ScheduledCleaning{Frequency: "daily", TimeOfDay: "09:30"},
			want:  "30 9 * * *",
		},
		{
			name:  "weekly on sunday",
			sched: models.ScheduledCleaning{Frequency: "weekly", DayOfWeek: 0, TimeOfDay: "14:00"},
			want:  "0 14 * * 0",
		},
		{
			name:  "monthly on the first",
			sched: models.ScheduledCleaning{Frequency: "monthly", TimeOfDay: "06:15"},
			want:  "15 6 1 * *",
		},
		{
			name:    "bad frequency",
			sched:   models.ScheduledCleaning{Frequency: "hourly", TimeOfDay: "09:00"},
			wantErr: true,
		},
		{
			name:    "bad time",
			sched:   models.ScheduledCleaning{Frequency: "daily", TimeOfDay: "25:00"},
			wantErr: true,
		},
		{
			name:    "bad day of week",
			sched:   models.ScheduledCleaning{Frequency: "weekly", DayOfWeek: 9, TimeOfDay: "09:00"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CronSpec(&tt.sched)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextCleaningRun(t *testing.T) {
	// A Wednesday.
	after := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)

	sched := &models.ScheduledCleaning{Frequency: "daily", TimeOfDay: "09:00"}
	next, err := NextCleaningRun(sched, after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC), next)

	sched = &models.ScheduledCleaning{Frequency: "weekly", DayOfWeek: 0, TimeOfDay: "09:00"}
	next, err = NextCleaningRun(sched, after)
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, next.Weekday())
	assert.True(t, next.After(after))
}

func TestNextBackupRun(t *testing.T) {
	after := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)

	next, err := NextBackupRun("daily", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 5, 2, 0, 0, 0, time.UTC), next)

	next, err = NextBackupRun("monthly", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC), next)

	_, err = NextBackupRun("never", after)
	assert.Error(t, err)
}

func TestSchedulerDispatchesDueCleaning(t *testing.T) {
	db, err := store.New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveScheduledCleaning(ctx, &models.ScheduledCleaning{
		ID:        "s1",
		UserEmail: "test@example.com",
		Name:      "overdue sweep",
		Frequency: "daily",
		TimeOfDay: "09:00",
		Active:    true,
		NextRun:   time.Now().Add(-time.Hour).Unix(),
		CreatedAt: time.Now().Unix(),
	}))

	ran := make(chan string, 1)
	s := New(db, Config{
		UserEmail: "test@example.com",
		Run: func(ctx context.Context, sched *models.ScheduledCleaning) {
			ran <- sched.ID
		},
		PollInterval: 10 * time.Millisecond,
	})
	s.Start()
	defer s.Stop()

	select {
	case id := <-ran:
		assert.Equal(t, "s1", id)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled cleaning never ran")
	}

	s.Stop()

	schedules, err := db.ListScheduledCleanings("test@example.com")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Greater(t, schedules[0].NextRun, time.Now().Unix())
}

func TestSchedulerSkipsInactive(t *testing.T) {
	db, err := store.New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveScheduledCleaning(ctx, &models.ScheduledCleaning{
		ID:        "s1",
		UserEmail: "test@example.com",
		Name:      "disabled",
		Frequency: "daily",
		TimeOfDay: "09:00",
		Active:    false,
		NextRun:   time.Now().Add(-time.Hour).Unix(),
	}))

	ran := make(chan string, 1)
	s := New(db, Config{
		UserEmail: "test@example.com",
		Run: func(ctx context.Context, sched *models.ScheduledCleaning) {
			ran <- sched.ID
		},
		PollInterval: 10 * time.Millisecond,
	})
	s.Start()
	defer s.Stop()

	select {
	case <-ran:
		t.Fatal("inactive schedule should not run")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSchedulerDispatchesDueBackup(t *testing.T) {
	db, err := store.New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveBackupConfiguration(ctx, &models.BackupConfiguration{
		ID:         "b1",
		UserEmail:  "test@example.com",
		Name:       "nightly",
		BackupType: "incremental",
		Schedule:   "daily",
		Location:   "local",
		Active:     true,
		NextBackup: time.Now().Add(-time.Hour).Unix(),
	}))

	ran := make(chan string, 1)
	s := New(db, Config{
		UserEmail: "test@example.com",
		RunBackup: func(ctx context.Context, cfg *models.BackupConfiguration) {
			ran <- cfg.ID
		},
		PollInterval: 10 * time.Millisecond,
	})
	s.Start()
	defer s.Stop()

	select {
	case id := <-ran:
		assert.Equal(t, "b1", id)
	case <-time.After(5 * time.Second):
		t.Fatal("backup never ran")
	}

	s.Stop()

	configs, err := db.ListBackupConfigurations("test@example.com")
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.NotNil(t, configs[0].LastBackup)
	assert.Greater(t, configs[0].NextBackup, time.Now().Unix())
}

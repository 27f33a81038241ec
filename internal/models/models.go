package models

// BulkAction is the action applied to the selected items when a cleaning
// cycle runs, and the action a cleaning rule resolves to.
type BulkAction string

const (
	ActionDelete   BulkAction = "delete"
	ActionArchive  BulkAction = "archive"
	ActionCompress BulkAction = "compress"
)

// Valid reports whether a is one of the known bulk actions.
func (a BulkAction) Valid() bool {
	switch a {
	case ActionDelete, ActionArchive, ActionCompress:
		return true
	}
	return false
}

// CompressRetainedFraction is the fraction of the original size counted as
// freed space by the compress accounting convention (a nominal 60%
// reduction, so 40% of the pre-action size is what gets reported freed).
const CompressRetainedFraction = 0.4

// MediaKind classifies a flagged item for preview and preference learning.
type MediaKind string

const (
	KindDocument MediaKind = "document"
	KindImage    MediaKind = "image"
	KindCache    MediaKind = "cache"
	KindArchive  MediaKind = "archive"
	KindVideo    MediaKind = "video"
)

// Item categories surfaced by a scan.
const (
	CategoryOldFiles   = "Old Files"
	CategoryScreenshot = "Screenshots"
	CategoryTempFiles  = "Temporary Files"
	CategoryDuplicates = "Duplicates"
	CategoryCacheFiles = "Cache Files"
	CategoryOldBackups = "Old Backups"
	CategoryAppData    = "App Data"
)

// Categories lists every category a scan can surface.
func Categories() []string {
	return []string{
		CategoryOldFiles,
		CategoryScreenshot,
		CategoryTempFiles,
		CategoryDuplicates,
		CategoryCacheFiles,
		CategoryOldBackups,
		CategoryAppData,
	}
}

// FlaggedItem is one file-like entity a scan surfaced as removable.
type FlaggedItem struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	SizeMB   float64   `json:"size_mb"`
	Kind     MediaKind `json:"kind"`
	Category string    `json:"category"`
	Reason   string    `json:"reason"`
	AgeDays  int       `json:"age_days,omitempty"`
	Folder   string    `json:"folder,omitempty"`
}

// CleaningRule is a user-authored or AI-suggested predicate for
// auto-selecting files during a scan.
type CleaningRule struct {
	ID            int64      `db:"id" json:"id,omitempty"`
	Name          string     `db:"name" json:"name"`
	FileExtension string     `db:"file_extension" json:"file_extension"` // literal suffix or "*"
	OlderThanDays *int       `db:"older_than_days" json:"older_than_days,omitempty"`
	LargerThanMB  *float64   `db:"larger_than_mb" json:"larger_than_mb,omitempty"`
	FolderPath    *string    `db:"folder_path" json:"folder_path,omitempty"`
	Action        BulkAction `db:"action" json:"action"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     int64      `db:"created_at" json:"created_at"`
	UpdatedAt     int64      `db:"updated_at" json:"updated_at"`
}

// CleaningSession is the durable record of one completed clean cycle.
// It is created exactly once, when cleaning progress reaches 100, and is
// immutable afterwards.
type CleaningSession struct {
	ID              int64      `db:"id" json:"id,omitempty"`
	UserEmail       string     `db:"user_email" json:"user_email"`
	FilesScanned    int        `db:"files_scanned" json:"files_scanned"`
	FilesCleaned    int        `db:"files_cleaned" json:"files_cleaned"`
	SpaceFreedMB    float64    `db:"space_freed_mb" json:"space_freed_mb"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Action          BulkAction `db:"action" json:"action"`
	Categories      []string   `db:"-" json:"categories"`
	CompletedAt     int64      `db:"completed_at" json:"completed_at"`
}

// UserProgress holds the lifetime aggregate counters and derived
// gamification state for one user. Lifetime counters are monotonically
// non-decreasing. Level is supplied by an external process and never
// recomputed locally.
type UserProgress struct {
	UserEmail         string  `db:"user_email" json:"user_email"`
	TotalFilesCleaned int     `db:"total_files_cleaned" json:"total_files_cleaned"`
	TotalSpaceFreedMB float64 `db:"total_space_freed_mb" json:"total_space_freed_mb"`
	SessionsCompleted int     `db:"sessions_completed" json:"sessions_completed"`
	FoldersOrganized  int     `db:"folders_organized" json:"folders_organized"`
	CurrentStreak     int     `db:"current_streak" json:"current_streak"`
	LongestStreak     int     `db:"longest_streak" json:"longest_streak"`
	TotalPoints       int     `db:"total_points" json:"total_points"`
	PointsThisWeek    int     `db:"points_this_week" json:"points_this_week"`
	Level             int     `db:"level" json:"level"`
	LastCleaningDate  string  `db:"last_cleaning_date" json:"last_cleaning_date,omitempty"` // YYYY-MM-DD
	UpdatedAt         int64   `db:"updated_at" json:"updated_at"`
}

// Achievement records that a user unlocked a badge. At most one exists per
// (user, badge name) pair; records are never mutated or deleted.
type Achievement struct {
	ID          int64  `db:"id" json:"id,omitempty"`
	UserEmail   string `db:"user_email" json:"user_email"`
	BadgeName   string `db:"badge_name" json:"badge_name"`
	BadgeIcon   string `db:"badge_icon" json:"badge_icon"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category"` // milestone, cleaning, consistency, organizing
	EarnedAt    int64  `db:"earned_at" json:"earned_at"`
}

// LearnedPreference is one entry in the bounded log of past user actions,
// used only as prompt context for AI suggestions.
type LearnedPreference struct {
	ID        int64  `db:"id" json:"id,omitempty"`
	UserEmail string `db:"user_email" json:"user_email"`
	Action    string `db:"action" json:"action"`
	FileType  string `db:"file_type" json:"file_type"`
	Category  string `db:"category" json:"category"`
	Timestamp int64  `db:"timestamp" json:"timestamp"`
}

// MaxLearnedPreferences bounds the learned-preference log per user.
// Older entries are dropped first.
const MaxLearnedPreferences = 50

// PointAward is a ledger record of points earned for one action.
type PointAward struct {
	ID        int64  `db:"id" json:"id,omitempty"`
	UserEmail string `db:"user_email" json:"user_email"`
	Reason    string `db:"reason" json:"reason"`
	Points    int    `db:"points" json:"points"`
	AwardedAt int64  `db:"awarded_at" json:"awarded_at"`
}

// BackupConfiguration describes a user-scheduled backup.
type BackupConfiguration struct {
	ID         string `db:"id" json:"id"`
	UserEmail  string `db:"user_email" json:"user_email"`
	Name       string `db:"name" json:"name"`
	BackupType string `db:"backup_type" json:"backup_type"` // full, incremental, differential
	Schedule   string `db:"schedule" json:"schedule"`       // daily, weekly, monthly
	Location   string `db:"location" json:"location"`       // cloud, local, external
	Active     bool   `db:"active" json:"active"`
	LastBackup *int64 `db:"last_backup" json:"last_backup,omitempty"`
	NextBackup int64  `db:"next_backup" json:"next_backup"`
	CreatedAt  int64  `db:"created_at" json:"created_at"`
}

// ScheduledCleaning describes a recurring automatic scan/clean.
type ScheduledCleaning struct {
	ID         string   `db:"id" json:"id"`
	UserEmail  string   `db:"user_email" json:"user_email"`
	Name       string   `db:"name" json:"name"`
	Frequency  string   `db:"frequency" json:"frequency"`     // daily, weekly, monthly
	DayOfWeek  int      `db:"day_of_week" json:"day_of_week"` // 0=Sunday, weekly only
	TimeOfDay  string   `db:"time_of_day" json:"time_of_day"` // HH:MM
	AutoClean  bool     `db:"auto_clean" json:"auto_clean"`
	Categories []string `db:"-" json:"categories,omitempty"`
	Active     bool     `db:"active" json:"active"`
	NextRun    int64    `db:"next_run" json:"next_run"`
	CreatedAt  int64    `db:"created_at" json:"created_at"`
}

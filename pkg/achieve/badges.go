// Package achieve decides which badges a user newly unlocks after a
// completed session or other qualifying action.
package achieve

// PredicateKind classifies how a badge's requirement is evaluated.
type PredicateKind string

const (
	// KindLifetime awards on the transition of a lifetime counter from
	// below the requirement to at or above it (edge-triggered).
	KindLifetime PredicateKind = "lifetime"
	// KindSession awards when a single session meets the requirement.
	KindSession PredicateKind = "session"
	// KindStreak awards when the current streak meets the requirement.
	KindStreak PredicateKind = "streak"
)

// Counter names the UserProgress counter a badge requirement reads.
type Counter string

const (
	CounterFilesCleaned  Counter = "files_cleaned"
	CounterSpaceFreed    Counter = "space_freed_mb"
	CounterSessions      Counter = "sessions_completed"
	CounterFolders       Counter = "folders_organized"
	CounterStreak        Counter = "current_streak"
	CounterSessionFreed  Counter = "session_space_freed_mb"
)

// BadgeRule is a static badge definition. The table is configuration data,
// not computed, and is never persisted per-user.
type BadgeRule struct {
	Name        string
	Icon        string
	Description string
	Category    string
	Requirement float64
	Kind        PredicateKind
	Counter     Counter
}

// Badges is the fixed badge rule table.
var Badges = []BadgeRule{
	{
		Name:        "First Steps",
		Icon:        "🌱",
		Description: "Clean your first 10 files",
		Category:    "milestone",
		Requirement: 10,
		Kind:        KindLifetime,
		Counter:     CounterFilesCleaned,
	},
	{
		Name:        "Space Maker",
		Icon:        "🌟",
		Description: "Free over 1GB in a single session",
		Category:    "cleaning",
		Requirement: 1000,
		Kind:        KindSession,
		Counter:     CounterSessionFreed,
	},
	{
		Name:        "Zen Desktop",
		Icon:        "🧘",
		Description: "Complete 5 cleaning sessions",
		Category:    "consistency",
		Requirement: 5,
		Kind:        KindLifetime,
		Counter:     CounterSessions,
	},
	{
		Name:        "Folder Whisperer",
		Icon:        "📁",
		Description: "Organize 10 folders",
		Category:    "organizing",
		Requirement: 10,
		Kind:        KindLifetime,
		Counter:     CounterFolders,
	},
	{
		Name:        "Digital Minimalist",
		Icon:        "✨",
		Description: "Clean 100 files total",
		Category:    "milestone",
		Requirement: 100,
		Kind:        KindLifetime,
		Counter:     CounterFilesCleaned,
	},
	{
		Name:        "Week Warrior",
		Icon:        "🔥",
		Description: "Maintain a 7-day cleaning streak",
		Category:    "consistency",
		Requirement: 7,
		Kind:        KindStreak,
		Counter:     CounterStreak,
	},
	{
		Name:        "Space Guardian",
		Icon:        "🛡️",
		Description: "Free over 10GB total",
		Category:    "milestone",
		Requirement: 10000,
		Kind:        KindLifetime,
		Counter:     CounterSpaceFreed,
	},
	{
		Name:        "Organization Master",
		Icon:        "👑",
		Description: "Create 20 organized folders",
		Category:    "organizing",
		Requirement: 20,
		Kind:        KindLifetime,
		Counter:     CounterFolders,
	},
}

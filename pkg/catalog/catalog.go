// Package catalog supplies the candidate items a scan can surface.
//
// The scan pipeline never touches a real filesystem; it asks a Source for
// flagged items. The built-in simulated source stands in for filesystem
// enumeration so a real walker could be substituted without changing the
// state machine.
package catalog

import "github.com/calmstack/declutter/internal/models"

// Source enumerates the candidate items a scan considers.
type Source interface {
	// Items returns the full candidate set. Implementations must return a
	// fresh slice the caller may mutate.
	Items() []models.FlaggedItem
}

// Simulated is the built-in candidate source with a fixed catalog of items.
type Simulated struct{}

// NewSimulated returns the built-in simulated source.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Items returns a copy of the simulated candidate catalog.
func (s *Simulated) Items() []models.FlaggedItem {
	items := make([]models.FlaggedItem, len(simulatedItems))
	copy(items, simulatedItems)
	return items
}

var simulatedItems = []models.FlaggedItem{
	{
		ID:       "1",
		Name:     "old-presentation-2020.pptx",
		SizeMB:   45,
		Kind:     models.KindDocument,
		Category: models.CategoryOldFiles,
		Reason:   "This presentation is over 3 years old and hasn't been opened recently",
		AgeDays:  1460,
	},
	{
		ID:       "2",
		Name:     "screenshot-2019-backup.png",
		SizeMB:   12,
		Kind:     models.KindImage,
		Category: models.CategoryScreenshot,
		Reason:   "Old screenshot from 2019 that might no longer be needed",
		AgeDays:  1825,
	},
	{
		ID:       "3",
		Name:     "temp-download-cache",
		SizeMB:   234,
		Kind:     models.KindCache,
		Category: models.CategoryTempFiles,
		Reason:   "Temporary files that are safe to remove to free up space",
		AgeDays:  30,
	},
	{
		ID:       "4",
		Name:     "duplicate-photo-1.jpg",
		SizeMB:   8,
		Kind:     models.KindImage,
		Category: models.CategoryDuplicates,
		Reason:   "This appears to be a duplicate of another photo in your library",
		AgeDays:  365,
	},
	{
		ID:       "5",
		Name:     "browser-cache-2023",
		SizeMB:   567,
		Kind:     models.KindCache,
		Category: models.CategoryCacheFiles,
		Reason:   "Browser cache files that can be safely removed",
		AgeDays:  180,
	},
	{
		ID:       "6",
		Name:     "old-project-backup",
		SizeMB:   123,
		Kind:     models.KindArchive,
		Category: models.CategoryOldBackups,
		Reason:   "Backup files from completed projects that could be archived",
		AgeDays:  540,
	},
	{
		ID:       "7",
		Name:     "unused-app-data",
		SizeMB:   89,
		Kind:     models.KindCache,
		Category: models.CategoryAppData,
		Reason:   "Leftover data from apps you no longer use",
		AgeDays:  270,
	},
	{
		ID:       "8",
		Name:     "temp-video-render.mp4",
		SizeMB:   456,
		Kind:     models.KindVideo,
		Category: models.CategoryTempFiles,
		Reason:   "Temporary video file that's no longer needed",
		AgeDays:  14,
	},
}

// Static wraps a fixed slice of items as a Source, useful in tests and for
// rule previews.
type Static struct {
	items []models.FlaggedItem
}

// NewStatic creates a Source backed by the given items.
func NewStatic(items []models.FlaggedItem) *Static {
	return &Static{items: items}
}

// Items returns a copy of the backing slice.
func (s *Static) Items() []models.FlaggedItem {
	items := make([]models.FlaggedItem, len(s.items))
	copy(items, s.items)
	return items
}

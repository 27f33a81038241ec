// Package scan drives the simulated discovery-and-removal pipeline.
//
// A Machine sequences one user through idle → scanning → results →
// cleaning → complete, accumulating a selection of flagged items and
// emitting exactly one CleaningSession record per full cycle. Progress is
// advanced by a cancellable repeating timer (Run) or directly via Tick in
// tests; there is no real file I/O anywhere in the pipeline.
package scan

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/catalog"
	"github.com/calmstack/declutter/pkg/logger"
	"github.com/calmstack/declutter/pkg/prefs"
	"github.com/calmstack/declutter/pkg/rules"
	"github.com/sirupsen/logrus"
)

var log *logrus.Entry

func init() {
	log = logger.WithName("scan")
}

// Stage identifies where a scan/clean cycle is.
type Stage string

const (
	StageIdle     Stage = "idle"
	StageScanning Stage = "scanning"
	StageResults  Stage = "results"
	StageCleaning Stage = "cleaning"
	StageComplete Stage = "complete"
)

const (
	progressMax  = 100
	scanStep     = 2
	cleaningStep = 1
)

var (
	// ErrScanInProgress is returned when a new scan is requested while a
	// scan or cleaning pass is still advancing.
	ErrScanInProgress = errors.New("a scan or cleaning pass is already in progress")
	// ErrNotInResults is returned for selection and cleaning operations
	// outside the results stage.
	ErrNotInResults = errors.New("no scan results to act on")
	// ErrEmptySelection is returned when cleaning is started with nothing
	// selected. The machine holds its state.
	ErrEmptySelection = errors.New("cannot start cleaning with an empty selection")
	// ErrInvalidAction is returned for an unknown bulk action.
	ErrInvalidAction = errors.New("unknown bulk action")
	// ErrUnknownItem is returned for per-item actions on ids not in the
	// current result set.
	ErrUnknownItem = errors.New("item not in current scan results")
)

// Sink receives the single CleaningSession a completed cycle commits. It is
// the machine's one persistence boundary: invoked exactly once per cycle,
// never after a reset.
type Sink func(session models.CleaningSession)

// Config wires a Machine's collaborators.
type Config struct {
	// UserEmail identifies whose cycle this machine runs.
	UserEmail string
	// Source supplies candidate items; defaults to the simulated catalog.
	Source catalog.Source
	// Sink receives the session record at the commit point. Optional.
	Sink Sink
	// Recorder captures per-item preview actions as learned preferences.
	// Optional.
	Recorder prefs.Recorder
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Machine is the scan/clean state machine for a single user session. At
// most one cycle is in flight at a time; all methods are safe for
// concurrent use.
type Machine struct {
	mu       sync.Mutex
	user     string
	source   catalog.Source
	sink     Sink
	recorder prefs.Recorder
	now      func() time.Time

	stage         Stage
	scanProgress  int
	cleanProgress int
	items         []models.FlaggedItem
	selected      map[string]bool
	ruleSet       []models.CleaningRule
	action        models.BulkAction
	snapshot      []models.FlaggedItem
	scannedCount  int
	startedAt     time.Time
	emitted       bool
}

// New creates a Machine in the idle stage.
func New(cfg Config) *Machine {
	if cfg.Source == nil {
		cfg.Source = catalog.NewSimulated()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Machine{
		user:     cfg.UserEmail,
		source:   cfg.Source,
		sink:     cfg.Sink,
		recorder: cfg.Recorder,
		now:      cfg.Now,
		stage:    StageIdle,
		selected: make(map[string]bool),
	}
}

// StartScan begins a new scan, discarding any prior result set and
// selection. A non-nil ruleSet requests rule-based filtering: the result
// set populated when the scan completes is restricted to items matching any
// active rule. A ruleSet with no active rules is rejected with
// rules.ErrNoActiveRules and no transition occurs.
func (m *Machine) StartScan(ruleSet []models.CleaningRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stage == StageScanning || m.stage == StageCleaning {
		return ErrScanInProgress
	}

	if ruleSet != nil {
		active := 0
		for _, r := range ruleSet {
			if r.Active {
				active++
			}
		}
		if active == 0 {
			return rules.ErrNoActiveRules
		}
	}

	m.stage = StageScanning
	m.scanProgress = 0
	m.cleanProgress = 0
	m.items = nil
	m.selected = make(map[string]bool)
	m.snapshot = nil
	m.ruleSet = ruleSet
	m.emitted = false
	m.startedAt = m.now()

	log.WithFields(logrus.Fields{
		"user":  m.user,
		"rules": len(ruleSet),
	}).Info("Scan started")

	return nil
}

// Tick advances whichever progress counter is active by one step. Crossing
// 100 clamps and fires the automatic transition exactly once: scanning
// populates the result set, cleaning commits the session record.
func (m *Machine) Tick() Stage {
	m.mu.Lock()

	switch m.stage {
	case StageScanning:
		m.scanProgress += scanStep
		if m.scanProgress >= progressMax {
			m.scanProgress = progressMax
			m.finishScanLocked()
		}
	case StageCleaning:
		m.cleanProgress += cleaningStep
		if m.cleanProgress >= progressMax {
			m.cleanProgress = progressMax
			if !m.emitted {
				m.emitted = true
				session := m.buildSessionLocked()
				m.stage = StageComplete
				m.mu.Unlock()
				m.commit(session)
				return StageComplete
			}
		}
	}

	stage := m.stage
	m.mu.Unlock()
	return stage
}

// Run advances the machine on a fixed cadence until the active phase
// finishes or ctx is cancelled. Reset from another goroutine also stops the
// loop, since the stage is no longer advancing.
func (m *Machine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.advancing() {
				return
			}
			m.Tick()
			if !m.advancing() {
				return
			}
		}
	}
}

func (m *Machine) advancing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage == StageScanning || m.stage == StageCleaning
}

// finishScanLocked populates the result set and selects everything.
func (m *Machine) finishScanLocked() {
	items := m.source.Items()
	if m.ruleSet != nil {
		filtered, err := rules.Filter(items, m.ruleSet)
		if err == nil {
			items = filtered
		}
	}

	m.items = items
	m.selected = make(map[string]bool, len(items))
	for _, item := range items {
		m.selected[item.ID] = true
	}
	m.stage = StageResults

	log.WithFields(logrus.Fields{
		"user":  m.user,
		"found": len(items),
	}).Info("Scan complete")
}

// ToggleSelection flips one item in or out of the selection. Ids not in the
// current result set are ignored so the selection can never dangle.
func (m *Machine) ToggleSelection(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stage != StageResults {
		return ErrNotInResults
	}
	if !m.hasItemLocked(id) {
		log.WithField("id", id).Warn("Ignoring selection toggle for unknown item")
		return nil
	}

	if m.selected[id] {
		delete(m.selected, id)
	} else {
		m.selected[id] = true
	}
	return nil
}

// SetSelection replaces the selection wholesale. Unknown ids are dropped.
func (m *Machine) SetSelection(ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stage != StageResults {
		return ErrNotInResults
	}

	m.selected = make(map[string]bool, len(ids))
	for _, id := range ids {
		if m.hasItemLocked(id) {
			m.selected[id] = true
		}
	}
	return nil
}

// ItemAction applies a per-item preview action. Every action is recorded as
// a learned preference; only delete mutates the working set, removing the
// item from both the results and the selection. Archive and compress are
// advisory at the item level and do not change bulk totals.
func (m *Machine) ItemAction(id string, action models.BulkAction) error {
	m.mu.Lock()

	if m.stage != StageResults {
		m.mu.Unlock()
		return ErrNotInResults
	}
	if !action.Valid() {
		m.mu.Unlock()
		return ErrInvalidAction
	}

	var item *models.FlaggedItem
	for i := range m.items {
		if m.items[i].ID == id {
			item = &m.items[i]
			break
		}
	}
	if item == nil {
		m.mu.Unlock()
		return ErrUnknownItem
	}

	pref := models.LearnedPreference{
		UserEmail: m.user,
		Action:    string(action),
		FileType:  string(item.Kind),
		Category:  item.Category,
		Timestamp: m.now().Unix(),
	}

	if action == models.ActionDelete {
		kept := m.items[:0]
		for _, it := range m.items {
			if it.ID != id {
				kept = append(kept, it)
			}
		}
		m.items = kept
		delete(m.selected, id)
	}

	recorder := m.recorder
	m.mu.Unlock()

	if recorder != nil {
		recorder.Record(pref)
	}
	return nil
}

// StartCleaning captures an immutable snapshot of the current selection and
// the chosen bulk action, then begins the cleaning progress counter. An
// empty selection is a precondition violation: the machine stays in
// results and no event will be emitted.
func (m *Machine) StartCleaning(action models.BulkAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stage != StageResults {
		return ErrNotInResults
	}
	if !action.Valid() {
		return ErrInvalidAction
	}
	if len(m.selected) == 0 {
		return ErrEmptySelection
	}

	m.snapshot = make([]models.FlaggedItem, 0, len(m.selected))
	for _, item := range m.items {
		if m.selected[item.ID] {
			m.snapshot = append(m.snapshot, item)
		}
	}
	m.scannedCount = len(m.items)
	m.action = action
	m.cleanProgress = 0
	m.emitted = false
	m.stage = StageCleaning

	log.WithFields(logrus.Fields{
		"user":     m.user,
		"selected": len(m.snapshot),
		"action":   action,
	}).Info("Cleaning started")

	return nil
}

// Reset discards all in-flight state from any stage and returns to idle.
// Any pending Run loop stops on its next tick, and no session record is
// ever emitted for the abandoned cycle.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stage = StageIdle
	m.scanProgress = 0
	m.cleanProgress = 0
	m.items = nil
	m.selected = make(map[string]bool)
	m.snapshot = nil
	m.ruleSet = nil
	m.emitted = false

	log.WithField("user", m.user).Debug("Machine reset")
}

// buildSessionLocked computes the commit record from the snapshot. Compress
// counts 40% of the pre-action size as freed; delete and archive count it
// all.
func (m *Machine) buildSessionLocked() models.CleaningSession {
	var total float64
	seen := make(map[string]bool)
	var categories []string
	for _, item := range m.snapshot {
		total += item.SizeMB
		if !seen[item.Category] {
			seen[item.Category] = true
			categories = append(categories, item.Category)
		}
	}

	freed := total
	if m.action == models.ActionCompress {
		freed = total * models.CompressRetainedFraction
	}

	now := m.now()
	duration := int(now.Sub(m.startedAt).Minutes())
	if duration < 1 {
		duration = 1
	}

	return models.CleaningSession{
		UserEmail:       m.user,
		FilesScanned:    m.scannedCount,
		FilesCleaned:    len(m.snapshot),
		SpaceFreedMB:    freed,
		DurationMinutes: duration,
		Action:          m.action,
		Categories:      categories,
		CompletedAt:     now.Unix(),
	}
}

func (m *Machine) commit(session models.CleaningSession) {
	log.WithFields(logrus.Fields{
		"user":         session.UserEmail,
		"filesCleaned": session.FilesCleaned,
		"spaceFreedMB": session.SpaceFreedMB,
		"action":       session.Action,
	}).Info("Cleaning complete")

	if m.sink != nil {
		m.sink(session)
	}
}

func (m *Machine) hasItemLocked(id string) bool {
	for i := range m.items {
		if m.items[i].ID == id {
			return true
		}
	}
	return false
}

// Stage returns the current stage.
func (m *Machine) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// ScanProgress returns the scan counter, 0-100.
func (m *Machine) ScanProgress() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanProgress
}

// CleaningProgress returns the cleaning counter, 0-100.
func (m *Machine) CleaningProgress() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanProgress
}

// Items returns a copy of the current result set.
func (m *Machine) Items() []models.FlaggedItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.FlaggedItem, len(m.items))
	copy(items, m.items)
	return items
}

// SelectedIDs returns the selected item ids in sorted order.
func (m *Machine) SelectedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SelectedCount returns the number of selected items.
func (m *Machine) SelectedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.selected)
}

// SelectedSizeMB returns the total size of the selected items.
func (m *Machine) SelectedSizeMB() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, item := range m.items {
		if m.selected[item.ID] {
			total += item.SizeMB
		}
	}
	return total
}

// EstimatedSpaceFreedMB returns what the given bulk action would report
// freed for the current selection.
func (m *Machine) EstimatedSpaceFreedMB(action models.BulkAction) float64 {
	total := m.SelectedSizeMB()
	if action == models.ActionCompress {
		return total * models.CompressRetainedFraction
	}
	return total
}

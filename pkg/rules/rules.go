// Package rules evaluates cleaning rules against flagged items.
//
// A rule's own fields combine with AND; across rules the filter is an OR:
// an item is included if any active rule matches it.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/logger"
	"github.com/sirupsen/logrus"
)

var log *logrus.Entry

func init() {
	log = logger.WithName("rules")
}

// ErrNoActiveRules is returned when a filter is requested with no active
// rules to apply.
var ErrNoActiveRules = errors.New("no active rules to apply")

// Validate checks a rule's invariants: a non-empty extension match and
// non-negative thresholds. Age and size may each be unset, meaning no
// constraint on that dimension.
func Validate(rule *models.CleaningRule) error {
	if rule.FileExtension == "" {
		return fmt.Errorf("rule %q: file extension match must not be empty", rule.Name)
	}
	if rule.OlderThanDays != nil && *rule.OlderThanDays < 0 {
		return fmt.Errorf("rule %q: older-than days must not be negative", rule.Name)
	}
	if rule.LargerThanMB != nil && *rule.LargerThanMB < 0 {
		return fmt.Errorf("rule %q: larger-than size must not be negative", rule.Name)
	}
	if !rule.Action.Valid() {
		return fmt.Errorf("rule %q: unknown action %q", rule.Name, rule.Action)
	}
	return nil
}

// Matches reports whether a single rule matches an item. All of the rule's
// set fields must hold.
func Matches(rule *models.CleaningRule, item *models.FlaggedItem) bool {
	if rule.FileExtension != "*" && !strings.HasSuffix(item.Name, rule.FileExtension) {
		return false
	}
	if rule.LargerThanMB != nil && item.SizeMB < *rule.LargerThanMB {
		return false
	}
	if rule.OlderThanDays != nil && item.AgeDays < *rule.OlderThanDays {
		return false
	}
	if rule.FolderPath != nil && *rule.FolderPath != "" && !strings.HasPrefix(item.Folder, *rule.FolderPath) {
		return false
	}
	return true
}

// Filter returns the items matching any of the active rules. Inactive rules
// do not participate. Returns ErrNoActiveRules when every rule is inactive
// (or none were given), so callers can reject the request without a state
// change.
func Filter(items []models.FlaggedItem, ruleSet []models.CleaningRule) ([]models.FlaggedItem, error) {
	var active []*models.CleaningRule
	for i := range ruleSet {
		if ruleSet[i].Active {
			active = append(active, &ruleSet[i])
		}
	}
	if len(active) == 0 {
		return nil, ErrNoActiveRules
	}

	var matched []models.FlaggedItem
	for i := range items {
		for _, rule := range active {
			if Matches(rule, &items[i]) {
				matched = append(matched, items[i])
				break
			}
		}
	}

	log.WithFields(logrus.Fields{
		"rules":   len(active),
		"matched": len(matched),
		"total":   len(items),
	}).Debug("Applied rule filter")

	return matched, nil
}

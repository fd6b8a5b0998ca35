package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical wire and storage format for due dates:
// a civil date with no time component, interpreted at UTC midnight.
const DateLayout = "2006-01-02"

// NormalizeDueDate parses a client-supplied due date and returns it in
// canonical form. Clients send either a bare date ("2026-09-01") or a
// full RFC 3339 timestamp; timestamps are truncated to their UTC civil
// date. An empty string means "no due date" and normalizes to itself.
func NormalizeDueDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t.UTC().Format(DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC().Format(DateLayout), nil
	}
	return "", fmt.Errorf("invalid due date %q: expected YYYY-MM-DD or RFC 3339", raw)
}

// DueDateTime converts a canonical due date to its UTC midnight instant.
// Returns the zero time for an empty due date.
func DueDateTime(due string) (time.Time, error) {
	if due == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, due)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored due date %q: %w", due, err)
	}
	return t.UTC(), nil
}

// IsOverdue reports whether a task with the given due date and completion
// state is overdue at now. A task is overdue once now has passed the end
// of its due day in UTC; a task due today is not yet overdue.
func IsOverdue(due string, completed bool, now time.Time) bool {
	if completed || due == "" {
		return false
	}
	t, err := DueDateTime(due)
	if err != nil {
		return false
	}
	endOfDay := t.Add(24 * time.Hour)
	return !now.UTC().Before(endOfDay)
}

// IsDueWithin reports whether the due date falls inside (now, now+window]
// in UTC. Tasks already overdue are excluded so the due-soon and overdue
// notifiers never both fire for the same task.
func IsDueWithin(due string, completed bool, now time.Time, window time.Duration) bool {
	if completed || due == "" {
		return false
	}
	t, err := DueDateTime(due)
	if err != nil {
		return false
	}
	endOfDay := t.Add(24 * time.Hour)
	nowUTC := now.UTC()
	if !nowUTC.Before(endOfDay) {
		return false
	}
	return !t.After(nowUTC.Add(window))
}

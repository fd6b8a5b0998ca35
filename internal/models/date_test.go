package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDueDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare date", input: "2026-09-01", want: "2026-09-01"},
		{name: "rfc3339 utc", input: "2026-09-01T15:04:05Z", want: "2026-09-01"},
		{name: "rfc3339 with offset crossing midnight", input: "2026-09-01T23:30:00-05:00", want: "2026-09-02"},
		{name: "empty means no due date", input: "", want: ""},
		{name: "whitespace only", input: "   ", want: ""},
		{name: "garbage", input: "next tuesday", wantErr: true},
		{name: "partial date", input: "2026-09", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDueDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("due yesterday is overdue", func(t *testing.T) {
		assert.True(t, IsOverdue("2026-08-31", false, now))
	})

	t.Run("due today is not overdue", func(t *testing.T) {
		assert.False(t, IsOverdue("2026-09-01", false, now))
	})

	t.Run("completed task is never overdue", func(t *testing.T) {
		assert.False(t, IsOverdue("2026-08-31", true, now))
	})

	t.Run("no due date is never overdue", func(t *testing.T) {
		assert.False(t, IsOverdue("", false, now))
	})

	t.Run("overdue exactly at end of due day", func(t *testing.T) {
		midnight := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		assert.True(t, IsOverdue("2026-08-31", false, midnight))
	})
}

func TestIsDueWithin(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	t.Run("due today is within window", func(t *testing.T) {
		assert.True(t, IsDueWithin("2026-09-01", false, now, window))
	})

	t.Run("due tomorrow is within window", func(t *testing.T) {
		assert.True(t, IsDueWithin("2026-09-02", false, now, window))
	})

	t.Run("due in three days is outside window", func(t *testing.T) {
		assert.False(t, IsDueWithin("2026-09-04", false, now, window))
	})

	t.Run("overdue task is excluded", func(t *testing.T) {
		assert.False(t, IsDueWithin("2026-08-31", false, now, window))
	})

	t.Run("completed task is excluded", func(t *testing.T) {
		assert.True(t, IsDueWithin("2026-09-01", false, now, window))
		assert.False(t, IsDueWithin("2026-09-01", true, now, window))
	})
}

func TestDueDateTime(t *testing.T) {
	got, err := DueDateTime("2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), got)

	zero, err := DueDateTime("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = DueDateTime("not-a-date")
	assert.Error(t, err)
}

package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const week = 7 * 24 * time.Hour

func eventWithReminders(id int, start time.Time, days ...int) Event {
	ev := Event{ID: id, Title: "Seminar", Status: StatusActive, StartDatetime: start, EndDatetime: start.Add(2 * time.Hour)}
	for i, d := range days {
		ev.Reminders = append(ev.Reminders, Reminder{ID: id*10 + i, EventID: id, DaysBefore: d, ReminderType: ReminderBanner, IsActive: true})
	}
	return ev
}

func dueDays(due []DueReminder) []int {
	out := make([]int, 0, len(due))
	for _, d := range due {
		out = append(out, d.DaysBefore)
	}
	return out
}

func TestReminder_TriggerAt(t *testing.T) {
	ev := eventWithReminders(1, date(2025, 11, 15, 10, 0), 7, 0)
	assert.Equal(t, date(2025, 11, 8, 10, 0), ev.Reminders[0].TriggerAt(ev))
	assert.Equal(t, ev.StartDatetime, ev.Reminders[1].TriggerAt(ev))
}

func TestDueReminders(t *testing.T) {
	start := date(2025, 11, 15, 10, 0)

	tests := []struct {
		name string
		now  time.Time
		want []int
	}{
		{name: "a week before, only the 7 day reminder", now: date(2025, 11, 8, 10, 0), want: []int{7}},
		{name: "just before the week mark", now: date(2025, 11, 8, 9, 59), want: []int{}},
		{name: "2 days before", now: date(2025, 11, 13, 10, 0), want: []int{7, 3}},
		{name: "on the hour", now: start, want: []int{7, 3, 1, 0}},
		{name: "after the start", now: start.Add(time.Minute), want: []int{}},
		{name: "beyond the lookahead", now: date(2025, 11, 1, 10, 0), want: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := eventWithReminders(1, start, 7, 3, 1, 0)
			due := DueReminders([]Event{ev}, tt.now, week)
			assert.Equal(t, tt.want, dueDays(due))
			for _, d := range due {
				assert.Equal(t, ev.ID, d.Event.ID)
				assert.Empty(t, d.Event.Reminders)
			}
		})
	}
}

func TestDueReminders_monotonic(t *testing.T) {
	start := date(2025, 11, 15, 10, 0)
	ev := eventWithReminders(1, start, 7, 5, 3, 2, 1, 0)

	prev := 0
	for now := start.Add(-week); !now.After(start); now = now.Add(time.Hour) {
		n := len(DueReminders([]Event{ev}, now, week))
		if n < prev {
			t.Fatalf("due reminders went from %d to %d at %v", prev, n, now)
		}
		prev = n
	}
	assert.Equal(t, 6, prev)
}

func TestDueReminders_filtering(t *testing.T) {
	now := date(2025, 11, 14, 12, 0)

	inactiveRem := eventWithReminders(1, date(2025, 11, 15, 10, 0), 3, 1)
	inactiveRem.Reminders[0].IsActive = false

	suspended := eventWithReminders(2, date(2025, 11, 15, 10, 0), 3)
	suspended.Status = StatusSuspended

	cancelled := eventWithReminders(3, date(2025, 11, 15, 10, 0), 3)
	cancelled.Status = StatusCancelled

	past := eventWithReminders(4, date(2025, 11, 13, 10, 0), 3)

	due := DueReminders([]Event{inactiveRem, suspended, cancelled, past}, now, week)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Event.ID)
	assert.Equal(t, 1, due[0].DaysBefore)
}

func TestDueReminders_ordering(t *testing.T) {
	now := date(2025, 11, 14, 12, 0)
	later := eventWithReminders(1, date(2025, 11, 17, 9, 0), 3, 7)
	sooner := eventWithReminders(2, date(2025, 11, 15, 9, 0), 1, 3)
	tie := eventWithReminders(3, date(2025, 11, 15, 9, 0), 3)

	due := DueReminders([]Event{later, sooner, tie}, now, week)

	type key struct{ event, days, id int }
	got := make([]key, 0, len(due))
	for _, d := range due {
		got = append(got, key{d.Event.ID, d.DaysBefore, d.ID})
	}
	assert.Equal(t, []key{
		{2, 3, 21},
		{3, 3, 30},
		{2, 1, 20},
		{1, 7, 11},
		{1, 3, 10},
	}, got)
}

func Test_defaultReminders(t *testing.T) {
	now := date(2025, 10, 1, 8, 0)
	rems := defaultReminders(Event{ID: 9}, now)
	require.Len(t, rems, len(DefaultReminderDays))
	for i, rem := range rems {
		assert.Equal(t, DefaultReminderDays[i], rem.DaysBefore)
		assert.Equal(t, 9, rem.EventID)
		assert.Equal(t, ReminderBanner, rem.ReminderType)
		assert.True(t, rem.IsActive)
		assert.Nil(t, rem.TriggeredAt)
	}
}

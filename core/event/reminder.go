package event

import (
	"sort"
	"time"
)

// DueReminder is a reminder whose trigger time has passed, with its event.
type DueReminder struct {
	Reminder
	Event Event `json:"event"`
}

// TriggerAt is the moment the reminder becomes due for ev.
func (rem Reminder) TriggerAt(ev Event) time.Time {
	return ev.StartDatetime.Add(-time.Duration(rem.DaysBefore) * 24 * time.Hour)
}

// IsDue reports whether the reminder is active and its trigger time is not after now.
func (rem Reminder) IsDue(ev Event, now time.Time) bool {
	return rem.IsActive && !rem.TriggerAt(ev).After(now)
}

// DueReminders returns the due reminders of the active events starting within [now, now+lookahead],
// ordered by event start, then by days before in descending order.
func DueReminders(events []Event, now time.Time, lookahead time.Duration) []DueReminder {
	horizon := now.Add(lookahead)
	var due []DueReminder
	for _, ev := range events {
		if ev.Status != StatusActive || ev.StartDatetime.Before(now) || ev.StartDatetime.After(horizon) {
			continue
		}
		for _, rem := range ev.Reminders {
			if rem.IsDue(ev, now) {
				evCopy := ev
				evCopy.Reminders = nil
				due = append(due, DueReminder{Reminder: rem, Event: evCopy})
			}
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if !a.Event.StartDatetime.Equal(b.Event.StartDatetime) {
			return a.Event.StartDatetime.Before(b.Event.StartDatetime)
		}
		if a.DaysBefore != b.DaysBefore {
			return a.DaysBefore > b.DaysBefore
		}
		return a.ID < b.ID
	})
	return due
}

// defaultReminders returns the default reminder set of ev.
func defaultReminders(ev Event, now time.Time) []Reminder {
	rems := make([]Reminder, 0, len(DefaultReminderDays))
	for _, days := range DefaultReminderDays {
		rems = append(rems, Reminder{
			EventID:      ev.ID,
			DaysBefore:   days,
			ReminderType: ReminderBanner,
			IsActive:     true,
			CreatedAt:    now,
		})
	}
	return rems
}

package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/event"
)

const reminderColumns = "id, event_id, days_before, reminder_type, message, is_active, triggered_at, created_at"

type reminderRow struct {
	ID           int         `db:"id"`
	EventID      int         `db:"event_id"`
	DaysBefore   int         `db:"days_before"`
	ReminderType string      `db:"reminder_type"`
	Message      null.String `db:"message"`
	IsActive     bool        `db:"is_active"`
	TriggeredAt  null.Time   `db:"triggered_at"`
	CreatedAt    time.Time   `db:"created_at"`
}

func (r reminderRow) reminder() event.Reminder {
	rem := event.Reminder{
		ID:           r.ID,
		EventID:      r.EventID,
		DaysBefore:   r.DaysBefore,
		ReminderType: r.ReminderType,
		Message:      r.Message.String,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.TriggeredAt.Valid {
		t := r.TriggeredAt.Time.UTC()
		rem.TriggeredAt = &t
	}
	return rem
}

func (repo eventRepository) CreateReminders(ctx context.Context, rems []event.Reminder, exec ...core.DBExecutor) ([]event.Reminder, error) {
	if len(rems) == 0 {
		return rems, nil
	}

	const ncols = 6
	values := make([]string, 0, len(rems))
	args := make([]interface{}, 0, len(rems)*ncols)
	for i, rem := range rems {
		ph := make([]string, ncols)
		for j := range ph {
			ph[j] = "$" + strconv.Itoa(i*ncols+j+1)
		}
		values = append(values, "("+strings.Join(ph, ", ")+")")
		args = append(args, rem.EventID, rem.DaysBefore, rem.ReminderType, nullString(rem.Message), rem.IsActive, rem.CreatedAt)
	}

	var ids []int
	q := "INSERT INTO event_reminders (event_id, days_before, reminder_type, message, is_active, created_at) VALUES " +
		strings.Join(values, ", ") + " RETURNING id"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &ids, q, args...); err != nil {
		return nil, errors.Wrap(err, "inserting reminders")
	}

	out := make([]event.Reminder, len(rems))
	copy(out, rems)
	for i := range out {
		if i < len(ids) {
			out[i].ID = ids[i]
		}
	}
	return out, nil
}

// queryReminders returns the reminders of the given events by event id, ordered by days before descending.
func (repo eventRepository) queryReminders(ctx context.Context, eventIDs []int, exec []core.DBExecutor) (map[int][]event.Reminder, error) {
	byEvent := make(map[int][]event.Reminder)
	if len(eventIDs) == 0 {
		return byEvent, nil
	}

	ids := make(pq.Int64Array, 0, len(eventIDs))
	for _, id := range eventIDs {
		ids = append(ids, int64(id))
	}
	var rows []reminderRow
	q := "SELECT " + reminderColumns + " FROM event_reminders WHERE event_id = ANY($1) ORDER BY event_id, days_before DESC, id"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, ids); err != nil {
		return nil, errors.Wrap(err, "selecting reminders")
	}
	for _, r := range rows {
		byEvent[r.EventID] = append(byEvent[r.EventID], r.reminder())
	}
	return byEvent, nil
}

func (repo eventRepository) MarkRemindersTriggered(ctx context.Context, ids []int, at time.Time, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	arr := make(pq.Int64Array, 0, len(ids))
	for _, id := range ids {
		arr = append(arr, int64(id))
	}
	_, err := repo.getExec(exec).ExecContext(ctx, "UPDATE event_reminders SET triggered_at = $1 WHERE id = ANY($2)", at, arr)
	return errors.Wrap(err, "marking reminders as triggered")
}

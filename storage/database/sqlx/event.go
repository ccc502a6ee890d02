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

const eventColumns = `e.id, e.title, e.description, e.category, e.event_type, e.dojo_id, d.name AS dojo_name,
	e.start_datetime, e.end_datetime, e.all_day, e.status, e.suspension_reason, e.is_recurring, e.recurrence_pattern,
	e.recurrence_interval, e.recurrence_days, e.recurrence_end_date, e.recurrence_count, e.series_id, e.location,
	e.reminder_priority, e.created_by, e.created_at, e.updated_at`

const eventFrom = " FROM events e LEFT JOIN dojos d ON d.id = e.dojo_id"

var eventSortColumns = map[string]string{
	event.SortByStart: "e.start_datetime",
	event.SortByTitle: "e.title",
	event.SortByType:  "e.event_type",
}

type eventRow struct {
	ID                 int           `db:"id"`
	Title              string        `db:"title"`
	Description        null.String   `db:"description"`
	Category           string        `db:"category"`
	EventType          string        `db:"event_type"`
	DojoID             null.Int      `db:"dojo_id"`
	DojoName           null.String   `db:"dojo_name"`
	StartDatetime      time.Time     `db:"start_datetime"`
	EndDatetime        time.Time     `db:"end_datetime"`
	AllDay             bool          `db:"all_day"`
	Status             string        `db:"status"`
	SuspensionReason   null.String   `db:"suspension_reason"`
	IsRecurring        bool          `db:"is_recurring"`
	RecurrencePattern  null.String   `db:"recurrence_pattern"`
	RecurrenceInterval int           `db:"recurrence_interval"`
	RecurrenceDays     pq.Int64Array `db:"recurrence_days"`
	RecurrenceEndDate  null.Time     `db:"recurrence_end_date"`
	RecurrenceCount    null.Int      `db:"recurrence_count"`
	SeriesID           null.String   `db:"series_id"`
	Location           null.String   `db:"location"`
	ReminderPriority   string        `db:"reminder_priority"`
	CreatedBy          int           `db:"created_by"`
	CreatedAt          time.Time     `db:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"`
}

func (r eventRow) event() event.Event {
	ev := event.Event{
		ID:                 r.ID,
		Title:              r.Title,
		Description:        r.Description.String,
		Category:           r.Category,
		EventType:          r.EventType,
		DojoID:             r.DojoID.Ptr(),
		DojoName:           r.DojoName.String,
		StartDatetime:      r.StartDatetime.UTC(),
		EndDatetime:        r.EndDatetime.UTC(),
		AllDay:             r.AllDay,
		Status:             r.Status,
		SuspensionReason:   r.SuspensionReason.String,
		IsRecurring:        r.IsRecurring,
		RecurrencePattern:  r.RecurrencePattern.String,
		RecurrenceInterval: r.RecurrenceInterval,
		RecurrenceCount:    r.RecurrenceCount.Ptr(),
		SeriesID:           r.SeriesID.String,
		Location:           r.Location.String,
		ReminderPriority:   r.ReminderPriority,
		CreatedBy:          r.CreatedBy,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
	if r.RecurrenceEndDate.Valid {
		t := r.RecurrenceEndDate.Time.UTC()
		ev.RecurrenceEndDate = &t
	}
	for _, d := range r.RecurrenceDays {
		ev.RecurrenceDays = append(ev.RecurrenceDays, int(d))
	}
	return ev
}

// eventArgs returns the column values written on insert & update, in eventWriteColumns order.
func eventArgs(ev event.Event) []interface{} {
	var days pq.Int64Array
	for _, d := range ev.RecurrenceDays {
		days = append(days, int64(d))
	}
	return []interface{}{
		ev.Title, nullString(ev.Description), ev.Category, ev.EventType, null.IntFromPtr(ev.DojoID),
		ev.StartDatetime, ev.EndDatetime, ev.AllDay, ev.Status, nullString(ev.SuspensionReason), ev.IsRecurring,
		nullString(ev.RecurrencePattern), ev.RecurrenceInterval, days, null.TimeFromPtr(ev.RecurrenceEndDate),
		null.IntFromPtr(ev.RecurrenceCount), nullString(ev.SeriesID), nullString(ev.Location), ev.ReminderPriority,
		ev.UpdatedAt,
	}
}

var eventWriteColumns = []string{
	"title", "description", "category", "event_type", "dojo_id", "start_datetime", "end_datetime", "all_day",
	"status", "suspension_reason", "is_recurring", "recurrence_pattern", "recurrence_interval", "recurrence_days",
	"recurrence_end_date", "recurrence_count", "series_id", "location", "reminder_priority", "updated_at",
}

type eventRepository struct {
	baseRepository
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{baseRepository{db: db}}
}

func (repo eventRepository) CreateEvent(ctx context.Context, ev event.Event, exec ...core.DBExecutor) (event.Event, error) {
	cols := append(append([]string{}, eventWriteColumns...), "created_by", "created_at")
	args := append(eventArgs(ev), ev.CreatedBy, ev.CreatedAt)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}

	q := "INSERT INTO events (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ") RETURNING id"
	var id int
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &id, q, args...); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	ev.ID = id
	return ev, nil
}

func (repo eventRepository) getEvent(ctx context.Context, id int, lock bool, exec []core.DBExecutor) (event.Event, error) {
	q := "SELECT " + eventColumns + eventFrom + " WHERE e.id = $1"
	if lock {
		q += " FOR UPDATE OF e"
	}
	var row eventRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		if isNoRows(err) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "selecting event")
	}
	return row.event(), nil
}

func (repo eventRepository) GetEventByID(ctx context.Context, id int, exec ...core.DBExecutor) (event.Event, error) {
	ev, err := repo.getEvent(ctx, id, false, exec)
	if err != nil {
		return event.Event{}, err
	}
	rems, err := repo.queryReminders(ctx, []int{id}, exec)
	if err != nil {
		return event.Event{}, err
	}
	ev.Reminders = rems[id]
	return ev, nil
}

func (repo eventRepository) LockEvent(ctx context.Context, id int, exec ...core.DBExecutor) (event.Event, error) {
	return repo.getEvent(ctx, id, true, exec)
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter event.QueryFilter, exec ...core.DBExecutor) ([]event.Event, int, error) {
	var w where
	if filter.EventType != "" {
		w.add("e.event_type = ?", filter.EventType)
	}
	if filter.DojoID != 0 {
		w.add("e.dojo_id = ?", filter.DojoID)
	}
	if filter.Category != "" {
		w.add("e.category = ?", filter.Category)
	}
	if filter.Status != "" {
		w.add("e.status = ?", filter.Status)
	}
	if !filter.StartDate.IsZero() {
		w.add("e.start_datetime >= ?", filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		w.add("e.end_datetime <= ?", filter.EndDate)
	}
	if filter.IsRecurring != nil {
		w.add("e.is_recurring = ?", *filter.IsRecurring)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		w.add("(LOWER(e.title) LIKE ? OR LOWER(e.description) LIKE ?)", pattern, pattern)
	}

	ext := repo.getExec(exec)
	var total int
	if err := sqlx.GetContext(ctx, ext, &total, "SELECT COUNT(*)"+eventFrom+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting events")
	}

	col, ok := eventSortColumns[filter.Ordering.Field]
	if !ok {
		col = eventSortColumns[event.SortByStart]
	}
	q := "SELECT " + eventColumns + eventFrom + w.String() +
		" ORDER BY " + core.DBOrdering{Field: col, Ascending: filter.Ordering.Ascending}.String() + ", e.id ASC"
	if filter.PerPage > 0 {
		q += " LIMIT " + w.next(filter.PerPage) + " OFFSET " + w.next(filter.Offset())
	}

	var rows []eventRow
	if err := sqlx.SelectContext(ctx, ext, &rows, q, w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.event())
	}
	return events, total, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, ev event.Event, exec ...core.DBExecutor) (event.Event, error) {
	sets := make([]string, len(eventWriteColumns))
	for i, col := range eventWriteColumns {
		sets[i] = col + " = $" + strconv.Itoa(i+2)
	}
	args := append([]interface{}{ev.ID}, eventArgs(ev)...)

	res, err := repo.getExec(exec).ExecContext(ctx, "UPDATE events SET "+strings.Join(sets, ", ")+" WHERE id = $1", args...)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return ev, nil
}

func (repo eventRepository) DeleteEvent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	// reminders & occurrences are removed by ON DELETE CASCADE
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.ErrNotFound
	}
	return nil
}

func (repo eventRepository) EventsStartingBetween(ctx context.Context, from, to time.Time, status string, exec ...core.DBExecutor) ([]event.Event, error) {
	var rows []eventRow
	q := "SELECT " + eventColumns + eventFrom +
		" WHERE e.start_datetime >= $1 AND e.start_datetime <= $2 AND e.status = $3 ORDER BY e.start_datetime ASC, e.id ASC"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, from, to, status); err != nil {
		return nil, errors.Wrap(err, "selecting events")
	}

	events := make([]event.Event, 0, len(rows))
	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.event())
		ids = append(ids, r.ID)
	}
	rems, err := repo.queryReminders(ctx, ids, exec)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Reminders = rems[events[i].ID]
	}
	return events, nil
}

func (repo eventRepository) EventStatistics(ctx context.Context, exec ...core.DBExecutor) (event.Statistics, error) {
	ext := repo.getExec(exec)
	st := event.NewStatistics()

	type group struct {
		Key   string `db:"key"`
		Count int    `db:"count"`
	}
	groupBy := func(col string, into map[string]int) error {
		var groups []group
		q := "SELECT " + col + " AS key, COUNT(*) AS count FROM events GROUP BY " + col
		if err := sqlx.SelectContext(ctx, ext, &groups, q); err != nil {
			return errors.Wrap(err, "grouping events by "+col)
		}
		for _, g := range groups {
			into[g.Key] = g.Count
		}
		return nil
	}

	if err := sqlx.GetContext(ctx, ext, &st.TotalEvents, "SELECT COUNT(*) FROM events"); err != nil {
		return st, errors.Wrap(err, "counting events")
	}
	if err := sqlx.GetContext(ctx, ext, &st.RecurringEvents, "SELECT COUNT(*) FROM events WHERE is_recurring"); err != nil {
		return st, errors.Wrap(err, "counting recurring events")
	}
	if err := groupBy("status", st.ByStatus); err != nil {
		return st, err
	}
	if err := groupBy("event_type", st.ByType); err != nil {
		return st, err
	}
	if err := groupBy("category", st.ByCategory); err != nil {
		return st, err
	}
	return st, nil
}

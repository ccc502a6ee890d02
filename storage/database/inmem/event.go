package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{db: db}
}

// withDojo sets the dojo name the way the SQL join does.
func (repo *eventRepository) withDojo(ev event.Event) event.Event {
	ev.DojoName = ""
	if ev.DojoID != nil {
		ev.DojoName = repo.db.tables.dojos[*ev.DojoID].Name
	}
	return ev
}

func (repo *eventRepository) reminders(eventID int) []event.Reminder {
	var rems []event.Reminder
	for _, rem := range repo.db.tables.reminders {
		if rem.EventID == eventID {
			rems = append(rems, rem)
		}
	}
	sort.Slice(rems, func(i, j int) bool {
		if rems[i].DaysBefore != rems[j].DaysBefore {
			return rems[i].DaysBefore > rems[j].DaysBefore
		}
		return rems[i].ID < rems[j].ID
	})
	return rems
}

func (repo *eventRepository) CreateEvent(_ context.Context, ev event.Event, exec ...core.DBExecutor) (event.Event, error) {
	repo.db.run(exec, func() {
		ev.ID = repo.db.nextID("events")
		ev.DojoName = ""
		ev.Reminders = nil
		repo.db.tables.events[ev.ID] = ev
	})
	return ev, nil
}

func (repo *eventRepository) GetEventByID(_ context.Context, id int, exec ...core.DBExecutor) (event.Event, error) {
	var (
		ev event.Event
		ok bool
	)
	repo.db.run(exec, func() {
		if ev, ok = repo.db.tables.events[id]; ok {
			ev = repo.withDojo(ev)
			ev.Reminders = repo.reminders(id)
		}
	})
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return ev, nil
}

// LockEvent reads the event; the DB lock held by the transaction already excludes other writers.
func (repo *eventRepository) LockEvent(_ context.Context, id int, exec ...core.DBExecutor) (event.Event, error) {
	var (
		ev event.Event
		ok bool
	)
	repo.db.run(exec, func() {
		if ev, ok = repo.db.tables.events[id]; ok {
			ev = repo.withDojo(ev)
		}
	})
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return ev, nil
}

func matchEvent(ev event.Event, filter event.QueryFilter) bool {
	switch {
	case filter.EventType != "" && ev.EventType != filter.EventType,
		filter.DojoID != 0 && (ev.DojoID == nil || *ev.DojoID != filter.DojoID),
		filter.Category != "" && ev.Category != filter.Category,
		filter.Status != "" && ev.Status != filter.Status,
		!filter.StartDate.IsZero() && ev.StartDatetime.Before(filter.StartDate),
		!filter.EndDate.IsZero() && ev.EndDatetime.After(filter.EndDate),
		filter.IsRecurring != nil && ev.IsRecurring != *filter.IsRecurring:
		return false
	}
	if filter.Search != "" {
		return containsFold(ev.Title, filter.Search) || containsFold(ev.Description, filter.Search)
	}
	return true
}

func sortEvents(events []event.Event, ord core.DBOrdering) {
	less := func(a, b event.Event) int {
		switch ord.Field {
		case event.SortByTitle:
			return strings.Compare(a.Title, b.Title)
		case event.SortByType:
			return strings.Compare(a.EventType, b.EventType)
		default:
			switch {
			case a.StartDatetime.Before(b.StartDatetime):
				return -1
			case a.StartDatetime.After(b.StartDatetime):
				return 1
			}
			return 0
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		c := less(events[i], events[j])
		if c == 0 {
			return events[i].ID < events[j].ID
		}
		if ord.Ascending {
			return c < 0
		}
		return c > 0
	})
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter event.QueryFilter, exec ...core.DBExecutor) ([]event.Event, int, error) {
	events := make([]event.Event, 0)
	repo.db.run(exec, func() {
		for _, ev := range repo.db.tables.events {
			if matchEvent(ev, filter) {
				events = append(events, repo.withDojo(ev))
			}
		}
	})
	sortEvents(events, filter.Ordering)

	total := len(events)
	if filter.PerPage > 0 {
		start := filter.Offset()
		if start > total {
			start = total
		}
		end := start + filter.PerPage
		if end > total {
			end = total
		}
		events = events[start:end]
	}
	return events, total, nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, ev event.Event, exec ...core.DBExecutor) (event.Event, error) {
	var ok bool
	repo.db.run(exec, func() {
		var old event.Event
		if old, ok = repo.db.tables.events[ev.ID]; ok {
			stored := ev
			stored.CreatedBy, stored.CreatedAt = old.CreatedBy, old.CreatedAt
			stored.DojoName, stored.Reminders = "", nil
			repo.db.tables.events[ev.ID] = stored
		}
	})
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return ev, nil
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id int, exec ...core.DBExecutor) error {
	var ok bool
	repo.db.run(exec, func() {
		if _, ok = repo.db.tables.events[id]; !ok {
			return
		}
		delete(repo.db.tables.events, id)
		for rid, rem := range repo.db.tables.reminders {
			if rem.EventID == id {
				delete(repo.db.tables.reminders, rid)
			}
		}
		repo.deleteOccurrences(id)
	})
	if !ok {
		return event.ErrNotFound
	}
	return nil
}

func (repo *eventRepository) EventsStartingBetween(_ context.Context, from, to time.Time, status string, exec ...core.DBExecutor) ([]event.Event, error) {
	events := make([]event.Event, 0)
	repo.db.run(exec, func() {
		for _, ev := range repo.db.tables.events {
			if ev.Status != status || ev.StartDatetime.Before(from) || ev.StartDatetime.After(to) {
				continue
			}
			ev = repo.withDojo(ev)
			ev.Reminders = repo.reminders(ev.ID)
			events = append(events, ev)
		}
	})
	sortEvents(events, core.DBOrdering{Field: event.SortByStart, Ascending: true})
	return events, nil
}

func (repo *eventRepository) EventStatistics(_ context.Context, exec ...core.DBExecutor) (event.Statistics, error) {
	st := event.NewStatistics()
	repo.db.run(exec, func() {
		for _, ev := range repo.db.tables.events {
			st.TotalEvents++
			st.ByStatus[ev.Status]++
			st.ByType[ev.EventType]++
			st.ByCategory[ev.Category]++
			if ev.IsRecurring {
				st.RecurringEvents++
			}
		}
	})
	return st, nil
}

func (repo *eventRepository) CreateReminders(_ context.Context, rems []event.Reminder, exec ...core.DBExecutor) ([]event.Reminder, error) {
	out := make([]event.Reminder, 0, len(rems))
	var err error
	repo.db.run(exec, func() {
		for _, rem := range rems {
			if _, ok := repo.db.tables.events[rem.EventID]; !ok {
				err = event.ErrNotFound
				return
			}
		}
		for _, rem := range rems {
			rem.ID = repo.db.nextID("reminders")
			repo.db.tables.reminders[rem.ID] = rem
			out = append(out, rem)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (repo *eventRepository) MarkRemindersTriggered(_ context.Context, ids []int, at time.Time, exec ...core.DBExecutor) error {
	repo.db.run(exec, func() {
		for _, id := range ids {
			if rem, ok := repo.db.tables.reminders[id]; ok {
				triggeredAt := at
				rem.TriggeredAt = &triggeredAt
				repo.db.tables.reminders[id] = rem
			}
		}
	})
	return nil
}

func (repo *eventRepository) deleteOccurrences(eventID int) int {
	var n int
	for id, occ := range repo.db.tables.occurrences {
		if occ.EventID == eventID {
			delete(repo.db.tables.occurrences, id)
			n++
		}
	}
	return n
}

func (repo *eventRepository) DeleteOccurrences(_ context.Context, eventID int, exec ...core.DBExecutor) (int, error) {
	var n int
	repo.db.run(exec, func() { n = repo.deleteOccurrences(eventID) })
	return n, nil
}

func (repo *eventRepository) CreateOccurrences(_ context.Context, occs []event.Occurrence, exec ...core.DBExecutor) error {
	var err error
	repo.db.run(exec, func() {
		for _, occ := range occs {
			if _, ok := repo.db.tables.events[occ.EventID]; !ok {
				err = event.ErrNotFound
				return
			}
		}
		for _, occ := range occs {
			occ.ID = repo.db.nextID("occurrences")
			repo.db.tables.occurrences[occ.ID] = occ
		}
	})
	return err
}

func (repo *eventRepository) QueryOccurrences(_ context.Context, filter event.OccurrenceFilter, exec ...core.DBExecutor) ([]event.Occurrence, error) {
	occs := make([]event.Occurrence, 0)
	repo.db.run(exec, func() {
		for _, occ := range repo.db.tables.occurrences {
			if occ.EventID != filter.EventID ||
				(!filter.From.IsZero() && occ.OccurrenceDate.Before(filter.From)) ||
				(!filter.To.IsZero() && occ.OccurrenceDate.After(filter.To)) {
				continue
			}
			occs = append(occs, occ)
		}
	})
	sort.Slice(occs, func(i, j int) bool {
		if !occs[i].OccurrenceDate.Equal(occs[j].OccurrenceDate) {
			return occs[i].OccurrenceDate.Before(occs[j].OccurrenceDate)
		}
		return occs[i].ID < occs[j].ID
	})
	return occs, nil
}

func (repo *eventRepository) GetOccurrence(_ context.Context, eventID, id int, exec ...core.DBExecutor) (event.Occurrence, error) {
	var (
		occ event.Occurrence
		ok  bool
	)
	repo.db.run(exec, func() { occ, ok = repo.db.tables.occurrences[id] })
	if !ok || occ.EventID != eventID {
		return event.Occurrence{}, event.ErrOccurrenceNotFound
	}
	return occ, nil
}

func (repo *eventRepository) UpdateOccurrence(_ context.Context, occ event.Occurrence, exec ...core.DBExecutor) (event.Occurrence, error) {
	var ok bool
	repo.db.run(exec, func() {
		var old event.Occurrence
		if old, ok = repo.db.tables.occurrences[occ.ID]; ok && old.EventID == occ.EventID {
			repo.db.tables.occurrences[occ.ID] = occ
		} else {
			ok = false
		}
	})
	if !ok {
		return event.Occurrence{}, event.ErrOccurrenceNotFound
	}
	return occ, nil
}

package event

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pkg/errors"
)

const calendarProductID = "-//Ki Aikido//Event Calendar//EN"

// Calendar returns the events matching filter as an iCalendar document.
// Recurring events are exported one VEVENT per occurrence, overrides applied.
func (svc *Service) Calendar(ctx context.Context, name string, filter QueryFilter) (string, error) {
	filter.PerPage = 0
	filter.Clean()
	events, _, err := svc.repo.QueryEvents(ctx, filter)
	if err != nil {
		return "", errors.Wrap(err, "querying events")
	}

	occs := make(map[int][]Occurrence)
	for _, ev := range events {
		if !ev.IsRecurring {
			continue
		}
		evOccs, err := svc.repo.QueryOccurrences(ctx, OccurrenceFilter{EventID: ev.ID, From: filter.StartDate, To: filter.EndDate})
		if err != nil {
			return "", errors.Wrap(err, "querying occurrences")
		}
		occs[ev.ID] = evOccs
	}
	return NewCalendar(name, events, occs, NowFunc().UTC()).Serialize(), nil
}

// NewCalendar builds an iCalendar holding events; occs maps recurring event ids to their occurrences.
func NewCalendar(name string, events []Event, occs map[int][]Occurrence, stamp time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName(name)

	for _, ev := range events {
		if !ev.IsRecurring {
			addCalendarEvent(cal, fmt.Sprintf("event-%d", ev.ID), ev, ev.StartDatetime, ev.EndDatetime, ev.Status, stamp)
			continue
		}
		for i, occ := range occs[ev.ID] {
			view := occ.View(ev)
			display := ev
			display.Title, display.Description, display.Location = view.Title, view.Description, view.Location
			status := occ.Status
			if ev.Status != StatusActive {
				status = ev.Status
			}
			addCalendarEvent(cal, fmt.Sprintf("%s-%d", ev.SeriesID, i+1), display, occ.OccurrenceDate, occ.EndDatetime, status, stamp)
		}
	}
	return cal
}

func addCalendarEvent(cal *ics.Calendar, uid string, ev Event, start, end time.Time, status string, stamp time.Time) {
	ve := cal.AddEvent(uid + "@ki-aikido")
	ve.SetDtStampTime(stamp)
	ve.SetCreatedTime(ev.CreatedAt)
	ve.SetModifiedAt(ev.UpdatedAt)
	if ev.AllDay {
		ve.SetAllDayStartAt(start)
		ve.SetAllDayEndAt(end.AddDate(0, 0, 1))
	} else {
		ve.SetStartAt(start)
		ve.SetEndAt(end)
	}
	ve.SetSummary(ev.Title)
	if ev.Description != "" {
		ve.SetDescription(ev.Description)
	}
	if ev.Location != "" {
		ve.SetLocation(ev.Location)
	}
	switch status {
	case StatusCancelled, StatusSuspended:
		ve.SetStatus(ics.ObjectStatusCancelled)
	default:
		ve.SetStatus(ics.ObjectStatusConfirmed)
	}
}

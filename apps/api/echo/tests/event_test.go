package tests

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d2monteblanco/ki-aikido-system/core/event"
	"github.com/d2monteblanco/ki-aikido-system/core/user"
	testutil "github.com/d2monteblanco/ki-aikido-system/tests"
)

type eventResponse struct {
	Message              string      `json:"message"`
	Event                event.Event `json:"event"`
	OccurrencesGenerated int         `json:"occurrences_generated"`
}

type occurrencesResponse struct {
	Occurrences []event.OccurrenceView `json:"occurrences"`
	Count       int                    `json:"count"`
}

// weeklyClass repeats on Tuesdays & Thursdays from Oct 21 to Nov 4 2025: 5 occurrences.
func (app *testApp) weeklyClass() event.NewEvent {
	end := time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)
	return event.NewEvent{
		Title:             "Aula regular",
		Category:          event.CategoryRegularClass,
		EventType:         event.TypeDojo,
		DojoID:            &app.centro.ID,
		StartDatetime:     time.Date(2025, 10, 21, 19, 0, 0, 0, time.UTC),
		EndDatetime:       time.Date(2025, 10, 21, 20, 30, 0, 0, time.UTC),
		Location:          "Tatame principal",
		IsRecurring:       true,
		RecurrencePattern: event.PatternWeekly,
		RecurrenceDays:    event.Weekdays{1, 3},
		RecurrenceEndDate: &end,
	}
}

// seminar is a federation event starting 4 days after testNow.
func seminar() event.NewEvent {
	return event.NewEvent{
		Title:                  "Seminario nacional",
		Category:               event.CategorySeminar,
		EventType:              event.TypeAdmin,
		StartDatetime:          time.Date(2025, 10, 5, 10, 0, 0, 0, time.UTC),
		EndDatetime:            time.Date(2025, 10, 5, 17, 0, 0, 0, time.UTC),
		ReminderPriority:       event.PriorityHigh,
		CreateDefaultReminders: true,
	}
}

func (app *testApp) createEvent(t *testing.T, token string, ne event.NewEvent) eventResponse {
	t.Helper()
	rec := app.do(http.MethodPost, "/v1/events", token, marchallObj(t, ne))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp eventResponse
	decode(t, rec, &resp)
	return resp
}

func eventPath(id int, sub ...string) string {
	return "/v1/events/" + itoa(id) + strings.Join(sub, "")
}

func Test_eventApi_create(t *testing.T) {
	app := setup(t)

	adminToken := getToken(t, app.admin, app.conf)
	senseiToken := getToken(t, app.sensei, app.conf)
	reqMsg := "this field is required"

	norteClass := app.weeklyClass()
	norteClass.DojoID = &app.norte.ID
	orphanClass := app.weeklyClass()
	orphanClass.DojoID = nil
	backwards := seminar()
	backwards.EndDatetime = backwards.StartDatetime.Add(-time.Hour)
	unknownDojo := app.weeklyClass()
	unknownDojo.DojoID = testutil.IntPtr(999)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "required fields", token: adminToken, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"title": reqMsg, "category": reqMsg, "event_type": reqMsg, "start_datetime": reqMsg, "end_datetime": reqMsg,
			}),
		},
		{
			name: "malformed body", token: adminToken, body: []byte(`{"title": 1}`), wantCode: http.StatusBadRequest,
		},
		{name: "other dojo", token: senseiToken, body: marchallObj(t, norteClass), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "admin event by dojo user", token: senseiToken, body: marchallObj(t, seminar()), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "dojo event without dojo", token: adminToken, body: marchallObj(t, orphanClass), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"dojo_id": "dojo events must belong to a dojo"}),
		},
		{
			name: "dojo event without dojo by a dojo user", token: senseiToken, body: marchallObj(t, orphanClass), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"dojo_id": "dojo events must belong to a dojo"}),
		},
		{
			name: "end before start", token: adminToken, body: marchallObj(t, backwards), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"end_datetime": "end date must be after start date"}),
		},
		{
			name: "unknown dojo", token: adminToken, body: marchallObj(t, unknownDojo), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"dojo_id": "dojo not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/v1/events", tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("recurring", func(t *testing.T) {
		resp := app.createEvent(t, senseiToken, app.weeklyClass())
		assert.Equal(t, "event created", resp.Message)
		assert.Equal(t, 5, resp.OccurrencesGenerated)
		assert.Equal(t, "Ki Aikido Centro", resp.Event.DojoName)
		assert.Equal(t, event.Weekdays{1, 3}, resp.Event.RecurrenceDays)
		assert.NotEmpty(t, resp.Event.SeriesID)
		assert.Equal(t, app.sensei.ID, resp.Event.CreatedBy)
	})

	t.Run("weekdays as string", func(t *testing.T) {
		body := `{
			"title": "Aula infantil", "category": "aula_regular", "event_type": "dojo", "dojo_id": ` + itoa(app.centro.ID) + `,
			"start_datetime": "2025-10-20T17:00:00Z", "end_datetime": "2025-10-20T18:00:00Z",
			"is_recurring": true, "recurrence_pattern": "Weekly", "recurrence_days": "4, 0", "recurrence_count": 4
		}`
		rec := app.do(http.MethodPost, "/v1/events", senseiToken, []byte(body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp eventResponse
		decode(t, rec, &resp)
		assert.Equal(t, 4, resp.OccurrencesGenerated)
		assert.Equal(t, event.Weekdays{0, 4}, resp.Event.RecurrenceDays)
		assert.Equal(t, event.PatternWeekly, resp.Event.RecurrencePattern)
	})

	t.Run("single with default reminders", func(t *testing.T) {
		resp := app.createEvent(t, adminToken, seminar())
		assert.Equal(t, 0, resp.OccurrencesGenerated)
		assert.Empty(t, resp.Event.SeriesID)
		assert.Len(t, resp.Event.Reminders, len(event.DefaultReminderDays))
	})
}

func Test_eventApi_queryAndRetrieve(t *testing.T) {
	app := setup(t)

	token := getToken(t, app.sensei, app.conf)
	class := app.createEvent(t, token, app.weeklyClass()).Event
	sem := app.createEvent(t, getToken(t, app.admin, app.conf), seminar()).Event

	query := func(t *testing.T, path string) event.Page {
		t.Helper()
		rec := app.do(http.MethodGet, path, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var page event.Page
		decode(t, rec, &page)
		return page
	}
	ids := func(page event.Page) []int {
		out := make([]int, 0, len(page.Events))
		for _, ev := range page.Events {
			out = append(out, ev.ID)
		}
		return out
	}

	tests := []struct {
		name    string
		path    string
		wantIDs []int
	}{
		{name: "all, by start", path: "/v1/events", wantIDs: []int{sem.ID, class.ID}},
		{name: "sort_order=desc", path: "/v1/events?sort_order=desc", wantIDs: []int{class.ID, sem.ID}},
		{name: "ordering=-title", path: "/v1/events?ordering=-title", wantIDs: []int{sem.ID, class.ID}},
		{name: "event_type", path: "/v1/events?event_type=DOJO", wantIDs: []int{class.ID}},
		{name: "dojo_id", path: "/v1/events?dojo_id=" + itoa(app.centro.ID), wantIDs: []int{class.ID}},
		{name: "is_recurring", path: "/v1/events?is_recurring=false", wantIDs: []int{sem.ID}},
		{name: "category", path: "/v1/events?category=seminario", wantIDs: []int{sem.ID}},
		{name: "search", path: "/v1/events?search=regular", wantIDs: []int{class.ID}},
		{name: "start_date", path: "/v1/events?start_date=2025-10-10", wantIDs: []int{class.ID}},
		{name: "end_date", path: "/v1/events?end_date=2025-10-10T00:00:00Z", wantIDs: []int{sem.ID}},
		{name: "status", path: "/v1/events?status=suspended", wantIDs: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantIDs, ids(query(t, tt.path)))
		})
	}

	t.Run("pagination", func(t *testing.T) {
		page := query(t, "/v1/events?per_page=1&page=2")
		assert.Equal(t, []int{class.ID}, ids(page))
		assert.Equal(t, 2, page.Total)
		assert.Equal(t, 2, page.Pages)
		assert.Equal(t, 2, page.CurrentPage)
		assert.Equal(t, 1, page.PerPage)
	})

	badQueries := []httpTest{
		{
			name: "invalid sort_order", path: "/v1/events?sort_order=sideways",
			wantData: marchallObj(t, map[string]string{"sort_order": "sort order must be one of asc, desc"}),
		},
		{
			name: "invalid date", path: "/v1/events?start_date=yesterday",
			wantData: marchallObj(t, map[string]string{"start_date": "must be a date (YYYY-MM-DD) or an RFC 3339 date-time"}),
		},
		{
			name: "invalid page", path: "/v1/events?page=one&is_recurring=maybe",
			wantData: marchallObj(t, map[string]string{"page": "must be an integer", "is_recurring": "must be a boolean"}),
		},
	}
	for _, tt := range badQueries {
		tt.wantCode = http.StatusBadRequest
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(http.MethodGet, tt.path, token))
		})
	}

	t.Run("retrieve", func(t *testing.T) {
		rec := app.do(http.MethodGet, eventPath(sem.ID), token)
		require.Equal(t, http.StatusOK, rec.Code)
		var ev event.Event
		decode(t, rec, &ev)
		assert.Equal(t, sem.Title, ev.Title)
		assert.Len(t, ev.Reminders, len(event.DefaultReminderDays))

		rec = app.do(http.MethodGet, eventPath(999), token)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "event not found"})}, rec)
	})
}

func Test_eventApi_update(t *testing.T) {
	app := setup(t)

	token := getToken(t, app.sensei, app.conf)
	class := app.createEvent(t, token, app.weeklyClass()).Event

	t.Run("pattern change regenerates", func(t *testing.T) {
		rec := app.do(http.MethodPut, eventPath(class.ID), token, []byte(`{"recurrence_pattern": "daily", "recurrence_count": 3}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp eventResponse
		decode(t, rec, &resp)
		assert.Equal(t, "event updated", resp.Message)
		assert.Equal(t, 3, resp.OccurrencesGenerated)
		assert.Nil(t, resp.Event.RecurrenceEndDate)

		rec = app.do(http.MethodGet, eventPath(class.ID, "/occurrences"), token)
		var occs occurrencesResponse
		decode(t, rec, &occs)
		require.Equal(t, 3, occs.Count)
		for i, day := range []int{21, 22, 23} {
			assert.Equal(t, time.Date(2025, 10, day, 19, 0, 0, 0, time.UTC), occs.Occurrences[i].OccurrenceDate.UTC())
		}
	})

	t.Run("title change keeps occurrences", func(t *testing.T) {
		rec := app.do(http.MethodPut, eventPath(class.ID), token, []byte(`{"title": "Aula avancada"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp eventResponse
		decode(t, rec, &resp)
		assert.Equal(t, 0, resp.OccurrencesGenerated)
		assert.Equal(t, "Aula avancada", resp.Event.Title)
	})

	t.Run("invalid", func(t *testing.T) {
		rec := app.do(http.MethodPut, eventPath(class.ID), token, []byte(`{"recurrence_days": [1, 9]}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("forbidden", func(t *testing.T) {
		outsider := testutil.CreateUser(t, app.store.Users, "Outsider", "outsider@kiaikido.test", "", user.RoleDojoUser, &app.norte.ID)
		rec := app.do(http.MethodPut, eventPath(class.ID), getToken(t, outsider, app.conf), []byte(`{"title": "Mine"}`))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("not found", func(t *testing.T) {
		rec := app.do(http.MethodPut, eventPath(999), token, []byte(`{"title": "Nope"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_eventApi_lifecycle(t *testing.T) {
	app := setup(t)

	token := getToken(t, app.sensei, app.conf)
	class := app.createEvent(t, token, app.weeklyClass()).Event
	sem := app.createEvent(t, getToken(t, app.admin, app.conf), seminar()).Event

	t.Run("suspend", func(t *testing.T) {
		rec := app.do(http.MethodPost, eventPath(class.ID, "/suspend"), token, []byte(`{"reason": " Sensei travelling "}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp eventResponse
		decode(t, rec, &resp)
		assert.Equal(t, "event suspended", resp.Message)
		assert.Equal(t, event.StatusSuspended, resp.Event.Status)
		assert.Equal(t, "Sensei travelling", resp.Event.SuspensionReason)
	})

	t.Run("reactivate", func(t *testing.T) {
		rec := app.do(http.MethodPost, eventPath(class.ID, "/reactivate"), token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp eventResponse
		decode(t, rec, &resp)
		assert.Equal(t, event.StatusActive, resp.Event.Status)
		assert.Empty(t, resp.Event.SuspensionReason)
	})

	t.Run("regenerate", func(t *testing.T) {
		rec := app.do(http.MethodPost, eventPath(class.ID, "/regenerate"), token)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"message": "occurrences regenerated", "occurrences_generated": 5}`),
		}, rec)

		rec = app.do(http.MethodPost, eventPath(sem.ID, "/regenerate"), getToken(t, app.admin, app.conf))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "only recurring events have occurrences"}),
		}, rec)
	})

	t.Run("delete forbidden", func(t *testing.T) {
		rec := app.do(http.MethodDelete, eventPath(sem.ID), token)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, eventPath(class.ID), token)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"message": "event deleted"}`)}, rec)

		rec = app.do(http.MethodGet, eventPath(class.ID, "/occurrences"), token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = app.do(http.MethodDelete, eventPath(class.ID), token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_eventApi_occurrences(t *testing.T) {
	app := setup(t)

	token := getToken(t, app.sensei, app.conf)
	class := app.createEvent(t, token, app.weeklyClass()).Event

	list := func(t *testing.T, query string) occurrencesResponse {
		t.Helper()
		rec := app.do(http.MethodGet, eventPath(class.ID, "/occurrences", query), token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp occurrencesResponse
		decode(t, rec, &resp)
		return resp
	}

	all := list(t, "")
	require.Equal(t, 5, all.Count)
	for _, occ := range all.Occurrences {
		assert.Equal(t, class.SeriesID, occ.SeriesID)
		assert.Equal(t, "Tatame principal", occ.Location)
		assert.Equal(t, 90*time.Minute, occ.EndDatetime.Sub(occ.OccurrenceDate))
	}

	window := list(t, "?from=2025-10-25&to=2025-10-31")
	require.Equal(t, 2, window.Count)
	assert.Equal(t, 28, window.Occurrences[0].OccurrenceDate.Day())
	assert.Equal(t, 30, window.Occurrences[1].OccurrenceDate.Day())

	rec := app.do(http.MethodGet, eventPath(class.ID, "/occurrences?from=soon"), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	t.Run("update one", func(t *testing.T) {
		target := all.Occurrences[2]
		path := eventPath(class.ID, "/occurrences/", itoa(target.ID))
		body := []byte(`{"status": "suspended", "suspension_reason": "Feriado", "override_location": "Parque"}`)
		rec := app.do(http.MethodPut, path, token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Message    string               `json:"message"`
			Occurrence event.OccurrenceView `json:"occurrence"`
		}
		decode(t, rec, &resp)
		assert.Equal(t, "occurrence updated", resp.Message)
		assert.Equal(t, event.StatusSuspended, resp.Occurrence.Status)
		assert.Equal(t, "Feriado", resp.Occurrence.SuspensionReason)
		assert.Equal(t, "Parque", resp.Occurrence.Location)
		assert.Equal(t, "Aula regular", resp.Occurrence.Title)

		// the rest of the series is untouched
		after := list(t, "")
		for _, occ := range after.Occurrences {
			if occ.ID != target.ID {
				assert.Equal(t, event.StatusActive, occ.Status)
			}
		}
	})

	t.Run("update errors", func(t *testing.T) {
		rec := app.do(http.MethodPut, eventPath(class.ID, "/occurrences/999"), token, []byte(`{"status": "cancelled"}`))
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "occurrence not found"})}, rec)

		path := eventPath(class.ID, "/occurrences/", itoa(all.Occurrences[0].ID))
		rec = app.do(http.MethodPut, path, token, []byte(`{"status": "postponed"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_eventApi_reminders(t *testing.T) {
	app := setup(t)

	adminToken := getToken(t, app.admin, app.conf)
	senseiToken := getToken(t, app.sensei, app.conf)
	sem := app.createEvent(t, adminToken, seminar()).Event
	app.createEvent(t, senseiToken, app.weeklyClass())

	t.Run("active", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/events/reminders/active", senseiToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Reminders []event.DueReminder `json:"reminders"`
			Count     int                 `json:"count"`
		}
		decode(t, rec, &resp)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, 7, resp.Reminders[0].DaysBefore)
		assert.Equal(t, sem.ID, resp.Reminders[0].Event.ID)
	})

	t.Run("add", func(t *testing.T) {
		rec := app.do(http.MethodPost, eventPath(sem.ID, "/reminders"), adminToken, []byte(`{"days_before": 5, "reminder_type": "POPUP", "message": "Inscricoes abertas"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp struct {
			Message  string         `json:"message"`
			Reminder event.Reminder `json:"reminder"`
		}
		decode(t, rec, &resp)
		assert.Equal(t, "reminder created", resp.Message)
		assert.Equal(t, 5, resp.Reminder.DaysBefore)
		assert.Equal(t, event.ReminderPopup, resp.Reminder.ReminderType)
		assert.True(t, resp.Reminder.IsActive)

		// due since Sep 30 10:00
		rec = app.do(http.MethodGet, "/v1/events/reminders/active", adminToken)
		var active struct {
			Count int `json:"count"`
		}
		decode(t, rec, &active)
		assert.Equal(t, 2, active.Count)
	})

	t.Run("add errors", func(t *testing.T) {
		rec := app.do(http.MethodPost, eventPath(sem.ID, "/reminders"), adminToken, []byte(`{"reminder_type": "banner"}`))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"days_before": "this field is required"}),
		}, rec)

		rec = app.do(http.MethodPost, eventPath(sem.ID, "/reminders"), senseiToken, []byte(`{"days_before": 1, "reminder_type": "banner"}`))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})
}

func Test_eventApi_previewRecurrence(t *testing.T) {
	app := setup(t)

	token := getToken(t, app.sensei, app.conf)

	t.Run("month end clamp", func(t *testing.T) {
		body := []byte(`{
			"start_datetime": "2025-01-31T10:00:00Z", "end_datetime": "2025-01-31T11:00:00Z",
			"recurrence_pattern": "monthly", "recurrence_count": 4
		}`)
		rec := app.do(http.MethodPost, "/v1/events/recurrence/preview", token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Occurrences []event.Slot `json:"occurrences"`
			Count       int          `json:"count"`
		}
		decode(t, rec, &resp)
		require.Equal(t, 4, resp.Count)
		for i, want := range []time.Time{
			time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC),
			time.Date(2025, 4, 30, 10, 0, 0, 0, time.UTC),
		} {
			assert.True(t, want.Equal(resp.Occurrences[i].Start), "slot %d = %v; want %v", i, resp.Occurrences[i].Start, want)
			assert.Equal(t, time.Hour, resp.Occurrences[i].End.Sub(resp.Occurrences[i].Start))
		}
	})

	tests := []httpTest{
		{
			name: "start required", body: []byte(`{"recurrence_pattern": "daily"}`),
			wantData: marchallObj(t, map[string]string{"start_datetime": "start date is required"}),
		},
		{
			name: "pattern required", body: []byte(`{"start_datetime": "2025-01-31T10:00:00Z"}`),
			wantData: marchallObj(t, map[string]string{"recurrence_pattern": "recurrence pattern is required"}),
		},
		{
			name: "end date before start", body: []byte(`{"start_datetime": "2025-01-31T10:00:00Z", "recurrence_pattern": "daily", "recurrence_end_date": "2025-01-01T00:00:00Z"}`),
			wantData: marchallObj(t, map[string]string{"recurrence_end_date": "recurrence end date cannot be before the start date"}),
		},
	}
	for _, tt := range tests {
		tt.wantCode = http.StatusBadRequest
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(http.MethodPost, "/v1/events/recurrence/preview", token, tt.body))
		})
	}
}

func Test_eventApi_statisticsAndCalendar(t *testing.T) {
	app := setup(t)

	token := getToken(t, app.sensei, app.conf)
	class := app.createEvent(t, token, app.weeklyClass()).Event
	app.createEvent(t, getToken(t, app.admin, app.conf), seminar())
	rec := app.do(http.MethodPost, eventPath(class.ID, "/suspend"), token, []byte(`{}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("statistics", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/events/statistics", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var st event.Statistics
		decode(t, rec, &st)
		assert.Equal(t, 2, st.TotalEvents)
		assert.Equal(t, 1, st.RecurringEvents)
		assert.Equal(t, map[string]int{"active": 1, "suspended": 1, "cancelled": 0, "completed": 0}, st.ByStatus)
		assert.Equal(t, map[string]int{"admin": 1, "dojo": 1}, st.ByType)
		assert.Equal(t, map[string]int{"aula_regular": 1, "seminario": 1}, st.ByCategory)
	})

	t.Run("calendar", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/events/calendar.ics", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "events.ics")

		body := rec.Body.String()
		assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
		assert.Equal(t, 6, strings.Count(body, "BEGIN:VEVENT"))
		assert.Contains(t, body, "X-WR-CALNAME:Ki Aikido")

		rec = app.do(http.MethodGet, "/v1/events/calendar.ics?event_type=admin", token)
		assert.Equal(t, 1, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))
	})
}

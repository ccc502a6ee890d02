package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d2monteblanco/ki-aikido-system/core"
)

func TestWeekdays_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Weekdays
		wantErr bool
	}{
		{name: "array", data: `[1, 3]`, want: Weekdays{1, 3}},
		{name: "comma separated string", data: `"1,3,5"`, want: Weekdays{1, 3, 5}},
		{name: "string with spaces", data: `" 0, 6 "`, want: Weekdays{0, 6}},
		{name: "empty string", data: `""`, want: Weekdays{}},
		{name: "null", data: `null`, want: nil},
		{name: "invalid string", data: `"mon,wed"`, wantErr: true},
		{name: "invalid type", data: `{"day": 1}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Weekdays
			err := json.Unmarshal([]byte(tt.data), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWeekdays_Normalized(t *testing.T) {
	assert.Equal(t, Weekdays{0, 3, 4}, Weekdays{4, 0, 3, 4}.Normalized())
	assert.Nil(t, Weekdays{}.Normalized())
	assert.True(t, Weekdays{3, 1}.Equal(Weekdays{1, 3, 3}))
	assert.False(t, Weekdays{1}.Equal(Weekdays{1, 2}))
	assert.True(t, Weekdays(nil).Equal(Weekdays{}))
}

func TestNewEvent_event(t *testing.T) {
	now := date(2025, 10, 1, 8, 0)
	count := 4
	ne := NewEvent{
		Title:             "Weekly class",
		Category:          CategoryRegularClass,
		EventType:         TypeAdmin,
		StartDatetime:     date(2025, 10, 21, 19, 0),
		EndDatetime:       date(2025, 10, 21, 20, 30),
		RecurrencePattern: PatternWeekly,
		RecurrenceDays:    Weekdays{3, 1},
		RecurrenceCount:   &count,
	}

	ev := ne.event(7, now)
	assert.Equal(t, StatusActive, ev.Status)
	assert.Equal(t, PriorityMedium, ev.ReminderPriority)
	assert.Equal(t, 7, ev.CreatedBy)
	assert.Equal(t, now, ev.CreatedAt)
	assert.False(t, ev.IsRecurring)
	assert.Empty(t, ev.RecurrencePattern)
	assert.Nil(t, ev.RecurrenceDays)
	assert.Nil(t, ev.RecurrenceCount)

	ne.IsRecurring = true
	ev = ne.event(7, now)
	assert.True(t, ev.IsRecurring)
	assert.Equal(t, PatternWeekly, ev.RecurrencePattern)
	assert.Equal(t, 1, ev.RecurrenceInterval)
	assert.Equal(t, Weekdays{1, 3}, ev.RecurrenceDays)
	assert.Equal(t, 90*time.Minute, ev.Duration())
}

func TestNewEvent_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	valid := func() NewEvent {
		return NewEvent{
			Title:         "Exam",
			Category:      CategoryExam,
			EventType:     TypeAdmin,
			StartDatetime: date(2025, 12, 6, 9, 0),
			EndDatetime:   date(2025, 12, 6, 12, 0),
		}
	}

	tests := []struct {
		name    string
		modify  func(ne *NewEvent)
		wantErr bool
	}{
		{name: "valid", modify: func(ne *NewEvent) {}},
		{name: "blank title", modify: func(ne *NewEvent) { ne.Title = "   " }, wantErr: true},
		{name: "unknown category", modify: func(ne *NewEvent) { ne.Category = "party" }, wantErr: true},
		{name: "unknown type", modify: func(ne *NewEvent) { ne.EventType = "global" }, wantErr: true},
		{name: "unknown priority", modify: func(ne *NewEvent) { ne.ReminderPriority = "urgent" }, wantErr: true},
		{name: "unknown pattern", modify: func(ne *NewEvent) { ne.RecurrencePattern = "hourly" }, wantErr: true},
		{name: "negative interval", modify: func(ne *NewEvent) { ne.RecurrenceInterval = -1 }, wantErr: true},
		{name: "weekday out of range", modify: func(ne *NewEvent) { ne.RecurrenceDays = Weekdays{0, 9} }, wantErr: true},
		{name: "valid weekdays", modify: func(ne *NewEvent) { ne.RecurrenceDays = Weekdays{0, 6} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ne := valid()
			tt.modify(&ne)
			err := validate.Struct(ne)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate.Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_checkEvent(t *testing.T) {
	dojoID := 1
	base := func() Event {
		return Event{
			EventType:     TypeDojo,
			DojoID:        &dojoID,
			StartDatetime: date(2025, 10, 21, 19, 0),
			EndDatetime:   date(2025, 10, 21, 20, 30),
		}
	}

	tests := []struct {
		name      string
		modify    func(ev *Event)
		wantField string
	}{
		{name: "valid", modify: func(ev *Event) {}},
		{name: "dojo event without dojo", modify: func(ev *Event) { ev.DojoID = nil }, wantField: "dojo_id"},
		{name: "admin event with dojo", modify: func(ev *Event) { ev.EventType = TypeAdmin }, wantField: "dojo_id"},
		{name: "end before start", modify: func(ev *Event) { ev.EndDatetime = ev.StartDatetime.Add(-time.Minute) }, wantField: "end_datetime"},
		{name: "zero duration", modify: func(ev *Event) { ev.EndDatetime = ev.StartDatetime }},
		{name: "recurring without pattern", modify: func(ev *Event) { ev.IsRecurring = true }, wantField: "recurrence_pattern"},
		{
			name: "recurrence end before start",
			modify: func(ev *Event) {
				end := date(2025, 10, 1, 0, 0)
				ev.IsRecurring, ev.RecurrencePattern, ev.RecurrenceEndDate = true, PatternDaily, &end
			},
			wantField: "recurrence_end_date",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := base()
			tt.modify(&ev)
			err := checkEvent(ev)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			verr, ok := err.(*core.ValidationError)
			require.True(t, ok)
			assert.Equal(t, tt.wantField, verr.Fields[0].Field)
		})
	}
}

func TestUpdateEvent_apply(t *testing.T) {
	now := date(2025, 10, 2, 8, 0)
	count := 10
	end := date(2025, 12, 31, 0, 0)
	ev := Event{
		ID:                 3,
		Title:              "Class",
		Status:             StatusSuspended,
		SuspensionReason:   "holidays",
		IsRecurring:        true,
		RecurrencePattern:  PatternWeekly,
		RecurrenceInterval: 1,
		RecurrenceDays:     Weekdays{1, 3},
		RecurrenceCount:    &count,
		SeriesID:           "series",
		StartDatetime:      date(2025, 10, 21, 19, 0),
		EndDatetime:        date(2025, 10, 21, 20, 30),
	}

	t.Run("untouched fields are kept", func(t *testing.T) {
		title := "Evening class"
		got := UpdateEvent{Title: &title}.apply(ev, now)
		assert.Equal(t, "Evening class", got.Title)
		assert.Equal(t, "holidays", got.SuspensionReason)
		assert.Equal(t, Weekdays{1, 3}, got.RecurrenceDays)
		assert.Equal(t, now, got.UpdatedAt)
		assert.False(t, recurrenceChanged(ev, got))
	})

	t.Run("reactivating clears the suspension reason", func(t *testing.T) {
		status := StatusActive
		got := UpdateEvent{Status: &status}.apply(ev, now)
		assert.Empty(t, got.SuspensionReason)
	})

	t.Run("an end date replaces the count", func(t *testing.T) {
		got := UpdateEvent{RecurrenceEndDate: &end}.apply(ev, now)
		assert.Nil(t, got.RecurrenceCount)
		require.NotNil(t, got.RecurrenceEndDate)
		assert.True(t, recurrenceChanged(ev, got))
	})

	t.Run("pattern change", func(t *testing.T) {
		daily := PatternDaily
		got := UpdateEvent{RecurrencePattern: &daily}.apply(ev, now)
		assert.True(t, recurrenceChanged(ev, got))
	})

	t.Run("turning recurrence off clears the series", func(t *testing.T) {
		off := false
		got := UpdateEvent{IsRecurring: &off}.apply(ev, now)
		assert.False(t, got.IsRecurring)
		assert.Empty(t, got.RecurrencePattern)
		assert.Empty(t, got.SeriesID)
		assert.Nil(t, got.RecurrenceCount)
		assert.True(t, recurrenceChanged(ev, got))
	})

	t.Run("moving the start", func(t *testing.T) {
		start := date(2025, 10, 22, 19, 0)
		got := UpdateEvent{StartDatetime: &start}.apply(ev, now)
		assert.True(t, recurrenceChanged(ev, got))
	})
}

func TestOccurrence_View(t *testing.T) {
	ev := Event{Title: "Class", Description: "Regular", Location: "Main dojo", Category: CategoryRegularClass}

	v := Occurrence{ID: 1}.View(ev)
	assert.Equal(t, "Class", v.Title)
	assert.Equal(t, "Main dojo", v.Location)

	v = Occurrence{ID: 1, OverrideTitle: "Guest class", OverrideLocation: "Park"}.View(ev)
	assert.Equal(t, "Guest class", v.Title)
	assert.Equal(t, "Regular", v.Description)
	assert.Equal(t, "Park", v.Location)
	assert.Equal(t, CategoryRegularClass, v.Category)
}

func TestQueryFilter_Clean(t *testing.T) {
	qf := QueryFilter{EventType: " DOJO ", Page: -3, PerPage: 1000, Ordering: core.DBOrdering{Field: "id"}}
	qf.Clean()
	assert.Equal(t, TypeDojo, qf.EventType)
	assert.Equal(t, 1, qf.Page)
	assert.Equal(t, MaxPerPage, qf.PerPage)
	assert.Equal(t, core.DBOrdering{Field: SortByStart, Ascending: true}, qf.Ordering)

	qf = QueryFilter{Page: 3, PerPage: 20}
	qf.Clean()
	assert.Equal(t, 40, qf.Offset())
	p := newPage(nil, 45, qf)
	assert.Equal(t, 3, p.Pages)
	assert.NotNil(t, p.Events)
}

package event

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/d2monteblanco/ki-aikido-system/core"
)

// Event types
const (
	TypeAdmin = "admin" // federation-wide, no dojo
	TypeDojo  = "dojo"
)

// Statuses, shared by events and occurrences
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Recurrence patterns
const (
	PatternDaily   = "daily"
	PatternWeekly  = "weekly"
	PatternMonthly = "monthly"
	PatternYearly  = "yearly"
)

// Reminder priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Reminder types
const (
	ReminderBanner = "banner"
	ReminderBadge  = "badge"
	ReminderPopup  = "popup"
)

// Categories
const (
	CategoryExam          = "exame"
	CategorySeminar       = "seminario"
	CategorySpecialClass  = "aula_especial"
	CategoryRegularClass  = "aula_regular"
	CategorySocialEvent   = "evento_social"
	CategoryAnnouncement  = "aviso"
	CategoryOther         = "outro"
	defaultRecurrenceStep = 1
)

var (
	AllTypes         = []string{TypeAdmin, TypeDojo}
	AllStatuses      = []string{StatusActive, StatusSuspended, StatusCancelled, StatusCompleted}
	AllPatterns      = []string{PatternDaily, PatternWeekly, PatternMonthly, PatternYearly}
	AllPriorities    = []string{PriorityHigh, PriorityMedium, PriorityLow}
	AllReminderTypes = []string{ReminderBanner, ReminderBadge, ReminderPopup}
	AllCategories    = []string{
		CategoryExam, CategorySeminar, CategorySpecialClass, CategoryRegularClass,
		CategorySocialEvent, CategoryAnnouncement, CategoryOther,
	}

	// DefaultReminderDays are the offsets created by the default reminder set: a week, 3 days, 1 day and the day itself.
	DefaultReminderDays = []int{7, 3, 1, 0}
)

// Weekdays is a set of weekday indices, Monday=0 ... Sunday=6.
// It decodes from a JSON array or from a comma separated string such as "1,3,5".
type Weekdays []int

func (wd *Weekdays) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*wd = nil
		return nil
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err == nil {
		*wd = ints
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("recurrence_days must be an array of weekday indices or a comma separated string")
	}
	days, err := ParseWeekdays(s)
	if err != nil {
		return err
	}
	*wd = days
	return nil
}

// ParseWeekdays parses a comma separated list of weekday indices.
func ParseWeekdays(s string) (Weekdays, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Weekdays{}, nil
	}
	parts := strings.Split(s, ",")
	days := make(Weekdays, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Errorf("invalid weekday %q", p)
		}
		days = append(days, d)
	}
	return days, nil
}

// Normalized returns the sorted weekdays without duplicates.
func (wd Weekdays) Normalized() Weekdays {
	if len(wd) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(wd))
	out := make(Weekdays, 0, len(wd))
	for _, d := range wd {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

func (wd Weekdays) Equal(other Weekdays) bool {
	a, b := wd.Normalized(), other.Normalized()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type Event struct {
	ID                 int        `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Category           string     `json:"category"`
	EventType          string     `json:"event_type"`
	DojoID             *int       `json:"dojo_id"`
	DojoName           string     `json:"dojo_name,omitempty"`
	StartDatetime      time.Time  `json:"start_datetime"`
	EndDatetime        time.Time  `json:"end_datetime"`
	AllDay             bool       `json:"all_day"`
	Status             string     `json:"status"`
	SuspensionReason   string     `json:"suspension_reason"`
	IsRecurring        bool       `json:"is_recurring"`
	RecurrencePattern  string     `json:"recurrence_pattern"`
	RecurrenceInterval int        `json:"recurrence_interval"`
	RecurrenceDays     Weekdays   `json:"recurrence_days"`
	RecurrenceEndDate  *time.Time `json:"recurrence_end_date"`
	RecurrenceCount    *int       `json:"recurrence_count"`
	SeriesID           string     `json:"series_id"`
	Location           string     `json:"location"`
	ReminderPriority   string     `json:"reminder_priority"`
	CreatedBy          int        `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"` // UTC
	UpdatedAt          time.Time  `json:"updated_at"` // UTC

	Reminders []Reminder `json:"reminders,omitempty"`
}

// Duration is the length of the event, preserved by every occurrence.
func (ev Event) Duration() time.Duration {
	return ev.EndDatetime.Sub(ev.StartDatetime)
}

// Rule returns the recurrence rule described by the event's recurrence fields.
func (ev Event) Rule() RecurrenceRule {
	rule := RecurrenceRule{
		Start:    ev.StartDatetime,
		Duration: ev.Duration(),
		Pattern:  ev.RecurrencePattern,
		Interval: ev.RecurrenceInterval,
		Days:     ev.RecurrenceDays,
		EndDate:  ev.RecurrenceEndDate,
	}
	if ev.RecurrenceCount != nil {
		rule.Count = *ev.RecurrenceCount
	}
	return rule
}

// clearRecurrence drops every recurrence field of a non recurring event.
func (ev *Event) clearRecurrence() {
	ev.IsRecurring = false
	ev.RecurrencePattern = ""
	ev.RecurrenceInterval = defaultRecurrenceStep
	ev.RecurrenceDays = nil
	ev.RecurrenceEndDate = nil
	ev.RecurrenceCount = nil
	ev.SeriesID = ""
}

// recurrenceChanged reports whether the fields the occurrence cache is derived from differ.
func recurrenceChanged(old, ev Event) bool {
	if old.IsRecurring != ev.IsRecurring ||
		old.RecurrencePattern != ev.RecurrencePattern ||
		old.RecurrenceInterval != ev.RecurrenceInterval ||
		!old.RecurrenceDays.Equal(ev.RecurrenceDays) ||
		!old.StartDatetime.Equal(ev.StartDatetime) ||
		!old.EndDatetime.Equal(ev.EndDatetime) {
		return true
	}
	if !timePtrEqual(old.RecurrenceEndDate, ev.RecurrenceEndDate) {
		return true
	}
	return !intPtrEqual(old.RecurrenceCount, ev.RecurrenceCount)
}

type Reminder struct {
	ID           int        `json:"id"`
	EventID      int        `json:"event_id"`
	DaysBefore   int        `json:"days_before"`
	ReminderType string     `json:"reminder_type"`
	Message      string     `json:"message"`
	IsActive     bool       `json:"is_active"`
	TriggeredAt  *time.Time `json:"triggered_at"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
}

// Occurrence is one materialized instance of a recurring event.
type Occurrence struct {
	ID                  int       `json:"id"`
	EventID             int       `json:"event_id"`
	SeriesID            string    `json:"series_id"`
	OccurrenceDate      time.Time `json:"occurrence_date"`
	EndDatetime         time.Time `json:"end_datetime"`
	Status              string    `json:"status"`
	SuspensionReason    string    `json:"suspension_reason"`
	OverrideTitle       string    `json:"override_title"`
	OverrideDescription string    `json:"override_description"`
	OverrideLocation    string    `json:"override_location"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
}

// OccurrenceView is an occurrence with the parent event's display data, overrides applied.
type OccurrenceView struct {
	Occurrence
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Category    string `json:"category"`
	AllDay      bool   `json:"all_day"`
}

func (occ Occurrence) View(ev Event) OccurrenceView {
	v := OccurrenceView{
		Occurrence:  occ,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Category:    ev.Category,
		AllDay:      ev.AllDay,
	}
	if occ.OverrideTitle != "" {
		v.Title = occ.OverrideTitle
	}
	if occ.OverrideDescription != "" {
		v.Description = occ.OverrideDescription
	}
	if occ.OverrideLocation != "" {
		v.Location = occ.OverrideLocation
	}
	return v
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Title                  string     `json:"title" validate:"required,notblank,max=200"`
	Description            string     `json:"description"`
	Category               string     `json:"category" validate:"required,eventcategory"`
	EventType              string     `json:"event_type" validate:"required,eventtype"`
	DojoID                 *int       `json:"dojo_id" validate:"omitempty,min=1"`
	StartDatetime          time.Time  `json:"start_datetime" validate:"required"`
	EndDatetime            time.Time  `json:"end_datetime" validate:"required"`
	AllDay                 bool       `json:"all_day"`
	Location               string     `json:"location" validate:"max=200"`
	ReminderPriority       string     `json:"reminder_priority" validate:"omitempty,reminderpriority"`
	IsRecurring            bool       `json:"is_recurring"`
	RecurrencePattern      string     `json:"recurrence_pattern" validate:"omitempty,recurrencepattern"`
	RecurrenceInterval     int        `json:"recurrence_interval" validate:"gte=0"`
	RecurrenceDays         Weekdays   `json:"recurrence_days" validate:"omitempty,weekdays"`
	RecurrenceEndDate      *time.Time `json:"recurrence_end_date"`
	RecurrenceCount        *int       `json:"recurrence_count" validate:"omitempty,min=1"`
	CreateDefaultReminders bool       `json:"create_default_reminders"`
}

func (ne *NewEvent) Clean() {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Category = core.CleanString(ne.Category, true /* lower */)
	ne.EventType = core.CleanString(ne.EventType, true /* lower */)
	ne.Location = core.CleanString(ne.Location)
	ne.ReminderPriority = core.CleanString(ne.ReminderPriority, true /* lower */)
	ne.RecurrencePattern = core.CleanString(ne.RecurrencePattern, true /* lower */)
}

// event builds the Event to store; recurrence fields are dropped when IsRecurring is false.
func (ne NewEvent) event(createdBy int, now time.Time) Event {
	ev := Event{
		Title:              ne.Title,
		Description:        ne.Description,
		Category:           ne.Category,
		EventType:          ne.EventType,
		DojoID:             ne.DojoID,
		StartDatetime:      ne.StartDatetime.UTC(),
		EndDatetime:        ne.EndDatetime.UTC(),
		AllDay:             ne.AllDay,
		Status:             StatusActive,
		Location:           ne.Location,
		ReminderPriority:   ne.ReminderPriority,
		IsRecurring:        ne.IsRecurring,
		RecurrencePattern:  ne.RecurrencePattern,
		RecurrenceInterval: ne.RecurrenceInterval,
		RecurrenceDays:     ne.RecurrenceDays.Normalized(),
		RecurrenceEndDate:  utcPtr(ne.RecurrenceEndDate),
		RecurrenceCount:    ne.RecurrenceCount,
		CreatedBy:          createdBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if ev.ReminderPriority == "" {
		ev.ReminderPriority = PriorityMedium
	}
	if ev.RecurrenceInterval == 0 {
		ev.RecurrenceInterval = defaultRecurrenceStep
	}
	if !ev.IsRecurring {
		ev.clearRecurrence()
	}
	return ev
}

// UpdateEvent defines what information may be provided to modify an existing Event.
// Nil fields are left untouched. Supplying only one of recurrence_end_date and
// recurrence_count replaces the other bound.
type UpdateEvent struct {
	Title              *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description        *string    `json:"description"`
	Category           *string    `json:"category" validate:"omitempty,eventcategory"`
	StartDatetime      *time.Time `json:"start_datetime"`
	EndDatetime        *time.Time `json:"end_datetime"`
	AllDay             *bool      `json:"all_day"`
	Location           *string    `json:"location" validate:"omitempty,max=200"`
	ReminderPriority   *string    `json:"reminder_priority" validate:"omitempty,reminderpriority"`
	Status             *string    `json:"status" validate:"omitempty,eventstatus"`
	SuspensionReason   *string    `json:"suspension_reason" validate:"omitempty,max=200"`
	IsRecurring        *bool      `json:"is_recurring"`
	RecurrencePattern  *string    `json:"recurrence_pattern" validate:"omitempty,recurrencepattern"`
	RecurrenceInterval *int       `json:"recurrence_interval" validate:"omitempty,gte=0"`
	RecurrenceDays     Weekdays   `json:"recurrence_days" validate:"omitempty,weekdays"`
	RecurrenceEndDate  *time.Time `json:"recurrence_end_date"`
	RecurrenceCount    *int       `json:"recurrence_count" validate:"omitempty,min=1"`
}

func (ue *UpdateEvent) Clean() {
	cleanPtr := func(s *string, lower bool) {
		if s != nil {
			*s = core.CleanString(*s, lower)
		}
	}
	cleanPtr(ue.Title, false)
	cleanPtr(ue.Description, false)
	cleanPtr(ue.Category, true)
	cleanPtr(ue.Location, false)
	cleanPtr(ue.ReminderPriority, true)
	cleanPtr(ue.Status, true)
	cleanPtr(ue.SuspensionReason, false)
	cleanPtr(ue.RecurrencePattern, true)
}

// apply returns a copy of ev with the provided fields set.
func (ue UpdateEvent) apply(ev Event, now time.Time) Event {
	if ue.Title != nil {
		ev.Title = *ue.Title
	}
	if ue.Description != nil {
		ev.Description = *ue.Description
	}
	if ue.Category != nil {
		ev.Category = *ue.Category
	}
	if ue.StartDatetime != nil {
		ev.StartDatetime = ue.StartDatetime.UTC()
	}
	if ue.EndDatetime != nil {
		ev.EndDatetime = ue.EndDatetime.UTC()
	}
	if ue.AllDay != nil {
		ev.AllDay = *ue.AllDay
	}
	if ue.Location != nil {
		ev.Location = *ue.Location
	}
	if ue.ReminderPriority != nil {
		ev.ReminderPriority = *ue.ReminderPriority
	}
	if ue.Status != nil {
		ev.Status = *ue.Status
	}
	if ue.SuspensionReason != nil {
		ev.SuspensionReason = *ue.SuspensionReason
	}
	if ev.Status != StatusSuspended {
		ev.SuspensionReason = ""
	}

	if ue.IsRecurring != nil {
		ev.IsRecurring = *ue.IsRecurring
	}
	if ue.RecurrencePattern != nil {
		ev.RecurrencePattern = *ue.RecurrencePattern
	}
	if ue.RecurrenceInterval != nil {
		ev.RecurrenceInterval = *ue.RecurrenceInterval
		if ev.RecurrenceInterval == 0 {
			ev.RecurrenceInterval = defaultRecurrenceStep
		}
	}
	if ue.RecurrenceDays != nil {
		ev.RecurrenceDays = ue.RecurrenceDays.Normalized()
	}
	switch {
	case ue.RecurrenceEndDate != nil && ue.RecurrenceCount != nil:
		ev.RecurrenceEndDate = utcPtr(ue.RecurrenceEndDate)
		ev.RecurrenceCount = ue.RecurrenceCount
	case ue.RecurrenceEndDate != nil:
		ev.RecurrenceEndDate = utcPtr(ue.RecurrenceEndDate)
		ev.RecurrenceCount = nil
	case ue.RecurrenceCount != nil:
		ev.RecurrenceEndDate = nil
		ev.RecurrenceCount = ue.RecurrenceCount
	}
	if !ev.IsRecurring {
		ev.clearRecurrence()
	}
	ev.UpdatedAt = now
	return ev
}

// NewReminder contains information needed to add a Reminder to an Event.
type NewReminder struct {
	DaysBefore   *int   `json:"days_before" validate:"required,min=0"`
	ReminderType string `json:"reminder_type" validate:"required,remindertype"`
	Message      string `json:"message"`
}

func (nr *NewReminder) Clean() {
	nr.ReminderType = core.CleanString(nr.ReminderType, true /* lower */)
	nr.Message = core.CleanString(nr.Message)
}

// UpdateOccurrence changes a single occurrence without touching its series.
// Empty override strings clear the override.
type UpdateOccurrence struct {
	Status              *string `json:"status" validate:"omitempty,eventstatus"`
	SuspensionReason    *string `json:"suspension_reason" validate:"omitempty,max=200"`
	OverrideTitle       *string `json:"override_title" validate:"omitempty,max=200"`
	OverrideDescription *string `json:"override_description"`
	OverrideLocation    *string `json:"override_location" validate:"omitempty,max=200"`
}

func (uo UpdateOccurrence) apply(occ Occurrence, now time.Time) Occurrence {
	if uo.Status != nil {
		occ.Status = core.CleanString(*uo.Status, true /* lower */)
	}
	if uo.SuspensionReason != nil {
		occ.SuspensionReason = core.CleanString(*uo.SuspensionReason)
	}
	if occ.Status != StatusSuspended {
		occ.SuspensionReason = ""
	}
	if uo.OverrideTitle != nil {
		occ.OverrideTitle = core.CleanString(*uo.OverrideTitle)
	}
	if uo.OverrideDescription != nil {
		occ.OverrideDescription = core.CleanString(*uo.OverrideDescription)
	}
	if uo.OverrideLocation != nil {
		occ.OverrideLocation = core.CleanString(*uo.OverrideLocation)
	}
	occ.UpdatedAt = now
	return occ
}

// Sort fields accepted by QueryFilter.SortBy
const (
	SortByStart = "start_datetime"
	SortByTitle = "title"
	SortByType  = "event_type"

	DefaultPerPage = 50
	MaxPerPage     = 200
)

type QueryFilter struct {
	EventType   string
	DojoID      int
	Category    string
	Status      string
	StartDate   time.Time // events starting at or after
	EndDate     time.Time // events ending at or before
	IsRecurring *bool
	Search      string // case-insensitive match on title or description

	Ordering core.DBOrdering
	Page     int
	PerPage  int // 0 means no pagination
}

func (qf *QueryFilter) Clean() {
	qf.EventType = core.CleanString(qf.EventType, true /* lower */)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
	switch qf.Ordering.Field {
	case SortByStart, SortByTitle, SortByType:
	default:
		qf.Ordering = core.DBOrdering{Field: SortByStart, Ascending: true}
	}
	if qf.Page < 1 {
		qf.Page = 1
	}
	if qf.PerPage < 0 {
		qf.PerPage = DefaultPerPage
	}
	if qf.PerPage > MaxPerPage {
		qf.PerPage = MaxPerPage
	}
}

// Offset is the number of rows skipped for the current page.
func (qf QueryFilter) Offset() int {
	if qf.PerPage == 0 {
		return 0
	}
	return (qf.Page - 1) * qf.PerPage
}

type Page struct {
	Events      []Event `json:"events"`
	Total       int     `json:"total"`
	Pages       int     `json:"pages"`
	CurrentPage int     `json:"current_page"`
	PerPage     int     `json:"per_page"`
}

func newPage(events []Event, total int, filter QueryFilter) Page {
	if events == nil {
		events = []Event{}
	}
	p := Page{Events: events, Total: total, CurrentPage: filter.Page, PerPage: filter.PerPage}
	switch {
	case total == 0:
		p.Pages = 0
	case filter.PerPage == 0:
		p.Pages = 1
	default:
		p.Pages = (total + filter.PerPage - 1) / filter.PerPage
	}
	return p
}

type OccurrenceFilter struct {
	EventID int
	From    time.Time // occurrences starting at or after
	To      time.Time // occurrences starting at or before
}

type Statistics struct {
	TotalEvents     int            `json:"total_events"`
	ByStatus        map[string]int `json:"by_status"`
	ByType          map[string]int `json:"by_type"`
	RecurringEvents int            `json:"recurring_events"`
	ByCategory      map[string]int `json:"by_category"`
}

// NewStatistics returns Statistics with every known status & type present.
func NewStatistics() Statistics {
	st := Statistics{
		ByStatus:   make(map[string]int, len(AllStatuses)),
		ByType:     make(map[string]int, len(AllTypes)),
		ByCategory: make(map[string]int),
	}
	for _, s := range AllStatuses {
		st.ByStatus[s] = 0
	}
	for _, t := range AllTypes {
		st.ByType[t] = 0
	}
	return st
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

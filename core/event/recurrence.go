package event

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"github.com/d2monteblanco/ki-aikido-system/core"
)

const (
	defaultMaxOccurrences    = 100
	defaultOccurrenceCeiling = 5000
)

// rrule weekdays indexed Monday=0 ... Sunday=6
var ruleWeekdays = [7]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// RecurrenceRule describes how a series repeats from its first occurrence.
type RecurrenceRule struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"-"`
	Pattern  string        `json:"pattern"`
	Interval int           `json:"interval"` // 0 means 1
	Days     Weekdays      `json:"days"`     // weekly only
	EndDate  *time.Time    `json:"end_date"` // inclusive calendar day; wins over Count
	Count    int           `json:"count"`    // 0 means unbounded
}

// check returns the problems of the rule, if any.
func (r RecurrenceRule) check() []core.FieldError {
	var flds []core.FieldError
	add := func(field, msg string) {
		flds = append(flds, core.FieldError{Field: field, Error: msg})
	}

	switch r.Pattern {
	case PatternDaily, PatternWeekly, PatternMonthly, PatternYearly:
	case "":
		add("recurrence_pattern", "recurrence pattern is required")
	default:
		add("recurrence_pattern", recurrencePatternText)
	}
	if r.Interval < 0 {
		add("recurrence_interval", "recurrence interval must be a positive integer")
	}
	for _, d := range r.Days {
		if d < 0 || d > 6 {
			add("recurrence_days", weekdaysText)
			break
		}
	}
	if r.Count < 0 {
		add("recurrence_count", "recurrence count must be a positive integer")
	}
	if r.EndDate != nil && endOfDay(*r.EndDate, r.Start.Location()).Before(r.Start) {
		add("recurrence_end_date", "recurrence end date cannot be before the start date")
	}
	if r.Duration < 0 {
		add("end_datetime", "end date must be after start date")
	}
	return flds
}

// Validate returns a *core.ValidationError when the rule cannot be expanded.
func (r RecurrenceRule) Validate() error {
	if flds := r.check(); len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Slot is the time span of one generated occurrence.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Expander turns recurrence rules into occurrence slots.
type Expander struct {
	// Location is the timezone calendar arithmetic is done in: days, weekdays & end dates.
	Location *time.Location
	// MaxOccurrences bounds a series that has neither an end date nor a count.
	MaxOccurrences int
	// Ceiling bounds every series, whatever its end condition.
	Ceiling int
}

func NewExpander(conf core.EventsConfig) Expander {
	return Expander{
		Location:       conf.Location(),
		MaxOccurrences: conf.MaxOccurrences,
		Ceiling:        conf.OccurrenceCeiling,
	}
}

func (x Expander) location() *time.Location {
	if x.Location == nil {
		return time.UTC
	}
	return x.Location
}

// limit is the maximum number of slots the rule may produce.
func (x Expander) limit(r RecurrenceRule) int {
	ceiling := x.Ceiling
	if ceiling <= 0 {
		ceiling = defaultOccurrenceCeiling
	}
	limit := ceiling
	switch {
	case r.EndDate != nil:
	case r.Count > 0:
		limit = r.Count
	default:
		limit = x.MaxOccurrences
		if limit <= 0 {
			limit = defaultMaxOccurrences
		}
	}
	if limit > ceiling {
		limit = ceiling
	}
	return limit
}

// option maps the rule onto an RFC 5545 rule anchored at start.
//  - weekly with days ignores the interval and repeats every week on those days.
//  - monthly on days 29-31 takes the last existing day among 28..day of each month.
//  - yearly on Feb 29 falls back to Feb 28 outside leap years.
func (x Expander) option(r RecurrenceRule, start time.Time) (rrule.ROption, error) {
	interval := r.Interval
	if interval == 0 {
		interval = 1
	}
	opt := rrule.ROption{Dtstart: start, Interval: interval}

	switch r.Pattern {
	case PatternDaily:
		opt.Freq = rrule.DAILY
	case PatternWeekly:
		opt.Freq = rrule.WEEKLY
		if days := r.Days.Normalized(); len(days) > 0 {
			opt.Interval = 1
			for _, d := range days {
				opt.Byweekday = append(opt.Byweekday, ruleWeekdays[d])
			}
		}
	case PatternMonthly:
		opt.Freq = rrule.MONTHLY
		if day := start.Day(); day > 28 {
			for d := 28; d <= day; d++ {
				opt.Bymonthday = append(opt.Bymonthday, d)
			}
			opt.Bysetpos = []int{-1}
		}
	case PatternYearly:
		opt.Freq = rrule.YEARLY
		if start.Month() == time.February && start.Day() == 29 {
			opt.Bymonth = []int{int(time.February)}
			opt.Bymonthday = []int{28, 29}
			opt.Bysetpos = []int{-1}
		}
	default:
		return opt, errors.Errorf("unknown recurrence pattern %q", r.Pattern)
	}

	if r.EndDate != nil {
		opt.Until = endOfDay(*r.EndDate, start.Location())
	}
	return opt, nil
}

// iterate yields the slots of r in order until stop returns true or the rule's limit is hit.
func (x Expander) iterate(r RecurrenceRule, stop func(time.Time) bool) ([]Slot, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	start := r.Start.In(x.location())
	opt, err := x.option(r, start)
	if err != nil {
		return nil, err
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("building %s rule", r.Pattern))
	}

	// rrule works on whole seconds
	frac := start.Sub(start.Truncate(time.Second))

	limit := x.limit(r)
	slots := make([]Slot, 0, initialCap(limit))
	next := rule.Iterator()
	for len(slots) < limit {
		t, ok := next()
		if !ok {
			break
		}
		t = t.Add(frac)
		if stop != nil && stop(t) {
			break
		}
		slots = append(slots, Slot{Start: t, End: t.Add(r.Duration)})
	}
	return slots, nil
}

// Expand returns every slot of the series, in chronological order.
func (x Expander) Expand(r RecurrenceRule) ([]Slot, error) {
	return x.iterate(r, nil)
}

// Between returns the slots of the series starting within [from, to].
// Count & default bounds still apply from the first occurrence of the series.
func (x Expander) Between(r RecurrenceRule, from, to time.Time) ([]Slot, error) {
	slots, err := x.iterate(r, func(t time.Time) bool { return t.After(to) })
	if err != nil {
		return nil, err
	}
	out := slots[:0]
	for _, s := range slots {
		if !s.Start.Before(from) {
			out = append(out, s)
		}
	}
	return out, nil
}

// endOfDay returns the last second of t's calendar day in loc.
func endOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc)
}

func initialCap(limit int) int {
	if limit > defaultMaxOccurrences {
		return defaultMaxOccurrences
	}
	return limit
}

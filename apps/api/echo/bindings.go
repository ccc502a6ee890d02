package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/event"
)

const dateLayout = "2006-01-02"

// queryBinder reads query params, collecting one error per invalid field.
type queryBinder struct {
	ctx  echo.Context
	errs []core.FieldError
}

func (b *queryBinder) fail(field, msg string) {
	b.errs = append(b.errs, core.FieldError{Field: field, Error: msg})
}

func (b *queryBinder) String(name string) string {
	return b.ctx.QueryParam(name)
}

func (b *queryBinder) Int(name string) int {
	v := b.ctx.QueryParam(name)
	if v == "" {
		return 0
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		b.fail(name, "must be an integer")
	}
	return i
}

func (b *queryBinder) Bool(name string) *bool {
	v := b.ctx.QueryParam(name)
	if v == "" {
		return nil
	}
	val, err := strconv.ParseBool(v)
	if err != nil {
		b.fail(name, "must be a boolean")
		return nil
	}
	return &val
}

// Time accepts RFC 3339 date-times and plain dates, the latter at midnight UTC.
func (b *queryBinder) Time(name string) time.Time {
	v := b.ctx.QueryParam(name)
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC()
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		b.fail(name, "must be a date (YYYY-MM-DD) or an RFC 3339 date-time")
	}
	return t
}

func (b *queryBinder) Err() error {
	if len(b.errs) == 0 {
		return nil
	}
	return core.NewValidationError(nil, b.errs...)
}

// Ordering reads sort_by & sort_order (asc|desc). The legacy ordering param ("-title") wins when set.
func (b *queryBinder) Ordering(defaultField string) core.DBOrdering {
	if val := strings.TrimSpace(b.String("ordering")); val != "" {
		field := strings.TrimSpace(strings.Split(val, ",")[0])
		descending := strings.HasPrefix(field, "-")
		return core.DBOrdering{Field: strings.TrimPrefix(field, "-"), Ascending: !descending}
	}

	ord := core.DBOrdering{Field: b.String("sort_by"), Ascending: true}
	if ord.Field == "" {
		ord.Field = defaultField
	}
	switch strings.ToLower(b.String("sort_order")) {
	case "", "asc":
	case "desc":
		ord.Ascending = false
	default:
		b.fail("sort_order", "sort order must be one of asc, desc")
	}
	return ord
}

func bindEventFilter(ctx echo.Context) (event.QueryFilter, error) {
	b := &queryBinder{ctx: ctx}
	filter := event.QueryFilter{
		EventType:   b.String("event_type"),
		DojoID:      b.Int("dojo_id"),
		Category:    b.String("category"),
		Status:      b.String("status"),
		StartDate:   b.Time("start_date"),
		EndDate:     b.Time("end_date"),
		IsRecurring: b.Bool("is_recurring"),
		Search:      b.String("search"),
		Ordering:    b.Ordering(event.SortByStart),
		Page:        b.Int("page"),
		PerPage:     b.Int("per_page"),
	}
	if filter.PerPage <= 0 {
		filter.PerPage = event.DefaultPerPage
	}
	return filter, b.Err()
}

package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/event"
)

const calendarContentType = "text/calendar; charset=utf-8"

type eventApi struct {
	svc  *event.Service
	conf *core.Config
}

func registerEventAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *event.Service, conf *core.Config) {
	api := eventApi{svc: svc, conf: conf}

	eg := g.Group("/events", authed...)
	eg.GET("", api.query)
	eg.POST("", api.create)
	eg.GET("/statistics", api.statistics)
	eg.GET("/calendar.ics", api.calendar)
	eg.GET("/reminders/active", api.activeReminders)
	eg.POST("/recurrence/preview", api.previewRecurrence)

	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update)
	eg.DELETE("/:id", api.delete)
	eg.POST("/:id/suspend", api.suspend)
	eg.POST("/:id/reactivate", api.reactivate)
	eg.POST("/:id/regenerate", api.regenerate)
	eg.POST("/:id/reminders", api.addReminder)
	eg.GET("/:id/occurrences", api.occurrences)
	eg.PUT("/:id/occurrences/:occurrence_id", api.updateOccurrence)
}

func paramID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// Handlers

func (api *eventApi) query(ctx echo.Context) error {
	filter, err := bindEventFilter(ctx)
	if err != nil {
		return err
	}
	page, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *eventApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data event.NewEvent
	if err = ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid request body"))
	}

	ev, n, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{
		"message":               "event created",
		"event":                 ev,
		"occurrences_generated": n,
	})
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ev, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding event by ID")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *eventApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data event.UpdateEvent
	if err = ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid request body"))
	}

	ev, n, err := api.svc.Update(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message":               "event updated",
		"event":                 ev,
		"occurrences_generated": n,
	})
}

func (api *eventApi) delete(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "event deleted"})
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

func (api *eventApi) suspend(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data suspendRequest
	if err = ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid request body"))
	}

	ev, err := api.svc.Suspend(ctx.Request().Context(), usr, id, data.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "event suspended", "event": ev})
}

func (api *eventApi) reactivate(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ev, err := api.svc.Reactivate(ctx.Request().Context(), usr, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "event reactivated", "event": ev})
}

func (api *eventApi) regenerate(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	n, err := api.svc.Regenerate(ctx.Request().Context(), usr, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "occurrences regenerated", "occurrences_generated": n})
}

func (api *eventApi) addReminder(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data event.NewReminder
	if err = ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid request body"))
	}

	rem, err := api.svc.AddReminder(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "reminder created", "reminder": rem})
}

func (api *eventApi) activeReminders(ctx echo.Context) error {
	rems, err := api.svc.ActiveReminders(ctx.Request().Context(), event.NowFunc())
	if err != nil {
		return errors.Wrap(err, "querying active reminders")
	}
	if rems == nil {
		rems = []event.DueReminder{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"reminders": rems, "count": len(rems)})
}

func (api *eventApi) occurrences(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	b := &queryBinder{ctx: ctx}
	from, to := b.Time("from"), b.Time("to")
	if err = b.Err(); err != nil {
		return err
	}

	views, err := api.svc.Occurrences(ctx.Request().Context(), id, from, to)
	if err != nil {
		return errors.Wrap(err, "querying occurrences")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"occurrences": views, "count": len(views)})
}

func (api *eventApi) updateOccurrence(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	occID, err := paramID(ctx, "occurrence_id")
	if err != nil {
		return err
	}
	var data event.UpdateOccurrence
	if err = ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid request body"))
	}

	view, err := api.svc.UpdateOccurrence(ctx.Request().Context(), usr, id, occID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "occurrence updated", "occurrence": view})
}

// previewRequest mirrors the recurrence fields of an event.
type previewRequest struct {
	StartDatetime      time.Time      `json:"start_datetime"`
	EndDatetime        *time.Time     `json:"end_datetime"`
	RecurrencePattern  string         `json:"recurrence_pattern"`
	RecurrenceInterval int            `json:"recurrence_interval"`
	RecurrenceDays     event.Weekdays `json:"recurrence_days"`
	RecurrenceEndDate  *time.Time     `json:"recurrence_end_date"`
	RecurrenceCount    int            `json:"recurrence_count"`
}

func (pr previewRequest) rule() event.RecurrenceRule {
	rule := event.RecurrenceRule{
		Start:    pr.StartDatetime.UTC(),
		Pattern:  core.CleanString(pr.RecurrencePattern, true /* lower */),
		Interval: pr.RecurrenceInterval,
		Days:     pr.RecurrenceDays,
		EndDate:  pr.RecurrenceEndDate,
		Count:    pr.RecurrenceCount,
	}
	if pr.EndDatetime != nil {
		rule.Duration = pr.EndDatetime.Sub(pr.StartDatetime)
	}
	return rule
}

func (api *eventApi) previewRecurrence(ctx echo.Context) error {
	var data previewRequest
	if err := ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid request body"))
	}
	if data.StartDatetime.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "start_datetime", Error: "start date is required"})
	}

	slots, err := api.svc.PreviewRecurrence(data.rule())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"occurrences": slots, "count": len(slots)})
}

func (api *eventApi) statistics(ctx echo.Context) error {
	st, err := api.svc.Statistics(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing event statistics")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *eventApi) calendar(ctx echo.Context) error {
	filter, err := bindEventFilter(ctx)
	if err != nil {
		return err
	}
	doc, err := api.svc.Calendar(ctx.Request().Context(), api.conf.AppName, filter)
	if err != nil {
		return errors.Wrap(err, "exporting calendar")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="events.ics"`)
	return ctx.Blob(http.StatusOK, calendarContentType, []byte(doc))
}

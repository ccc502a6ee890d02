package event

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/dojo"
	"github.com/d2monteblanco/ki-aikido-system/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("event not found")
	ErrOccurrenceNotFound = errors.New("occurrence not found")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		OccurrenceStore

		CreateEvent(ctx context.Context, ev Event, exec ...core.DBExecutor) (Event, error)
		// GetEventByID returns the event with its dojo name & reminders.
		GetEventByID(ctx context.Context, id int, exec ...core.DBExecutor) (Event, error)
		// QueryEvents applies AND operation on available QueryFilter fields and returns one page
		// of events along with the total number of matches.
		QueryEvents(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Event, int, error)
		UpdateEvent(ctx context.Context, ev Event, exec ...core.DBExecutor) (Event, error)
		// DeleteEvent deletes the event together with its reminders & occurrences.
		DeleteEvent(ctx context.Context, id int, exec ...core.DBExecutor) error
		// EventsStartingBetween returns the events with the given status starting within [from, to],
		// reminders included.
		EventsStartingBetween(ctx context.Context, from, to time.Time, status string, exec ...core.DBExecutor) ([]Event, error)
		EventStatistics(ctx context.Context, exec ...core.DBExecutor) (Statistics, error)

		CreateReminders(ctx context.Context, rems []Reminder, exec ...core.DBExecutor) ([]Reminder, error)
		MarkRemindersTriggered(ctx context.Context, ids []int, at time.Time, exec ...core.DBExecutor) error

		QueryOccurrences(ctx context.Context, filter OccurrenceFilter, exec ...core.DBExecutor) ([]Occurrence, error)
		GetOccurrence(ctx context.Context, eventID, id int, exec ...core.DBExecutor) (Occurrence, error)
		UpdateOccurrence(ctx context.Context, occ Occurrence, exec ...core.DBExecutor) (Occurrence, error)
	}

	Service struct {
		tx           core.Transactor
		repo         Repository
		dojoRepo     dojo.Repository
		materializer *Materializer
		expander     Expander
		validate     *validator.Validate
		logger       core.Logger
		conf         core.EventsConfig
	}
)

func NewService(
	tx core.Transactor,
	repo Repository,
	dojoRepo dojo.Repository,
	validate *validator.Validate,
	logger core.Logger,
	conf *core.Config,
) *Service {
	expander := NewExpander(conf.Events)
	return &Service{
		tx:           tx,
		repo:         repo,
		dojoRepo:     dojoRepo,
		materializer: NewMaterializer(tx, repo, expander, logger),
		expander:     expander,
		validate:     validate,
		logger:       logger,
		conf:         conf.Events,
	}
}

// Create stores a new event on behalf of actor, its default reminders if asked for,
// and the occurrences of a recurring event. All of it happens in one transaction.
// It returns the event and the number of occurrences generated.
func (svc *Service) Create(ctx context.Context, actor user.User, data NewEvent) (Event, int, error) {
	data.Clean()
	if err := svc.validate.Struct(data); err != nil {
		return Event{}, 0, err
	}

	now := NowFunc().UTC()
	ev := data.event(actor.ID, now)
	if err := checkEvent(ev); err != nil {
		return Event{}, 0, err
	}
	if !CanEdit(actor, ev) {
		return Event{}, 0, ErrForbidden
	}
	if err := svc.checkDojo(ctx, ev); err != nil {
		return Event{}, 0, err
	}
	if ev.IsRecurring {
		ev.SeriesID = uuid.New().String()
	}

	var n int
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		created, err := svc.repo.CreateEvent(ctx, ev, exec)
		if err != nil {
			return errors.Wrap(err, "creating event")
		}
		if data.CreateDefaultReminders {
			if _, err = svc.repo.CreateReminders(ctx, defaultReminders(created, now), exec); err != nil {
				return errors.Wrap(err, "creating default reminders")
			}
		}
		if created.IsRecurring {
			if n, err = svc.materializer.regenerate(ctx, created.ID, exec); err != nil {
				return err
			}
		}
		ev = created
		return nil
	})
	if err != nil {
		return Event{}, 0, err
	}

	ev, err = svc.repo.GetEventByID(ctx, ev.ID)
	return ev, n, err
}

func (svc *Service) checkDojo(ctx context.Context, ev Event) error {
	if ev.DojoID == nil {
		return nil
	}
	if _, err := svc.dojoRepo.GetDojoByID(ctx, *ev.DojoID); err != nil {
		if errors.Cause(err) == dojo.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "dojo_id", Error: "dojo not found"})
		}
		return errors.Wrap(err, "getting dojo")
	}
	return nil
}

func (svc *Service) Get(ctx context.Context, id int) (Event, error) {
	return svc.repo.GetEventByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) (Page, error) {
	filter.Clean()
	events, total, err := svc.repo.QueryEvents(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	return newPage(events, total, filter), nil
}

// Update modifies the event with id on behalf of actor. Occurrences are regenerated in the same
// transaction when the recurrence or timing changes, and dropped when the event stops recurring.
// It returns the event and the number of occurrences generated, 0 when none were.
func (svc *Service) Update(ctx context.Context, actor user.User, id int, data UpdateEvent) (Event, int, error) {
	data.Clean()
	if err := svc.validate.Struct(data); err != nil {
		return Event{}, 0, err
	}

	var n int
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		old, err := svc.repo.LockEvent(ctx, id, exec)
		if err != nil {
			return err
		}
		if !CanEdit(actor, old) {
			return ErrForbidden
		}

		ev := data.apply(old, NowFunc().UTC())
		if err = checkEvent(ev); err != nil {
			return err
		}
		if ev.IsRecurring && ev.SeriesID == "" {
			ev.SeriesID = uuid.New().String()
		}
		if _, err = svc.repo.UpdateEvent(ctx, ev, exec); err != nil {
			return errors.Wrap(err, "updating event")
		}

		switch {
		case old.IsRecurring && !ev.IsRecurring:
			if _, err = svc.repo.DeleteOccurrences(ctx, ev.ID, exec); err != nil {
				return errors.Wrap(err, "deleting occurrences")
			}
		case ev.IsRecurring && recurrenceChanged(old, ev):
			if n, err = svc.materializer.regenerate(ctx, ev.ID, exec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Event{}, 0, err
	}

	ev, err := svc.repo.GetEventByID(ctx, id)
	return ev, n, err
}

// Delete removes the event with its reminders & occurrences.
func (svc *Service) Delete(ctx context.Context, actor user.User, id int) error {
	return svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		ev, err := svc.repo.LockEvent(ctx, id, exec)
		if err != nil {
			return err
		}
		if !CanEdit(actor, ev) {
			return ErrForbidden
		}
		return svc.repo.DeleteEvent(ctx, id, exec)
	})
}

// Suspend marks the event as suspended; its occurrences are kept.
func (svc *Service) Suspend(ctx context.Context, actor user.User, id int, reason string) (Event, error) {
	status := StatusSuspended
	reason = core.CleanString(reason)
	ev, _, err := svc.Update(ctx, actor, id, UpdateEvent{Status: &status, SuspensionReason: &reason})
	return ev, err
}

// Reactivate marks the event as active and clears its suspension reason.
func (svc *Service) Reactivate(ctx context.Context, actor user.User, id int) (Event, error) {
	status := StatusActive
	ev, _, err := svc.Update(ctx, actor, id, UpdateEvent{Status: &status})
	return ev, err
}

// Regenerate rebuilds the occurrences of a recurring event.
func (svc *Service) Regenerate(ctx context.Context, actor user.User, id int) (int, error) {
	var n int
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		ev, err := svc.repo.LockEvent(ctx, id, exec)
		if err != nil {
			return err
		}
		if !CanEdit(actor, ev) {
			return ErrForbidden
		}
		if !ev.IsRecurring {
			return core.NewValidationError(errors.New("only recurring events have occurrences"))
		}
		n, err = svc.materializer.regenerate(ctx, id, exec)
		return err
	})
	return n, err
}

// RegenerateAll rebuilds the occurrences of every recurring event, one transaction per event.
func (svc *Service) RegenerateAll(ctx context.Context) (events, occurrences int, err error) {
	recurring := true
	page, err := svc.Query(ctx, QueryFilter{IsRecurring: &recurring})
	if err != nil {
		return 0, 0, err
	}
	for _, ev := range page.Events {
		n, err := svc.materializer.Regenerate(ctx, ev)
		if err != nil {
			return events, occurrences, errors.Wrapf(err, "regenerating event %d", ev.ID)
		}
		events++
		occurrences += n
	}
	return events, occurrences, nil
}

// AddReminder adds a reminder to the event with eventID.
func (svc *Service) AddReminder(ctx context.Context, actor user.User, eventID int, data NewReminder) (Reminder, error) {
	data.Clean()
	if err := svc.validate.Struct(data); err != nil {
		return Reminder{}, err
	}

	var rem Reminder
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		ev, err := svc.repo.LockEvent(ctx, eventID, exec)
		if err != nil {
			return err
		}
		if !CanEdit(actor, ev) {
			return ErrForbidden
		}
		rems, err := svc.repo.CreateReminders(ctx, []Reminder{{
			EventID:      ev.ID,
			DaysBefore:   *data.DaysBefore,
			ReminderType: data.ReminderType,
			Message:      data.Message,
			IsActive:     true,
			CreatedAt:    NowFunc().UTC(),
		}}, exec)
		if err != nil {
			return errors.Wrap(err, "creating reminder")
		}
		rem = rems[0]
		return nil
	})
	return rem, err
}

// ActiveReminders returns the reminders due at now for active events starting within the lookahead window.
func (svc *Service) ActiveReminders(ctx context.Context, now time.Time) ([]DueReminder, error) {
	now = now.UTC()
	events, err := svc.repo.EventsStartingBetween(ctx, now, now.Add(svc.conf.ReminderLookahead), StatusActive)
	if err != nil {
		return nil, errors.Wrap(err, "querying reminder candidates")
	}
	return DueReminders(events, now, svc.conf.ReminderLookahead), nil
}

func (svc *Service) Statistics(ctx context.Context) (Statistics, error) {
	return svc.repo.EventStatistics(ctx)
}

// Occurrences returns the occurrences of the event starting within [from, to], with display data.
// Zero bounds are open.
func (svc *Service) Occurrences(ctx context.Context, eventID int, from, to time.Time) ([]OccurrenceView, error) {
	ev, err := svc.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	occs, err := svc.repo.QueryOccurrences(ctx, OccurrenceFilter{EventID: eventID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	views := make([]OccurrenceView, 0, len(occs))
	for _, occ := range occs {
		views = append(views, occ.View(ev))
	}
	return views, nil
}

// UpdateOccurrence changes one occurrence of a series. The change is lost on the next regeneration.
func (svc *Service) UpdateOccurrence(ctx context.Context, actor user.User, eventID, id int, data UpdateOccurrence) (OccurrenceView, error) {
	if err := svc.validate.Struct(data); err != nil {
		return OccurrenceView{}, err
	}

	var view OccurrenceView
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		ev, err := svc.repo.LockEvent(ctx, eventID, exec)
		if err != nil {
			return err
		}
		if !CanEdit(actor, ev) {
			return ErrForbidden
		}
		occ, err := svc.repo.GetOccurrence(ctx, eventID, id, exec)
		if err != nil {
			return err
		}
		occ, err = svc.repo.UpdateOccurrence(ctx, data.apply(occ, NowFunc().UTC()), exec)
		if err != nil {
			return errors.Wrap(err, "updating occurrence")
		}
		view = occ.View(ev)
		return nil
	})
	return view, err
}

// PreviewRecurrence expands rule without storing anything.
func (svc *Service) PreviewRecurrence(rule RecurrenceRule) ([]Slot, error) {
	return svc.expander.Expand(rule)
}

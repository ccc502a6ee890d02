package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/d2monteblanco/ki-aikido-system/core"
)

// OccurrenceStore is the part of the Repository the Materializer writes through.
type OccurrenceStore interface {
	// LockEvent loads the event & holds an exclusive lock on it until the transaction ends.
	LockEvent(ctx context.Context, id int, exec ...core.DBExecutor) (Event, error)
	DeleteOccurrences(ctx context.Context, eventID int, exec ...core.DBExecutor) (int, error)
	CreateOccurrences(ctx context.Context, occs []Occurrence, exec ...core.DBExecutor) error
}

// Materializer keeps the occurrence rows of a recurring event in sync with its rule.
// The rows are a cache: every regeneration replaces all of them.
type Materializer struct {
	tx       core.Transactor
	store    OccurrenceStore
	expander Expander
	logger   core.Logger
}

func NewMaterializer(tx core.Transactor, store OccurrenceStore, expander Expander, logger core.Logger) *Materializer {
	return &Materializer{tx: tx, store: store, expander: expander, logger: logger}
}

// Regenerate replaces the occurrences of ev in a transaction of its own and returns how many were stored.
// Non recurring events are left untouched.
func (m *Materializer) Regenerate(ctx context.Context, ev Event) (int, error) {
	if !ev.IsRecurring {
		return 0, nil
	}
	var n int
	err := m.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		n, err = m.regenerate(ctx, ev.ID, exec)
		return err
	})
	return n, err
}

// regenerate runs within the caller's transaction. The event is locked then re-read, so concurrent
// regenerations of one event are serialized and each expands the latest rule.
func (m *Materializer) regenerate(ctx context.Context, eventID int, exec core.DBExecutor) (int, error) {
	ev, err := m.store.LockEvent(ctx, eventID, exec)
	if err != nil {
		return 0, errors.Wrap(err, "locking event")
	}
	if _, err = m.store.DeleteOccurrences(ctx, ev.ID, exec); err != nil {
		return 0, errors.Wrap(err, "deleting occurrences")
	}
	if !ev.IsRecurring {
		return 0, nil
	}

	slots, err := m.expander.Expand(ev.Rule())
	if err != nil {
		return 0, err
	}
	if len(slots) == 0 {
		return 0, nil
	}

	seriesID := ev.SeriesID
	if seriesID == "" {
		seriesID = uuid.New().String()
	}
	now := NowFunc().UTC()
	occs := make([]Occurrence, 0, len(slots))
	for _, s := range slots {
		occs = append(occs, Occurrence{
			EventID:        ev.ID,
			SeriesID:       seriesID,
			OccurrenceDate: s.Start.UTC(),
			EndDatetime:    s.End.UTC(),
			Status:         StatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	if err = m.store.CreateOccurrences(ctx, occs, exec); err != nil {
		return 0, errors.Wrap(err, "storing occurrences")
	}

	m.logger.Debug(fmt.Sprintf("regenerated %d occurrences of event %d", len(occs), ev.ID))
	return len(occs), nil
}

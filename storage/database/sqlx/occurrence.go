package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/event"
)

const (
	occurrenceColumns = `id, event_id, series_id, occurrence_date, end_datetime, status, suspension_reason,
	override_title, override_description, override_location, created_at, updated_at`

	// rows per INSERT statement; keeps the bind parameters well under the Postgres limit
	occurrenceBatchSize = 500
)

type occurrenceRow struct {
	ID                  int         `db:"id"`
	EventID             int         `db:"event_id"`
	SeriesID            string      `db:"series_id"`
	OccurrenceDate      time.Time   `db:"occurrence_date"`
	EndDatetime         time.Time   `db:"end_datetime"`
	Status              string      `db:"status"`
	SuspensionReason    null.String `db:"suspension_reason"`
	OverrideTitle       null.String `db:"override_title"`
	OverrideDescription null.String `db:"override_description"`
	OverrideLocation    null.String `db:"override_location"`
	CreatedAt           time.Time   `db:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at"`
}

func (r occurrenceRow) occurrence() event.Occurrence {
	return event.Occurrence{
		ID:                  r.ID,
		EventID:             r.EventID,
		SeriesID:            r.SeriesID,
		OccurrenceDate:      r.OccurrenceDate.UTC(),
		EndDatetime:         r.EndDatetime.UTC(),
		Status:              r.Status,
		SuspensionReason:    r.SuspensionReason.String,
		OverrideTitle:       r.OverrideTitle.String,
		OverrideDescription: r.OverrideDescription.String,
		OverrideLocation:    r.OverrideLocation.String,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) DeleteOccurrences(ctx context.Context, eventID int, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM event_occurrences WHERE event_id = $1", eventID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting occurrences")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo eventRepository) CreateOccurrences(ctx context.Context, occs []event.Occurrence, exec ...core.DBExecutor) error {
	ext := repo.getExec(exec)
	for start := 0; start < len(occs); start += occurrenceBatchSize {
		end := start + occurrenceBatchSize
		if end > len(occs) {
			end = len(occs)
		}
		if err := insertOccurrences(ctx, ext, occs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func insertOccurrences(ctx context.Context, ext sqlx.ExtContext, occs []event.Occurrence) error {
	const ncols = 7
	values := make([]string, 0, len(occs))
	args := make([]interface{}, 0, len(occs)*ncols)
	for i, occ := range occs {
		ph := make([]string, ncols)
		for j := range ph {
			ph[j] = "$" + strconv.Itoa(i*ncols+j+1)
		}
		values = append(values, "("+strings.Join(ph, ", ")+")")
		args = append(args, occ.EventID, occ.SeriesID, occ.OccurrenceDate, occ.EndDatetime, occ.Status, occ.CreatedAt, occ.UpdatedAt)
	}

	q := "INSERT INTO event_occurrences (event_id, series_id, occurrence_date, end_datetime, status, created_at, updated_at) VALUES " +
		strings.Join(values, ", ")
	if _, err := ext.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "inserting occurrences")
	}
	return nil
}

func (repo eventRepository) QueryOccurrences(ctx context.Context, filter event.OccurrenceFilter, exec ...core.DBExecutor) ([]event.Occurrence, error) {
	var w where
	w.add("event_id = ?", filter.EventID)
	if !filter.From.IsZero() {
		w.add("occurrence_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		w.add("occurrence_date <= ?", filter.To)
	}

	var rows []occurrenceRow
	q := "SELECT " + occurrenceColumns + " FROM event_occurrences" + w.String() + " ORDER BY occurrence_date ASC, id ASC"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting occurrences")
	}
	occs := make([]event.Occurrence, 0, len(rows))
	for _, r := range rows {
		occs = append(occs, r.occurrence())
	}
	return occs, nil
}

func (repo eventRepository) GetOccurrence(ctx context.Context, eventID, id int, exec ...core.DBExecutor) (event.Occurrence, error) {
	var row occurrenceRow
	q := "SELECT " + occurrenceColumns + " FROM event_occurrences WHERE event_id = $1 AND id = $2"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, eventID, id); err != nil {
		if isNoRows(err) {
			return event.Occurrence{}, event.ErrOccurrenceNotFound
		}
		return event.Occurrence{}, errors.Wrap(err, "selecting occurrence")
	}
	return row.occurrence(), nil
}

func (repo eventRepository) UpdateOccurrence(ctx context.Context, occ event.Occurrence, exec ...core.DBExecutor) (event.Occurrence, error) {
	res, err := repo.getExec(exec).ExecContext(
		ctx,
		`UPDATE event_occurrences SET status = $3, suspension_reason = $4, override_title = $5, override_description = $6,
		override_location = $7, updated_at = $8 WHERE event_id = $1 AND id = $2`,
		occ.EventID, occ.ID, occ.Status, nullString(occ.SuspensionReason), nullString(occ.OverrideTitle),
		nullString(occ.OverrideDescription), nullString(occ.OverrideLocation), occ.UpdatedAt,
	)
	if err != nil {
		return event.Occurrence{}, errors.Wrap(err, "updating occurrence")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.Occurrence{}, event.ErrOccurrenceNotFound
	}
	return occ, nil
}

package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/dojo"
)

const dojoColumns = `id, name, address, contact_email, contact_phone, responsible_instructor, registration_number,
	is_active, created_at, updated_at`

type dojoRow struct {
	ID                    int         `db:"id"`
	Name                  string      `db:"name"`
	Address               null.String `db:"address"`
	ContactEmail          null.String `db:"contact_email"`
	ContactPhone          null.String `db:"contact_phone"`
	ResponsibleInstructor null.String `db:"responsible_instructor"`
	RegistrationNumber    null.String `db:"registration_number"`
	IsActive              bool        `db:"is_active"`
	CreatedAt             time.Time   `db:"created_at"`
	UpdatedAt             time.Time   `db:"updated_at"`
}

func (r dojoRow) dojo() dojo.Dojo {
	return dojo.Dojo{
		ID:                    r.ID,
		Name:                  r.Name,
		Address:               r.Address.String,
		ContactEmail:          r.ContactEmail.String,
		ContactPhone:          r.ContactPhone.String,
		ResponsibleInstructor: r.ResponsibleInstructor.String,
		RegistrationNumber:    r.RegistrationNumber.String,
		IsActive:              r.IsActive,
		CreatedAt:             r.CreatedAt.UTC(),
		UpdatedAt:             r.UpdatedAt.UTC(),
	}
}

type dojoRepository struct {
	baseRepository
}

var _ dojo.Repository = (*dojoRepository)(nil) // interface compliance check

func NewDojoRepository(db *sqlx.DB) *dojoRepository {
	return &dojoRepository{baseRepository{db: db}}
}

func (repo dojoRepository) getDojo(ctx context.Context, exec []core.DBExecutor, cond string, arg interface{}) (dojo.Dojo, error) {
	var row dojoRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, "SELECT "+dojoColumns+" FROM dojos WHERE "+cond, arg)
	if err != nil {
		if isNoRows(err) {
			return dojo.Dojo{}, dojo.ErrNotFound
		}
		return dojo.Dojo{}, errors.Wrap(err, "selecting dojo")
	}
	return row.dojo(), nil
}

func (repo dojoRepository) GetDojoByID(ctx context.Context, id int, exec ...core.DBExecutor) (dojo.Dojo, error) {
	return repo.getDojo(ctx, exec, "id = $1", id)
}

func (repo dojoRepository) GetDojoByName(ctx context.Context, name string, exec ...core.DBExecutor) (dojo.Dojo, error) {
	return repo.getDojo(ctx, exec, "LOWER(name) = $1", strings.ToLower(name))
}

func (repo dojoRepository) QueryDojos(ctx context.Context, filter *dojo.QueryFilter, exec ...core.DBExecutor) ([]dojo.Dojo, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			pattern := "%" + strings.ToLower(filter.Search) + "%"
			w.add("(LOWER(name) LIKE ? OR LOWER(responsible_instructor) LIKE ?)", pattern, pattern)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	var rows []dojoRow
	q := "SELECT " + dojoColumns + " FROM dojos" + w.String() + " ORDER BY name ASC"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting dojos")
	}
	dojos := make([]dojo.Dojo, 0, len(rows))
	for _, r := range rows {
		dojos = append(dojos, r.dojo())
	}
	return dojos, nil
}

func (repo dojoRepository) CreateDojo(ctx context.Context, d dojo.Dojo, exec ...core.DBExecutor) (dojo.Dojo, error) {
	var id int
	err := sqlx.GetContext(
		ctx, repo.getExec(exec), &id,
		`INSERT INTO dojos (name, address, contact_email, contact_phone, responsible_instructor, registration_number,
		is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		d.Name, nullString(d.Address), nullString(d.ContactEmail), nullString(d.ContactPhone),
		nullString(d.ResponsibleInstructor), nullString(d.RegistrationNumber), d.IsActive, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return dojo.Dojo{}, errors.Wrap(err, "inserting dojo")
	}
	d.ID = id
	return d, nil
}

func (repo dojoRepository) UpdateDojo(ctx context.Context, d dojo.Dojo, exec ...core.DBExecutor) (dojo.Dojo, error) {
	res, err := repo.getExec(exec).ExecContext(
		ctx,
		`UPDATE dojos SET name = $2, address = $3, contact_email = $4, contact_phone = $5, responsible_instructor = $6,
		registration_number = $7, is_active = $8, updated_at = $9 WHERE id = $1`,
		d.ID, d.Name, nullString(d.Address), nullString(d.ContactEmail), nullString(d.ContactPhone),
		nullString(d.ResponsibleInstructor), nullString(d.RegistrationNumber), d.IsActive, d.UpdatedAt,
	)
	if err != nil {
		return dojo.Dojo{}, errors.Wrap(err, "updating dojo")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dojo.Dojo{}, dojo.ErrNotFound
	}
	return d, nil
}

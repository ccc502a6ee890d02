package dojo

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/d2monteblanco/ki-aikido-system/core"
)

var (
	// errors
	ErrNotFound = errors.New("dojo not found")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		GetDojoByID(ctx context.Context, id int, exec ...core.DBExecutor) (Dojo, error)
		GetDojoByName(ctx context.Context, name string, exec ...core.DBExecutor) (Dojo, error)
		QueryDojos(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Dojo, error)
		CreateDojo(ctx context.Context, d Dojo, exec ...core.DBExecutor) (Dojo, error)
		UpdateDojo(ctx context.Context, d Dojo, exec ...core.DBExecutor) (Dojo, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetByID(ctx context.Context, id int) (Dojo, error) {
	return svc.repo.GetDojoByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Dojo, error) {
	return svc.repo.QueryDojos(ctx, filter)
}

// Upsert creates the dojo or updates the one registered under the same name.
// It returns the stored dojo and whether it was created.
func (svc *Service) Upsert(ctx context.Context, d Dojo) (Dojo, bool, error) {
	d.Name = core.CleanString(d.Name)
	d.ContactEmail = core.CleanString(d.ContactEmail, true /* lower */)
	if d.Name == "" {
		return Dojo{}, false, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}

	now := NowFunc().UTC()
	existing, err := svc.repo.GetDojoByName(ctx, d.Name)
	switch errors.Cause(err) {
	case nil:
		d.ID = existing.ID
		d.CreatedAt = existing.CreatedAt
		d.UpdatedAt = now
		d, err = svc.repo.UpdateDojo(ctx, d)
		return d, false, errors.Wrap(err, "updating dojo")
	case ErrNotFound:
		d.CreatedAt = now
		d.UpdatedAt = now
		d, err = svc.repo.CreateDojo(ctx, d)
		return d, err == nil, errors.Wrap(err, "creating dojo")
	default:
		return Dojo{}, false, errors.Wrap(err, "finding dojo by name")
	}
}

package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/dojo"
)

type dojoRepository struct {
	db *DB
}

var _ dojo.Repository = (*dojoRepository)(nil) // interface compliance check

func NewDojoRepository(db *DB) *dojoRepository {
	return &dojoRepository{db: db}
}

func (repo *dojoRepository) GetDojoByID(_ context.Context, id int, exec ...core.DBExecutor) (dojo.Dojo, error) {
	var (
		d  dojo.Dojo
		ok bool
	)
	repo.db.run(exec, func() { d, ok = repo.db.tables.dojos[id] })
	if !ok {
		return dojo.Dojo{}, dojo.ErrNotFound
	}
	return d, nil
}

func (repo *dojoRepository) GetDojoByName(_ context.Context, name string, exec ...core.DBExecutor) (dojo.Dojo, error) {
	var (
		d     dojo.Dojo
		found bool
	)
	repo.db.run(exec, func() {
		for _, dj := range repo.db.tables.dojos {
			if strings.EqualFold(dj.Name, name) {
				d, found = dj, true
				return
			}
		}
	})
	if !found {
		return dojo.Dojo{}, dojo.ErrNotFound
	}
	return d, nil
}

func (repo *dojoRepository) QueryDojos(_ context.Context, filter *dojo.QueryFilter, exec ...core.DBExecutor) ([]dojo.Dojo, error) {
	dojos := make([]dojo.Dojo, 0)
	repo.db.run(exec, func() {
		for _, d := range repo.db.tables.dojos {
			if filter != nil {
				if filter.Search != "" && !containsFold(d.Name, filter.Search) && !containsFold(d.ResponsibleInstructor, filter.Search) {
					continue
				}
				if filter.IsActive != nil && d.IsActive != *filter.IsActive {
					continue
				}
			}
			dojos = append(dojos, d)
		}
	})
	sort.Slice(dojos, func(i, j int) bool { return dojos[i].Name < dojos[j].Name })
	return dojos, nil
}

func (repo *dojoRepository) CreateDojo(_ context.Context, d dojo.Dojo, exec ...core.DBExecutor) (dojo.Dojo, error) {
	repo.db.run(exec, func() {
		d.ID = repo.db.nextID("dojos")
		repo.db.tables.dojos[d.ID] = d
	})
	return d, nil
}

func (repo *dojoRepository) UpdateDojo(_ context.Context, d dojo.Dojo, exec ...core.DBExecutor) (dojo.Dojo, error) {
	var ok bool
	repo.db.run(exec, func() {
		if _, ok = repo.db.tables.dojos[d.ID]; ok {
			repo.db.tables.dojos[d.ID] = d
		}
	})
	if !ok {
		return dojo.Dojo{}, dojo.ErrNotFound
	}
	return d, nil
}

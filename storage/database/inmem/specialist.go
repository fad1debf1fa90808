package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/specialist"
)

type specialistRepository struct {
	table *Table[specialist.Application]
}

var _ specialist.Repository = (*specialistRepository)(nil) // interface compliance check

func NewSpecialistRepository(db *DB) *specialistRepository {
	return &specialistRepository{table: db.specialists}
}

func (repo *specialistRepository) CreateApplication(_ context.Context, app specialist.Application) (specialist.Application, error) {
	app.ID = uuid.New().String()
	repo.table.insert(app)
	return app, nil
}

func (repo *specialistRepository) GetApplicationByID(_ context.Context, id string) (specialist.Application, error) {
	app, ok := repo.table.get(id)
	if !ok {
		return specialist.Application{}, specialist.ErrNotFound
	}
	return app, nil
}

func (repo *specialistRepository) FilterApplications(_ context.Context, filter *specialist.QueryFilter, ordering []core.DBOrdering) ([]specialist.Application, error) {
	apps := repo.table.all()

	if filter != nil {
		matched := apps[:0]
		for _, app := range apps {
			if matchApplication(app, filter) {
				matched = append(matched, app)
			}
		}
		apps = matched
	}

	if len(ordering) > 0 && ordering[0].Field == "name" {
		asc := ordering[0].Ascending
		sort.SliceStable(apps, func(i, j int) bool {
			if asc {
				return apps[i].Name < apps[j].Name
			}
			return apps[i].Name > apps[j].Name
		})
	} else {
		sortByCreatedAt(apps, ordering, func(app specialist.Application) int64 { return app.CreatedAt.UnixNano() })
	}
	return apps, nil
}

func matchApplication(app specialist.Application, filter *specialist.QueryFilter) bool {
	if filter.Status != "" && app.Status != filter.Status {
		return false
	}
	if filter.Specialty != "" && !strings.Contains(strings.ToLower(app.Specialty), strings.ToLower(filter.Specialty)) {
		return false
	}
	if filter.Country != "" && !strings.EqualFold(app.Country, filter.Country) {
		return false
	}
	return true
}

func (repo *specialistRepository) UpdateApplication(_ context.Context, app specialist.Application) (specialist.Application, error) {
	if !repo.table.update(app) {
		return specialist.Application{}, specialist.ErrNotFound
	}
	return app, nil
}

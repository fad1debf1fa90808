package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/query"
)

type queryRepository struct {
	table *Table[query.Query]
}

var _ query.Repository = (*queryRepository)(nil) // interface compliance check

func NewQueryRepository(db *DB) *queryRepository {
	return &queryRepository{table: db.queries}
}

func (repo *queryRepository) CreateQuery(_ context.Context, qry query.Query) (query.Query, error) {
	qry.ID = uuid.New().String()
	repo.table.insert(qry)
	return qry, nil
}

func (repo *queryRepository) GetQueryByID(_ context.Context, id string) (query.Query, error) {
	qry, ok := repo.table.get(id)
	if !ok {
		return query.Query{}, query.ErrNotFound
	}
	return qry, nil
}

func (repo *queryRepository) FilterQueries(_ context.Context, filter *query.QueryFilter, ordering []core.DBOrdering) ([]query.Query, error) {
	queries := repo.table.all()

	if filter != nil {
		matched := queries[:0]
		for _, qry := range queries {
			if (filter.Status == "" || qry.Status == filter.Status) &&
				(filter.Category == "" || qry.Category == filter.Category) {
				matched = append(matched, qry)
			}
		}
		queries = matched
	}

	sortByCreatedAt(queries, ordering, func(qry query.Query) int64 { return qry.CreatedAt.UnixNano() })
	return queries, nil
}

func (repo *queryRepository) UpdateQuery(_ context.Context, qry query.Query) (query.Query, error) {
	if !repo.table.update(qry) {
		return query.Query{}, query.ErrNotFound
	}
	return qry, nil
}

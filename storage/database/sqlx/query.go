package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/query"
)

type queryRow struct {
	ID          string      `db:"id"`
	Topic       string      `db:"topic"`
	Category    string      `db:"category"`
	Email       string      `db:"email"`
	Message     string      `db:"message"`
	Status      string      `db:"status"`
	Response    null.String `db:"response"`
	RespondedAt null.Time   `db:"responded_at"`
	CreatedAt   time.Time   `db:"created_at"`
}

type queryRepository struct {
	db *sqlx.DB
}

var _ query.Repository = (*queryRepository)(nil) // interface compliance check

func NewQueryRepository(db *sqlx.DB) *queryRepository {
	return &queryRepository{db: db}
}

func (repo queryRepository) toRow(qry query.Query) queryRow {
	return queryRow{
		ID:          qry.ID,
		Topic:       qry.Topic,
		Category:    string(qry.Category),
		Email:       qry.Email,
		Message:     qry.Message,
		Status:      string(qry.Status),
		Response:    qry.Response,
		RespondedAt: qry.RespondedAt,
		CreatedAt:   qry.CreatedAt.UTC(),
	}
}

func (repo queryRepository) fromRow(row queryRow) query.Query {
	return query.Query{
		ID:          row.ID,
		Topic:       row.Topic,
		Category:    query.Category(row.Category),
		Email:       row.Email,
		Message:     row.Message,
		Status:      query.Status(row.Status),
		Response:    row.Response,
		RespondedAt: row.RespondedAt,
		CreatedAt:   row.CreatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to query.ErrNotFound
func (repo queryRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return query.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo queryRepository) CreateQuery(ctx context.Context, qry query.Query) (query.Query, error) {
	qry.ID = uuid.New().String()
	row := repo.toRow(qry)
	q := `
		INSERT INTO queries (id, topic, category, email, message, status, response, responded_at, created_at)
		VALUES (:id, :topic, :category, :email, :message, :status, :response, :responded_at, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return query.Query{}, errors.Wrap(err, "inserting query")
	}
	return repo.fromRow(row), nil
}

func (repo queryRepository) GetQueryByID(ctx context.Context, id string) (query.Query, error) {
	if _, err := uuid.Parse(id); err != nil {
		return query.Query{}, query.ErrNotFound
	}
	var row queryRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM queries WHERE id = $1", id); err != nil {
		return query.Query{}, repo.trapNoRowsErr(err, "finding query")
	}
	return repo.fromRow(row), nil
}

func (repo queryRepository) FilterQueries(ctx context.Context, filter *query.QueryFilter, ordering []core.DBOrdering) ([]query.Query, error) {
	q := "SELECT * FROM queries WHERE 1=1"
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Status != "" {
			q += " AND status = " + arg(string(filter.Status))
		}
		if filter.Category != "" {
			q += " AND category = " + arg(string(filter.Category))
		}
	}
	q += orderClause(ordering)

	var rows []queryRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying queries")
	}
	queries := make([]query.Query, 0, len(rows))
	for _, row := range rows {
		queries = append(queries, repo.fromRow(row))
	}
	return queries, nil
}

func (repo queryRepository) UpdateQuery(ctx context.Context, qry query.Query) (query.Query, error) {
	row := repo.toRow(qry)
	q := `
		UPDATE queries
		SET topic = :topic, category = :category, email = :email, message = :message,
			status = :status, response = :response, responded_at = :responded_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return query.Query{}, errors.Wrap(err, "updating query")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return query.Query{}, query.ErrNotFound
	}
	return repo.fromRow(row), nil
}

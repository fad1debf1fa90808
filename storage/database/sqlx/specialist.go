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
	"github.com/eacna/portal/core/specialist"
)

type specialistRow struct {
	ID             string      `db:"id"`
	Name           string      `db:"name"`
	Email          string      `db:"email"`
	Phone          string      `db:"phone"`
	Specialty      string      `db:"specialty"`
	Institution    string      `db:"institution"`
	Qualifications string      `db:"qualifications"`
	Country        string      `db:"country"`
	DocumentURL    null.String `db:"document_url"`
	Status         string      `db:"status"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

type specialistRepository struct {
	db *sqlx.DB
}

var _ specialist.Repository = (*specialistRepository)(nil) // interface compliance check

func NewSpecialistRepository(db *sqlx.DB) *specialistRepository {
	return &specialistRepository{db: db}
}

func (repo specialistRepository) toRow(app specialist.Application) specialistRow {
	return specialistRow{
		ID:             app.ID,
		Name:           app.Name,
		Email:          app.Email,
		Phone:          app.Phone,
		Specialty:      app.Specialty,
		Institution:    app.Institution,
		Qualifications: app.Qualifications,
		Country:        app.Country,
		DocumentURL:    app.DocumentURL,
		Status:         string(app.Status),
		CreatedAt:      app.CreatedAt.UTC(),
		UpdatedAt:      app.UpdatedAt.UTC(),
	}
}

func (repo specialistRepository) fromRow(row specialistRow) specialist.Application {
	return specialist.Application{
		ID:             row.ID,
		Name:           row.Name,
		Email:          row.Email,
		Phone:          row.Phone,
		Specialty:      row.Specialty,
		Institution:    row.Institution,
		Qualifications: row.Qualifications,
		Country:        row.Country,
		DocumentURL:    row.DocumentURL,
		Status:         specialist.Status(row.Status),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to specialist.ErrNotFound
func (repo specialistRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return specialist.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo specialistRepository) CreateApplication(ctx context.Context, app specialist.Application) (specialist.Application, error) {
	app.ID = uuid.New().String()
	row := repo.toRow(app)
	query := `
		INSERT INTO specialists (id, name, email, phone, specialty, institution,
			qualifications, country, document_url, status, created_at, updated_at)
		VALUES (:id, :name, :email, :phone, :specialty, :institution,
			:qualifications, :country, :document_url, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return specialist.Application{}, errors.Wrap(err, "inserting application")
	}
	return repo.fromRow(row), nil
}

func (repo specialistRepository) GetApplicationByID(ctx context.Context, id string) (specialist.Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return specialist.Application{}, specialist.ErrNotFound
	}
	var row specialistRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM specialists WHERE id = $1", id); err != nil {
		return specialist.Application{}, repo.trapNoRowsErr(err, "finding application")
	}
	return repo.fromRow(row), nil
}

func (repo specialistRepository) FilterApplications(ctx context.Context, filter *specialist.QueryFilter, ordering []core.DBOrdering) ([]specialist.Application, error) {
	query := "SELECT * FROM specialists WHERE 1=1"
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Status != "" {
			query += " AND status = " + arg(string(filter.Status))
		}
		if filter.Specialty != "" {
			query += " AND specialty ILIKE " + arg("%"+filter.Specialty+"%")
		}
		if filter.Country != "" {
			query += " AND country ILIKE " + arg(filter.Country)
		}
	}
	query += orderClause(ordering)

	var rows []specialistRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	apps := make([]specialist.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, repo.fromRow(row))
	}
	return apps, nil
}

func (repo specialistRepository) UpdateApplication(ctx context.Context, app specialist.Application) (specialist.Application, error) {
	row := repo.toRow(app)
	query := `
		UPDATE specialists
		SET name = :name, email = :email, phone = :phone, specialty = :specialty,
			institution = :institution, qualifications = :qualifications, country = :country,
			document_url = :document_url, status = :status, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return specialist.Application{}, errors.Wrap(err, "updating application")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return specialist.Application{}, specialist.ErrNotFound
	}
	return repo.fromRow(row), nil
}

package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/event"
)

type eventRow struct {
	ID              string    `db:"id"`
	Title           string    `db:"title"`
	Type            string    `db:"type"`
	Date            time.Time `db:"date"`
	Location        string    `db:"location"`
	Description     string    `db:"description"`
	RegistrationURL string    `db:"registration_url"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo eventRepository) toRow(evt event.Event) eventRow {
	return eventRow{
		ID:              evt.ID,
		Title:           evt.Title,
		Type:            string(evt.Type),
		Date:            evt.Date.UTC(),
		Location:        evt.Location,
		Description:     evt.Description,
		RegistrationURL: evt.RegistrationURL,
		CreatedAt:       evt.CreatedAt.UTC(),
		UpdatedAt:       evt.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) fromRow(row eventRow) event.Event {
	return event.Event{
		ID:              row.ID,
		Title:           row.Title,
		Type:            event.Type(row.Type),
		Date:            row.Date,
		Location:        row.Location,
		Description:     row.Description,
		RegistrationURL: row.RegistrationURL,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to event.ErrNotFound
func (repo eventRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return event.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	evt.ID = uuid.New().String()
	row := repo.toRow(evt)
	query := `
		INSERT INTO events (id, title, type, date, location, description, registration_url, created_at, updated_at)
		VALUES (:id, :title, :type, :date, :location, :description, :registration_url, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return repo.fromRow(row), nil
}

func (repo eventRepository) GetEventByID(ctx context.Context, id string) (event.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Event{}, event.ErrNotFound
	}
	var row eventRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM events WHERE id = $1", id); err != nil {
		return event.Event{}, repo.trapNoRowsErr(err, "finding event")
	}
	return repo.fromRow(row), nil
}

func (repo eventRepository) FilterEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering) ([]event.Event, error) {
	query := "SELECT * FROM events WHERE 1=1"
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if len(filter.Types) > 0 {
			query += " AND type = ANY(" + arg(pq.StringArray(typeStrings(filter.Types))) + ")"
		} else if len(filter.ExcludeTypes) > 0 {
			query += " AND type != ALL(" + arg(pq.StringArray(typeStrings(filter.ExcludeTypes))) + ")"
		}
		if !filter.From.IsZero() {
			query += " AND date >= " + arg(filter.From.UTC())
		}
		if !filter.To.IsZero() {
			query += " AND date <= " + arg(filter.To.UTC())
		}
	}
	query += orderClause(ordering)

	var rows []eventRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, repo.fromRow(row))
	}
	return events, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	row := repo.toRow(evt)
	query := `
		UPDATE events
		SET title = :title, type = :type, date = :date, location = :location,
			description = :description, registration_url = :registration_url, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return repo.fromRow(row), nil
}

func (repo eventRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return event.ErrNotFound
	}
	return nil
}

func typeStrings(types []event.Type) []string {
	strs := make([]string, 0, len(types))
	for _, typ := range types {
		strs = append(strs, string(typ))
	}
	return strs
}

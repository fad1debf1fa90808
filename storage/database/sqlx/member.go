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
	"github.com/volatiletech/null/v8"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/member"
)

type memberRow struct {
	ID               string      `db:"id"`
	Name             string      `db:"name"`
	Email            string      `db:"email"`
	Phone            string      `db:"phone"`
	Profession       string      `db:"profession"`
	Tier             string      `db:"tier"`
	MembershipStatus string      `db:"membership_status"`
	PaymentStatus    string      `db:"payment_status"`
	TransactionID    null.String `db:"transaction_id"`
	IsAdmin          bool        `db:"is_admin"`
	PasswordHash     []byte      `db:"password_hash"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
	LastLogin        null.Time   `db:"last_login"`
}

type memberRepository struct {
	db *sqlx.DB
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *sqlx.DB) *memberRepository {
	return &memberRepository{db: db}
}

func (repo memberRepository) toRow(mbr member.Member) memberRow {
	return memberRow{
		ID:               mbr.ID,
		Name:             mbr.Name,
		Email:            mbr.Email,
		Phone:            mbr.Phone,
		Profession:       mbr.Profession,
		Tier:             string(mbr.Tier),
		MembershipStatus: string(mbr.MembershipStatus),
		PaymentStatus:    string(mbr.PaymentStatus),
		TransactionID:    mbr.TransactionID,
		IsAdmin:          mbr.IsAdmin,
		PasswordHash:     mbr.PasswordHash,
		CreatedAt:        mbr.CreatedAt.UTC(),
		UpdatedAt:        mbr.UpdatedAt.UTC(),
		LastLogin:        null.NewTime(mbr.LastLogin.UTC(), !mbr.LastLogin.IsZero()),
	}
}

func (repo memberRepository) fromRow(row memberRow) member.Member {
	return member.Member{
		ID:               row.ID,
		Name:             row.Name,
		Email:            row.Email,
		Phone:            row.Phone,
		Profession:       row.Profession,
		Tier:             member.Tier(row.Tier),
		MembershipStatus: member.MembershipStatus(row.MembershipStatus),
		PaymentStatus:    member.PaymentStatus(row.PaymentStatus),
		TransactionID:    row.TransactionID,
		IsAdmin:          row.IsAdmin,
		PasswordHash:     row.PasswordHash,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
		LastLogin:        row.LastLogin.Time,
	}
}

func (repo memberRepository) fromRows(rows []memberRow) []member.Member {
	members := make([]member.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, repo.fromRow(row))
	}
	return members
}

// trapNoRowsErr maps psql "no rows" err to member.ErrNotFound
func (repo memberRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return member.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo memberRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedMembers ...member.Member) error {
	query := "SELECT EXISTS (SELECT 1 FROM members WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if len(excludedMembers) > 0 {
		ids := make([]string, 0, len(excludedMembers))
		for _, mbr := range excludedMembers {
			ids = append(ids, mbr.ID)
		}
		query += " AND id != ALL($2)"
		args = append(args, pq.StringArray(ids))
	}
	query += ")"

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking member uniqueness")
	}
	if exists {
		return member.ErrEmailExists
	}
	return nil
}

func (repo memberRepository) CreateMember(ctx context.Context, mbr member.Member) (member.Member, error) {
	mbr.ID = uuid.New().String()
	row := repo.toRow(mbr)
	query := `
		INSERT INTO members (id, name, email, phone, profession, tier, membership_status,
			payment_status, transaction_id, is_admin, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :phone, :profession, :tier, :membership_status,
			:payment_status, :transaction_id, :is_admin, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return member.Member{}, member.ErrEmailExists
		}
		return member.Member{}, errors.Wrap(err, "inserting member")
	}
	return repo.fromRow(row), nil
}

func (repo memberRepository) GetMember(ctx context.Context, filter member.GetFilter) (member.Member, error) {
	var row memberRow
	var err error

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return member.Member{}, member.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, "SELECT * FROM members WHERE id = $1", filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, "SELECT * FROM members WHERE LOWER(email) = LOWER($1)", filter.Email)
	case filter.TransactionID != "":
		err = repo.db.GetContext(ctx, &row, "SELECT * FROM members WHERE transaction_id = $1", filter.TransactionID)
	default:
		return member.Member{}, member.ErrNotFound
	}
	if err != nil {
		return member.Member{}, repo.trapNoRowsErr(err, "finding member")
	}
	return repo.fromRow(row), nil
}

func (repo memberRepository) FilterMembers(ctx context.Context, filter *member.QueryFilter, ordering []core.DBOrdering) ([]member.Member, error) {
	query := "SELECT * FROM members WHERE 1=1"
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		// members with Name, Email or Profession matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			query += fmt.Sprintf(
				" AND (name ILIKE %[1]s OR email ILIKE %[1]s OR profession ILIKE %[1]s)", arg(val))
		}
		if filter.Tier != "" {
			query += " AND tier = " + arg(string(filter.Tier))
		}
		if filter.MembershipStatus != "" {
			query += " AND membership_status = " + arg(string(filter.MembershipStatus))
		}
		if filter.PaymentStatus != "" {
			query += " AND payment_status = " + arg(string(filter.PaymentStatus))
		}
		if !filter.CreatedFrom.IsZero() {
			query += " AND created_at >= " + arg(filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			query += " AND created_at <= " + arg(filter.CreatedTo.UTC())
		}
	}
	query += orderClause(ordering)

	var rows []memberRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	return repo.fromRows(rows), nil
}

func (repo memberRepository) UpdateMember(ctx context.Context, mbr member.Member) (member.Member, error) {
	row := repo.toRow(mbr)
	query := `
		UPDATE members
		SET name = :name, email = :email, phone = :phone, profession = :profession,
			tier = :tier, membership_status = :membership_status, payment_status = :payment_status,
			transaction_id = :transaction_id, is_admin = :is_admin, password_hash = :password_hash,
			updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return member.Member{}, member.ErrEmailExists
		}
		return member.Member{}, errors.Wrap(err, "updating member")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return member.Member{}, member.ErrNotFound
	}
	return repo.fromRow(row), nil
}

func (repo memberRepository) SetLastLogin(ctx context.Context, mbr member.Member) (member.Member, error) {
	mbr.LastLogin = time.Now().UTC()
	if _, err := repo.db.ExecContext(ctx,
		"UPDATE members SET last_login = $1 WHERE id = $2", mbr.LastLogin, mbr.ID); err != nil {
		return member.Member{}, errors.Wrap(err, "setting lastLogin")
	}
	return mbr, nil
}

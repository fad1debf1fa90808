package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/member"
)

type memberRepository struct {
	table *Table[member.Member]
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *DB) *memberRepository {
	return &memberRepository{table: db.members}
}

func (repo *memberRepository) CheckEmailUniqueness(_ context.Context, email string, excludedMembers ...member.Member) error {
	_, found := repo.table.find(func(mbr member.Member) bool {
		if !strings.EqualFold(mbr.Email, email) {
			return false
		}
		for _, excl := range excludedMembers {
			if excl.ID == mbr.ID {
				return false
			}
		}
		return true
	})
	if found {
		return member.ErrEmailExists
	}
	return nil
}

func (repo *memberRepository) CreateMember(_ context.Context, mbr member.Member) (member.Member, error) {
	mbr.ID = uuid.New().String()
	err := repo.table.insertIf(mbr, func(existing member.Member) error {
		if strings.EqualFold(existing.Email, mbr.Email) {
			return member.ErrEmailExists
		}
		return nil
	})
	if err != nil {
		return member.Member{}, err
	}
	return mbr, nil
}

func (repo *memberRepository) GetMember(_ context.Context, filter member.GetFilter) (member.Member, error) {
	mbr, ok := repo.table.find(func(mbr member.Member) bool {
		switch {
		case filter.ID != "":
			return mbr.ID == filter.ID
		case filter.Email != "":
			return strings.EqualFold(mbr.Email, filter.Email)
		case filter.TransactionID != "":
			return mbr.TransactionID.String == filter.TransactionID
		}
		return false
	})
	if !ok {
		return member.Member{}, member.ErrNotFound
	}
	return mbr, nil
}

func (repo *memberRepository) FilterMembers(_ context.Context, filter *member.QueryFilter, ordering []core.DBOrdering) ([]member.Member, error) {
	members := repo.table.all()

	if filter != nil {
		matched := members[:0]
		for _, mbr := range members {
			if matchMember(mbr, filter) {
				matched = append(matched, mbr)
			}
		}
		members = matched
	}

	sortMembers(members, ordering)
	return members, nil
}

func matchMember(mbr member.Member, filter *member.QueryFilter) bool {
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(mbr.Name), kw) &&
			!strings.Contains(strings.ToLower(mbr.Email), kw) &&
			!strings.Contains(strings.ToLower(mbr.Profession), kw) {
			return false
		}
	}
	if filter.Tier != "" && mbr.Tier != filter.Tier {
		return false
	}
	if filter.MembershipStatus != "" && mbr.MembershipStatus != filter.MembershipStatus {
		return false
	}
	if filter.PaymentStatus != "" && mbr.PaymentStatus != filter.PaymentStatus {
		return false
	}
	if !filter.CreatedFrom.IsZero() && mbr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && mbr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func sortMembers(members []member.Member, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		return
	}
	ord := ordering[0]
	sort.SliceStable(members, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "name":
			less = members[i].Name < members[j].Name
		case "email":
			less = members[i].Email < members[j].Email
		default: // created_at
			less = members[i].CreatedAt.Before(members[j].CreatedAt)
		}
		if !ord.Ascending {
			return !less
		}
		return less
	})
}

func (repo *memberRepository) UpdateMember(_ context.Context, mbr member.Member) (member.Member, error) {
	if !repo.table.update(mbr) {
		return member.Member{}, member.ErrNotFound
	}
	return mbr, nil
}

func (repo *memberRepository) SetLastLogin(_ context.Context, mbr member.Member) (member.Member, error) {
	mbr.LastLogin = time.Now().UTC()
	if !repo.table.update(mbr) {
		return member.Member{}, member.ErrNotFound
	}
	return mbr, nil
}

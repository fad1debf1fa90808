package main

import (
	"context"
	"time"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/member"
)

// addAdmin updates or creates an admin member.Member
func (cli *commandLine) addAdmin(name, email, pwd string) error {
	var mbr member.Member
	var err error
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	now := time.Now().UTC()
	if mbr, err = cli.mbrRepo.GetMember(ctx, member.GetFilter{Email: email}); err != nil {
		if err != member.ErrNotFound {
			return err
		}
		mbr = member.Member{
			Name:             name,
			Email:            email,
			Tier:             member.TierFull,
			MembershipStatus: member.MembershipActive,
			PaymentStatus:    member.PaymentApproved,
			IsAdmin:          true,
			CreatedAt:        now,
		}
		if err = mbr.SetPassword(pwd); err != nil {
			return err
		}
		mbr.UpdatedAt = now
		_, err = cli.mbrRepo.CreateMember(ctx, mbr)
		return err
	}

	mbr.IsAdmin = true
	mbr.MembershipStatus = member.MembershipActive
	if err = mbr.SetPassword(pwd); err != nil {
		return err
	}
	mbr.UpdatedAt = now
	_, err = cli.mbrRepo.UpdateMember(ctx, mbr)
	return err
}

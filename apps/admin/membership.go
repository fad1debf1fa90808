package main

import (
	"context"
	"fmt"

	"github.com/eacna/portal/core/member"
)

func (cli *commandLine) approvePayment(transactionID string) error {
	mbr, err := cli.mbrSvc.ApprovePayment(context.Background(), transactionID)
	if err != nil {
		return err
	}
	fmt.Printf("payment %s approved for %s\n", transactionID, mbr.Email)
	return nil
}

func (cli *commandLine) activate(email string) error {
	ctx := context.Background()
	mbr, err := cli.mbrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if mbr, err = cli.mbrSvc.Activate(ctx, mbr.ID); err != nil {
		return err
	}
	fmt.Printf("membership activated for %s\n", mbr.Email)
	return nil
}

func (cli *commandLine) deactivate(email string) error {
	ctx := context.Background()
	mbr, err := cli.mbrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if mbr, err = cli.mbrSvc.Deactivate(ctx, mbr.ID); err != nil {
		return err
	}
	fmt.Printf("membership deactivated for %s\n", mbr.Email)
	return nil
}

func (cli *commandLine) resetPassword(email string, pwd string) error {
	ctx := context.Background()
	mbr, err := cli.mbrRepo.GetMember(ctx, member.GetFilter{Email: email})
	if err != nil {
		return err
	}
	if err := mbr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.mbrRepo.UpdateMember(ctx, mbr); err != nil {
		return err
	}
	return nil
}

package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/eacna/portal/core/member"
	emailsvc "github.com/eacna/portal/services/email"
	inmemdb "github.com/eacna/portal/storage/database/inmem"
)

var mbrRepo member.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	// in-memory repos; migrate is the only command touching the DB handle
	// and its goose runner is mocked out
	db := inmemdb.NewDB()
	mbrRepo = inmemdb.NewMemberRepository(db)
	payRepo := inmemdb.NewPaymentRepository(db)
	mbrSvc := member.NewServiceMock(mbrRepo, payRepo, emailsvc.NewConsoleServiceMock(), nil, nil)

	return &commandLine{
		db:      new(sqlx.DB),
		mbrRepo: mbrRepo,
		mbrSvc:  mbrSvc,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION", command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create requires a NAME")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand defaults to up", args: []string{"migrate"}},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to requires a VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "sponsors", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("G00d#Pass"), nil }

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addadmin"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"addadmin", "-name", "Kat"}, wantErr: errHelp},
		{name: "create", args: []string{"addadmin", "-name", "Kat Ngalula", "-email", "kat@test.cd"}},
		{name: "promote existing", args: []string{"addadmin", "-name", "Kat Ngalula", "-email", "kat@test.cd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				mbr, err := mbrRepo.GetMember(context.Background(), member.GetFilter{Email: "kat@test.cd"})
				if err != nil {
					t.Fatalf("GetMember() failed: %v", err)
				}
				if !mbr.IsAdmin {
					t.Error("member is not an admin")
				}
				if !mbr.MembershipActive() {
					t.Error("admin membership is not active")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_membership(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	mbr, err := cli.mbrSvc.Register(ctx, member.Registration{
		Name:       "Awe Mbongo",
		Email:      "awe@test.cd",
		Phone:      "+254700000000",
		Profession: "Neurologist",
		Tier:       member.TierFull,
		Password:   "G00d#Pass",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if _, err = cli.mbrSvc.SubmitPayment(ctx, mbr.ID, member.PaymentSubmission{TransactionID: "QGH7TYU89P"}); err != nil {
		t.Fatalf("SubmitPayment() failed: %v", err)
	}

	steps := []cliTest{
		{name: "approvepayment: no args", args: []string{"approvepayment"}, wantErr: errHelp},
		{name: "approvepayment: unknown transaction", args: []string{"approvepayment", "-transaction", "NOPE123"}},
		{name: "approvepayment", args: []string{"approvepayment", "-transaction", "QGH7TYU89P"}},
		{name: "activate: unknown email", args: []string{"activate", "-email", "lol@test.cd"}, wantErr: member.ErrNotFound},
		{name: "activate", args: []string{"activate", "-email", "awe@test.cd"}},
		{name: "deactivate", args: []string{"deactivate", "-email", "awe@test.cd"}},
	}
	for _, tt := range steps {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch tt.name {
			case "approvepayment: unknown transaction":
				if err == nil {
					t.Error("cli.run() succeeded for an unknown transaction")
				}
			default:
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if err != nil {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}

	refreshed, err := mbrRepo.GetMember(ctx, member.GetFilter{Email: "awe@test.cd"})
	if err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	if refreshed.MembershipStatus != member.MembershipInactive {
		t.Errorf("membership status = %v, want %v", refreshed.MembershipStatus, member.MembershipInactive)
	}
	if !refreshed.PaymentApproved() {
		t.Error("payment was not approved")
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	mbr, err := cli.mbrSvc.Register(context.Background(), member.Registration{
		Name:       "Awe Mbongo",
		Email:      "awe@test.cd",
		Phone:      "+254700000000",
		Profession: "Neurologist",
		Tier:       member.TierFull,
		Password:   "G00d#Pass",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "awe@test.cd"}, wantErr: errHelp},
		{name: "member not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantErr: member.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "awe@test.cd"}, extra: extra{pwd: "N3w#Passw0rd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := mbrRepo.GetMember(context.Background(), member.GetFilter{ID: mbr.ID})
				if err != nil {
					t.Fatalf("GetMember() failed: %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, mbr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

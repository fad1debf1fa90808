package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/eacna/portal/core/member"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sqlx.DB
	mbrRepo member.Repository
	mbrSvc  member.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate [COMMAND]                     - run database migrations (default: up)")
	fmt.Println("  addadmin -name NAME -email EMAIL      - create or promote an admin account")
	fmt.Println("  approvepayment -transaction REFERENCE - approve a submitted payment")
	fmt.Println("  activate -email EMAIL                 - activate a membership")
	fmt.Println("  deactivate -email EMAIL               - deactivate a membership")
	fmt.Println("  resetpassword -email EMAIL            - reset a member's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ExitOnError)
	addAdminName := addAdminCmd.String("name", "", "The admin's full name.")
	addAdminEmail := addAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")

	approveCmd := flag.NewFlagSet("approvepayment", flag.ExitOnError)
	approveTxn := approveCmd.String("transaction", "", "The submitted transaction reference.")

	activateCmd := flag.NewFlagSet("activate", flag.ExitOnError)
	activateEmail := activateCmd.String("email", "", "The member's email.")

	deactivateCmd := flag.NewFlagSet("deactivate", flag.ExitOnError)
	deactivateEmail := deactivateCmd.String("email", "", "The member's email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The member's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])
	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminName == "" || *addAdminEmail == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.addAdmin(*addAdminName, *addAdminEmail, pwd)
	case "approvepayment":
		if err := approveCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *approveTxn == "" {
			approveCmd.Usage()
			return errHelp
		}
		return cli.approvePayment(*approveTxn)
	case "activate":
		if err := activateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *activateEmail == "" {
			activateCmd.Usage()
			return errHelp
		}
		return cli.activate(*activateEmail)
	case "deactivate":
		if err := deactivateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deactivateEmail == "" {
			deactivateCmd.Usage()
			return errHelp
		}
		return cli.deactivate(*deactivateEmail)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}

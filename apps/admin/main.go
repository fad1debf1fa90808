package main

import (
	"log"
	"os"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/member"
	emailsvc "github.com/eacna/portal/services/email"
	logsvc "github.com/eacna/portal/services/logger"
	"github.com/eacna/portal/storage/database"
	sqlxrepos "github.com/eacna/portal/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	mbrRepo := sqlxrepos.NewMemberRepository(db)
	payRepo := sqlxrepos.NewPaymentRepository(db)
	mbrSvc := member.NewService(
		mbrRepo, payRepo, emailsvc.NewConsoleService(), nil, logsvc.NewStdLogger(logger))

	// start CLI
	cli := commandLine{
		db:      db,
		mbrRepo: mbrRepo,
		mbrSvc:  mbrSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

package main

import (
	"github.com/pressly/goose/v3"

	appfs "github.com/eacna/portal/fs"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	goose.SetBaseFS(appfs.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	command := "up"
	var arguments []string
	if len(args) > 0 {
		command = args[0]
		arguments = args[1:]
	}
	return gooseRunFunc(command, cli.db.DB, "migrations", arguments...)
}

package main

import (
	"github.com/edufi/backend/storage/database"
)

var migrationsRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return migrationsRunFunc(cli.db, args[0], arguments...)
}

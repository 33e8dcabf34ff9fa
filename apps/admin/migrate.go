package main

import (
	"errors"

	"github.com/trezcool/markbook/storage/database"
)

var (
	migrateFunc = database.Migrate // mockable

	errNoMigrations = errors.New("migrations only apply to the postgres engine")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoMigrations
	}
	return migrateFunc(cli.db, args[0], args[1:]...)
}

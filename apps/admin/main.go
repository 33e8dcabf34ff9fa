package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/trezcool/markbook/core"
	"github.com/trezcool/markbook/core/user"
	logsvc "github.com/trezcool/markbook/services/logger"
	"github.com/trezcool/markbook/storage/database"
	boltrepos "github.com/trezcool/markbook/storage/database/bolt"
	sqlxrepos "github.com/trezcool/markbook/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	conf.Debug = true // human friendly logs, no rollbar

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin").WithOptions(zap.WithCaller(false)), conf)
	defer logger.Sync()

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	cli := commandLine{validate: validate}

	// set up DB
	switch conf.Database.Engine {
	case core.EngineBolt:
		db, err := boltrepos.Open(conf.Database.BoltPath)
		if err != nil {
			logger.Fatal("opening database", err)
		}
		defer db.Close()
		cli.usrSvc = user.NewService(boltrepos.NewUserRepository(db))
	default:
		var db *sqlx.DB
		if err = database.CreateIfNotExist(conf); err == nil {
			db, err = database.Open(conf)
		}
		if err != nil {
			logger.Fatal("opening database", err)
		}
		defer db.Close()
		cli.db = db
		cli.usrSvc = user.NewService(sqlxrepos.NewUserRepository(sqlxrepos.New(db)))
	}

	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

package dig_container

import (
	"fmt"
	"io"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/markbook/apps/api/echo"
	"github.com/trezcool/markbook/core"
	"github.com/trezcool/markbook/core/course"
	"github.com/trezcool/markbook/core/user"
	logsvc "github.com/trezcool/markbook/services/logger"
	"github.com/trezcool/markbook/storage/database"
	boltrepos "github.com/trezcool/markbook/storage/database/bolt"
	sqlxrepos "github.com/trezcool/markbook/storage/database/sqlx"
)

// Storage is the repositories of the configured database engine.
type Storage struct {
	dig.Out

	Users   user.Repository
	Courses course.Repository
	DB      io.Closer `name:"db"`
}

// DBParam gives access to the database handle, for closing it on exit.
type DBParam struct {
	dig.In

	DB io.Closer `name:"db"`
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	UserSvc    user.Service
	CourseSvc  course.Service
}

func newRollbarLogger(conf *core.Config) (*logsvc.RollbarLogger, error) {
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	return logsvc.NewRollbarLogger(zl, conf), nil
}

func newLogger(l *logsvc.RollbarLogger) core.Logger {
	return l
}

func newStorage(conf *core.Config, logger core.Logger) (Storage, error) {
	switch conf.Database.Engine {
	case core.EngineBolt:
		db, err := boltrepos.Open(conf.Database.BoltPath)
		if err != nil {
			return Storage{}, err
		}
		logger.Info(fmt.Sprintf("bolt database opened at %q", db.Path()))
		return Storage{
			Users:   boltrepos.NewUserRepository(db),
			Courses: boltrepos.NewCourseRepository(db),
			DB:      db,
		}, nil

	case core.EnginePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return Storage{}, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return Storage{}, err
		}
		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return Storage{}, err
		}
		logger.Info(fmt.Sprintf("postgres database ready at %s", conf.Database.Address()))
		repos := sqlxrepos.New(db)
		return Storage{
			Users:   sqlxrepos.NewUserRepository(repos),
			Courses: sqlxrepos.NewCourseRepository(repos),
			DB:      db,
		}, nil

	default:
		return Storage{}, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

func newValidate(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newServer(p serverParams) echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		UserSvc:    p.UserSvc,
		CourseSvc:  p.CourseSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newRollbarLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newStorage))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidate))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

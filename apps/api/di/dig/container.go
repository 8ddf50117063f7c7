package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/masomo-lms/apps/api/echo"
	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/analytics"
	"github.com/trezcool/masomo-lms/core/assessment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/user"
	cachesvc "github.com/trezcool/masomo-lms/services/cache"
	emailsvc "github.com/trezcool/masomo-lms/services/email"
	logsvc "github.com/trezcool/masomo-lms/services/logger"
	"github.com/trezcool/masomo-lms/services/metrics"
	"github.com/trezcool/masomo-lms/storage/database"
	inmemdb "github.com/trezcool/masomo-lms/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo-lms/storage/database/sqlx"
)

const engineMemory = "memory"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Storage is every persistence dependency of the services, for the configured engine.
	Storage struct {
		dig.Out
		DB             *sqlx.DB // nil for the memory engine
		Tx             core.Transactor
		UserRepo       user.Repository
		CourseRepo     course.Repository
		AssessmentRepo assessment.Repository
	}

	Cache struct {
		dig.Out
		Cache       core.Cache
		RedisClient *redis.Client // nil when caching is disabled
	}

	serverParams struct {
		dig.In
		Conf          *core.Config
		Logger        core.Logger
		Translator    ut.Translator
		Auth          *echoapi.Auth
		Metrics       *metrics.Metrics
		UserSvc       *user.Service
		CourseSvc     *course.Service
		AssessmentSvc *assessment.Service
		AnalyticsSvc  *analytics.Service
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.Engine == engineMemory {
		db := inmemdb.Open()
		return Storage{
			Tx:             db,
			UserRepo:       inmemdb.NewUserRepository(db),
			CourseRepo:     inmemdb.NewCourseRepository(db),
			AssessmentRepo: inmemdb.NewAssessmentRepository(db),
		}
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Storage{
		DB:             db,
		Tx:             database.NewTransactor(db),
		UserRepo:       sqlxrepos.NewUserRepository(db, conf),
		CourseRepo:     sqlxrepos.NewCourseRepository(db, conf),
		AssessmentRepo: sqlxrepos.NewAssessmentRepository(db, conf),
	}
}

func newCache(conf *core.Config, logger core.Logger) Cache {
	cache, client := cachesvc.NewCache(context.Background(), conf, logger)
	return Cache{Cache: cache, RedisClient: client}
}

func newMetrics() *metrics.Metrics {
	return metrics.New("masomo")
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Translator:    p.Translator,
		Auth:          p.Auth,
		Metrics:       p.Metrics,
		UserSvc:       p.UserSvc,
		CourseSvc:     p.CourseSvc,
		AssessmentSvc: p.AssessmentSvc,
		AnalyticsSvc:  p.AnalyticsSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newCache))
	must(c.Provide(newMetrics))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(assessment.NewService))
	must(c.Provide(analytics.NewService))
	must(c.Provide(echoapi.NewAuth))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

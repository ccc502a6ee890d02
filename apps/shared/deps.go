// Package shared wires the dependencies both binaries need: validation, storage & domain services.
package shared

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/dojo"
	"github.com/d2monteblanco/ki-aikido-system/core/event"
	"github.com/d2monteblanco/ki-aikido-system/core/user"
	"github.com/d2monteblanco/ki-aikido-system/storage/database"
	inmemdb "github.com/d2monteblanco/ki-aikido-system/storage/database/inmem"
	sqlxrepos "github.com/d2monteblanco/ki-aikido-system/storage/database/sqlx"
)

const (
	EngineMemory   = "memory"
	EnginePostgres = "postgres"
)

type (
	Store struct {
		Tx     core.Transactor
		Users  user.Repository
		Dojos  dojo.Repository
		Events event.Repository

		DB     *sqlx.DB // nil for the memory engine
		Memory *inmemdb.DB
	}

	Services struct {
		User  *user.Service
		Dojo  *dojo.Service
		Event *event.Service
	}
)

// NewValidator returns a validator with every custom tag & english translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	event.InitValidators(validate, translator)
	return validate, translator
}

// NewMemoryStore returns a Store backed by a fresh in-memory DB.
func NewMemoryStore() *Store {
	db := inmemdb.Open()
	return &Store{
		Tx:     db,
		Users:  inmemdb.NewUserRepository(db),
		Dojos:  inmemdb.NewDojoRepository(db),
		Events: inmemdb.NewEventRepository(db),
		Memory: db,
	}
}

// OpenStore opens the store of the configured engine. For Postgres, the database is created
// if missing and, when migrate is set, brought up to date.
func OpenStore(conf *core.Config, logger core.Logger, migrate bool) (*Store, error) {
	switch conf.Database.Engine {
	case EngineMemory:
		return NewMemoryStore(), nil
	case EnginePostgres:
	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err = database.Migrate(db.DB, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info(fmt.Sprintf("database %q migrated", conf.Database.Name))
	}
	return &Store{
		Tx:     database.NewTransactor(db, conf, logger),
		Users:  sqlxrepos.NewUserRepository(db),
		Dojos:  sqlxrepos.NewDojoRepository(db),
		Events: sqlxrepos.NewEventRepository(db),
		DB:     db,
	}, nil
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func NewServices(store *Store, validate *validator.Validate, logger core.Logger, conf *core.Config) Services {
	return Services{
		User:  user.NewService(store.Users, validate),
		Dojo:  dojo.NewService(store.Dojos),
		Event: event.NewService(store.Tx, store.Events, store.Dojos, validate, logger, conf),
	}
}

package commands

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/facetmodel/examples/orders"
	"github.com/conduit-lang/facetmodel/internal/config"
	"github.com/conduit-lang/facetmodel/internal/logging"
	"github.com/conduit-lang/facetmodel/internal/metamodel/runtimecontext"
	"github.com/conduit-lang/facetmodel/internal/metamodel/specloader"
	"github.com/conduit-lang/facetmodel/internal/progmodel"
	"github.com/conduit-lang/facetmodel/internal/progmodel/layout"
	"github.com/conduit-lang/facetmodel/internal/runtime/memento"
	"github.com/conduit-lang/facetmodel/internal/runtime/persistence"
	"go.uber.org/zap"
)

// domainTypes are the types every command registers with the loader
var domainTypes = []reflect.Type{
	reflect.TypeOf(&orders.Customer{}),
	reflect.TypeOf(&orders.Order{}),
	reflect.TypeOf(&orders.Product{}),
}

// environment is an initialized metamodel with its own object session
type environment struct {
	cfg     *config.Config
	logger  *zap.Logger
	model   *progmodel.ProgrammingModel
	loader  *specloader.Loader
	session *persistence.Session
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return nil, err
		}
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newEnvironment(cfg *config.Config) (*environment, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	pm, err := progmodel.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build programming model: %w", err)
	}
	loader, err := specloader.New(cfg, pm, specloader.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	session := persistence.NewSession(loader, persistence.WithLogger(logger))
	rc := runtimecontext.New(session,
		runtimecontext.WithInjector(layout.NewRepository(cfg.Layout.Dir, logger)),
		runtimecontext.WithLogger(logger))
	if err := loader.Init(rc); err != nil {
		return nil, fmt.Errorf("failed to initialize specification loader: %w", err)
	}
	if err := loader.Register(domainTypes...); err != nil {
		loader.Shutdown()
		return nil, err
	}

	return &environment{cfg: cfg, logger: logger, model: pm, loader: loader, session: session}, nil
}

func (e *environment) runtime() memento.Runtime {
	return memento.Runtime{Specs: e.loader, Hydrator: e.session, Logger: e.logger}
}

func (e *environment) close() {
	e.session.Clear()
	e.loader.Shutdown()
	_ = e.logger.Sync()
}

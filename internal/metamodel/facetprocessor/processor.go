// Package facetprocessor runs the registered facet factories against classes, members and action
// parameters, and answers method classification queries for the specification loader.
package facetprocessor

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/conduit-lang/facetmodel/internal/config"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"go.uber.org/zap"
)

var (
	// ErrMissingDependency is returned when a required collaborator is nil.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrFactoryNotRegistered is returned by FactoryByType for a type never registered.
	ErrFactoryNotRegistered = errors.New("facet factory not registered")
)

// ProgrammingModel supplies the factory roster.
type ProgrammingModel interface {
	Init() error
	List() []facetfactory.FacetFactory
}

// RuntimeContext injects runtime collaborators, such as the adapter map, into factories.
type RuntimeContext interface {
	InjectInto(candidate any) error
}

// Processor dispatches introspection to factories in registration order.
type Processor struct {
	cfg              *config.Config
	specLoader       spec.SpecificationLookup
	collectionTypes  facetfactory.CollectionTypeRegistry
	programmingModel ProgrammingModel
	logger           *zap.Logger

	// mu guards the registry and serializes cache rebuilds.
	mu             sync.Mutex
	factories      []facetfactory.FacetFactory
	factoryByType  map[reflect.Type]facetfactory.FacetFactory
	runtimeContext RuntimeContext

	// cache is nil until first use after a registration.
	cache atomic.Pointer[caches]
}

// caches is built in one go and published whole, so readers see either no cache or a complete one.
type caches struct {
	byFeatureType map[facet.FeatureType][]facetfactory.FacetFactory
	prefixes      []string
	filtering     []facetfactory.MethodFiltering
	identifying   []facetfactory.PropertyOrCollectionIdentifying
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a processor. Every collaborator is required.
func New(cfg *config.Config, specLoader spec.SpecificationLookup, collectionTypes facetfactory.CollectionTypeRegistry, programmingModel ProgrammingModel, opts ...Option) (*Processor, error) {
	switch {
	case cfg == nil:
		return nil, fmt.Errorf("%w: configuration", ErrMissingDependency)
	case specLoader == nil:
		return nil, fmt.Errorf("%w: specification loader", ErrMissingDependency)
	case collectionTypes == nil:
		return nil, fmt.Errorf("%w: collection type registry", ErrMissingDependency)
	case programmingModel == nil:
		return nil, fmt.Errorf("%w: programming model", ErrMissingDependency)
	}

	p := &Processor{
		cfg:              cfg,
		specLoader:       specLoader,
		collectionTypes:  collectionTypes,
		programmingModel: programmingModel,
		logger:           zap.NewNop(),
		factoryByType:    make(map[reflect.Type]facetfactory.FacetFactory),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Init initializes the programming model and registers its factories in roster order.
func (p *Processor) Init(runtimeContext RuntimeContext) error {
	if runtimeContext == nil {
		return fmt.Errorf("%w: runtime context", ErrMissingDependency)
	}

	p.mu.Lock()
	p.runtimeContext = runtimeContext
	p.mu.Unlock()

	if err := p.programmingModel.Init(); err != nil {
		return fmt.Errorf("failed to initialize programming model: %w", err)
	}
	for _, f := range p.programmingModel.List() {
		if err := p.RegisterFactory(f); err != nil {
			return err
		}
	}

	p.logger.Debug("facet processor initialized", zap.Int("factories", len(p.Factories())))
	return nil
}

// Shutdown drops every registered factory and the runtime context.
func (p *Processor) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.factories = nil
	p.factoryByType = make(map[reflect.Type]facetfactory.FacetFactory)
	p.runtimeContext = nil
	p.cache.Store(nil)
}

// RegisterFactory injects dependencies into f, appends it and invalidates the caches.
func (p *Processor) RegisterFactory(f facetfactory.FacetFactory) error {
	if f == nil {
		return fmt.Errorf("%w: facet factory", ErrMissingDependency)
	}
	if err := p.InjectDependenciesInto(f); err != nil {
		return fmt.Errorf("failed to register %s: %w", facetfactory.Name(f), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.cache.Store(nil)
	p.factoryByType[reflect.TypeOf(f)] = f
	p.factories = append(p.factories, f)

	p.logger.Debug("registered facet factory",
		zap.String("factory", facetfactory.Name(f)),
		zap.Int("position", len(p.factories)))
	return nil
}

// InjectDependenciesInto hands f every collaborator it declares interest in. A factory wanting a
// runtime collaborator before Init is a fatal error.
func (p *Processor) InjectDependenciesInto(f any) error {
	if aware, ok := f.(facetfactory.CollectionTypeRegistryAware); ok {
		aware.SetCollectionTypeRegistry(p.collectionTypes)
	}
	if aware, ok := f.(facetfactory.ConfigurationAware); ok {
		aware.SetConfiguration(p.cfg)
	}
	if aware, ok := f.(facetfactory.SpecificationLookupAware); ok {
		aware.SetSpecificationLookup(p.specLoader)
	}
	if aware, ok := f.(facetfactory.MethodRecognizerAware); ok {
		aware.SetMethodRecognizer(p)
	}
	if aware, ok := f.(facetfactory.LoggerAware); ok {
		aware.SetLogger(p.logger.Named(facetfactory.Name(asFactory(f))))
	}

	p.mu.Lock()
	rc := p.runtimeContext
	p.mu.Unlock()

	if rc == nil {
		if _, ok := f.(facetfactory.AdapterMapAware); ok {
			return fmt.Errorf("%w: adapter map (processor not initialized)", ErrMissingDependency)
		}
		return nil
	}
	return rc.InjectInto(f)
}

func asFactory(v any) facetfactory.FacetFactory {
	if f, ok := v.(facetfactory.FacetFactory); ok {
		return f
	}
	return nil
}

// Factories returns the registered factories in registration order.
func (p *Processor) Factories() []facetfactory.FacetFactory {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]facetfactory.FacetFactory, len(p.factories))
	copy(result, p.factories)
	return result
}

// FactoryByType returns the registered factory of concrete type t.
func (p *Processor) FactoryByType(t reflect.Type) (facetfactory.FacetFactory, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.factoryByType[t]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrFactoryNotRegistered, t)
	}
	return f, nil
}

// FactoryOf returns the registered factory of type T.
func FactoryOf[T facetfactory.FacetFactory](p *Processor) (T, error) {
	var zero T
	f, err := p.FactoryByType(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	return f.(T), nil
}

// Process runs every OBJECT factory against cls.
func (p *Processor) Process(cls reflect.Type, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	remover = orNull(remover)
	added := false
	for _, f := range p.factoriesFor(facet.Object) {
		if f.Process(cls, remover, holder) {
			added = true
		}
	}
	return added
}

// ProcessMethod runs the factories registered for featureType against one member of cls.
func (p *Processor) ProcessMethod(cls reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder, featureType facet.FeatureType) bool {
	remover = orNull(remover)
	added := false
	for _, f := range p.factoriesFor(featureType) {
		if f.ProcessMethod(cls, method, remover, holder) {
			added = true
		}
	}
	return added
}

// ProcessParams runs the ACTION_PARAMETER factories against parameter paramNum of method.
func (p *Processor) ProcessParams(method reflect.Method, paramNum int, holder facet.Holder) bool {
	added := false
	for _, f := range p.factoriesFor(facet.ActionParameter) {
		if f.ProcessParams(method, paramNum, holder) {
			added = true
		}
	}
	return added
}

// Recognizes reports whether a registered factory claims method by prefix or by filter.
func (p *Processor) Recognizes(method reflect.Method) bool {
	c := p.caches()
	for _, prefix := range c.prefixes {
		if facetfactory.MatchesPrefix(method.Name, prefix) {
			return true
		}
	}
	for _, f := range c.filtering {
		if f.Recognizes(method) {
			return true
		}
	}
	return false
}

// FindPropertyOrCollectionCandidateAccessors appends to candidates every method that any
// identifying factory proposes as an accessor. A method is added once.
func (p *Processor) FindPropertyOrCollectionCandidateAccessors(methods []reflect.Method, candidates []reflect.Method) []reflect.Method {
	c := p.caches()
	seen := make(map[string]bool, len(candidates))
	for _, m := range candidates {
		seen[m.Name] = true
	}
	for _, m := range methods {
		if seen[m.Name] {
			continue
		}
		for _, f := range c.identifying {
			if f.IsPropertyOrCollectionAccessorCandidate(m) {
				candidates = append(candidates, m)
				seen[m.Name] = true
				break
			}
		}
	}
	return candidates
}

// FindAndRemovePropertyAccessors removes the property accessors from remover and appends them to
// accessors.
func (p *Processor) FindAndRemovePropertyAccessors(remover facetfactory.MethodRemover, accessors []reflect.Method) []reflect.Method {
	for _, f := range p.caches().identifying {
		accessors = append(accessors, f.FindAndRemovePropertyAccessors(orNull(remover))...)
	}
	return accessors
}

// FindAndRemoveCollectionAccessors removes the collection accessors from remover and appends them
// to accessors.
func (p *Processor) FindAndRemoveCollectionAccessors(remover facetfactory.MethodRemover, accessors []reflect.Method) []reflect.Method {
	for _, f := range p.caches().identifying {
		accessors = append(accessors, f.FindAndRemoveCollectionAccessors(orNull(remover))...)
	}
	return accessors
}

func (p *Processor) factoriesFor(ft facet.FeatureType) []facetfactory.FacetFactory {
	return p.caches().byFeatureType[ft]
}

// caches returns the current snapshot, building it when a registration dropped it.
func (p *Processor) caches() *caches {
	if c := p.cache.Load(); c != nil {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c := p.cache.Load(); c != nil {
		return c
	}
	c := buildCaches(p.factories)
	p.cache.Store(c)

	p.logger.Debug("rebuilt facet processor caches",
		zap.Int("factories", len(p.factories)),
		zap.Int("prefixes", len(c.prefixes)),
		zap.Int("filtering", len(c.filtering)),
		zap.Int("identifying", len(c.identifying)))
	return c
}

func buildCaches(factories []facetfactory.FacetFactory) *caches {
	c := &caches{byFeatureType: make(map[facet.FeatureType][]facetfactory.FacetFactory)}
	for _, f := range factories {
		for _, ft := range f.FeatureTypes() {
			c.byFeatureType[ft] = append(c.byFeatureType[ft], f)
		}
		if pb, ok := f.(facetfactory.MethodPrefixBased); ok {
			c.prefixes = append(c.prefixes, pb.Prefixes()...)
		}
		if mf, ok := f.(facetfactory.MethodFiltering); ok {
			c.filtering = append(c.filtering, mf)
		}
		if id, ok := f.(facetfactory.PropertyOrCollectionIdentifying); ok {
			c.identifying = append(c.identifying, id)
		}
	}
	return c
}

func orNull(remover facetfactory.MethodRemover) facetfactory.MethodRemover {
	if remover == nil {
		return facetfactory.NullRemover
	}
	return remover
}

// Package specloader builds and caches object specifications by running the facet processor over
// Go types.
package specloader

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conduit-lang/facetmodel/internal/config"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetprocessor"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNotInitialized is returned when specifications are requested before Init.
var ErrNotInitialized = errors.New("specification loader not initialized")

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Builtins are loaded by Init so value types always resolve by name.
var Builtins = []reflect.Type{
	reflect.TypeOf(""),
	reflect.TypeOf(false),
	reflect.TypeOf(0),
	reflect.TypeOf(int64(0)),
	reflect.TypeOf(float64(0)),
	reflect.TypeOf(time.Time{}),
	reflect.TypeOf(uuid.UUID{}),
}

// Loader implements spec.SpecificationLookup.
type Loader struct {
	processor *facetprocessor.Processor
	logger    *zap.Logger

	// mu guards the published specifications and the registered types.
	mu          sync.RWMutex
	specs       map[reflect.Type]*spec.ObjectSpecification
	byName      map[string]*spec.ObjectSpecification
	registered  []reflect.Type
	initialized bool

	// introspecting serializes introspection; inProgress is only touched while holding it.
	introspecting sync.Mutex
	inProgress    map[reflect.Type]*spec.ObjectSpecification
	group         singleflight.Group

	// active is the batch of the load holding introspecting, nil when idle.
	active atomic.Pointer[[]*spec.ObjectSpecification]
}

// factoryLookup is the lookup handed to facet factories. Factories are called by the goroutine
// holding introspecting, so during a load it resolves types within that load instead of waiting
// for the lock.
type factoryLookup struct {
	l *Loader
}

func (f factoryLookup) LoadSpecification(t reflect.Type) (*spec.ObjectSpecification, error) {
	if t != nil {
		if s, ok := f.l.cached(t); ok {
			return s, nil
		}
		if batch := f.l.active.Load(); batch != nil {
			return f.l.loadLocked(t, batch)
		}
	}
	return f.l.LoadSpecification(t)
}

func (f factoryLookup) LoadSpecificationByName(name string) (*spec.ObjectSpecification, error) {
	return f.l.LoadSpecificationByName(name)
}

type options struct {
	logger      *zap.Logger
	collections facetfactory.CollectionTypeRegistry
}

// Option configures a Loader.
type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCollectionTypeRegistry replaces the default slice-and-array registry.
func WithCollectionTypeRegistry(registry facetfactory.CollectionTypeRegistry) Option {
	return func(o *options) {
		if registry != nil {
			o.collections = registry
		}
	}
}

// New creates a loader and the facet processor it drives.
func New(cfg *config.Config, programmingModel facetprocessor.ProgrammingModel, opts ...Option) (*Loader, error) {
	o := options{logger: zap.NewNop(), collections: facetfactory.DefaultCollectionTypeRegistry{}}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Loader{
		logger:     o.logger,
		specs:      make(map[reflect.Type]*spec.ObjectSpecification),
		byName:     make(map[string]*spec.ObjectSpecification),
		inProgress: make(map[reflect.Type]*spec.ObjectSpecification),
	}
	processor, err := facetprocessor.New(cfg, factoryLookup{l}, o.collections, programmingModel,
		facetprocessor.WithLogger(o.logger.Named("processor")))
	if err != nil {
		return nil, fmt.Errorf("failed to create facet processor: %w", err)
	}
	l.processor = processor
	return l, nil
}

// Processor returns the facet processor the loader drives.
func (l *Loader) Processor() *facetprocessor.Processor {
	return l.processor
}

// Init registers the programming model with the processor and loads the builtin and registered
// types.
func (l *Loader) Init(runtimeContext facetprocessor.RuntimeContext) error {
	if err := l.processor.Init(runtimeContext); err != nil {
		return err
	}

	l.mu.Lock()
	l.initialized = true
	types := append(append([]reflect.Type(nil), Builtins...), l.registered...)
	l.mu.Unlock()

	for _, t := range types {
		if _, err := l.LoadSpecification(t); err != nil {
			return err
		}
	}
	l.logger.Info("specification loader initialized", zap.Int("specifications", len(l.AllSpecifications())))
	return nil
}

// Shutdown drops every specification and the processor's factories.
func (l *Loader) Shutdown() {
	l.introspecting.Lock()
	defer l.introspecting.Unlock()

	l.mu.Lock()
	l.specs = make(map[reflect.Type]*spec.ObjectSpecification)
	l.byName = make(map[string]*spec.ObjectSpecification)
	l.initialized = false
	l.mu.Unlock()

	l.processor.Shutdown()
}

// Register adds domain types. After Init they are loaded immediately.
func (l *Loader) Register(types ...reflect.Type) error {
	l.mu.Lock()
	l.registered = append(l.registered, types...)
	initialized := l.initialized
	l.mu.Unlock()

	if !initialized {
		return nil
	}
	for _, t := range types {
		if _, err := l.LoadSpecification(t); err != nil {
			return err
		}
	}
	return nil
}

// AllSpecifications returns every loaded specification, sorted by full name.
func (l *Loader) AllSpecifications() []*spec.ObjectSpecification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*spec.ObjectSpecification, 0, len(l.specs))
	for _, s := range l.specs {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullName() < result[j].FullName() })
	return result
}

// ClearCache drops every specification and introspects the builtin and registered types again.
func (l *Loader) ClearCache() error {
	l.introspecting.Lock()
	l.mu.Lock()
	l.specs = make(map[reflect.Type]*spec.ObjectSpecification)
	l.byName = make(map[string]*spec.ObjectSpecification)
	types := append(append([]reflect.Type(nil), Builtins...), l.registered...)
	l.mu.Unlock()
	l.introspecting.Unlock()

	l.logger.Debug("specification cache cleared")
	for _, t := range types {
		if _, err := l.LoadSpecification(t); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) cached(t reflect.Type) (*spec.ObjectSpecification, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.specs[t]
	return s, ok
}

// LoadSpecification returns the specification of t, introspecting it on first use. Concurrent
// requests for the same type share one introspection.
func (l *Loader) LoadSpecification(t reflect.Type) (*spec.ObjectSpecification, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", spec.ErrNotFound)
	}
	if s, ok := l.cached(t); ok {
		return s, nil
	}

	l.mu.RLock()
	initialized := l.initialized
	l.mu.RUnlock()
	if !initialized {
		return nil, fmt.Errorf("%w: cannot load %s", ErrNotInitialized, spec.TypeName(t))
	}

	v, err, _ := l.group.Do(spec.TypeName(t), func() (any, error) {
		return l.load(t)
	})
	if err != nil {
		return nil, err
	}
	s := v.(*spec.ObjectSpecification)
	if s.Type() != t {
		// Distinct types sharing a name were collapsed into one call.
		return l.load(t)
	}
	return s, nil
}

// LoadSpecificationByName returns a loaded specification by full name, or by short name when
// that is unambiguous.
func (l *Loader) LoadSpecificationByName(name string) (*spec.ObjectSpecification, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if s, ok := l.byName[name]; ok {
		return s, nil
	}
	var match *spec.ObjectSpecification
	for _, s := range l.specs {
		if s.ShortName() != name {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %s is ambiguous", spec.ErrNotFound, name)
		}
		match = s
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", spec.ErrNotFound, name)
	}
	return match, nil
}

// load introspects t and everything it reaches, then publishes the whole batch at once.
func (l *Loader) load(t reflect.Type) (result *spec.ObjectSpecification, err error) {
	l.introspecting.Lock()
	defer l.introspecting.Unlock()

	if s, ok := l.cached(t); ok {
		return s, nil
	}

	var batch []*spec.ObjectSpecification
	l.active.Store(&batch)
	defer func() {
		l.active.Store(nil)
		for _, s := range batch {
			delete(l.inProgress, s.Type())
		}
		if r := recover(); r != nil {
			result, err = nil, &spec.ModelError{Spec: spec.TypeName(t), Err: fmt.Errorf("introspection panicked: %v", r)}
		}
	}()

	s, err := l.loadLocked(t, &batch)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	for _, b := range batch {
		l.specs[b.Type()] = b
		l.byName[b.FullName()] = b
	}
	l.mu.Unlock()

	l.logger.Debug("published specifications", zap.String("type", s.FullName()), zap.Int("batch", len(batch)))
	return s, nil
}

func (l *Loader) loadLocked(t reflect.Type, batch *[]*spec.ObjectSpecification) (*spec.ObjectSpecification, error) {
	if s, ok := l.cached(t); ok {
		return s, nil
	}
	if s, ok := l.inProgress[t]; ok {
		return s, nil
	}

	s := spec.NewObjectSpecification(t)
	l.inProgress[t] = s
	*batch = append(*batch, s)

	if err := l.introspect(s, batch); err != nil {
		return nil, err
	}
	s.MarkIntrospected()
	return s, nil
}

func hasMembers(s *spec.ObjectSpecification) bool {
	t := s.Type()
	return t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct && !s.IsValue() && !s.IsCollection()
}

func (l *Loader) introspect(s *spec.ObjectSpecification, batch *[]*spec.ObjectSpecification) error {
	t := s.Type()
	if t.Kind() == reflect.Interface {
		return nil
	}

	methods := facetfactory.NewMethodList(t)
	l.processor.Process(t, methods, s)

	if s.IsCollection() {
		if _, err := l.loadLocked(t.Elem(), batch); err != nil {
			return err
		}
	}
	if !hasMembers(s) {
		return nil
	}

	for _, m := range l.processor.FindPropertyOrCollectionCandidateAccessors(methods.Remaining(), nil) {
		if _, err := l.loadLocked(m.Type.Out(0), batch); err != nil {
			return err
		}
	}

	var associations []spec.ObjectAssociation
	for _, m := range l.processor.FindAndRemoveCollectionAccessors(methods, nil) {
		typeSpec, err := l.loadLocked(m.Type.Out(0), batch)
		if err != nil {
			return err
		}
		coll := spec.NewOneToManyAssociation(spec.MemberID(m.Name), typeSpec)
		l.processor.ProcessMethod(t, m, methods, coll, facet.Collection)
		associations = append(associations, coll)
	}
	for _, m := range l.processor.FindAndRemovePropertyAccessors(methods, nil) {
		typeSpec, err := l.loadLocked(m.Type.Out(0), batch)
		if err != nil {
			return err
		}
		prop := spec.NewOneToOneAssociation(spec.MemberID(m.Name), typeSpec)
		l.processor.ProcessMethod(t, m, methods, prop, facet.Property)
		associations = append(associations, prop)
	}
	s.SetAssociations(associations)

	var actions []*spec.ObjectAction
	for _, m := range methods.Remaining() {
		if methods.WasRemoved(m.Name) || l.processor.Recognizes(m) {
			continue
		}
		action, err := l.introspectAction(t, m, methods, batch)
		if err != nil {
			return &spec.ModelError{Spec: s.FullName(), Member: m.Name, Err: err}
		}
		actions = append(actions, action)
	}
	s.SetActions(actions)

	l.logger.Debug("introspected specification",
		zap.String("type", s.FullName()),
		zap.Int("associations", len(associations)),
		zap.Int("actions", len(actions)))
	return nil
}

func (l *Loader) introspectAction(t reflect.Type, m reflect.Method, methods facetfactory.MethodRemover, batch *[]*spec.ObjectSpecification) (*spec.ObjectAction, error) {
	var returnSpec *spec.ObjectSpecification
	if rt := facetfactory.ReturnType(m); rt != nil && rt != errorType {
		var err error
		if returnSpec, err = l.loadLocked(rt, batch); err != nil {
			return nil, err
		}
	}

	action := spec.NewObjectAction(spec.MemberID(m.Name), returnSpec)
	l.processor.ProcessMethod(t, m, methods, action, facet.Action)

	params := make([]*spec.ActionParameter, facetfactory.ParamCount(m))
	for i := range params {
		paramSpec, err := l.loadLocked(facetfactory.ParamType(m, i), batch)
		if err != nil {
			return nil, err
		}
		params[i] = spec.NewActionParameter(action, i, paramSpec)
		l.processor.ProcessParams(m, i, params[i])
	}
	action.SetParameters(params)
	return action, nil
}

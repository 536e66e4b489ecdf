// Package persistence provides the in-memory session that adapts domain objects, hands out
// identities and recreates adapters for mementos.
package persistence

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/conduit-lang/facetmodel/internal/metamodel/oid"
	"github.com/conduit-lang/facetmodel/internal/metamodel/resolvestate"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"go.uber.org/zap"
)

var (
	// ErrNotTransient is returned when persisting an adapter that is not transient.
	ErrNotTransient = errors.New("object is not transient")

	// ErrUnknownAdapter is returned for adapters the session did not create.
	ErrUnknownAdapter = errors.New("adapter does not belong to this session")
)

// Adapter is the session's ObjectAdapter.
type Adapter struct {
	mu    sync.RWMutex
	obj   any
	id    oid.Oid
	state resolvestate.State
	spec  *spec.ObjectSpecification
}

func (a *Adapter) Object() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.obj
}

func (a *Adapter) ReplaceObject(obj any) {
	a.mu.Lock()
	a.obj = obj
	a.mu.Unlock()
}

func (a *Adapter) Oid() oid.Oid {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.id
}

func (a *Adapter) Specification() *spec.ObjectSpecification {
	return a.spec
}

func (a *Adapter) ResolveState() resolvestate.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Adapter) ChangeState(next resolvestate.State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.state.Check(next); err != nil {
		return fmt.Errorf("%s: %w", a.id, err)
	}
	a.state = next
	return nil
}

func (a *Adapter) String() string {
	return fmt.Sprintf("%s %s %s", spec.TypeName(reflect.TypeOf(a.Object())), a.Oid(), a.ResolveState())
}

// Session tracks one adapter per domain object and per oid.
type Session struct {
	mu        sync.Mutex
	specs     spec.SpecificationLookup
	generator oid.Generator
	logger    *zap.Logger
	byObject  map[any]*Adapter
	byOid     map[string]*Adapter
}

// Option configures a Session.
type Option func(*Session)

func WithGenerator(g oid.Generator) Option {
	return func(s *Session) {
		s.generator = g
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates an empty session resolving specifications through specs.
func NewSession(specs spec.SpecificationLookup, opts ...Option) *Session {
	s := &Session{
		specs:     specs,
		generator: oid.UUIDGenerator{},
		logger:    zap.NewNop(),
		byObject:  make(map[any]*Adapter),
		byOid:     make(map[string]*Adapter),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) specFor(t reflect.Type) (*spec.ObjectSpecification, error) {
	if s.specs == nil {
		return nil, nil
	}
	return s.specs.LoadSpecification(t)
}

func isReference(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && !rv.IsNil()
}

// AdapterFor returns the adapter of obj. Pointers seen for the first time become transient
// objects; anything else is adapted as a value.
func (s *Session) AdapterFor(obj any) (spec.ObjectAdapter, error) {
	if obj == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	if !isReference(obj) {
		typeSpec, err := s.specFor(rv.Type())
		if err != nil {
			return nil, err
		}
		return &Adapter{obj: obj, state: resolvestate.Value, spec: typeSpec}, nil
	}

	s.mu.Lock()
	if a, ok := s.byObject[obj]; ok {
		s.mu.Unlock()
		return a, nil
	}
	s.mu.Unlock()
	return s.CreateTransient(obj)
}

// CreateTransient adapts a new domain object under a fresh transient oid.
func (s *Session) CreateTransient(obj any) (*Adapter, error) {
	if !isReference(obj) {
		return nil, fmt.Errorf("cannot create a transient %T: domain objects are pointers", obj)
	}
	typeSpec, err := s.specFor(reflect.TypeOf(obj))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byObject[obj]; ok {
		return a, nil
	}
	a := &Adapter{obj: obj, id: s.generator.NextTransient(), state: resolvestate.New, spec: typeSpec}
	if err := a.ChangeState(resolvestate.Transient); err != nil {
		return nil, err
	}
	s.byObject[obj] = a
	s.byOid[a.id.String()] = a
	s.logger.Debug("created transient", zap.Stringer("oid", a.id))
	return a, nil
}

// AdapterForCollection returns the adapter of the collection held in field of owner, keyed by an
// aggregated oid so repeated calls share one adapter.
func (s *Session) AdapterForCollection(owner spec.ObjectAdapter, field string, collection any) (spec.ObjectAdapter, error) {
	typeSpec, err := s.specFor(reflect.TypeOf(collection))
	if err != nil {
		return nil, err
	}
	if owner == nil || owner.Oid() == nil {
		return &Adapter{obj: collection, state: resolvestate.Value, spec: typeSpec}, nil
	}
	id := oid.AggregatedOid{Parent: owner.Oid(), Field: field}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byOid[id.String()]; ok {
		a.ReplaceObject(collection)
		return a, nil
	}
	a := &Adapter{obj: collection, id: id, state: collectionState(id), spec: typeSpec}
	s.byOid[id.String()] = a
	return a, nil
}

func collectionState(id oid.Oid) resolvestate.State {
	if id.IsTransient() {
		return resolvestate.Transient
	}
	return resolvestate.Resolved
}

func (s *Session) AdapterForOid(id oid.Oid) (spec.ObjectAdapter, bool) {
	if id == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byOid[id.String()]
	if !ok {
		return nil, false
	}
	return a, true
}

// RecreateAdapter returns the adapter registered for id, or creates an empty instance of
// typeSpec under that oid. Transient oids yield TRANSIENT adapters, persistent ones GHOST.
func (s *Session) RecreateAdapter(id oid.Oid, typeSpec *spec.ObjectSpecification) (spec.ObjectAdapter, error) {
	if id == nil {
		return nil, fmt.Errorf("cannot recreate an adapter without an oid")
	}
	if typeSpec == nil {
		return nil, fmt.Errorf("cannot recreate %s without a specification", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byOid[id.String()]; ok {
		return a, nil
	}

	obj, err := newInstance(typeSpec.Type())
	if err != nil {
		return nil, err
	}
	a := &Adapter{obj: obj, id: id, state: resolvestate.New, spec: typeSpec}
	next := resolvestate.Ghost
	if id.IsTransient() {
		next = resolvestate.Transient
	}
	if err := a.ChangeState(next); err != nil {
		return nil, err
	}
	if _, aggregated := id.(oid.AggregatedOid); !aggregated {
		s.byObject[obj] = a
	}
	s.byOid[id.String()] = a
	s.logger.Debug("recreated adapter", zap.Stringer("oid", id), zap.Stringer("state", next))
	return a, nil
}

func newInstance(t reflect.Type) (any, error) {
	switch t.Kind() {
	case reflect.Pointer:
		return reflect.New(t.Elem()).Interface(), nil
	case reflect.Slice:
		return reflect.MakeSlice(t, 0, 0).Interface(), nil
	}
	return nil, fmt.Errorf("cannot instantiate %s", t)
}

func (s *Session) own(target spec.ObjectAdapter) (*Adapter, error) {
	a, ok := target.(*Adapter)
	if !ok || a == nil || a.Oid() == nil {
		return nil, ErrUnknownAdapter
	}
	if registered, ok := s.byOid[a.Oid().String()]; !ok || registered != a {
		return nil, ErrUnknownAdapter
	}
	return a, nil
}

// MakePersistent moves a transient adapter to a new persistent oid in the RESOLVED state.
func (s *Session) MakePersistent(target spec.ObjectAdapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.own(target)
	if err != nil {
		return err
	}
	if a.ResolveState() != resolvestate.Transient {
		return fmt.Errorf("%w: %s is %s", ErrNotTransient, a.Oid(), a.ResolveState())
	}
	if err := a.ChangeState(resolvestate.Resolved); err != nil {
		return err
	}

	previous := a.Oid()
	a.mu.Lock()
	a.id = s.generator.NextPersistent()
	a.mu.Unlock()
	delete(s.byOid, previous.String())
	s.byOid[a.Oid().String()] = a
	if err := s.rekeyAggregated(previous, a.Oid()); err != nil {
		return err
	}
	s.logger.Debug("made persistent", zap.Stringer("from", previous), zap.Stringer("to", a.Oid()))
	return nil
}

// aggregatedUnder returns the adapters whose oid is aggregated directly under parent.
func (s *Session) aggregatedUnder(parent oid.Oid) []*Adapter {
	var result []*Adapter
	for _, a := range s.byOid {
		if id, ok := a.Oid().(oid.AggregatedOid); ok && oid.Equal(id.Parent, parent) {
			result = append(result, a)
		}
	}
	return result
}

// rekeyAggregated moves the adapters owned by previous, and theirs in turn, under current.
func (s *Session) rekeyAggregated(previous, current oid.Oid) error {
	for _, a := range s.aggregatedUnder(previous) {
		old := a.Oid()
		next := oid.AggregatedOid{Parent: current, Field: old.(oid.AggregatedOid).Field}
		if state := collectionState(next); a.ResolveState() != state {
			if err := a.ChangeState(state); err != nil {
				return err
			}
		}
		a.mu.Lock()
		a.id = next
		a.mu.Unlock()
		delete(s.byOid, old.String())
		s.byOid[next.String()] = a
		if err := s.rekeyAggregated(old, next); err != nil {
			return err
		}
	}
	return nil
}

// forgetAggregated drops the adapters owned by parent, and theirs in turn.
func (s *Session) forgetAggregated(parent oid.Oid) {
	for _, a := range s.aggregatedUnder(parent) {
		delete(s.byOid, a.Oid().String())
		s.forgetAggregated(a.Oid())
	}
}

// Remove forgets an adapter, destroying it when its state allows.
func (s *Session) Remove(target spec.ObjectAdapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.own(target)
	if err != nil {
		return err
	}
	if a.ResolveState().IsValidToChangeTo(resolvestate.Destroyed) {
		if err := a.ChangeState(resolvestate.Destroyed); err != nil {
			return err
		}
	}
	delete(s.byOid, a.Oid().String())
	s.forgetAggregated(a.Oid())
	if obj := a.Object(); isReference(obj) {
		delete(s.byObject, obj)
	}
	return nil
}

// Adapters lists every identified adapter ordered by oid.
func (s *Session) Adapters() []spec.ObjectAdapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]spec.ObjectAdapter, 0, len(s.byOid))
	for _, a := range s.byOid {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Oid().String() < result[j].Oid().String() })
	return result
}

// Clear forgets every adapter.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byObject = make(map[any]*Adapter)
	s.byOid = make(map[string]*Adapter)
}

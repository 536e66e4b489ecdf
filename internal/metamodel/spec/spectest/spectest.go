// Package spectest provides a minimal in-memory adapter map for facet and factory tests.
package spectest

import (
	"reflect"
	"strconv"
	"sync"

	"github.com/conduit-lang/facetmodel/internal/metamodel/oid"
	"github.com/conduit-lang/facetmodel/internal/metamodel/resolvestate"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
)

// Adapter is a plain ObjectAdapter.
type Adapter struct {
	Obj   any
	ID    oid.Oid
	State resolvestate.State
	Spec  *spec.ObjectSpecification
}

func (a *Adapter) Object() any                              { return a.Obj }
func (a *Adapter) ReplaceObject(obj any)                    { a.Obj = obj }
func (a *Adapter) Oid() oid.Oid                             { return a.ID }
func (a *Adapter) Specification() *spec.ObjectSpecification { return a.Spec }
func (a *Adapter) ResolveState() resolvestate.State         { return a.State }

func (a *Adapter) ChangeState(next resolvestate.State) error {
	if err := a.State.Check(next); err != nil {
		return err
	}
	a.State = next
	return nil
}

// Value wraps v as a value adapter.
func Value(v any) *Adapter {
	return &Adapter{Obj: v, State: resolvestate.Value}
}

// AdapterMap keeps one adapter per pointer and hands out fresh adapters for values.
type AdapterMap struct {
	mu     sync.Mutex
	byPtr  map[any]*Adapter
	byOid  map[string]*Adapter
	lookup spec.SpecificationLookup
	next   int
}

// NewAdapterMap creates a map; lookup may be nil, leaving adapter specifications unset.
func NewAdapterMap(lookup spec.SpecificationLookup) *AdapterMap {
	return &AdapterMap{byPtr: make(map[any]*Adapter), byOid: make(map[string]*Adapter), lookup: lookup}
}

func (m *AdapterMap) specFor(obj any) *spec.ObjectSpecification {
	if m.lookup == nil {
		return nil
	}
	s, err := m.lookup.LoadSpecification(reflect.TypeOf(obj))
	if err != nil {
		return nil
	}
	return s
}

func (m *AdapterMap) AdapterFor(obj any) (spec.ObjectAdapter, error) {
	if obj == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer {
		a := Value(obj)
		a.Spec = m.specFor(obj)
		return a, nil
	}
	if rv.IsNil() {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.byPtr[obj]; ok {
		return a, nil
	}
	m.next++
	a := &Adapter{Obj: obj, ID: oid.NewTransient(strconv.Itoa(m.next)), State: resolvestate.Transient, Spec: m.specFor(obj)}
	m.byPtr[obj] = a
	m.byOid[a.ID.String()] = a
	return a, nil
}

func (m *AdapterMap) AdapterForCollection(owner spec.ObjectAdapter, field string, collection any) (spec.ObjectAdapter, error) {
	var id oid.Oid
	if owner != nil && owner.Oid() != nil {
		id = oid.AggregatedOid{Parent: owner.Oid(), Field: field}
	}
	return &Adapter{Obj: collection, ID: id, State: resolvestate.Transient, Spec: m.specFor(collection)}, nil
}

func (m *AdapterMap) AdapterForOid(id oid.Oid) (spec.ObjectAdapter, bool) {
	if id == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byOid[id.String()]
	return a, ok
}

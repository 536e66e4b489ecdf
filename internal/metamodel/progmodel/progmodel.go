// Package progmodel declares programming models: ordered rosters of facet factories that define
// what counts as a property, a collection or an action.
package progmodel

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
)

var (
	// ErrAlreadyInitialized is returned when the roster is changed after Init.
	ErrAlreadyInitialized = errors.New("programming model already initialized")

	// ErrDuplicateFactory is returned when a factory name is added twice.
	ErrDuplicateFactory = errors.New("facet factory already in programming model")

	// ErrUnknownFactory is returned when a catalog has no constructor for a name.
	ErrUnknownFactory = errors.New("unknown facet factory")
)

// Constructor creates a fresh factory instance.
type Constructor func() facetfactory.FacetFactory

type entry struct {
	name string
	ctor Constructor
}

// Abstract is an ordered roster of named factory constructors. Factories are only instantiated by
// Init, once the roster is final.
type Abstract struct {
	mu          sync.Mutex
	entries     []entry
	factories   []facetfactory.FacetFactory
	initialized bool
}

// AddFactory appends a constructor to the roster.
func (a *Abstract) AddFactory(name string, ctor Constructor) error {
	if ctor == nil {
		return fmt.Errorf("facet factory %s: nil constructor", name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return fmt.Errorf("cannot add %s: %w", name, ErrAlreadyInitialized)
	}
	for _, e := range a.entries {
		if e.name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateFactory, name)
		}
	}
	a.entries = append(a.entries, entry{name: name, ctor: ctor})
	return nil
}

// RemoveFactory drops a constructor from the roster. Removing an absent name is not an error.
func (a *Abstract) RemoveFactory(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return fmt.Errorf("cannot remove %s: %w", name, ErrAlreadyInitialized)
	}
	kept := a.entries[:0]
	for _, e := range a.entries {
		if e.name != name {
			kept = append(kept, e)
		}
	}
	a.entries = kept
	return nil
}

// Init instantiates every factory in roster order. Calling it again is a no-op.
func (a *Abstract) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}
	factories := make([]facetfactory.FacetFactory, 0, len(a.entries))
	for _, e := range a.entries {
		f := e.ctor()
		if isNil(f) {
			return fmt.Errorf("facet factory %s: constructor returned nil", e.name)
		}
		factories = append(factories, f)
	}
	a.factories = factories
	a.initialized = true
	return nil
}

// isNil also catches a nil pointer wrapped in the interface.
func isNil(f facetfactory.FacetFactory) bool {
	if f == nil {
		return true
	}
	v := reflect.ValueOf(f)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// List returns the instantiated factories in roster order, or nil before Init.
func (a *Abstract) List() []facetfactory.FacetFactory {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return nil
	}
	result := make([]facetfactory.FacetFactory, len(a.factories))
	copy(result, a.factories)
	return result
}

// Names returns the roster names in order.
func (a *Abstract) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.name
	}
	return names
}

func (a *Abstract) IsInitialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

// Catalog maps factory names to constructors so configuration can refer to factories by name.
type Catalog map[string]Constructor

// Lookup returns the constructor registered under name.
func (c Catalog) Lookup(name string) (Constructor, error) {
	ctor, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFactory, name)
	}
	return ctor, nil
}

// Names returns the catalog entries, sorted.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a catalog holding the entries of c and other; other wins on conflicts.
func (c Catalog) Merge(other Catalog) Catalog {
	merged := make(Catalog, len(c)+len(other))
	for name, ctor := range c {
		merged[name] = ctor
	}
	for name, ctor := range other {
		merged[name] = ctor
	}
	return merged
}

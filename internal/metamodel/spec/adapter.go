package spec

import (
	"reflect"

	"github.com/conduit-lang/facetmodel/internal/metamodel/oid"
	"github.com/conduit-lang/facetmodel/internal/metamodel/resolvestate"
)

// ObjectAdapter wraps a domain object, a collection or a value with its identity, resolve state and
// specification.
type ObjectAdapter interface {
	resolvestate.Stateful

	// Object returns the wrapped Go value.
	Object() any

	// ReplaceObject swaps the wrapped value. Collections are Go slices, so repopulating one
	// produces a new value.
	ReplaceObject(obj any)

	// Oid returns the identity, or nil for values and standalone objects.
	Oid() oid.Oid

	Specification() *ObjectSpecification
}

// AdapterMap maps Go values onto their adapters.
type AdapterMap interface {
	// AdapterFor returns the adapter for obj, creating one when obj has not been seen. A nil obj
	// yields a nil adapter.
	AdapterFor(obj any) (ObjectAdapter, error)

	// AdapterForCollection returns the adapter for the collection held in field of owner.
	AdapterForCollection(owner ObjectAdapter, field string, collection any) (ObjectAdapter, error)

	// AdapterForOid returns the adapter registered for id.
	AdapterForOid(id oid.Oid) (ObjectAdapter, bool)
}

// SpecificationLookup resolves specifications for Go types.
type SpecificationLookup interface {
	LoadSpecification(t reflect.Type) (*ObjectSpecification, error)
	LoadSpecificationByName(name string) (*ObjectSpecification, error)
}

// ObjectOf returns the value wrapped by a, or nil.
func ObjectOf(a ObjectAdapter) any {
	if a == nil {
		return nil
	}
	return a.Object()
}

// SameObject reports whether a and b stand for the same domain object: equal oids when both have
// one, otherwise equal wrapped values.
func SameObject(a, b ObjectAdapter) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	if a.Oid() != nil && b.Oid() != nil {
		return oid.Equal(a.Oid(), b.Oid())
	}
	return SameValue(a.Object(), b.Object())
}

// SameValue compares two Go values, by identity for pointers and by equality otherwise.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Package facetfactory defines the pluggable introspection strategies that attach facets to holders,
// together with the optional capabilities a factory may advertise to the processor.
package facetfactory

import (
	"reflect"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
)

// FacetFactory inspects a class, member or parameter and attaches zero or more facets.
//
// Each process method returns whether any facet was added. A factory that does not apply to the
// element declines by returning false; that is the normal path, not an error.
type FacetFactory interface {
	// FeatureTypes lists the feature types this factory processes. Queried once per cache build.
	FeatureTypes() []facet.FeatureType

	// Process introspects a whole class (FeatureType Object).
	Process(cls reflect.Type, remover MethodRemover, holder facet.Holder) bool

	// ProcessMethod introspects a single member of cls.
	ProcessMethod(cls reflect.Type, method reflect.Method, remover MethodRemover, holder facet.Holder) bool

	// ProcessParams introspects parameter paramNum (0-based, receiver excluded) of an action.
	ProcessParams(method reflect.Method, paramNum int, holder facet.Holder) bool
}

// MethodPrefixBased factories claim every method whose name starts with one of their prefixes.
type MethodPrefixBased interface {
	Prefixes() []string
}

// MethodFiltering factories recognize methods by an arbitrary predicate.
type MethodFiltering interface {
	Recognizes(method reflect.Method) bool
}

// PropertyOrCollectionIdentifying factories decide which methods are property or collection
// accessors.
type PropertyOrCollectionIdentifying interface {
	IsPropertyOrCollectionAccessorCandidate(method reflect.Method) bool

	// FindAndRemovePropertyAccessors removes the property accessors still held by remover and
	// returns them.
	FindAndRemovePropertyAccessors(remover MethodRemover) []reflect.Method

	// FindAndRemoveCollectionAccessors removes the collection accessors still held by remover and
	// returns them.
	FindAndRemoveCollectionAccessors(remover MethodRemover) []reflect.Method
}

// Abstract is the embeddable base for factories. Every process method declines.
type Abstract struct {
	featureTypes []facet.FeatureType
}

// NewAbstract creates a base declaring the given feature types.
func NewAbstract(featureTypes []facet.FeatureType) Abstract {
	types := make([]facet.FeatureType, len(featureTypes))
	copy(types, featureTypes)
	return Abstract{featureTypes: types}
}

func (a *Abstract) FeatureTypes() []facet.FeatureType {
	types := make([]facet.FeatureType, len(a.featureTypes))
	copy(types, a.featureTypes)
	return types
}

func (a *Abstract) Process(reflect.Type, MethodRemover, facet.Holder) bool {
	return false
}

func (a *Abstract) ProcessMethod(reflect.Type, reflect.Method, MethodRemover, facet.Holder) bool {
	return false
}

func (a *Abstract) ProcessParams(reflect.Method, int, facet.Holder) bool {
	return false
}

// PrefixBased is an Abstract that also declares method prefixes.
type PrefixBased struct {
	Abstract
	prefixes []string
}

// NewPrefixBased creates a prefix-declaring base.
func NewPrefixBased(featureTypes []facet.FeatureType, prefixes ...string) PrefixBased {
	return PrefixBased{Abstract: NewAbstract(featureTypes), prefixes: prefixes}
}

func (p *PrefixBased) Prefixes() []string {
	result := make([]string, len(p.prefixes))
	copy(result, p.prefixes)
	return result
}

// Name returns the concrete type name of a factory, the key used by configuration and listings.
func Name(f FacetFactory) string {
	if f == nil {
		return ""
	}
	t := reflect.TypeOf(f)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Package propparam holds factories that apply alike to properties and action parameters.
package propparam

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/progmodel"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/progmodel/object"
)

// ChoicesDerivedFromTypeFacet delegates to the ChoicesFacet of the value type's specification. It
// serves as a property choices facet and as a parameter choices facet.
type ChoicesDerivedFromTypeFacet struct {
	facet.Abstract
	lookup    spec.SpecificationLookup
	valueType reflect.Type
}

func (f *ChoicesDerivedFromTypeFacet) ValueType() reflect.Type {
	return f.valueType
}

func (f *ChoicesDerivedFromTypeFacet) Choices(spec.ObjectAdapter) ([]spec.ObjectAdapter, error) {
	s, err := f.lookup.LoadSpecification(f.valueType)
	if err != nil {
		return nil, err
	}
	choices, ok := facet.Lookup[spec.ChoicesFacet](s, spec.TypeChoices)
	if !ok {
		return nil, fmt.Errorf("%s has no choices", s.FullName())
	}
	return choices.Choices()
}

// ChoicesDerivedFromEnumFacetFactory gives properties and parameters of an enumerated type the
// choices of that type, unless an explicit choices helper exists.
type ChoicesDerivedFromEnumFacetFactory struct {
	facetfactory.Abstract
	lookup spec.SpecificationLookup
}

func NewChoicesDerivedFromEnumFacetFactory() facetfactory.FacetFactory {
	return &ChoicesDerivedFromEnumFacetFactory{Abstract: facetfactory.NewAbstract(facet.PropertiesAndParameters)}
}

func (f *ChoicesDerivedFromEnumFacetFactory) SetSpecificationLookup(lookup spec.SpecificationLookup) {
	f.lookup = lookup
}

func (f *ChoicesDerivedFromEnumFacetFactory) ProcessMethod(_ reflect.Type, method reflect.Method, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	return f.derive(facetfactory.ReturnType(method), spec.TypePropertyChoices, holder)
}

func (f *ChoicesDerivedFromEnumFacetFactory) ProcessParams(method reflect.Method, paramNum int, holder facet.Holder) bool {
	return f.derive(facetfactory.ParamType(method, paramNum), spec.TypeActionParameterChoices, holder)
}

func (f *ChoicesDerivedFromEnumFacetFactory) derive(t reflect.Type, ft facet.Type, holder facet.Holder) bool {
	if f.lookup == nil || !object.IsEnumType(t) {
		return false
	}
	return facet.Add(&ChoicesDerivedFromTypeFacet{Abstract: facet.NewDerived(ft, holder), lookup: f.lookup, valueType: t})
}

// Constructors lists the factories of this package by name.
func Constructors() progmodel.Catalog {
	return progmodel.Catalog{
		"ChoicesDerivedFromEnumFacetFactory": NewChoicesDerivedFromEnumFacetFactory,
	}
}

// Package progmodel assembles the house-rule programming model from the factory packages below it.
package progmodel

import (
	"fmt"

	"github.com/conduit-lang/facetmodel/internal/config"
	model "github.com/conduit-lang/facetmodel/internal/metamodel/progmodel"
	"github.com/conduit-lang/facetmodel/internal/progmodel/actions"
	"github.com/conduit-lang/facetmodel/internal/progmodel/collections"
	"github.com/conduit-lang/facetmodel/internal/progmodel/layout"
	"github.com/conduit-lang/facetmodel/internal/progmodel/members"
	"github.com/conduit-lang/facetmodel/internal/progmodel/object"
	"github.com/conduit-lang/facetmodel/internal/progmodel/properties"
	"github.com/conduit-lang/facetmodel/internal/progmodel/propparam"
)

// DefaultOrder is the roster of the default programming model. Method-consuming factories come
// before the factories that classify what is left, and derivations come last so explicit facets
// are already in place.
var DefaultOrder = []string{
	"IgnoredMethodsFacetFactory",

	"CollectionTypeFacetFactory",
	"EncodableFacetFactory",
	"EnumFacetFactory",
	"TitleMethodFacetFactory",
	"IconMethodFacetFactory",
	"PluralMethodFacetFactory",
	"ObjectTagFacetFactory",
	"ImmutableAnnotationFacetFactory",
	"ValidateObjectFacetFactory",
	"ObjectValidPropertiesFacetFactory",

	"PropertyAccessorFacetFactory",
	"CollectionAccessorFacetFactory",

	"PropertySetterFacetFactory",
	"PropertyClearFacetFactory",
	"PropertyDefaultFacetFactory",
	"PropertyChoicesFacetFactory",
	"PropertyValidateFacetFactory",
	"CollectionModifyFacetFactory",

	"HideMethodFacetFactory",
	"DisableMethodFacetFactory",
	"MemberTagFacetFactory",

	"PropertyAnnotationFacetFactory",
	"CollectionAnnotationFacetFactory",
	"PropertyLayoutFacetFactory",

	"ActionInvocationFacetFactory",
	"ActionChoicesFacetFactory",
	"ActionValidateFacetFactory",
	"ActionParameterChoicesFacetFactory",
	"ActionParameterDefaultsFacetFactory",
	"ParameterTagFacetFactory",

	"ChoicesDerivedFromEnumFacetFactory",
}

// Catalog returns every factory this module ships, by name.
func Catalog() model.Catalog {
	catalog := model.Catalog{}
	for _, c := range []model.Catalog{
		members.Constructors(),
		object.Constructors(),
		properties.Constructors(),
		collections.Constructors(),
		actions.Constructors(),
		layout.Constructors(),
		propparam.Constructors(),
	} {
		catalog = catalog.Merge(c)
	}
	return catalog
}

// ProgrammingModel is a roster resolved against Catalog.
type ProgrammingModel struct {
	model.Abstract
	catalog model.Catalog
}

// NewDefault creates the default programming model.
func NewDefault() (*ProgrammingModel, error) {
	pm := &ProgrammingModel{catalog: Catalog()}
	for _, name := range DefaultOrder {
		if err := pm.Add(name); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

// FromConfig creates the default programming model, removes the factories listed under
// programming_model.remove and appends those under programming_model.add.
func FromConfig(cfg *config.Config) (*ProgrammingModel, error) {
	pm, err := NewDefault()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return pm, nil
	}
	for _, name := range cfg.ProgrammingModel.Remove {
		if _, err := pm.catalog.Lookup(name); err != nil {
			return nil, fmt.Errorf("programming_model.remove: %w", err)
		}
		if err := pm.RemoveFactory(name); err != nil {
			return nil, err
		}
	}
	for _, name := range cfg.ProgrammingModel.Add {
		if err := pm.Add(name); err != nil {
			return nil, fmt.Errorf("programming_model.add: %w", err)
		}
	}
	return pm, nil
}

// Add appends the catalog factory with the given name.
func (pm *ProgrammingModel) Add(name string) error {
	ctor, err := pm.catalog.Lookup(name)
	if err != nil {
		return err
	}
	return pm.AddFactory(name, ctor)
}

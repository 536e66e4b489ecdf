package spec

import (
	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
)

// ObjectFeature is a member or parameter of a specification.
type ObjectFeature interface {
	facet.IdentifiedHolder
	ID() string
	Name() string
	Description() string
	FeatureType() facet.FeatureType

	// Specification is the type of the feature: the property type, the collection element type,
	// the action return type or the parameter type.
	Specification() *ObjectSpecification
}

// feature is the shared holder for members and parameters.
type feature struct {
	*facet.IdentifiedHolderImpl
	self        facet.Holder
	id          string
	featureType facet.FeatureType
	typeSpec    *ObjectSpecification
}

func newFeature(id string, ft facet.FeatureType, typeSpec *ObjectSpecification) feature {
	return feature{
		IdentifiedHolderImpl: facet.NewIdentifiedHolder(id),
		id:                   id,
		featureType:          ft,
		typeSpec:             typeSpec,
	}
}

func (f *feature) ID() string {
	return f.id
}

func (f *feature) FeatureType() facet.FeatureType {
	return f.featureType
}

func (f *feature) Specification() *ObjectSpecification {
	return f.typeSpec
}

// Name is the Named facet value, or the natural form of the id.
func (f *feature) Name() string {
	if named, ok := facet.Lookup[StringValueFacet](f, TypeNamed); ok && named.Value() != "" {
		return named.Value()
	}
	return NaturalName(f.id)
}

func (f *feature) Description() string {
	if d, ok := facet.Lookup[StringValueFacet](f, TypeDescribedAs); ok {
		return d.Value()
	}
	return ""
}

// AddFacet re-parents f to the owning member.
func (f *feature) AddFacet(fc facet.Facet) bool {
	if fc == nil || !f.IdentifiedHolderImpl.AddFacet(fc) {
		return false
	}
	if f.self != nil {
		fc.SetHolder(f.self)
	}
	return true
}

// isVisible consults the Hide facet of holder.
func isVisible(holder facet.Holder, target ObjectAdapter) bool {
	if hide, ok := facet.Lookup[HideFacet](holder, TypeHide); ok && hide.Hidden(target) {
		return false
	}
	return true
}

// disabledReason consults the Disable facet of holder and the Immutable facet of the owning type.
func disabledReason(holder facet.Holder, target ObjectAdapter) string {
	if disable, ok := facet.Lookup[DisableFacet](holder, TypeDisable); ok {
		if reason := disable.DisabledReason(target); reason != "" {
			return reason
		}
	}
	if target != nil && target.Specification() != nil {
		if immutable, ok := facet.Lookup[ImmutableFacet](target.Specification(), TypeImmutable); ok {
			return immutable.DisabledReason(target)
		}
	}
	return ""
}

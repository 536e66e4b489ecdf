package spec

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
)

// ObjectSpecification is the metamodel of one Go type and the holder for its OBJECT facets.
//
// The loader fills in members before publishing the specification; afterwards it is read-only.
type ObjectSpecification struct {
	*facet.IdentifiedHolderImpl

	typ          reflect.Type
	fullName     string
	shortName    string
	associations []ObjectAssociation
	actions      []*ObjectAction
	introspected bool
}

// NewObjectSpecification creates an empty specification for t.
func NewObjectSpecification(t reflect.Type) *ObjectSpecification {
	name := TypeName(t)
	return &ObjectSpecification{
		IdentifiedHolderImpl: facet.NewIdentifiedHolder(name),
		typ:                  t,
		fullName:             name,
		shortName:            ShortTypeName(t),
	}
}

func (s *ObjectSpecification) Type() reflect.Type {
	return s.typ
}

func (s *ObjectSpecification) FullName() string {
	return s.fullName
}

func (s *ObjectSpecification) ShortName() string {
	return s.shortName
}

// SingularName is the Named facet value, or the natural form of the short name.
func (s *ObjectSpecification) SingularName() string {
	if named, ok := facet.Lookup[StringValueFacet](s, TypeNamed); ok && named.Value() != "" {
		return named.Value()
	}
	return NaturalName(s.shortName)
}

// PluralName is the Plural facet value, or the pluralized singular name.
func (s *ObjectSpecification) PluralName() string {
	if plural, ok := facet.Lookup[StringValueFacet](s, TypePlural); ok && plural.Value() != "" {
		return plural.Value()
	}
	return Pluralize(s.SingularName())
}

// Description is the DescribedAs facet value, if any.
func (s *ObjectSpecification) Description() string {
	if d, ok := facet.Lookup[StringValueFacet](s, TypeDescribedAs); ok {
		return d.Value()
	}
	return ""
}

func (s *ObjectSpecification) IsCollection() bool {
	return s.ContainsFacet(TypeCollection)
}

func (s *ObjectSpecification) IsEncodeable() bool {
	return s.ContainsFacet(TypeEncodable)
}

// IsValue reports whether instances are values with no identity of their own.
func (s *ObjectSpecification) IsValue() bool {
	return s.IsEncodeable()
}

// IsImmutable reports whether the type carries an Immutable facet.
func (s *ObjectSpecification) IsImmutable() bool {
	return s.ContainsFacet(TypeImmutable)
}

// Persistability defaults to UserPersistable.
func (s *ObjectSpecification) Persistability() Persistability {
	if p, ok := facet.Lookup[PersistabilityFacet](s, TypePersistability); ok {
		return p.Value()
	}
	return UserPersistable
}

// IsIntrospected reports whether the loader has finished with this specification.
func (s *ObjectSpecification) IsIntrospected() bool {
	return s.introspected
}

// MarkIntrospected is called by the loader once members are attached.
func (s *ObjectSpecification) MarkIntrospected() {
	s.introspected = true
}

// SetAssociations stores the associations ordered by member order, then id.
func (s *ObjectSpecification) SetAssociations(associations []ObjectAssociation) {
	sorted := make([]ObjectAssociation, len(associations))
	copy(sorted, associations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return memberLess(sorted[i], sorted[j])
	})
	s.associations = sorted
}

// SetActions stores the actions ordered by member order, then id.
func (s *ObjectSpecification) SetActions(actions []*ObjectAction) {
	sorted := make([]*ObjectAction, len(actions))
	copy(sorted, actions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return memberLess(sorted[i], sorted[j])
	})
	s.actions = sorted
}

func memberLess(a, b ObjectFeature) bool {
	sa, oka := memberSequence(a)
	sb, okb := memberSequence(b)
	switch {
	case oka && okb && sa != sb:
		return sa < sb
	case oka != okb:
		return oka
	}
	return a.ID() < b.ID()
}

func memberSequence(f ObjectFeature) (int, bool) {
	order, ok := facet.Lookup[MemberOrderFacet](f, TypeMemberOrder)
	if !ok {
		return 0, false
	}
	return order.Sequence(), true
}

// Associations returns properties and collections in member order.
func (s *ObjectSpecification) Associations() []ObjectAssociation {
	result := make([]ObjectAssociation, len(s.associations))
	copy(result, s.associations)
	return result
}

func (s *ObjectSpecification) Properties() []*OneToOneAssociation {
	var result []*OneToOneAssociation
	for _, a := range s.associations {
		if p, ok := a.(*OneToOneAssociation); ok {
			result = append(result, p)
		}
	}
	return result
}

func (s *ObjectSpecification) Collections() []*OneToManyAssociation {
	var result []*OneToManyAssociation
	for _, a := range s.associations {
		if c, ok := a.(*OneToManyAssociation); ok {
			result = append(result, c)
		}
	}
	return result
}

func (s *ObjectSpecification) Actions() []*ObjectAction {
	result := make([]*ObjectAction, len(s.actions))
	copy(result, s.actions)
	return result
}

// Association finds an association by id.
func (s *ObjectSpecification) Association(id string) (ObjectAssociation, bool) {
	for _, a := range s.associations {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

// Action finds an action by id.
func (s *ObjectSpecification) Action(id string) (*ObjectAction, bool) {
	for _, a := range s.actions {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

// Title renders target through its Title facet, falling back to the encoded form for values and
// the singular name otherwise.
func (s *ObjectSpecification) Title(target ObjectAdapter) string {
	if target == nil {
		return ""
	}
	if title, ok := facet.Lookup[TitleFacet](s, TypeTitle); ok {
		if t := title.Title(target); t != "" {
			return t
		}
	}
	if enc, ok := facet.Lookup[EncodableFacet](s, TypeEncodable); ok {
		if str, err := enc.ToEncodedString(target); err == nil {
			return str
		}
	}
	if str, ok := target.Object().(fmt.Stringer); ok {
		return str.String()
	}
	return "Untitled " + s.SingularName()
}

// IconName returns the Icon facet value, or the lower-cased short name.
func (s *ObjectSpecification) IconName(target ObjectAdapter) string {
	if icon, ok := facet.Lookup[IconFacet](s, TypeIcon); ok {
		if name := icon.IconName(target); name != "" {
			return name
		}
	}
	return strings.ToLower(strings.TrimPrefix(s.shortName, "[]"))
}

// ValidateObject returns the first reason target is invalid, or "".
func (s *ObjectSpecification) ValidateObject(target ObjectAdapter) string {
	for _, t := range []facet.Type{TypeObjectValidProperties, TypeValidateObject} {
		if v, ok := facet.Lookup[ObjectValidityFacet](s, t); ok {
			if reason := v.InvalidReason(target); reason != "" {
				return reason
			}
		}
	}
	return ""
}

func (s *ObjectSpecification) String() string {
	return fmt.Sprintf("ObjectSpecification[%s, %d associations, %d actions]",
		s.fullName, len(s.associations), len(s.actions))
}

// AddFacet re-parents f to the specification itself.
func (s *ObjectSpecification) AddFacet(f facet.Facet) bool {
	if f == nil || !s.IdentifiedHolderImpl.AddFacet(f) {
		return false
	}
	f.SetHolder(s)
	return true
}

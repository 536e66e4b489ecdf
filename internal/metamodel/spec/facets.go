package spec

import (
	"reflect"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
)

// Facet types consulted by the metamodel and the runtime.
const (
	TypePropertyAccessor       facet.Type = "PropertyAccessor"
	TypePropertySetter         facet.Type = "PropertySetter"
	TypePropertyInitialization facet.Type = "PropertyInitialization"
	TypePropertyClear          facet.Type = "PropertyClear"
	TypePropertyDefault        facet.Type = "PropertyDefault"
	TypePropertyChoices        facet.Type = "PropertyChoices"
	TypePropertyValidate       facet.Type = "PropertyValidate"

	TypeCollectionAccessor   facet.Type = "CollectionAccessor"
	TypeCollectionAddTo      facet.Type = "CollectionAddTo"
	TypeCollectionRemoveFrom facet.Type = "CollectionRemoveFrom"
	TypeCollectionClear      facet.Type = "CollectionClear"
	TypeCollection           facet.Type = "Collection"

	TypeActionInvocation       facet.Type = "ActionInvocation"
	TypeActionChoices          facet.Type = "ActionChoices"
	TypeActionParameterChoices facet.Type = "ActionParameterChoices"
	TypeActionParameterDefault facet.Type = "ActionParameterDefault"
	TypeActionValidate         facet.Type = "ActionValidate"

	TypeEncodable             facet.Type = "Encodable"
	TypeChoices               facet.Type = "Choices"
	TypeTitle                 facet.Type = "Title"
	TypeIcon                  facet.Type = "Icon"
	TypePlural                facet.Type = "Plural"
	TypeImmutable             facet.Type = "Immutable"
	TypeValidateObject        facet.Type = "ValidateObject"
	TypeObjectValidProperties facet.Type = "ObjectValidProperties"
	TypePersistability        facet.Type = "Persistability"

	TypeNotPersisted  facet.Type = "NotPersisted"
	TypeMandatory     facet.Type = "Mandatory"
	TypeMaxLength     facet.Type = "MaxLength"
	TypeTypicalLength facet.Type = "TypicalLength"
	TypeNamed         facet.Type = "Named"
	TypeDescribedAs   facet.Type = "DescribedAs"
	TypeMemberOrder   facet.Type = "MemberOrder"
	TypeHide          facet.Type = "Hide"
	TypeDisable       facet.Type = "Disable"
)

type PropertyAccessorFacet interface {
	facet.Facet
	Property(owner ObjectAdapter) (ObjectAdapter, error)
}

type PropertySetterFacet interface {
	facet.Facet
	SetProperty(owner, value ObjectAdapter) error
}

// PropertyInitializationFacet sets a property without domain side effects, used when recreating
// objects.
type PropertyInitializationFacet interface {
	facet.Facet
	InitProperty(owner, value ObjectAdapter) error
}

type PropertyClearFacet interface {
	facet.Facet
	ClearProperty(owner ObjectAdapter) error
}

type PropertyDefaultFacet interface {
	facet.Facet
	Default(owner ObjectAdapter) (ObjectAdapter, error)
}

type PropertyChoicesFacet interface {
	facet.Facet
	Choices(owner ObjectAdapter) ([]ObjectAdapter, error)
}

// PropertyValidateFacet returns a non-empty reason when proposed is not acceptable.
type PropertyValidateFacet interface {
	facet.Facet
	InvalidReason(owner, proposed ObjectAdapter) string
}

type CollectionAccessorFacet interface {
	facet.Facet
	Collection(owner ObjectAdapter) (ObjectAdapter, error)
}

type CollectionAddToFacet interface {
	facet.Facet
	Add(owner, element ObjectAdapter) error
}

type CollectionRemoveFromFacet interface {
	facet.Facet
	Remove(owner, element ObjectAdapter) error
}

type CollectionClearFacet interface {
	facet.Facet
	Clear(owner ObjectAdapter) error
}

// CollectionFacet sits on the specification of a collection type and knows how to walk and
// rebuild its values.
type CollectionFacet interface {
	facet.Facet
	ElementType() reflect.Type
	Elements(collection ObjectAdapter) ([]ObjectAdapter, error)
	Size(collection ObjectAdapter) int
	Contains(collection, element ObjectAdapter) bool

	// Init replaces the contents of collection with elements.
	Init(collection ObjectAdapter, elements []ObjectAdapter) error
}

type ActionInvocationFacet interface {
	facet.Facet
	Invoke(target ObjectAdapter, args []ObjectAdapter) (ObjectAdapter, error)
	ReturnType() reflect.Type
}

// ActionChoicesFacet supplies choices for every parameter of an action at once.
type ActionChoicesFacet interface {
	facet.Facet
	Choices(target ObjectAdapter) ([][]ObjectAdapter, error)
}

type ActionParameterChoicesFacet interface {
	facet.Facet
	Choices(target ObjectAdapter) ([]ObjectAdapter, error)
}

type ActionParameterDefaultFacet interface {
	facet.Facet
	Default(target ObjectAdapter) (ObjectAdapter, error)
}

type ActionValidateFacet interface {
	facet.Facet
	InvalidReason(target ObjectAdapter, args []ObjectAdapter) string
}

// EncodableFacet converts values of a type to and from a string form.
type EncodableFacet interface {
	facet.Facet
	ToEncodedString(value ObjectAdapter) (string, error)
	FromEncodedString(encoded string) (ObjectAdapter, error)
}

// ChoicesFacet sits on a type specification and lists every instance of the type.
type ChoicesFacet interface {
	facet.Facet
	Choices() ([]ObjectAdapter, error)
}

type TitleFacet interface {
	facet.Facet
	Title(target ObjectAdapter) string
}

type IconFacet interface {
	facet.Facet
	IconName(target ObjectAdapter) string
}

// StringValueFacet is implemented by facets carrying a single string: plural, named, describedAs.
type StringValueFacet interface {
	facet.Facet
	Value() string
}

// IntValueFacet is implemented by facets carrying a single int: max length, typical length.
type IntValueFacet interface {
	facet.Facet
	Value() int
}

type MaxLengthFacet interface {
	IntValueFacet
	Exceeds(s string) bool
}

// When qualifies an ImmutableFacet.
type When int

const (
	WhenAlways When = iota
	WhenOncePersisted
	WhenUntilPersisted
	WhenNever
)

func (w When) String() string {
	switch w {
	case WhenAlways:
		return "always"
	case WhenOncePersisted:
		return "oncePersisted"
	case WhenUntilPersisted:
		return "untilPersisted"
	default:
		return "never"
	}
}

type ImmutableFacet interface {
	facet.Facet
	When() When
	DisabledReason(target ObjectAdapter) string
}

// ObjectValidityFacet returns a non-empty reason when target is not in a valid state.
type ObjectValidityFacet interface {
	facet.Facet
	InvalidReason(target ObjectAdapter) string
}

type MandatoryFacet interface {
	facet.Facet
	IsRequired() bool
	IsRequiredButNull(value ObjectAdapter) bool
}

type MemberOrderFacet interface {
	facet.Facet
	Sequence() int
}

type HideFacet interface {
	facet.Facet
	Hidden(target ObjectAdapter) bool
}

type DisableFacet interface {
	facet.Facet
	DisabledReason(target ObjectAdapter) string
}

// Persistability says who may make instances of a type persistent.
type Persistability int

const (
	UserPersistable Persistability = iota
	ProgramPersistable
	TransientOnly
)

func (p Persistability) String() string {
	switch p {
	case ProgramPersistable:
		return "Program Persistable"
	case TransientOnly:
		return "Transient"
	default:
		return "User Persistable"
	}
}

type PersistabilityFacet interface {
	facet.Facet
	Value() Persistability
}

// Marker is a facet that carries no data; its presence is the information.
type Marker struct {
	facet.Abstract
}

// NewMarker creates an explicit marker facet such as NotPersisted.
func NewMarker(t facet.Type, holder facet.Holder) *Marker {
	return &Marker{Abstract: facet.NewAbstract(t, holder)}
}

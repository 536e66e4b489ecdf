package object

import (
	"reflect"
	"testing"
	"time"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/oid"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec/spectest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status string

const (
	statusOpen   status = "open"
	statusClosed status = "closed"
)

func (status) EnumValues() []any {
	return []any{statusOpen, statusClosed}
}

type ticket struct {
	_     struct{} `facet:"immutable=oncePersisted,plural=Tickets,persistable=program"`
	title string
}

func (t *ticket) Title() string {
	if t.title == "" {
		panic("untitled")
	}
	return t.title
}

func (t *ticket) IconName() string   { return "ticket" }
func (t *ticket) PluralName() string { return "Many Tickets" }

func (t *ticket) Validate() string {
	if t.title == "bad" {
		return "bad title"
	}
	return ""
}

var ticketType = reflect.TypeOf(&ticket{})

func process(t *testing.T, f facetfactory.FacetFactory, cls reflect.Type) (*spec.ObjectSpecification, *facetfactory.MethodList) {
	t.Helper()
	s := spec.NewObjectSpecification(cls)
	methods := facetfactory.NewMethodList(cls)
	f.Process(cls, methods, s)
	return s, methods
}

func TestTitleMethodFacetFactory(t *testing.T) {
	s, methods := process(t, NewTitleMethodFacetFactory(), ticketType)

	assert.True(t, methods.WasRemoved("Title"))
	title, ok := facet.Lookup[spec.TitleFacet](s, spec.TypeTitle)
	require.True(t, ok)

	assert.Equal(t, "Broken printer", title.Title(&spectest.Adapter{Obj: &ticket{title: "Broken printer"}}))
	assert.Equal(t, "", title.Title(&spectest.Adapter{Obj: &ticket{}}), "a panicking title method yields no title")
	assert.Equal(t, "", title.Title(nil))
}

func TestTitleMethodFacetFactory_Declines(t *testing.T) {
	s, methods := process(t, NewTitleMethodFacetFactory(), reflect.TypeOf(""))
	assert.False(t, s.ContainsFacet(spec.TypeTitle))
	assert.Empty(t, methods.Removed())
}

func TestIconAndPluralMethodFactories(t *testing.T) {
	s := spec.NewObjectSpecification(ticketType)
	methods := facetfactory.NewMethodList(ticketType)
	NewIconMethodFacetFactory().Process(ticketType, methods, s)
	NewPluralMethodFacetFactory().Process(ticketType, methods, s)

	assert.True(t, methods.WasRemoved("IconName"))
	assert.True(t, methods.WasRemoved("PluralName"))
	assert.Equal(t, "ticket", s.IconName(&spectest.Adapter{Obj: &ticket{}}))
	assert.Equal(t, "Many Tickets", s.PluralName())
}

func TestObjectTagFacetFactory(t *testing.T) {
	s, _ := process(t, NewObjectTagFacetFactory(), ticketType)

	assert.Equal(t, "Tickets", s.PluralName())
	assert.Equal(t, spec.ProgramPersistable, s.Persistability())
	assert.Equal(t, "Program Persistable", s.Persistability().String())
}

func TestImmutableAnnotationFacetFactory(t *testing.T) {
	s, _ := process(t, NewImmutableAnnotationFacetFactory(), ticketType)

	immutable, ok := facet.Lookup[spec.ImmutableFacet](s, spec.TypeImmutable)
	require.True(t, ok)
	assert.Equal(t, spec.WhenOncePersisted, immutable.When())

	assert.Empty(t, immutable.DisabledReason(&spectest.Adapter{ID: oid.NewTransient("1")}))
	assert.Equal(t, "Immutable once persisted", immutable.DisabledReason(&spectest.Adapter{ID: oid.NewPersistent("1")}))

	plain, _ := process(t, NewImmutableAnnotationFacetFactory(), reflect.TypeOf(&struct{ Name string }{}))
	assert.False(t, plain.IsImmutable())
}

func TestEncodeDecode(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	id := uuid.MustParse("9b2f5c1e-7a43-4c1d-8f7e-2a6d3e9b1c04")

	tests := []struct {
		name    string
		value   any
		encoded string
	}{
		{name: "string", value: "Acme", encoded: "Acme"},
		{name: "int", value: 42, encoded: "42"},
		{name: "int8", value: int8(-3), encoded: "-3"},
		{name: "uint", value: uint16(7), encoded: "7"},
		{name: "bool", value: true, encoded: "true"},
		{name: "float", value: 2.5, encoded: "2.5"},
		{name: "named string", value: statusClosed, encoded: "closed"},
		{name: "time", value: when, encoded: "2024-03-01T12:30:00Z"},
		{name: "uuid", value: id, encoded: id.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := reflect.TypeOf(tt.value)
			require.True(t, IsEncodableType(typ))

			encoded, err := Encode(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.encoded, encoded)

			decoded, err := Decode(typ, encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.value, decoded)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(reflect.TypeOf(0), "forty-two")
	assert.Error(t, err)

	_, err = Decode(reflect.TypeOf(uuid.UUID{}), "not-a-uuid")
	assert.Error(t, err)

	assert.False(t, IsEncodableType(ticketType))
	_, err = Encode(&ticket{})
	var unknown *spec.UnknownTypeError
	assert.ErrorAs(t, err, &unknown)
}

func TestEncodableFacetFactory(t *testing.T) {
	adapters := spectest.NewAdapterMap(nil)
	f := NewEncodableFacetFactory().(*EncodableFacetFactory)
	f.SetAdapterMap(adapters)

	s, _ := process(t, f, reflect.TypeOf(0))
	require.True(t, s.IsEncodeable())

	enc, _ := facet.Lookup[spec.EncodableFacet](s, spec.TypeEncodable)
	value, err := enc.FromEncodedString("17")
	require.NoError(t, err)
	assert.Equal(t, 17, value.Object())

	encoded, err := enc.ToEncodedString(value)
	require.NoError(t, err)
	assert.Equal(t, "17", encoded)

	_, err = enc.ToEncodedString(nil)
	assert.Error(t, err)

	notValue, _ := process(t, f, ticketType)
	assert.False(t, notValue.IsEncodeable())
}

func TestCollectionTypeFacetFactory(t *testing.T) {
	adapters := spectest.NewAdapterMap(nil)
	f := NewCollectionTypeFacetFactory().(*CollectionTypeFacetFactory)
	f.SetAdapterMap(adapters)

	sliceType := reflect.TypeOf([]*ticket{})
	s, _ := process(t, f, sliceType)
	require.True(t, s.IsCollection())

	cf, _ := facet.Lookup[spec.CollectionFacet](s, spec.TypeCollection)
	assert.Equal(t, ticketType, cf.ElementType())

	a, b := &ticket{title: "a"}, &ticket{title: "b"}
	coll := &spectest.Adapter{Obj: []*ticket{a}}
	aAdapter, _ := adapters.AdapterFor(a)
	bAdapter, _ := adapters.AdapterFor(b)

	assert.Equal(t, 1, cf.Size(coll))
	assert.True(t, cf.Contains(coll, aAdapter))
	assert.False(t, cf.Contains(coll, bAdapter))

	require.NoError(t, cf.Init(coll, []spec.ObjectAdapter{bAdapter, aAdapter}))
	assert.Equal(t, []*ticket{b, a}, coll.Obj)

	elements, err := cf.Elements(coll)
	require.NoError(t, err)
	assert.Equal(t, []spec.ObjectAdapter{bAdapter, aAdapter}, elements)

	assert.Equal(t, 0, cf.Size(&spectest.Adapter{}))

	bytes, _ := process(t, f, reflect.TypeOf([]byte(nil)))
	assert.False(t, bytes.IsCollection())
}

func TestBuildSlice_Array(t *testing.T) {
	v, err := BuildSlice(reflect.TypeOf([2]string{}), []spec.ObjectAdapter{spectest.Value("x")})
	require.NoError(t, err)
	assert.Equal(t, [2]string{"x", ""}, v.Interface())

	_, err = BuildSlice(reflect.TypeOf([1]string{}), []spec.ObjectAdapter{spectest.Value("x"), spectest.Value("y")})
	assert.Error(t, err)

	_, err = BuildSlice(reflect.TypeOf([]int{}), []spec.ObjectAdapter{spectest.Value("x")})
	assert.Error(t, err)
}

func TestEnumFacetFactory(t *testing.T) {
	f := NewEnumFacetFactory().(*EnumFacetFactory)
	f.SetAdapterMap(spectest.NewAdapterMap(nil))

	s, methods := process(t, f, reflect.TypeOf(statusOpen))
	assert.True(t, methods.WasRemoved("EnumValues"))

	choices, ok := facet.Lookup[spec.ChoicesFacet](s, spec.TypeChoices)
	require.True(t, ok)
	values, err := choices.Choices()
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, statusOpen, values[0].Object())
	assert.Equal(t, statusClosed, values[1].Object())

	assert.False(t, IsEnumType(reflect.TypeOf("")))
}

func TestValidateObjectFacetFactory(t *testing.T) {
	s, methods := process(t, NewValidateObjectFacetFactory(), ticketType)
	assert.True(t, methods.WasRemoved("Validate"))

	assert.Equal(t, "bad title", s.ValidateObject(&spectest.Adapter{Obj: &ticket{title: "bad"}}))
	assert.Empty(t, s.ValidateObject(&spectest.Adapter{Obj: &ticket{title: "fine"}}))
}

func TestObjectValidPropertiesFacetFactory(t *testing.T) {
	s, _ := process(t, NewObjectValidPropertiesFacetFactory(), ticketType)
	assert.True(t, s.ContainsFacet(spec.TypeObjectValidProperties))

	value, _ := process(t, NewObjectValidPropertiesFacetFactory(), reflect.TypeOf(0))
	assert.False(t, value.ContainsFacet(spec.TypeObjectValidProperties))
}

func TestConstructors(t *testing.T) {
	for name, ctor := range Constructors() {
		assert.Equal(t, name, facetfactory.Name(ctor()))
	}
}

package properties

import (
	"reflect"
	"strings"
	"testing"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec/spectest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type customer struct {
	name  string `facet:"maxLength=10,mandatory"`
	email string `facet:"optional,typicalLength=20"`
	score int    `facet:"notPersisted,maxLength=abc"`
	tags  []string
}

func (c *customer) Name() string        { return c.name }
func (c *customer) SetName(name string) { c.name = name }
func (c *customer) DefaultName() string { return "Anonymous" }
func (c *customer) Email() string       { return c.email }
func (c *customer) SetEmail(e string)   { c.email = e }
func (c *customer) ClearEmail()         { c.email = "cleared" }
func (c *customer) ChoicesEmail() []string {
	return []string{"ada@example.com", "grace@example.com"}
}
func (c *customer) Score() int     { return c.score }
func (c *customer) Tags() []string { return c.tags }
func (c *customer) Save() error    { return nil }

func (c *customer) ValidateName(name string) string {
	if strings.ContainsAny(name, "0123456789") {
		return "Name may not contain digits"
	}
	return ""
}

var customerType = reflect.TypeOf(&customer{})

type prefixRecognizer []string

func (r prefixRecognizer) Recognizes(m reflect.Method) bool {
	for _, prefix := range r {
		if facetfactory.MatchesPrefix(m.Name, prefix) {
			return true
		}
	}
	return false
}

func method(t *testing.T, name string) reflect.Method {
	t.Helper()
	m, ok := customerType.MethodByName(name)
	require.True(t, ok)
	return m
}

func processAll(t *testing.T, adapters spec.AdapterMap, accessor string, holder *spec.OneToOneAssociation, methods facetfactory.MethodRemover) {
	t.Helper()
	for _, ctor := range []func() facetfactory.FacetFactory{
		NewPropertyAccessorFacetFactory,
		NewPropertySetterFacetFactory,
		NewPropertyClearFacetFactory,
		NewPropertyDefaultFacetFactory,
		NewPropertyChoicesFacetFactory,
		NewPropertyValidateFacetFactory,
		NewPropertyAnnotationFacetFactory,
	} {
		f := ctor()
		if aware, ok := f.(facetfactory.AdapterMapAware); ok {
			aware.SetAdapterMap(adapters)
		}
		f.ProcessMethod(customerType, method(t, accessor), methods, holder)
	}
}

func TestPropertyAccessorFacetFactory_Identification(t *testing.T) {
	f := NewPropertyAccessorFacetFactory().(*PropertyAccessorFacetFactory)
	f.SetMethodRecognizer(prefixRecognizer{"Default", "Choices"})

	tests := []struct {
		method string
		want   bool
	}{
		{method: "Name", want: true},
		{method: "Email", want: true},
		{method: "Score", want: true},
		{method: "Tags", want: false},
		{method: "Save", want: false},
		{method: "SetName", want: false},
		{method: "ClearEmail", want: false},
		{method: "DefaultName", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsPropertyOrCollectionAccessorCandidate(method(t, tt.method)))
		})
	}

	methods := facetfactory.NewMethodList(customerType)
	var names []string
	for _, m := range f.FindAndRemovePropertyAccessors(methods) {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Email", "Name", "Score"}, names)
	assert.True(t, methods.WasRemoved("Name"))
	assert.Nil(t, f.FindAndRemoveCollectionAccessors(methods))
}

func TestPropertyFactories_Name(t *testing.T) {
	adapters := spectest.NewAdapterMap(nil)
	name := spec.NewOneToOneAssociation("name", nil)
	methods := facetfactory.NewMethodList(customerType)
	processAll(t, adapters, "Name", name, methods)

	for _, helper := range []string{"Name", "SetName", "DefaultName", "ValidateName"} {
		assert.True(t, methods.WasRemoved(helper), helper)
	}
	assert.True(t, name.HasSetter())
	assert.True(t, name.IsMandatory())
	assert.False(t, name.HasChoices())

	c := &customer{name: "Ada"}
	owner, err := adapters.AdapterFor(c)
	require.NoError(t, err)

	got, err := name.Get(owner)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Object())

	require.NoError(t, name.SetAssociation(owner, spectest.Value("Grace")))
	assert.Equal(t, "Grace", c.name)

	require.NoError(t, name.ClearAssociation(owner))
	assert.Equal(t, "", c.name)

	def, err := name.Default(owner)
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", def.Object())

	tests := []struct {
		proposed string
		want     string
	}{
		{proposed: "", want: "'Name' is mandatory"},
		{proposed: "Bartholomew Jr", want: "'Name' may not be longer than 10 characters"},
		{proposed: "R2D2", want: "Name may not contain digits"},
		{proposed: "Grace", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.proposed, func(t *testing.T) {
			assert.Equal(t, tt.want, name.IsValid(owner, spectest.Value(tt.proposed)))
		})
	}
}

func TestPropertyFactories_Email(t *testing.T) {
	adapters := spectest.NewAdapterMap(nil)
	email := spec.NewOneToOneAssociation("email", nil)
	methods := facetfactory.NewMethodList(customerType)
	processAll(t, adapters, "Email", email, methods)

	assert.True(t, methods.WasRemoved("ClearEmail"))
	assert.True(t, methods.WasRemoved("ChoicesEmail"))
	assert.False(t, email.IsMandatory())
	assert.True(t, email.HasChoices())

	typical, ok := email.Facet(spec.TypeTypicalLength).(*TypicalLengthFacet)
	require.True(t, ok)
	assert.Equal(t, 20, typical.Value())

	c := &customer{email: "ada@example.com"}
	owner, err := adapters.AdapterFor(c)
	require.NoError(t, err)

	choices, err := email.Choices(owner)
	require.NoError(t, err)
	require.Len(t, choices, 2)
	assert.Equal(t, "grace@example.com", choices[1].Object())

	require.NoError(t, email.ClearAssociation(owner))
	assert.Equal(t, "cleared", c.email)
	assert.Equal(t, "", email.IsValid(owner, nil))
}

func TestPropertyAnnotationFacetFactory_MalformedTag(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := NewPropertyAnnotationFacetFactory().(*PropertyAnnotationFacetFactory)
	f.SetLogger(zap.New(core))

	score := spec.NewOneToOneAssociation("score", nil)
	assert.True(t, f.ProcessMethod(customerType, method(t, "Score"), facetfactory.NullRemover, score))
	assert.True(t, score.IsNotPersisted())
	assert.False(t, score.ContainsFacet(spec.TypeMaxLength))
	assert.Equal(t, 1, logs.FilterMessage("ignoring malformed length tag").Len())

	assert.False(t, f.ProcessMethod(customerType, method(t, "Save"), facetfactory.NullRemover, spec.NewOneToOneAssociation("save", nil)))
}

func TestMaxLengthFacet_Exceeds(t *testing.T) {
	tests := []struct {
		name string
		max  int
		in   string
		want bool
	}{
		{name: "within", max: 3, in: "abc", want: false},
		{name: "over", max: 3, in: "abcd", want: true},
		{name: "runes", max: 4, in: "äöüß", want: false},
		{name: "unlimited", max: 0, in: "anything at all", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewMaxLengthFacet(tt.max, nil).Exceeds(tt.in))
		})
	}
}

func TestMandatoryFacet_IsRequiredButNull(t *testing.T) {
	required := NewMandatoryFacet(true, nil)
	assert.True(t, required.IsRequiredButNull(nil))
	assert.True(t, required.IsRequiredButNull(spectest.Value("")))
	assert.False(t, required.IsRequiredButNull(spectest.Value("x")))
	assert.False(t, required.IsRequiredButNull(spectest.Value(0)))

	optional := NewMandatoryFacet(false, nil)
	assert.False(t, optional.IsRequiredButNull(nil))
}

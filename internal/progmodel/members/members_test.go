package members

import (
	"reflect"
	"testing"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec/spectest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoice struct {
	number string `facet:"named=Invoice No.,order=1,describedAs=Printed on the top"`
	notes  string `facet:"hidden,disabled,order=x"`
	paid   bool
}

func (i *invoice) Number() string { return i.number }
func (i *invoice) Notes() string  { return i.notes }
func (i *invoice) String() string { return "invoice " + i.number }
func (i *invoice) HideNumber() bool {
	return i.number == ""
}
func (i *invoice) DisableNumber() string {
	if i.paid {
		return "Paid invoices are locked"
	}
	return ""
}

var invoiceType = reflect.TypeOf(&invoice{})

func method(t *testing.T, name string) reflect.Method {
	t.Helper()
	m, ok := invoiceType.MethodByName(name)
	require.True(t, ok)
	return m
}

func TestIgnoredMethodsFacetFactory(t *testing.T) {
	f := NewIgnoredMethodsFacetFactory().(*IgnoredMethodsFacetFactory)
	methods := facetfactory.NewMethodList(invoiceType)

	assert.False(t, f.Process(invoiceType, methods, facet.NewHolder()))
	assert.True(t, methods.WasRemoved("String"))
	assert.False(t, methods.WasRemoved("Number"))
	assert.True(t, f.Recognizes(method(t, "String")))
	assert.False(t, f.Recognizes(method(t, "Notes")))
}

func TestHideAndDisableMethodFactories(t *testing.T) {
	number := spec.NewOneToOneAssociation("number", nil)
	methods := facetfactory.NewMethodList(invoiceType)

	assert.True(t, NewHideMethodFacetFactory().ProcessMethod(invoiceType, method(t, "Number"), methods, number))
	assert.True(t, NewDisableMethodFacetFactory().ProcessMethod(invoiceType, method(t, "Number"), methods, number))
	assert.True(t, methods.WasRemoved("HideNumber"))
	assert.True(t, methods.WasRemoved("DisableNumber"))

	assert.False(t, number.IsVisible(&spectest.Adapter{Obj: &invoice{}}))
	assert.True(t, number.IsVisible(&spectest.Adapter{Obj: &invoice{number: "7"}}))
	assert.Equal(t, "Paid invoices are locked", number.DisabledReason(&spectest.Adapter{Obj: &invoice{paid: true}}))
	assert.Empty(t, number.DisabledReason(&spectest.Adapter{Obj: &invoice{}}))

	notes := spec.NewOneToOneAssociation("notes", nil)
	assert.False(t, NewHideMethodFacetFactory().ProcessMethod(invoiceType, method(t, "Notes"), methods, notes))
}

func TestMemberTagFacetFactory(t *testing.T) {
	f := NewMemberTagFacetFactory()

	number := spec.NewOneToOneAssociation("number", nil)
	assert.True(t, f.ProcessMethod(invoiceType, method(t, "Number"), nil, number))
	assert.Equal(t, "Invoice No.", number.Name())
	assert.Equal(t, "Printed on the top", number.Description())
	order, ok := facet.Lookup[spec.MemberOrderFacet](number, spec.TypeMemberOrder)
	require.True(t, ok)
	assert.Equal(t, 1, order.Sequence())

	notes := spec.NewOneToOneAssociation("notes", nil)
	assert.True(t, f.ProcessMethod(invoiceType, method(t, "Notes"), nil, notes))
	assert.False(t, notes.IsVisible(nil))
	assert.Equal(t, "Always disabled", notes.DisabledReason(nil))
	assert.False(t, notes.ContainsFacet(spec.TypeMemberOrder), "malformed order is ignored")

	str := spec.NewOneToOneAssociation("string", nil)
	assert.False(t, f.ProcessMethod(invoiceType, method(t, "String"), nil, str))
}

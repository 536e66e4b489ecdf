package facetfactory

import (
	"errors"
	"reflect"
	"testing"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	balance int
}

func (a *account) Balance() int           { return a.balance }
func (a *account) SetBalance(b int)       { a.balance = b }
func (a *account) Settings() string       { return "" }
func (a *account) Deposit(n int) error    { return a.apply(n) }
func (a *account) Validate2Deposit() bool { return true }
func (a *account) Panic()                 { panic("boom") }

func (a *account) apply(n int) error {
	if n < 0 {
		return errors.New("negative deposit")
	}
	a.balance += n
	return nil
}

var accountType = reflect.TypeOf(&account{})

func method(t *testing.T, name string) reflect.Method {
	t.Helper()
	m, ok := accountType.MethodByName(name)
	require.True(t, ok)
	return m
}

func TestMatchesPrefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   bool
	}{
		{name: "SetBalance", prefix: "Set", want: true},
		{name: "Settings", prefix: "Set", want: false},
		{name: "Set", prefix: "Set", want: true},
		{name: "Validate2Deposit", prefix: "Validate", want: true},
		{name: "Se", prefix: "Set", want: false},
		{name: "Balance", prefix: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesPrefix(tt.name, tt.prefix))
		})
	}
	assert.Equal(t, "Balance", MemberName("Set", "SetBalance"))
	assert.Equal(t, "Settings", MemberName("Set", "Settings"))
}

func TestMethodShape(t *testing.T) {
	deposit := method(t, "Deposit")
	assert.Equal(t, 1, ParamCount(deposit))
	assert.Equal(t, []reflect.Type{reflect.TypeOf(0)}, ParamTypes(deposit))
	assert.Equal(t, reflect.TypeOf(0), ParamType(deposit, 0))
	assert.Nil(t, ParamType(deposit, 1))
	assert.True(t, IsNiladic(method(t, "Balance")))
	assert.Nil(t, ReturnType(method(t, "SetBalance")))

	assert.True(t, ReturnMatches(method(t, "Balance"), reflect.TypeOf(0), false))
	assert.False(t, ReturnMatches(method(t, "SetBalance"), nil, false))
	assert.True(t, ReturnMatches(method(t, "SetBalance"), nil, true))
	assert.True(t, ReturnMatches(method(t, "Deposit"), reflect.TypeOf((*error)(nil)).Elem(), false))

	_, ok := FindMethod(accountType, "SetBalance", nil, []reflect.Type{reflect.TypeOf(0)})
	assert.True(t, ok)
	_, ok = FindMethod(accountType, "SetBalance", nil, []reflect.Type{reflect.TypeOf("")})
	assert.False(t, ok)
	_, ok = FindMethod(accountType, "Balance", reflect.TypeOf(""), nil)
	assert.False(t, ok)
}

func TestInvoke(t *testing.T) {
	a := &account{}

	_, err := Invoke(method(t, "Deposit"), a, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, a.balance)

	_, err = Invoke(method(t, "Deposit"), a, -1)
	assert.EqualError(t, err, "negative deposit")

	_, err = Invoke(method(t, "SetBalance"), a, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, a.balance)

	_, err = Invoke(method(t, "SetBalance"), a, int64(7))
	require.NoError(t, err)
	assert.Equal(t, 7, a.balance)

	out, err := Invoke(method(t, "Balance"), a)
	require.NoError(t, err)
	assert.Equal(t, 7, int(out[0].Int()))

	_, err = Invoke(method(t, "SetBalance"), a)
	assert.Error(t, err)
	_, err = Invoke(method(t, "SetBalance"), nil, 1)
	assert.Error(t, err)
	_, err = Invoke(method(t, "SetBalance"), a, "seven")
	assert.Error(t, err)

	assert.Panics(t, func() { _, _ = Invoke(method(t, "Panic"), a) })
	_, err = InvokeSafely(method(t, "Panic"), a)
	assert.ErrorContains(t, err, "boom")
}

func TestMethodList(t *testing.T) {
	list := NewMethodList(accountType)
	total := len(list.Remaining())

	removed := list.RemoveMethodsWithPrefix("Set", nil, true, 1)
	require.Len(t, removed, 1)
	assert.Equal(t, "SetBalance", removed[0].Name)
	assert.True(t, list.WasRemoved("SetBalance"))
	assert.False(t, list.WasRemoved("Settings"))

	list.RemoveMethodByName("Panic")
	list.RemoveMethods([]reflect.Method{method(t, "Deposit")})
	assert.Len(t, list.Remaining(), total-3)
	assert.Len(t, list.Removed(), 3)

	matched := list.RemoveMethodsMatching(func(m reflect.Method) bool { return m.Name == "Balance" })
	assert.Len(t, matched, 1)

	assert.Empty(t, NullRemover.RemoveMethodsWithPrefix("Set", nil, true, 1))
	assert.Len(t, NewMethodListOf(method(t, "Balance")).Remaining(), 1)
}

func TestDefaultCollectionTypeRegistry(t *testing.T) {
	reg := DefaultCollectionTypeRegistry{}
	tests := []struct {
		name string
		typ  reflect.Type
		want bool
	}{
		{name: "slice", typ: reflect.TypeOf([]string(nil)), want: true},
		{name: "pointer slice", typ: reflect.TypeOf([]*account(nil)), want: true},
		{name: "array", typ: reflect.TypeOf([3]int{}), want: true},
		{name: "bytes", typ: reflect.TypeOf([]byte(nil)), want: false},
		{name: "uuid", typ: reflect.TypeOf(uuid.UUID{}), want: false},
		{name: "string", typ: reflect.TypeOf(""), want: false},
		{name: "nil", typ: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reg.IsCollectionType(tt.typ))
		})
	}
}

type namedFactory struct {
	PrefixBased
}

func TestAbstractAndName(t *testing.T) {
	f := &namedFactory{PrefixBased: NewPrefixBased(facet.Members, "Hide")}
	assert.Equal(t, "namedFactory", Name(f))
	assert.Equal(t, "", Name(nil))
	assert.Equal(t, []string{"Hide"}, f.Prefixes())
	assert.Equal(t, facet.Members, f.FeatureTypes())
	assert.False(t, f.Process(accountType, NullRemover, facet.NewHolder()))
	assert.False(t, f.ProcessMethod(accountType, method(t, "Balance"), NullRemover, facet.NewHolder()))
	assert.False(t, f.ProcessParams(method(t, "Deposit"), 0, facet.NewHolder()))

	types := f.FeatureTypes()
	types[0] = facet.Object
	assert.NotEqual(t, facet.Object, f.FeatureTypes()[0])
}

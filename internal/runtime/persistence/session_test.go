package persistence

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/conduit-lang/facetmodel/internal/metamodel/oid"
	"github.com/conduit-lang/facetmodel/internal/metamodel/resolvestate"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	name string
}

type sequence struct {
	n int
}

func (g *sequence) NextTransient() oid.Oid {
	g.n++
	return oid.NewTransient(strconv.Itoa(g.n))
}

func (g *sequence) NextPersistent() oid.Oid {
	g.n++
	return oid.NewPersistent(strconv.Itoa(g.n))
}

func newSession() *Session {
	return NewSession(nil, WithGenerator(&sequence{}))
}

func TestSession_AdapterFor(t *testing.T) {
	s := newSession()
	obj := &item{name: "pen"}

	a, err := s.AdapterFor(obj)
	require.NoError(t, err)
	assert.Equal(t, oid.NewTransient("1"), a.Oid())
	assert.Equal(t, resolvestate.Transient, a.ResolveState())

	again, err := s.AdapterFor(obj)
	require.NoError(t, err)
	assert.Same(t, a, again)

	byOid, ok := s.AdapterForOid(oid.NewTransient("1"))
	require.True(t, ok)
	assert.Same(t, a, byOid)

	value, err := s.AdapterFor("pen")
	require.NoError(t, err)
	assert.Nil(t, value.Oid())
	assert.Equal(t, resolvestate.Value, value.ResolveState())

	var nilItem *item
	none, err := s.AdapterFor(nilItem)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = s.CreateTransient(item{})
	assert.Error(t, err)
}

func TestSession_AdapterForCollection(t *testing.T) {
	s := newSession()
	owner, err := s.AdapterFor(&item{})
	require.NoError(t, err)

	first, err := s.AdapterForCollection(owner, "parts", []string{"a"})
	require.NoError(t, err)
	second, err := s.AdapterForCollection(owner, "parts", []string{"a", "b"})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, []string{"a", "b"}, first.Object())
	assert.Equal(t, oid.AggregatedOid{Parent: owner.Oid(), Field: "parts"}, first.Oid())
	assert.True(t, first.Oid().IsTransient())

	loose, err := s.AdapterForCollection(nil, "parts", []string{})
	require.NoError(t, err)
	assert.Nil(t, loose.Oid())
}

func TestSession_RecreateAdapter(t *testing.T) {
	s := newSession()
	itemSpec := spec.NewObjectSpecification(reflect.TypeOf(&item{}))

	tests := []struct {
		name  string
		id    oid.Oid
		state resolvestate.State
	}{
		{name: "transient", id: oid.NewTransient("9"), state: resolvestate.Transient},
		{name: "persistent", id: oid.NewPersistent("9"), state: resolvestate.Ghost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := s.RecreateAdapter(tt.id, itemSpec)
			require.NoError(t, err)
			assert.Equal(t, tt.state, a.ResolveState())
			assert.IsType(t, &item{}, a.Object())

			again, err := s.RecreateAdapter(tt.id, itemSpec)
			require.NoError(t, err)
			assert.Same(t, a, again)

			byObject, err := s.AdapterFor(a.Object())
			require.NoError(t, err)
			assert.Same(t, a, byObject)
		})
	}

	coll, err := s.RecreateAdapter(oid.AggregatedOid{Parent: oid.NewTransient("9"), Field: "parts"},
		spec.NewObjectSpecification(reflect.TypeOf([]*item{})))
	require.NoError(t, err)
	assert.Equal(t, []*item{}, coll.Object())

	_, err = s.RecreateAdapter(nil, itemSpec)
	assert.Error(t, err)
	_, err = s.RecreateAdapter(oid.NewTransient("10"), nil)
	assert.Error(t, err)
	_, err = s.RecreateAdapter(oid.NewTransient("10"), spec.NewObjectSpecification(reflect.TypeOf(0)))
	assert.Error(t, err)
}

func TestSession_MakePersistentAndRemove(t *testing.T) {
	s := newSession()
	a, err := s.AdapterFor(&item{})
	require.NoError(t, err)
	transientID := a.Oid()

	require.NoError(t, s.MakePersistent(a))
	assert.False(t, a.Oid().IsTransient())
	assert.Equal(t, resolvestate.Resolved, a.ResolveState())
	_, ok := s.AdapterForOid(transientID)
	assert.False(t, ok)

	assert.ErrorIs(t, s.MakePersistent(a), ErrNotTransient)
	assert.Len(t, s.Adapters(), 1)

	require.NoError(t, s.Remove(a))
	assert.Equal(t, resolvestate.Destroyed, a.ResolveState())
	assert.Empty(t, s.Adapters())
	assert.ErrorIs(t, s.Remove(a), ErrUnknownAdapter)

	other, err := s.AdapterFor(&item{})
	require.NoError(t, err)
	s.Clear()
	assert.ErrorIs(t, s.MakePersistent(other), ErrUnknownAdapter)
}

func TestSession_MakePersistentMovesCollections(t *testing.T) {
	s := newSession()
	owner, err := s.AdapterFor(&item{})
	require.NoError(t, err)
	parts, err := s.AdapterForCollection(owner, "parts", []string{"a"})
	require.NoError(t, err)
	staleID := parts.Oid()

	require.NoError(t, s.MakePersistent(owner))

	assert.Equal(t, oid.AggregatedOid{Parent: owner.Oid(), Field: "parts"}, parts.Oid())
	assert.False(t, parts.Oid().IsTransient())
	assert.Equal(t, resolvestate.Resolved, parts.ResolveState())
	_, ok := s.AdapterForOid(staleID)
	assert.False(t, ok)

	again, err := s.AdapterForCollection(owner, "parts", []string{"a", "b"})
	require.NoError(t, err)
	assert.Same(t, parts, again)
	assert.Len(t, s.Adapters(), 2)

	require.NoError(t, s.Remove(owner))
	assert.Empty(t, s.Adapters())
}

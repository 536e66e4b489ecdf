package facetprocessor

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/conduit-lang/facetmodel/internal/config"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	name string
}

func (w *widget) Name() string         { return w.name }
func (w *widget) SetName(name string)  { w.name = name }
func (w *widget) Parts() []string      { return nil }
func (w *widget) Polish(times int) int { return times }

func method(t *testing.T, name string) reflect.Method {
	t.Helper()
	m, ok := reflect.TypeOf(&widget{}).MethodByName(name)
	require.True(t, ok)
	return m
}

type nopLookup struct{}

func (nopLookup) LoadSpecification(reflect.Type) (*spec.ObjectSpecification, error) {
	return nil, spec.ErrNotFound
}

func (nopLookup) LoadSpecificationByName(string) (*spec.ObjectSpecification, error) {
	return nil, spec.ErrNotFound
}

type roster struct {
	factories []facetfactory.FacetFactory
	err       error
}

func (r *roster) Init() error                       { return r.err }
func (r *roster) List() []facetfactory.FacetFactory { return r.factories }

type recordingContext struct {
	mu       sync.Mutex
	injected []any
	err      error
}

func (c *recordingContext) InjectInto(candidate any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.injected = append(c.injected, candidate)
	return c.err
}

const markerType facet.Type = "Marker"

type marker struct {
	facet.Abstract
	source string
}

// taggingFactory adds a marker facet naming itself for every feature type it declares.
type taggingFactory struct {
	facetfactory.Abstract
	label string
	calls int
}

func newTagging(label string, types []facet.FeatureType) *taggingFactory {
	return &taggingFactory{Abstract: facetfactory.NewAbstract(types), label: label}
}

func (f *taggingFactory) add(holder facet.Holder) bool {
	f.calls++
	return facet.Add(&marker{Abstract: facet.NewAbstract(markerType, holder), source: f.label})
}

func (f *taggingFactory) Process(_ reflect.Type, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	return f.add(holder)
}

func (f *taggingFactory) ProcessMethod(_ reflect.Type, _ reflect.Method, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	return f.add(holder)
}

func (f *taggingFactory) ProcessParams(_ reflect.Method, _ int, holder facet.Holder) bool {
	return f.add(holder)
}

type prefixFactory struct {
	facetfactory.PrefixBased
}

type filteringFactory struct {
	facetfactory.Abstract
}

func (filteringFactory) Recognizes(m reflect.Method) bool {
	return m.Name == "Polish"
}

type identifyingFactory struct {
	facetfactory.Abstract
}

func (identifyingFactory) IsPropertyOrCollectionAccessorCandidate(m reflect.Method) bool {
	return facetfactory.IsNiladic(m)
}

func (identifyingFactory) FindAndRemovePropertyAccessors(remover facetfactory.MethodRemover) []reflect.Method {
	return remover.RemoveMethodsMatching(func(m reflect.Method) bool {
		return facetfactory.IsNiladic(m) && m.Type.NumOut() == 1 && m.Type.Out(0).Kind() != reflect.Slice
	})
}

func (identifyingFactory) FindAndRemoveCollectionAccessors(remover facetfactory.MethodRemover) []reflect.Method {
	return remover.RemoveMethodsMatching(func(m reflect.Method) bool {
		return facetfactory.IsNiladic(m) && m.Type.NumOut() == 1 && m.Type.Out(0).Kind() == reflect.Slice
	})
}

type awareFactory struct {
	facetfactory.Abstract
	cfg        *config.Config
	lookup     spec.SpecificationLookup
	registry   facetfactory.CollectionTypeRegistry
	recognizer facetfactory.MethodRecognizer
}

func (f *awareFactory) SetConfiguration(cfg *config.Config)               { f.cfg = cfg }
func (f *awareFactory) SetSpecificationLookup(l spec.SpecificationLookup) { f.lookup = l }
func (f *awareFactory) SetCollectionTypeRegistry(r facetfactory.CollectionTypeRegistry) {
	f.registry = r
}
func (f *awareFactory) SetMethodRecognizer(r facetfactory.MethodRecognizer) { f.recognizer = r }

type adapterMapFactory struct {
	facetfactory.Abstract
	adapters spec.AdapterMap
}

func (f *adapterMapFactory) SetAdapterMap(m spec.AdapterMap) { f.adapters = m }

type panickingFactory struct {
	facetfactory.Abstract
}

func (panickingFactory) Process(reflect.Type, facetfactory.MethodRemover, facet.Holder) bool {
	panic("broken factory")
}

func newProcessor(t *testing.T, factories ...facetfactory.FacetFactory) *Processor {
	t.Helper()
	p, err := New(config.Default(), nopLookup{}, facetfactory.DefaultCollectionTypeRegistry{}, &roster{factories: factories})
	require.NoError(t, err)
	require.NoError(t, p.Init(&recordingContext{}))
	return p
}

func TestNew_MissingDependencies(t *testing.T) {
	cfg := config.Default()
	reg := facetfactory.DefaultCollectionTypeRegistry{}
	pm := &roster{}

	tests := []struct {
		name string
		new  func() (*Processor, error)
	}{
		{name: "configuration", new: func() (*Processor, error) { return New(nil, nopLookup{}, reg, pm) }},
		{name: "specification loader", new: func() (*Processor, error) { return New(cfg, nil, reg, pm) }},
		{name: "collection type registry", new: func() (*Processor, error) { return New(cfg, nopLookup{}, nil, pm) }},
		{name: "programming model", new: func() (*Processor, error) { return New(cfg, nopLookup{}, reg, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.new()
			assert.Nil(t, p)
			assert.ErrorIs(t, err, ErrMissingDependency)
			assert.Contains(t, err.Error(), tt.name)
		})
	}
}

func TestInit(t *testing.T) {
	p, err := New(config.Default(), nopLookup{}, facetfactory.DefaultCollectionTypeRegistry{}, &roster{})
	require.NoError(t, err)
	assert.ErrorIs(t, p.Init(nil), ErrMissingDependency)

	broken, err := New(config.Default(), nopLookup{}, facetfactory.DefaultCollectionTypeRegistry{}, &roster{err: errors.New("boom")})
	require.NoError(t, err)
	assert.Error(t, broken.Init(&recordingContext{}))
}

func TestInit_RegistersRosterInOrder(t *testing.T) {
	first := newTagging("first", facet.ObjectsOnly)
	second := newTagging("second", facet.PropertiesOnly)
	rc := &recordingContext{}

	p, err := New(config.Default(), nopLookup{}, facetfactory.DefaultCollectionTypeRegistry{}, &roster{factories: []facetfactory.FacetFactory{first, second}})
	require.NoError(t, err)
	require.NoError(t, p.Init(rc))

	assert.Equal(t, []facetfactory.FacetFactory{first, second}, p.Factories())
	assert.Equal(t, []any{first, second}, rc.injected)

	p.Shutdown()
	assert.Empty(t, p.Factories())
}

func TestProcessMethod_FeatureTypeScoping(t *testing.T) {
	propertyOnly := newTagging("property", facet.PropertiesOnly)
	actionOnly := newTagging("action", facet.ActionsOnly)
	p := newProcessor(t, propertyOnly, actionOnly)

	holder := facet.NewHolder()
	added := p.ProcessMethod(reflect.TypeOf(&widget{}), method(t, "Polish"), nil, holder, facet.Action)

	assert.True(t, added)
	assert.Equal(t, 0, propertyOnly.calls)
	assert.Equal(t, 1, actionOnly.calls)

	m, ok := facet.Lookup[*marker](holder, markerType)
	require.True(t, ok)
	assert.Equal(t, "action", m.source)

	assert.False(t, p.ProcessMethod(reflect.TypeOf(&widget{}), method(t, "Parts"), nil, facet.NewHolder(), facet.Collection))
}

func TestProcess_LastRegisteredWins(t *testing.T) {
	p := newProcessor(t, newTagging("first", facet.ObjectsOnly), newTagging("second", facet.ObjectsOnly))

	holder := facet.NewHolder()
	assert.True(t, p.Process(reflect.TypeOf(&widget{}), facetfactory.NewMethodList(reflect.TypeOf(&widget{})), holder))

	m, ok := facet.Lookup[*marker](holder, markerType)
	require.True(t, ok)
	assert.Equal(t, "second", m.source)
}

func TestProcessParams(t *testing.T) {
	params := newTagging("param", facet.ParametersOnly)
	p := newProcessor(t, params, newTagging("object", facet.ObjectsOnly))

	holder := facet.NewHolder()
	assert.True(t, p.ProcessParams(method(t, "Polish"), 0, holder))
	assert.Equal(t, 1, params.calls)
}

func TestRecognizes_CacheInvalidation(t *testing.T) {
	p := newProcessor(t)

	assert.False(t, p.Recognizes(method(t, "SetName")))

	require.NoError(t, p.RegisterFactory(&prefixFactory{PrefixBased: facetfactory.NewPrefixBased(facet.PropertiesOnly, "Set")}))
	assert.True(t, p.Recognizes(method(t, "SetName")))
	assert.False(t, p.Recognizes(method(t, "Polish")))

	require.NoError(t, p.RegisterFactory(&filteringFactory{Abstract: facetfactory.NewAbstract(facet.Members)}))
	assert.True(t, p.Recognizes(method(t, "Polish")))
	assert.False(t, p.Recognizes(method(t, "Name")))
}

func TestRegisterFactory_NewFactoryJoinsDispatch(t *testing.T) {
	first := newTagging("first", facet.PropertiesOnly)
	p := newProcessor(t, first)

	holder := facet.NewHolder()
	p.ProcessMethod(reflect.TypeOf(&widget{}), method(t, "Name"), nil, holder, facet.Property)

	late := newTagging("late", facet.PropertiesOnly)
	require.NoError(t, p.RegisterFactory(late))
	p.ProcessMethod(reflect.TypeOf(&widget{}), method(t, "Name"), nil, holder, facet.Property)

	assert.Equal(t, 2, first.calls)
	assert.Equal(t, 1, late.calls)
	m, _ := facet.Lookup[*marker](holder, markerType)
	assert.Equal(t, "late", m.source)
}

func TestInjectDependenciesInto(t *testing.T) {
	p := newProcessor(t)
	f := &awareFactory{Abstract: facetfactory.NewAbstract(facet.ObjectsOnly)}
	require.NoError(t, p.RegisterFactory(f))

	assert.NotNil(t, f.cfg)
	assert.NotNil(t, f.lookup)
	assert.NotNil(t, f.registry)
	assert.Same(t, p, f.recognizer)
}

func TestInjectDependenciesInto_RuntimeDependencyBeforeInit(t *testing.T) {
	p, err := New(config.Default(), nopLookup{}, facetfactory.DefaultCollectionTypeRegistry{}, &roster{})
	require.NoError(t, err)

	err = p.RegisterFactory(&adapterMapFactory{Abstract: facetfactory.NewAbstract(facet.PropertiesOnly)})
	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.Empty(t, p.Factories())
}

func TestInjectDependenciesInto_RuntimeContextFailure(t *testing.T) {
	p, err := New(config.Default(), nopLookup{}, facetfactory.DefaultCollectionTypeRegistry{}, &roster{})
	require.NoError(t, err)
	require.NoError(t, p.Init(&recordingContext{err: errors.New("no adapter map")}))

	err = p.RegisterFactory(newTagging("x", facet.ObjectsOnly))
	assert.Error(t, err)
}

func TestFactoryByType(t *testing.T) {
	tagging := newTagging("only", facet.ObjectsOnly)
	p := newProcessor(t, tagging)

	f, err := p.FactoryByType(reflect.TypeOf(tagging))
	require.NoError(t, err)
	assert.Same(t, tagging, f)

	typed, err := FactoryOf[*taggingFactory](p)
	require.NoError(t, err)
	assert.Same(t, tagging, typed)

	_, err = FactoryOf[*prefixFactory](p)
	assert.ErrorIs(t, err, ErrFactoryNotRegistered)
}

func TestAccessorDiscovery(t *testing.T) {
	p := newProcessor(t, &identifyingFactory{Abstract: facetfactory.NewAbstract(facet.PropertiesAndCollections)})
	cls := reflect.TypeOf(&widget{})
	methods := facetfactory.NewMethodList(cls)

	candidates := p.FindPropertyOrCollectionCandidateAccessors(methods.Remaining(), nil)
	names := make([]string, 0, len(candidates))
	for _, m := range candidates {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"Name", "Parts"}, names)

	again := p.FindPropertyOrCollectionCandidateAccessors(methods.Remaining(), candidates)
	assert.Len(t, again, 2)

	collections := p.FindAndRemoveCollectionAccessors(methods, nil)
	require.Len(t, collections, 1)
	assert.Equal(t, "Parts", collections[0].Name)

	properties := p.FindAndRemovePropertyAccessors(methods, nil)
	require.Len(t, properties, 1)
	assert.Equal(t, "Name", properties[0].Name)

	assert.True(t, methods.WasRemoved("Parts"))
	assert.False(t, methods.WasRemoved("Polish"))
}

func TestProcess_FactoryPanicPropagates(t *testing.T) {
	p := newProcessor(t, &panickingFactory{Abstract: facetfactory.NewAbstract(facet.ObjectsOnly)})

	assert.Panics(t, func() {
		p.Process(reflect.TypeOf(&widget{}), nil, facet.NewHolder())
	})
}

func TestConcurrentRegistrationAndDispatch(t *testing.T) {
	p := newProcessor(t, &prefixFactory{PrefixBased: facetfactory.NewPrefixBased(facet.PropertiesOnly, "Clear")})
	name := method(t, "SetName")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = p.RegisterFactory(&prefixFactory{PrefixBased: facetfactory.NewPrefixBased(facet.PropertiesOnly, "Set")})
		}()
		go func() {
			defer wg.Done()
			p.Recognizes(name)
			p.ProcessMethod(reflect.TypeOf(&widget{}), name, nil, facet.NewHolder(), facet.Property)
		}()
	}
	wg.Wait()

	assert.True(t, p.Recognizes(name))
	assert.Len(t, p.Factories(), 9)
}

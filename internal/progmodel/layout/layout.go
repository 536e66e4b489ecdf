// Package layout reads per-class YAML layout files and turns them into facets.
//
// A layout lives at `<dir>/<ShortName>.layout.yaml`:
//
//	members:
//	  name:
//	    typicalLength: 30
//	  email:
//	    typicalLength: -1 # unset
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/progmodel"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/progmodel/properties"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Unset marks a layout value that was left out.
const Unset = -1

// Member is the layout of one member.
type Member struct {
	TypicalLength int `yaml:"typicalLength"`
}

func (m *Member) UnmarshalYAML(node *yaml.Node) error {
	type plain Member
	p := plain{TypicalLength: Unset}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*m = Member(p)
	return nil
}

// Layout is the layout of one class.
type Layout struct {
	Members map[string]Member `yaml:"members"`
}

// Member returns the layout of the member with the given id.
func (l *Layout) Member(id string) (Member, bool) {
	if l == nil {
		return Member{TypicalLength: Unset}, false
	}
	m, ok := l.Members[id]
	if !ok {
		return Member{TypicalLength: Unset}, false
	}
	return m, true
}

// Repository loads and caches layouts from a directory. A class without a file has an empty
// layout.
type Repository struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]*Layout
}

// NewRepository creates a repository over dir. An empty dir disables layouts.
func NewRepository(dir string, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{dir: dir, logger: logger, cache: make(map[string]*Layout)}
}

// Path returns the file a class layout is read from.
func (r *Repository) Path(shortName string) string {
	return filepath.Join(r.dir, shortName+".layout.yaml")
}

// Load returns the layout for the class with the given short name.
func (r *Repository) Load(shortName string) (*Layout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.cache[shortName]; ok {
		return l, nil
	}
	l, err := r.read(shortName)
	if err != nil {
		return nil, err
	}
	r.cache[shortName] = l
	return l, nil
}

func (r *Repository) read(shortName string) (*Layout, error) {
	l := &Layout{}
	if r.dir == "" {
		return l, nil
	}
	data, err := os.ReadFile(r.Path(shortName))
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read layout for %s: %w", shortName, err)
	}
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("failed to parse layout %s: %w", r.Path(shortName), err)
	}
	r.logger.Debug("loaded layout", zap.String("class", shortName), zap.Int("members", len(l.Members)))
	return l, nil
}

// Clear drops every cached layout.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*Layout)
}

// RepositoryAware factories want the layout repository injected.
type RepositoryAware interface {
	SetLayoutRepository(repo *Repository)
}

// InjectInto hands the repository to RepositoryAware candidates.
func (r *Repository) InjectInto(candidate any) error {
	if aware, ok := candidate.(RepositoryAware); ok {
		aware.SetLayoutRepository(r)
	}
	return nil
}

// PropertyLayoutFacetFactory sets the typical length of properties from the class layout.
type PropertyLayoutFacetFactory struct {
	facetfactory.Abstract
	repo   *Repository
	logger *zap.Logger
}

func NewPropertyLayoutFacetFactory() facetfactory.FacetFactory {
	return &PropertyLayoutFacetFactory{Abstract: facetfactory.NewAbstract(facet.PropertiesOnly), logger: zap.NewNop()}
}

func (f *PropertyLayoutFacetFactory) SetLayoutRepository(repo *Repository) {
	f.repo = repo
}

func (f *PropertyLayoutFacetFactory) SetLogger(logger *zap.Logger) {
	f.logger = logger
}

func (f *PropertyLayoutFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	if f.repo == nil {
		return false
	}
	l, err := f.repo.Load(spec.ShortTypeName(cls))
	if err != nil {
		f.logger.Warn("ignoring unreadable layout", zap.String("type", cls.String()), zap.Error(err))
		return false
	}
	m, ok := l.Member(spec.MemberID(method.Name))
	if !ok || m.TypicalLength == Unset {
		return false
	}
	return facet.Add(properties.NewTypicalLengthFacet(m.TypicalLength, holder))
}

// Constructors lists the factories of this package by name.
func Constructors() progmodel.Catalog {
	return progmodel.Catalog{
		"PropertyLayoutFacetFactory": NewPropertyLayoutFacetFactory,
	}
}

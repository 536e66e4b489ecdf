// Package memento captures the persisted state of an adapted object graph and restores it onto
// new or existing adapters.
//
// A snapshot holds full data for the root object and for every transient object it reaches, each
// at most once; everything else is recorded as an oid stub. Recreation goes through a Hydrator so
// that each oid maps onto exactly one adapter.
package memento

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/oid"
	"github.com/conduit-lang/facetmodel/internal/metamodel/resolvestate"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/runtime/encoding"
	"go.uber.org/zap"
)

// formatVersion prefixes MarshalBinary output.
const formatVersion byte = 1

var (
	// ErrOidMismatch is returned when a memento is applied to an object other than the one it was
	// taken from.
	ErrOidMismatch = errors.New("memento belongs to a different object")

	// ErrInconsistentState is returned when field data exists for an object whose resolve state
	// says it cannot be updated.
	ErrInconsistentState = errors.New("resolve state inconsistent with field data")
)

// Hydrator recreates adapters for oids. It must return the same adapter for the same oid.
type Hydrator interface {
	RecreateAdapter(id oid.Oid, typeSpec *spec.ObjectSpecification) (spec.ObjectAdapter, error)
}

// Runtime is what a memento needs from its surroundings.
type Runtime struct {
	Specs    spec.SpecificationLookup
	Hydrator Hydrator
	Logger   *zap.Logger
}

func (rt Runtime) logger() *zap.Logger {
	if rt.Logger == nil {
		return zap.NewNop()
	}
	return rt.Logger
}

// Memento is a snapshot of one object graph.
type Memento struct {
	rt         Runtime
	logger     *zap.Logger
	state      Node
	transients []oid.Oid
}

// New snapshots adapter. A nil adapter gives an empty memento.
func New(rt Runtime, adapter spec.ObjectAdapter) (*Memento, error) {
	m := &Memento{rt: rt, logger: rt.logger()}
	if adapter == nil {
		return m, nil
	}
	if id := adapter.Oid(); id != nil && id.IsTransient() {
		m.transients = append(m.transients, id)
	}
	state, err := m.createData(adapter)
	if err != nil {
		return nil, err
	}
	m.state = state
	m.logger.Debug("created memento", zap.Stringer("memento", m))
	return m, nil
}

// Restore reads a memento written by EncodeTo.
func Restore(rt Runtime, in *encoding.DataInputStream) (*Memento, error) {
	m := &Memento{rt: rt, logger: rt.logger()}
	e, err := in.ReadEncodable()
	if err != nil {
		return nil, fmt.Errorf("failed to restore memento: %w", err)
	}
	if e == nil {
		return m, nil
	}
	node, ok := e.(Node)
	if !ok {
		return nil, fmt.Errorf("failed to restore memento: unexpected %T", e)
	}
	m.state = node
	return m, nil
}

// Unmarshal reverses MarshalBinary.
func Unmarshal(rt Runtime, data []byte) (*Memento, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to restore memento: no data")
	}
	if data[0] != formatVersion {
		return nil, fmt.Errorf("failed to restore memento: unsupported format version %d", data[0])
	}
	return Restore(rt, encoding.NewDataInputStream(bytes.NewReader(data[1:])))
}

// Data returns the root of the snapshot, or nil for an empty memento.
func (m *Memento) Data() Node {
	return m.state
}

// Oid is the identity of the captured root, or nil.
func (m *Memento) Oid() oid.Oid {
	if m.state == nil {
		return nil
	}
	return m.state.Base().Oid
}

func (m *Memento) seen(id oid.Oid) bool {
	for _, t := range m.transients {
		if oid.Equal(t, id) {
			return true
		}
	}
	return false
}

func (m *Memento) createData(adapter spec.ObjectAdapter) (Node, error) {
	s := adapter.Specification()
	if s == nil {
		return nil, &spec.UnknownTypeError{Type: fmt.Sprintf("%T", adapter.Object()), Context: "adapter has no specification"}
	}
	if s.IsCollection() {
		return m.createCollectionData(adapter)
	}
	return m.createObjectData(adapter)
}

func newData(adapter spec.ObjectAdapter) Data {
	return Data{
		Oid:          adapter.Oid(),
		ClassName:    adapter.Specification().FullName(),
		ResolveState: adapter.ResolveState(),
	}
}

func (m *Memento) createCollectionData(collection spec.ObjectAdapter) (*CollectionData, error) {
	cf, ok := facet.Lookup[spec.CollectionFacet](collection.Specification(), spec.TypeCollection)
	if !ok {
		return nil, &spec.UnknownTypeError{Type: collection.Specification().FullName(), Context: "no collection facet"}
	}
	elements, err := cf.Elements(collection)
	if err != nil {
		return nil, err
	}
	data := &CollectionData{Data: newData(collection), Elements: make([]Node, 0, len(elements))}
	for _, element := range elements {
		node, err := m.createReferenceData(element)
		if err != nil {
			return nil, err
		}
		if node != nil {
			data.Elements = append(data.Elements, node)
		}
	}
	return data, nil
}

// skipField reports whether a not-persisted association is left out of the snapshot: always for
// collections, and for properties that cannot be written back.
func (m *Memento) skipField(field spec.ObjectAssociation) bool {
	if !field.IsNotPersisted() {
		return false
	}
	if field.IsOneToMany() {
		return true
	}
	if field.ContainsFacet(spec.TypePropertyAccessor) && !field.ContainsFacet(spec.TypePropertySetter) {
		m.logger.Debug("ignoring not-settable field", zap.String("field", field.ID()))
		return true
	}
	return false
}

func (m *Memento) createObjectData(adapter spec.ObjectAdapter) (*ObjectData, error) {
	data := &ObjectData{Data: newData(adapter)}
	for _, field := range adapter.Specification().Associations() {
		if m.skipField(field) {
			continue
		}
		value, err := m.createFieldData(adapter, field)
		if err != nil {
			return nil, fmt.Errorf("failed to capture %s.%s: %w", data.ClassName, field.ID(), err)
		}
		data.AddField(field.ID(), value)
	}
	return data, nil
}

func (m *Memento) createFieldData(owner spec.ObjectAdapter, field spec.ObjectAssociation) (any, error) {
	fieldSpec := field.Specification()
	switch {
	case field.IsOneToMany():
		coll, err := field.Get(owner)
		if err != nil || coll == nil {
			return nil, err
		}
		return m.createCollectionData(coll)

	case fieldSpec != nil && fieldSpec.IsEncodeable():
		enc, _ := facet.Lookup[spec.EncodableFacet](fieldSpec, spec.TypeEncodable)
		value, err := field.Get(owner)
		if err != nil || value == nil || value.Object() == nil {
			return nil, err
		}
		return enc.ToEncodedString(value)

	case field.IsOneToOne():
		ref, err := field.Get(owner)
		if err != nil {
			return nil, err
		}
		node, err := m.createReferenceData(ref)
		if err != nil || node == nil {
			return nil, err
		}
		return node, nil
	}
	return nil, &spec.UnknownTypeError{Type: fmt.Sprintf("%T", field), Context: "association " + field.ID()}
}

// createReferenceData records a reference as nothing, standalone data, full data for the first
// occurrence of a transient object, or a stub.
func (m *Memento) createReferenceData(ref spec.ObjectAdapter) (Node, error) {
	if ref == nil {
		return nil, nil
	}
	id := ref.Oid()
	if id == nil {
		return m.createStandaloneData(ref)
	}
	if id.IsTransient() && !m.seen(id) {
		m.transients = append(m.transients, id)
		return m.createObjectData(ref)
	}
	stub := newData(ref)
	return &stub, nil
}

func (m *Memento) createStandaloneData(ref spec.ObjectAdapter) (*StandaloneData, error) {
	s := ref.Specification()
	if s == nil {
		return nil, &spec.UnknownTypeError{Type: fmt.Sprintf("%T", ref.Object()), Context: "standalone object has no specification"}
	}
	enc, ok := facet.Lookup[spec.EncodableFacet](s, spec.TypeEncodable)
	if !ok {
		return nil, &spec.UnknownTypeError{Type: s.FullName(), Context: "standalone object is not encodable"}
	}
	value, err := enc.ToEncodedString(ref)
	if err != nil {
		return nil, err
	}
	return &StandaloneData{Data: Data{ClassName: s.FullName(), ResolveState: resolvestate.Value}, Value: value}, nil
}

func (m *Memento) specification(className string) (*spec.ObjectSpecification, error) {
	if m.rt.Specs == nil {
		return nil, fmt.Errorf("memento has no specification lookup")
	}
	return m.rt.Specs.LoadSpecificationByName(className)
}

func (m *Memento) hydrator() (Hydrator, error) {
	if m.rt.Hydrator == nil {
		return nil, fmt.Errorf("memento has no hydrator")
	}
	return m.rt.Hydrator, nil
}

// RecreateObject materializes the captured root through the hydrator and repopulates it. An
// empty memento recreates nothing.
func (m *Memento) RecreateObject() (spec.ObjectAdapter, error) {
	if m.state == nil {
		return nil, nil
	}
	base := m.state.Base()
	if base.Oid == nil {
		return nil, fmt.Errorf("cannot recreate %s: memento has no oid", base.ClassName)
	}
	s, err := m.specification(base.ClassName)
	if err != nil {
		return nil, err
	}
	hydrator, err := m.hydrator()
	if err != nil {
		return nil, err
	}
	adapter, err := hydrator.RecreateAdapter(base.Oid, s)
	if err != nil {
		return nil, err
	}

	target := resolvestate.Updating
	if base.Oid.IsTransient() {
		target = resolvestate.SerializingTransient
	}
	if adapter.Specification() != nil && adapter.Specification().IsCollection() {
		data, ok := m.state.(*CollectionData)
		if !ok {
			return nil, fmt.Errorf("expected collection data for %s, got %T", base.ClassName, m.state)
		}
		err = m.populateCollection(adapter, data)
	} else {
		err = m.updateObject(adapter, m.state, target)
	}
	if err != nil {
		return nil, err
	}
	m.logger.Debug("recreated object", oidField(adapter.Oid()))
	return adapter, nil
}

// populateCollection replaces the collection's contents with the recreated elements.
func (m *Memento) populateCollection(collection spec.ObjectAdapter, data *CollectionData) error {
	elements := make([]spec.ObjectAdapter, 0, len(data.Elements))
	for _, node := range data.Elements {
		element, err := m.recreateReference(node)
		if err != nil {
			return err
		}
		if element != nil {
			elements = append(elements, element)
		}
	}
	cf, ok := facet.Lookup[spec.CollectionFacet](collection.Specification(), spec.TypeCollection)
	if !ok {
		return &spec.UnknownTypeError{Type: collection.Specification().FullName(), Context: "no collection facet"}
	}
	return cf.Init(collection, elements)
}

func (m *Memento) recreateReference(node Node) (spec.ObjectAdapter, error) {
	base := node.Base()
	s, err := m.specification(base.ClassName)
	if err != nil {
		return nil, err
	}
	if standalone, ok := node.(*StandaloneData); ok {
		enc, ok := facet.Lookup[spec.EncodableFacet](s, spec.TypeEncodable)
		if !ok {
			return nil, &spec.UnknownTypeError{Type: s.FullName(), Context: "standalone object is not encodable"}
		}
		return enc.FromEncodedString(standalone.Value)
	}
	if base.Oid == nil {
		return nil, nil
	}

	hydrator, err := m.hydrator()
	if err != nil {
		return nil, err
	}
	ref, err := hydrator.RecreateAdapter(base.Oid, s)
	if err != nil {
		return nil, err
	}

	target := resolvestate.SerializingTransient
	if !base.Oid.IsTransient() {
		if ref.ResolveState().IsValidToChangeTo(resolvestate.Ghost) {
			if err := ref.ChangeState(resolvestate.Ghost); err != nil {
				return nil, err
			}
		}
		target = resolvestate.Updating
	}
	if _, ok := node.(*ObjectData); ok {
		if err := m.updateObject(ref, node, target); err != nil {
			return nil, err
		}
	}
	return ref, nil
}

// UpdateObject applies the snapshot to adapter, which must carry the captured oid. Ghosts are
// resolved, resolved objects updated and transient objects written directly.
func (m *Memento) UpdateObject(adapter spec.ObjectAdapter) error {
	if m.state == nil {
		return nil
	}
	current := adapter.ResolveState()
	target := resolvestate.Resolving
	switch {
	case current.IsValidToChangeTo(resolvestate.Resolving):
	case current.IsValidToChangeTo(resolvestate.Updating):
		target = resolvestate.Updating
	case current == resolvestate.Transient:
		target = resolvestate.Transient
	}
	return m.updateObject(adapter, m.state, target)
}

func (m *Memento) updateObject(adapter spec.ObjectAdapter, node Node, target resolvestate.State) error {
	base := node.Base()
	if id := adapter.Oid(); !oid.Equal(id, base.Oid) {
		return fmt.Errorf("%w: memento holds %v, object is %v", ErrOidMismatch, base.Oid, id)
	}
	data, ok := node.(*ObjectData)
	if !ok {
		return fmt.Errorf("expected object data for %s, got %T", base.ClassName, node)
	}

	current := adapter.ResolveState()
	switch {
	case current.IsValidToChangeTo(target) && target.IsTransitional():
		if err := resolvestate.Start(adapter, target); err != nil {
			return err
		}
		if err := m.updateFields(adapter, data); err != nil {
			return err
		}
		if err := resolvestate.End(adapter); err != nil {
			return err
		}
	case current == resolvestate.Transient && target == resolvestate.Transient:
		if err := m.updateFields(adapter, data); err != nil {
			return err
		}
	case data.ContainsField():
		return fmt.Errorf("%w: %s is %s", ErrInconsistentState, adapter.Oid(), current)
	}
	m.logger.Debug("object updated", oidField(adapter.Oid()))
	return nil
}

func (m *Memento) updateFields(adapter spec.ObjectAdapter, data *ObjectData) error {
	for _, field := range adapter.Specification().Associations() {
		if m.skipField(field) {
			continue
		}
		if err := m.updateField(adapter, data, field); err != nil {
			return fmt.Errorf("failed to restore %s.%s: %w", data.ClassName, field.ID(), err)
		}
	}
	return nil
}

func (m *Memento) updateField(owner spec.ObjectAdapter, data *ObjectData, field spec.ObjectAssociation) error {
	value, _ := data.Entry(field.ID())
	fieldSpec := field.Specification()

	switch f := field.(type) {
	case *spec.OneToManyAssociation:
		coll, _ := value.(*CollectionData)
		return m.updateOneToManyAssociation(owner, f, coll)

	case *spec.OneToOneAssociation:
		if !f.HasSetter() && !f.ContainsFacet(spec.TypePropertyInitialization) {
			m.logger.Debug("ignoring read-only field", zap.String("field", f.ID()))
			return nil
		}
		if fieldSpec != nil && fieldSpec.IsEncodeable() {
			var decoded spec.ObjectAdapter
			if encoded, ok := value.(string); ok {
				enc, _ := facet.Lookup[spec.EncodableFacet](fieldSpec, spec.TypeEncodable)
				var err error
				if decoded, err = enc.FromEncodedString(encoded); err != nil {
					return err
				}
			}
			return f.InitAssociation(owner, decoded)
		}
		node, _ := value.(Node)
		return m.updateOneToOneAssociation(owner, f, node)
	}
	return &spec.UnknownTypeError{Type: fmt.Sprintf("%T", field), Context: "association " + field.ID()}
}

// updateOneToManyAssociation adds every captured element the collection lacks, then removes every
// original element that was not captured.
func (m *Memento) updateOneToManyAssociation(owner spec.ObjectAdapter, field *spec.OneToManyAssociation, data *CollectionData) error {
	original, err := field.Elements(owner)
	if err != nil {
		return err
	}

	var recreated []spec.ObjectAdapter
	if data != nil {
		for _, node := range data.Elements {
			element, err := m.recreateReference(node)
			if err != nil {
				return err
			}
			if element == nil {
				continue
			}
			recreated = append(recreated, element)
			contains, err := field.Contains(owner, element)
			if err != nil {
				return err
			}
			if !contains {
				m.logger.Debug("association changed, added",
					zap.String("field", field.ID()), oidField(element.Oid()))
				if err := field.AddElement(owner, element); err != nil {
					return err
				}
			}
		}
	}

	for _, element := range original {
		if containsAdapter(recreated, element) {
			continue
		}
		m.logger.Debug("association changed, removed",
			zap.String("field", field.ID()), oidField(element.Oid()))
		if err := field.RemoveElement(owner, element); err != nil {
			return err
		}
	}
	return nil
}

func containsAdapter(adapters []spec.ObjectAdapter, target spec.ObjectAdapter) bool {
	for _, a := range adapters {
		if spec.SameObject(a, target) {
			return true
		}
	}
	return false
}

func (m *Memento) updateOneToOneAssociation(owner spec.ObjectAdapter, field *spec.OneToOneAssociation, node Node) error {
	if node == nil {
		return field.InitAssociation(owner, nil)
	}
	ref, err := m.recreateReference(node)
	if err != nil {
		return err
	}
	current, err := field.Get(owner)
	if err != nil {
		return err
	}
	if spec.SameObject(current, ref) {
		return nil
	}
	m.logger.Debug("association changed", zap.String("field", field.ID()), oidField(oidOf(ref)))
	return field.InitAssociation(owner, ref)
}

func oidField(id oid.Oid) zap.Field {
	if id == nil {
		return zap.Skip()
	}
	return zap.Stringer("oid", id)
}

func oidOf(a spec.ObjectAdapter) oid.Oid {
	if a == nil {
		return nil
	}
	return a.Oid()
}

// EncodeTo writes the snapshot as a single Encodable.
func (m *Memento) EncodeTo(out *encoding.DataOutputStream) error {
	if m.state == nil {
		return out.WriteEncodable(nil)
	}
	return out.WriteEncodable(m.state)
}

// MarshalBinary encodes the memento behind a format version byte.
func (m *Memento) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(formatVersion)
	if err := m.EncodeTo(encoding.NewDataOutputStream(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Debug writes an indented dump of the snapshot.
func (m *Memento) Debug(w io.Writer) error {
	dw := &debugWriter{w: w}
	if m.state == nil {
		dw.line("empty memento")
		return dw.err
	}
	m.state.debug(dw)
	return dw.err
}

func (m *Memento) String() string {
	if m.state == nil {
		return "[]"
	}
	base := m.state.Base()
	return fmt.Sprintf("[%s/%v]", base.ClassName, base.Oid)
}

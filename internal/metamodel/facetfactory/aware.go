package facetfactory

import (
	"reflect"

	"github.com/conduit-lang/facetmodel/internal/config"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"go.uber.org/zap"
)

// The *Aware interfaces declare the dependencies a factory wants injected at registration.

type SpecificationLookupAware interface {
	SetSpecificationLookup(lookup spec.SpecificationLookup)
}

type AdapterMapAware interface {
	SetAdapterMap(adapters spec.AdapterMap)
}

type ConfigurationAware interface {
	SetConfiguration(cfg *config.Config)
}

type CollectionTypeRegistryAware interface {
	SetCollectionTypeRegistry(registry CollectionTypeRegistry)
}

type LoggerAware interface {
	SetLogger(logger *zap.Logger)
}

// MethodRecognizer answers whether a method is claimed by any registered factory.
type MethodRecognizer interface {
	Recognizes(method reflect.Method) bool
}

type MethodRecognizerAware interface {
	SetMethodRecognizer(recognizer MethodRecognizer)
}

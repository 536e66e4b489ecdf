// Package runtimecontext wires runtime collaborators into facet factories at registration.
package runtimecontext

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"go.uber.org/zap"
)

// ErrMissingDependency is returned when a factory asks for a collaborator this context lacks.
var ErrMissingDependency = errors.New("runtime context: missing dependency")

// Injector hands one kind of collaborator to candidates that declare interest in it.
type Injector interface {
	InjectInto(candidate any) error
}

// InjectorFunc adapts a function to Injector.
type InjectorFunc func(candidate any) error

func (f InjectorFunc) InjectInto(candidate any) error {
	return f(candidate)
}

// Context carries the adapter map and any extra injectors for one application run.
type Context struct {
	adapters  spec.AdapterMap
	injectors []Injector
	logger    *zap.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithInjector adds an injector consulted after the built-in ones.
func WithInjector(injector Injector) Option {
	return func(c *Context) {
		if injector != nil {
			c.injectors = append(c.injectors, injector)
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a context. adapters may be nil when no factory needs one.
func New(adapters spec.AdapterMap, opts ...Option) *Context {
	c := &Context{adapters: adapters, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AdapterMap returns the adapter map, or nil.
func (c *Context) AdapterMap() spec.AdapterMap {
	return c.adapters
}

// InjectInto implements the processor's runtime context contract.
func (c *Context) InjectInto(candidate any) error {
	if aware, ok := candidate.(facetfactory.AdapterMapAware); ok {
		if c.adapters == nil {
			return fmt.Errorf("%w: adapter map for %T", ErrMissingDependency, candidate)
		}
		aware.SetAdapterMap(c.adapters)
	}
	for _, injector := range c.injectors {
		if err := injector.InjectInto(candidate); err != nil {
			return err
		}
	}
	c.logger.Debug("injected runtime dependencies", zap.String("candidate", fmt.Sprintf("%T", candidate)))
	return nil
}

package core

import (
	"github.com/XiaoConstantine/rete-go/pkg/errors"
)

// DependencyResolver is the pluggable lookup rule actions use to obtain
// service dependencies. Resolution runs inside the session's call stack.
type DependencyResolver interface {
	Resolve(service string) (any, error)
}

// ResolverRegistry is the default DependencyResolver: a name-keyed registry
// populated by the host before firing.
type ResolverRegistry struct {
	services map[string]any
}

// NewResolverRegistry creates an empty registry.
func NewResolverRegistry() *ResolverRegistry {
	return &ResolverRegistry{services: make(map[string]any)}
}

// Register binds a service instance to a name, replacing any previous
// binding.
func (r *ResolverRegistry) Register(service string, instance any) {
	r.services[service] = instance
}

// Resolve returns the instance bound to service.
func (r *ResolverRegistry) Resolve(service string) (any, error) {
	instance, ok := r.services[service]
	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "no dependency registered"),
			errors.Fields{"service": service},
		)
	}
	return instance, nil
}

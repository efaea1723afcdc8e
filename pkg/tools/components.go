package tools

import "sync"

// ComponentDescriptor describes a renderable component exposed to the run
// service. Descriptors are supplied by the registration subsystem and
// treated as read-only here.
type ComponentDescriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Props       map[string]interface{} `json:"props,omitempty"`
}

// ComponentRegistry is a read-only mapping from component name to its
// descriptor.
type ComponentRegistry interface {
	GetComponent(name string) (*ComponentDescriptor, bool)
	ListComponents() []ComponentDescriptor
}

// StaticComponentRegistry holds a fixed descriptor set.
type StaticComponentRegistry struct {
	mu         sync.RWMutex
	components map[string]ComponentDescriptor
}

func NewStaticComponentRegistry(components ...ComponentDescriptor) *StaticComponentRegistry {
	m := make(map[string]ComponentDescriptor, len(components))
	for _, c := range components {
		m[c.Name] = c
	}
	return &StaticComponentRegistry{components: m}
}

func (r *StaticComponentRegistry) GetComponent(name string) (*ComponentDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[name]
	if !ok {
		return nil, false
	}
	cCopy := c
	return &cCopy, true
}

func (r *StaticComponentRegistry) ListComponents() []ComponentDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ComponentDescriptor, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	return out
}

var _ ComponentRegistry = (*StaticComponentRegistry)(nil)

package tools

import (
	"fmt"
	"sort"
	"sync"
)

// ToolRegistry manages the tools a client offers to the run service.
// Implementations must be safe for concurrent use; runs list tools on every
// request while registrations may happen at any time.
type ToolRegistry interface {
	RegisterTool(name string, def ToolDefinition) error
	GetTool(name string) (*ToolDefinition, error)
	// ListTools returns all registered tools in deterministic (name) order,
	// so identical registries produce identical run requests.
	ListTools() []ToolDefinition
	UnregisterTool(name string) error

	Clone() ToolRegistry
	Merge(other ToolRegistry) ToolRegistry
}

// InMemoryToolRegistry is the default map-backed ToolRegistry.
type InMemoryToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]ToolDefinition
}

func NewInMemoryToolRegistry() *InMemoryToolRegistry {
	return &InMemoryToolRegistry{
		tools: make(map[string]ToolDefinition),
	}
}

// RegisterTool adds or replaces a tool under the given name. A definition
// carrying a different name is rejected rather than silently renamed.
func (r *InMemoryToolRegistry) RegisterTool(name string, def ToolDefinition) error {
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Name != "" && def.Name != name {
		return fmt.Errorf("tool definition name (%s) does not match registry name (%s)", def.Name, name)
	}
	def.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = def
	return nil
}

// GetTool returns a copy of the named tool's definition.
func (r *InMemoryToolRegistry) GetTool(name string) (*ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	toolCopy := tool
	return &toolCopy, nil
}

func (r *InMemoryToolRegistry) ListTools() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *InMemoryToolRegistry) UnregisterTool(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[name]; !ok {
		return fmt.Errorf("tool not found: %s", name)
	}
	delete(r.tools, name)
	return nil
}

// Clone returns an independent copy of the registry.
func (r *InMemoryToolRegistry) Clone() ToolRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cloned := NewInMemoryToolRegistry()
	for name, tool := range r.tools {
		cloned.tools[name] = tool
	}
	return cloned
}

// Merge combines both registries into a new one; on name conflicts the
// other registry wins.
func (r *InMemoryToolRegistry) Merge(other ToolRegistry) ToolRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	merged := NewInMemoryToolRegistry()
	for name, tool := range r.tools {
		merged.tools[name] = tool
	}
	for _, tool := range other.ListTools() {
		merged.tools[tool.Name] = tool
	}
	return merged
}

// HasTool reports whether a tool is registered under the given name.
func (r *InMemoryToolRegistry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.tools[name]
	return ok
}

// Count returns the number of registered tools.
func (r *InMemoryToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

var _ ToolRegistry = (*InMemoryToolRegistry)(nil)

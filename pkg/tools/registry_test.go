package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewInMemoryToolRegistry()

	require.NoError(t, registry.RegisterTool("echo", ToolDefinition{Description: "echoes"}))

	def, err := registry.GetTool("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", def.Name)
	assert.Equal(t, "echoes", def.Description)

	assert.True(t, registry.HasTool("echo"))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_RegisterRejectsEmptyAndMismatchedNames(t *testing.T) {
	registry := NewInMemoryToolRegistry()

	err := registry.RegisterTool("", ToolDefinition{})
	require.Error(t, err)

	err = registry.RegisterTool("a", ToolDefinition{Name: "b"})
	require.Error(t, err)
}

func TestRegistry_GetUnknownTool(t *testing.T) {
	registry := NewInMemoryToolRegistry()

	_, err := registry.GetTool("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool not found")
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewInMemoryToolRegistry()
	require.NoError(t, registry.RegisterTool("echo", ToolDefinition{}))

	require.NoError(t, registry.UnregisterTool("echo"))
	assert.False(t, registry.HasTool("echo"))

	err := registry.UnregisterTool("echo")
	require.Error(t, err)
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	registry := NewInMemoryToolRegistry()
	require.NoError(t, registry.RegisterTool("echo", ToolDefinition{}))

	cloned := registry.Clone()
	require.NoError(t, registry.RegisterTool("extra", ToolDefinition{}))

	assert.Len(t, cloned.ListTools(), 1)
	assert.Len(t, registry.ListTools(), 2)
}

func TestRegistry_MergeOtherWins(t *testing.T) {
	a := NewInMemoryToolRegistry()
	require.NoError(t, a.RegisterTool("shared", ToolDefinition{Description: "from a"}))
	require.NoError(t, a.RegisterTool("only-a", ToolDefinition{}))

	b := NewInMemoryToolRegistry()
	require.NoError(t, b.RegisterTool("shared", ToolDefinition{Description: "from b"}))
	require.NoError(t, b.RegisterTool("only-b", ToolDefinition{}))

	merged := a.Merge(b)
	assert.Len(t, merged.ListTools(), 3)

	def, err := merged.GetTool("shared")
	require.NoError(t, err)
	assert.Equal(t, "from b", def.Description)
}

func TestComponentRegistry_Lookup(t *testing.T) {
	registry := NewStaticComponentRegistry(
		ComponentDescriptor{Name: "WeatherCard", Description: "weather summary"},
		ComponentDescriptor{Name: "Chart"},
	)

	c, ok := registry.GetComponent("WeatherCard")
	require.True(t, ok)
	assert.Equal(t, "weather summary", c.Description)

	_, ok = registry.GetComponent("missing")
	assert.False(t, ok)

	assert.Len(t, registry.ListComponents(), 2)
}

package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkale-dev/swarmd/internal/domain"
)

func TestCatalogListPreservesRegistrationOrder(t *testing.T) {
	c := NewToolCatalog(
		ToolEntry{Name: "c"},
		ToolEntry{Name: "a"},
		ToolEntry{Name: "b"},
	)
	names := make([]string, 0, 3)
	for _, e := range c.List() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestCatalogDuplicateKeepsFirst(t *testing.T) {
	c := NewStrategyCatalog(
		StrategyEntry{Name: "s", Description: "first"},
		StrategyEntry{Name: "s", Description: "second"},
	)
	require.Len(t, c.List(), 1)
	e, ok := c.Lookup("s")
	require.True(t, ok)
	assert.Equal(t, "first", e.Description)
}

func TestCatalogLookupMiss(t *testing.T) {
	tools, strategies := Builtins()
	_, ok := tools.Lookup("no-such-tool")
	assert.False(t, ok)
	_, ok = strategies.Lookup("no-such-strategy")
	assert.False(t, ok)
}

func TestBuiltinsRegistered(t *testing.T) {
	tools, strategies := Builtins()
	for _, name := range []string{"ping", "llm_chat"} {
		e, ok := tools.Lookup(name)
		require.True(t, ok, "tool %s missing", name)
		assert.NotNil(t, e.Impl)
	}
	for _, name := range []string{"transform", "tool_pipeline"} {
		e, ok := strategies.Lookup(name)
		require.True(t, ok, "strategy %s missing", name)
		assert.NotNil(t, e.Impl)
	}
}

func TestTransformStrategy(t *testing.T) {
	_, strategies := Builtins()
	e, ok := strategies.Lookup("transform")
	require.True(t, ok)

	var logged int
	out, err := e.Impl.Execute(context.Background(), &domain.StrategyCall{
		Config:  map[string]any{"factor": float64(3), "offset": float64(1)},
		Payload: map[string]any{"value": float64(5)},
		Logf:    func(string, ...any) { logged++ },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(16), out["value"])
	assert.Equal(t, 1, logged)

	// Factor defaults to 2 when the blueprint does not set it.
	out, err = e.Impl.Execute(context.Background(), &domain.StrategyCall{
		Payload: map[string]any{"value": float64(5)},
		Logf:    func(string, ...any) {},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), out["value"])

	_, err = e.Impl.Execute(context.Background(), &domain.StrategyCall{
		Payload: map[string]any{"value": "five"},
		Logf:    func(string, ...any) {},
	})
	assert.Error(t, err)
}

func TestPipelineStrategyMergesToolOutputs(t *testing.T) {
	tools, strategies := Builtins()
	e, ok := strategies.Lookup("tool_pipeline")
	require.True(t, ok)

	ping, _ := tools.Lookup("ping")
	chat, _ := tools.Lookup("llm_chat")
	bound := []domain.BoundTool{
		{Ref: domain.ToolRef{Name: "ping"}, Impl: ping.Impl},
		{Ref: domain.ToolRef{Name: "llm_chat", Config: map[string]any{"model": "m1"}}, Impl: chat.Impl},
	}

	out, err := e.Impl.Execute(context.Background(), &domain.StrategyCall{
		Payload: map[string]any{"prompt": "hello"},
		Tools:   bound,
		Logf:    func(string, ...any) {},
	})
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "[m1] hello", out["completion"])
}

func TestPipelineStrategyToolFailure(t *testing.T) {
	tools, strategies := Builtins()
	e, _ := strategies.Lookup("tool_pipeline")
	chat, _ := tools.Lookup("llm_chat")

	// llm_chat without a prompt fails; the pipeline surfaces it.
	_, err := e.Impl.Execute(context.Background(), &domain.StrategyCall{
		Tools: []domain.BoundTool{{Ref: domain.ToolRef{Name: "llm_chat"}, Impl: chat.Impl}},
		Logf:  func(string, ...any) {},
	})
	assert.ErrorContains(t, err, "llm_chat")
}

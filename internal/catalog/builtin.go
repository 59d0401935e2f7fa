package catalog

import (
	"context"
	"fmt"

	"github.com/mkale-dev/swarmd/internal/domain"
)

// Builtins returns the catalogs shipped with the engine. Real
// deployments extend these at wiring time; the engine itself never
// mutates a catalog.
func Builtins() (*ToolCatalog, *StrategyCatalog) {
	tools := NewToolCatalog(
		ToolEntry{
			Name:        "ping",
			Description: "Echoes its configuration and arguments back. Connectivity probe.",
			Output:      domain.Schema{"ok": domain.FieldBoolean},
			Impl:        pingTool{},
		},
		ToolEntry{
			Name:        "llm_chat",
			Description: "Chat completion against the configured model. Stubbed deterministic completion; providers are wired externally.",
			Input:       domain.Schema{"prompt": domain.FieldString},
			Output:      domain.Schema{"completion": domain.FieldString},
			Impl:        llmChatTool{},
		},
	)

	strategies := NewStrategyCatalog(
		StrategyEntry{
			Name:        "transform",
			Description: "Deterministic arithmetic transform of an integer input.",
			Input:       domain.Schema{"value": domain.FieldInteger},
			Output:      domain.Schema{"value": domain.FieldInteger},
			Impl:        transformStrategy{},
		},
		StrategyEntry{
			Name:        "tool_pipeline",
			Description: "Invokes the blueprint's tools in order, merging their outputs.",
			Impl:        pipelineStrategy{},
		},
	)

	return tools, strategies
}

type pingTool struct{}

func (pingTool) Name() string { return "ping" }

func (pingTool) Invoke(_ context.Context, config, args map[string]any) (map[string]any, error) {
	out := map[string]any{"ok": true}
	if len(config) > 0 {
		out["config"] = config
	}
	if len(args) > 0 {
		out["args"] = args
	}
	return out, nil
}

type llmChatTool struct{}

func (llmChatTool) Name() string { return "llm_chat" }

func (llmChatTool) Invoke(_ context.Context, config, args map[string]any) (map[string]any, error) {
	prompt, _ := args["prompt"].(string)
	if prompt == "" {
		return nil, fmt.Errorf("llm_chat: prompt is required")
	}
	model, _ := config["model"].(string)
	if model == "" {
		model = "stub"
	}
	// Deterministic canned completion so pipelines are testable
	// without a provider.
	return map[string]any{
		"completion": fmt.Sprintf("[%s] %s", model, prompt),
	}, nil
}

type transformStrategy struct{}

func (transformStrategy) Name() string { return "transform" }

func (transformStrategy) InputSchema() domain.Schema {
	return domain.Schema{"value": domain.FieldInteger}
}

func (transformStrategy) Execute(_ context.Context, call *domain.StrategyCall) (map[string]any, error) {
	raw, ok := call.Payload["value"].(float64)
	if !ok {
		return nil, fmt.Errorf("transform: payload field \"value\" must be an integer")
	}
	value := int64(raw)

	factor := int64(2)
	if f, ok := call.Config["factor"].(float64); ok {
		factor = int64(f)
	}
	offset := int64(0)
	if o, ok := call.Config["offset"].(float64); ok {
		offset = int64(o)
	}

	result := value*factor + offset
	call.Logf("transform: %d * %d + %d = %d", value, factor, offset, result)
	return map[string]any{"value": result}, nil
}

type pipelineStrategy struct{}

func (pipelineStrategy) Name() string { return "tool_pipeline" }

func (pipelineStrategy) InputSchema() domain.Schema { return nil }

func (pipelineStrategy) Execute(ctx context.Context, call *domain.StrategyCall) (map[string]any, error) {
	merged := make(map[string]any)
	for _, tool := range call.Tools {
		out, err := tool.Invoke(ctx, call.Payload)
		if err != nil {
			call.Logf("tool_pipeline: %s failed: %v", tool.Ref.Name, err)
			return nil, fmt.Errorf("tool %q: %w", tool.Ref.Name, err)
		}
		call.Logf("tool_pipeline: %s ok", tool.Ref.Name)
		for k, v := range out {
			merged[k] = v
		}
	}
	return merged, nil
}

package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sellerops/spbridge/cache"
	"github.com/sellerops/spbridge/observe"
)

// Sentinel errors for tool dispatch.
var (
	ErrUnknownTool     = errors.New("tools: unknown tool")
	ErrMissingArgument = errors.New("tools: missing required argument")
	ErrDuplicateTool   = errors.New("tools: tool already registered")
)

// HandlerFunc executes a tool call and returns its JSON text payload.
type HandlerFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is one callable tool.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     HandlerFunc

	// Cacheable marks results safe to reuse for identical arguments.
	Cacheable bool
}

// Definition is the listable subset of a Tool.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Cache collapses and reuses results of cacheable tools. Optional.
	Cache *cache.ResultCache

	// Logger, Metrics and Tracer are optional.
	Logger  observe.Logger
	Metrics observe.Metrics
	Tracer  observe.Tracer
}

// Registry holds the registered tools and dispatches calls.
type Registry struct {
	tools   map[string]*Tool
	order   []string
	cache   *cache.ResultCache
	logger  observe.Logger
	metrics observe.Metrics
	tracer  observe.Tracer
}

// NewRegistry creates an empty registry.
func NewRegistry(config RegistryConfig) *Registry {
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}
	if config.Tracer == nil {
		config.Tracer = observe.NopTracer()
	}
	return &Registry{
		tools:   make(map[string]*Tool),
		cache:   config.Cache,
		logger:  config.Logger,
		metrics: config.Metrics,
		tracer:  config.Tracer,
	}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tools: tool must have a name")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tools: tool %q has no handler", tool.Name)
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.Name)
	}
	r.tools[tool.Name] = tool
	r.order = append(r.order, tool.Name)
	return nil
}

// List returns tool definitions in registration order.
func (r *Registry) List() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, Definition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return defs
}

// Call dispatches a tool call by name and returns the JSON text payload.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	ctx, span := r.tracer.StartToolSpan(ctx, name)
	start := time.Now()

	result, err := r.dispatch(ctx, tool, args)

	r.metrics.RecordToolCall(ctx, name, time.Since(start), err)
	r.tracer.EndSpan(span, err)

	if err != nil {
		r.logger.Warn(ctx, "tool call failed",
			observe.F("tool", name),
			observe.F("error", err.Error()))
		return "", err
	}
	r.logger.Debug(ctx, "tool call completed",
		observe.F("tool", name),
		observe.F("duration_ms", time.Since(start).Milliseconds()))
	return result, nil
}

func (r *Registry) dispatch(ctx context.Context, tool *Tool, args map[string]any) (string, error) {
	if r.cache == nil || !tool.Cacheable {
		return tool.Handler(ctx, args)
	}

	result, _, err := r.cache.Fetch(ctx, tool.Name, args, func(ctx context.Context) ([]byte, error) {
		text, err := tool.Handler(ctx, args)
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	})
	if err != nil {
		return "", err
	}
	return string(result), nil
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}
	return s, nil
}

// optionalStringArg extracts an optional string argument with a default.
func optionalStringArg(args map[string]any, name, fallback string) string {
	if s, ok := args[name].(string); ok && s != "" {
		return s
	}
	return fallback
}

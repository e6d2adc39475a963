package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/mwiater/compliance-agent/internal/providers"
)

// ErrUnknownTool is returned by Invoke for a name the registry does not hold.
var ErrUnknownTool = errors.New("unknown tool")

// Options carries the dependencies tools may need at construction time.
type Options struct {
	HTTPClient     *http.Client
	SearchEndpoint string
}

type factory func(Options) Tool

var factories = map[string]factory{
	CalendarName:    func(Options) Tool { return NewCalendarTool() },
	SearchName:      func(o Options) Tool { return NewSearchTool(o.HTTPClient, o.SearchEndpoint) },
	FinalAnswerName: func(Options) Tool { return NewFinalAnswerTool() },
}

// Registry is the startup-time mapping from tool name to implementation.
// Order follows the configured tool list.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry resolves every configured name. Unknown or repeated names are
// a ConfigError.
func NewRegistry(names []string, opts Options) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(names))}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		build, ok := factories[name]
		if !ok {
			return nil, &appconfig.ConfigError{
				Source: "tools",
				Err:    fmt.Errorf("unknown tool %q (known tools: %s)", raw, strings.Join(KnownTools(), ", ")),
			}
		}
		if _, dup := r.tools[name]; dup {
			return nil, &appconfig.ConfigError{Source: "tools", Err: fmt.Errorf("tool %q listed more than once", name)}
		}
		r.tools[name] = build(opts)
		r.order = append(r.order, name)
	}
	return r, nil
}

// Names returns the registered tool names in configured order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the model-facing definitions in configured order.
func (r *Registry) Definitions() []providers.ToolDefinition {
	defs := make([]providers.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		def := r.tools[name].Definition()
		defs = append(defs, providers.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return defs
}

// Describe renders one "- name: description" line per tool for prompts.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.order {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s: %s", name, r.tools[name].Definition().Description)
	}
	return b.String()
}

// Invoke validates args against the tool's schema and runs it.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := validateArgs(t.Definition(), args); err != nil {
		return "", err
	}

	logging.LogRequest("AGENT->TOOL", "registry", "", name, args)
	out, err := t.Invoke(ctx, args)
	if err != nil {
		logging.LogEvent("tool %s failed: %v", name, err)
		return "", err
	}
	logging.LogRequest("TOOL->AGENT", "registry", "", name, out)
	return out, nil
}

// validateArgs checks args against the definition's JSON schema.
func validateArgs(def Definition, args map[string]any) error {
	if def.Parameters == nil {
		return nil
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(def.Parameters), gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("schema validation error for %s: %w", def.Name, err)
	}
	if result.Valid() {
		return nil
	}
	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("invalid arguments for %s: %s", def.Name, strings.Join(errs, ", "))
}

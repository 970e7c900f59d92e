// Package tools declares the tools a model may call during a turn and
// executes them.
//
// The Registry is an immutable catalog built once from a set of
// executors. Choosing which tools are offered on a given turn is the
// caller's job (see Registry.Filter). Every executor failure is reported
// as *model.ToolExecutionError so the engine can turn it into the content
// of the tool message.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chatcore/model"
)

// Executor runs one tool.
type Executor interface {
	Definition() model.ToolDefinition
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// SecretSource resolves credentials by settings key.
type SecretSource interface {
	Secret(key string) string
}

// Registry is the static tool catalog.
type Registry struct {
	executors []Executor
	byName    map[string]Executor
}

// NewRegistry builds a registry. Tool names must be unique ignoring case.
func NewRegistry(executors ...Executor) (*Registry, error) {
	r := &Registry{byName: make(map[string]Executor, len(executors))}
	for _, e := range executors {
		key := strings.ToLower(e.Definition().Name)
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", e.Definition().Name)
		}
		r.byName[key] = e
		r.executors = append(r.executors, e)
	}
	return r, nil
}

// Definitions returns every tool in declaration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	return r.Filter(nil)
}

// Filter returns the definitions for which enabled reports true. A nil
// enabled keeps all of them.
func (r *Registry) Filter(enabled func(name string) bool) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(r.executors))
	for _, e := range r.executors {
		def := e.Definition()
		if enabled != nil && !enabled(def.Name) {
			continue
		}
		defs = append(defs, def)
	}
	return defs
}

// Lookup finds an executor by name, ignoring case.
func (r *Registry) Lookup(name string) (Executor, bool) {
	e, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// Execute parses the raw JSON arguments of a tool call, checks required
// parameters and runs the matching executor.
func (r *Registry) Execute(ctx context.Context, name, rawArgs string) (string, error) {
	e, ok := r.Lookup(name)
	if !ok {
		return "", toolError(name, model.ToolErrNotFound, fmt.Errorf("no tool named %q", name))
	}
	def := e.Definition()

	args := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return "", toolError(def.Name, model.ToolErrArguments, fmt.Errorf("invalid JSON arguments: %w", err))
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	for _, p := range def.RequiredParameters() {
		if stringArg(args, p) == "" {
			return "", toolError(def.Name, model.ToolErrMissingArgument, fmt.Errorf("missing required argument %q", p))
		}
	}

	out, err := e.Execute(ctx, args)
	if err != nil {
		if te, ok := err.(*model.ToolExecutionError); ok {
			if te.ToolName == "" {
				te.ToolName = def.Name
			}
			return "", te
		}
		return "", toolError(def.Name, "", err)
	}
	return out, nil
}

func toolError(name, kind string, cause error) *model.ToolExecutionError {
	return &model.ToolExecutionError{ToolName: name, Kind: kind, Cause: cause}
}

// stringArg returns args[name] as a trimmed string; non-string values are
// formatted.
func stringArg(args map[string]any, name string) string {
	v, ok := args[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

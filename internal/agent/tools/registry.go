// Package tools holds the capabilities the chat agent may invoke while
// deciding a turn.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/hcp-logger/backend/internal/config"
)

// Registry is a fixed set of named tools. It is built once and read-only
// afterwards, so a single instance serves concurrent turns.
type Registry struct {
	tools  map[string]tool.InvokableTool
	infos  []*schema.ToolInfo
	logger *slog.Logger
}

// NewRegistry collects the tools and their declared schemas. Tool names must
// be unique.
func NewRegistry(ctx context.Context, logger *slog.Logger, items ...tool.InvokableTool) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		tools:  make(map[string]tool.InvokableTool, len(items)),
		infos:  make([]*schema.ToolInfo, 0, len(items)),
		logger: logger.With("component", "tools"),
	}
	for _, item := range items {
		info, err := item.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("read tool info: %w", err)
		}
		if info == nil || info.Name == "" {
			return nil, fmt.Errorf("tool info must carry a name")
		}
		if _, dup := r.tools[info.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", info.Name)
		}
		r.tools[info.Name] = item
		r.infos = append(r.infos, info)
	}

	sort.Slice(r.infos, func(i, j int) bool { return r.infos[i].Name < r.infos[j].Name })
	return r, nil
}

// Infos returns the tool schemas, sorted by name, for binding to a chat model.
func (r *Registry) Infos() []*schema.ToolInfo {
	return append([]*schema.ToolInfo(nil), r.infos...)
}

// Names lists the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.infos))
	for _, info := range r.infos {
		names = append(names, info.Name)
	}
	return names
}

// Invoke runs the named tool with JSON arguments. Failures come back as
// *UnknownToolError or *ExecutionError; a panicking tool is reported as an
// execution error.
func (r *Registry) Invoke(ctx context.Context, name, arguments string) (result string, err error) {
	t, ok := r.tools[name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		return "", &UnknownToolError{Name: name}
	}

	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = ""
			err = &ExecutionError{Name: name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	r.logger.Debug("invoking tool", "tool", name)
	r.logger.Log(ctx, config.LevelTrace, "tool arguments", "tool", name, "arguments", arguments)
	out, runErr := t.InvokableRun(ctx, arguments)
	if runErr != nil {
		r.logger.Warn("tool failed", "tool", name, "err", runErr)
		return "", &ExecutionError{Name: name, Err: runErr}
	}
	r.logger.Log(ctx, config.LevelTrace, "tool output", "tool", name, "output", out)
	return out, nil
}

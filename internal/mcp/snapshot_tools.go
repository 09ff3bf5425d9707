package mcp

import (
	"context"
	"fmt"
	"time"

	"desknerd-mcp-server/internal/automation"
	"desknerd-mcp-server/internal/config"
	"desknerd-mcp-server/internal/facts"
	"desknerd-mcp-server/internal/snapshot"
)

// SnapshotTool captures the accessibility tree of one window as an indented
// outline with element refs. This is the observation half of the workflow;
// the refs feed windows_click, windows_set_value, and windows_get_value.
type SnapshotTool struct {
	windows *automation.WindowManager
	engine  *facts.Engine
	cfg     config.SnapshotConfig
}

func (t *SnapshotTool) Name() string { return "windows_snapshot" }
func (t *SnapshotTool) Description() string {
	return `Capture a compact text snapshot of a window's UI tree.

Each line is one element: role, name, a ref token, and state tags, e.g.
  - button "Seven" [ref=w1e4]
Indentation (2 spaces per level) shows nesting.

REFS: use the [ref=...] token with windows_click / windows_set_value /
windows_get_value. Refs stay valid until the NEXT snapshot of the same
window (or the window closes); then they go stale and the tools report
not-found. Re-snapshot and use the fresh refs.

FILTERS (optional):
- all: everything (default)
- interactive: only clickable/typeable controls
- text: only text content
- structure: only containers (windows, groups, lists, ...)

Output is capped (maxElements, default 200). "truncated": true means the
tree was cut off; raise maxElements or narrow with filter/maxDepth.`
}
func (t *SnapshotTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"windowId": map[string]interface{}{
				"type":        "string",
				"description": "Target window (from windows_launch or windows_list_windows)",
			},
			"maxDepth": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum tree depth to descend (default: 10)",
			},
			"maxElements": map[string]interface{}{
				"type":        "integer",
				"description": "Hard cap on emitted elements (default: 200)",
			},
			"filter": map[string]interface{}{
				"type":        "string",
				"description": "Role filter (default: all)",
				"enum":        []string{"all", "interactive", "text", "structure"},
			},
		},
		"required": []string{"windowId"},
	}
}
func (t *SnapshotTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := getStringArg(args, "windowId")
	if id == "" {
		return nil, fmt.Errorf("windowId is required")
	}

	win, ok := t.windows.Window(id)
	if !ok {
		return nil, fmt.Errorf("window not found: %s", id)
	}

	filter := getStringArg(args, "filter")
	if filter == "" {
		filter = t.cfg.GetFilter()
	}

	opts := snapshot.Options{
		MaxDepth:      getIntArg(args, "maxDepth", t.cfg.GetMaxDepth()),
		MaxElements:   getIntArg(args, "maxElements", t.cfg.GetMaxElements()),
		NameMaxLength: t.cfg.GetNameMaxLength(),
		Filter:        snapshot.ParseFilter(filter),
	}

	builder := snapshot.NewBuilder(t.windows.Registry())
	result := builder.Build(id, win.Root(), opts)

	t.emitFacts(ctx, id, result)

	return map[string]interface{}{
		"windowId":  id,
		"snapshot":  result.Text,
		"elements":  len(result.Lines),
		"truncated": result.Truncated,
	}, nil
}

// emitFacts mirrors the snapshot into the facts engine so agents can reason
// over element structure with queries and rules.
func (t *SnapshotTool) emitFacts(ctx context.Context, windowID string, result snapshot.Result) {
	if t.engine == nil {
		return
	}

	now := time.Now()
	fs := make([]facts.Fact, 0, len(result.Lines)+1)
	fs = append(fs, facts.Fact{
		Predicate: "snapshot_taken",
		Args:      []interface{}{windowID, len(result.Lines), result.Truncated},
		Timestamp: now,
	})
	for _, line := range result.Lines {
		fs = append(fs, facts.Fact{
			Predicate: "ax_element",
			Args:      []interface{}{windowID, line.Ref, string(line.Role), line.Name},
			Timestamp: now,
		})
		for _, tag := range line.States {
			fs = append(fs, facts.Fact{
				Predicate: "ax_state",
				Args:      []interface{}{windowID, line.Ref, tag},
				Timestamp: now,
			})
		}
	}

	// Snapshot facts are best-effort context; the snapshot itself already
	// succeeded.
	_ = t.engine.AddFacts(ctx, fs)
}

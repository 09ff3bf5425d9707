package mcp

import (
	"context"
	"fmt"
	"time"

	"desknerd-mcp-server/internal/automation"
	"desknerd-mcp-server/internal/facts"
	"desknerd-mcp-server/internal/snapshot"
)

// staleRefHint explains the one recoverable failure every ref-taking tool
// shares.
const staleRefHint = "ref not found (stale after re-snapshot or window close?): take a fresh windows_snapshot and retry with the new ref"

func resolveRef(windows *automation.WindowManager, ref string) (automation.Node, string, error) {
	if ref == "" {
		return nil, "", fmt.Errorf("ref is required")
	}
	node, ok := windows.Resolve(ref)
	if !ok {
		return nil, "", fmt.Errorf("%s: %s", ref, staleRefHint)
	}
	scope, _, ok := automation.ParseRef(ref)
	if !ok {
		scope = ""
	}
	return node, scope, nil
}

func emitAction(ctx context.Context, engine *facts.Engine, windowID, ref, action string) {
	if engine == nil {
		return
	}
	_ = engine.AddFacts(ctx, []facts.Fact{{
		Predicate: "ui_action",
		Args:      []interface{}{windowID, ref, action},
		Timestamp: time.Now(),
	}})
}

// ClickTool performs an element's default action: invoke for buttons and
// menu items, toggle for checkboxes, select for list items and tabs.
type ClickTool struct {
	windows *automation.WindowManager
	engine  *facts.Engine
}

func (t *ClickTool) Name() string { return "windows_click" }
func (t *ClickTool) Description() string {
	return `Click an element by its snapshot ref.

Picks the element's natural action automatically:
- buttons, menu items, links -> invoke
- checkboxes, radio buttons -> toggle
- list items, tabs -> select

Take a windows_snapshot first to get refs. Stale refs (from before the
latest snapshot) report not-found; re-snapshot and retry.`
}
func (t *ClickTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"ref": map[string]interface{}{
				"type":        "string",
				"description": "Element ref from windows_snapshot (e.g. w1e4)",
			},
		},
		"required": []string{"ref"},
	}
}
func (t *ClickTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ref := getStringArg(args, "ref")
	node, windowID, err := resolveRef(t.windows, ref)
	if err != nil {
		return nil, err
	}

	action := ""
	switch {
	case hasInvoke(node):
		invoke, _ := node.Invoke()
		if err := invoke.Do(); err != nil {
			return nil, fmt.Errorf("invoking %s: %w", ref, err)
		}
		action = "invoke"
	case hasToggle(node):
		toggle, _ := node.Toggle()
		if err := toggle.Toggle(); err != nil {
			return nil, fmt.Errorf("toggling %s: %w", ref, err)
		}
		action = "toggle"
	case hasSelection(node):
		selection, _ := node.Selection()
		if err := selection.Select(); err != nil {
			return nil, fmt.Errorf("selecting %s: %w", ref, err)
		}
		action = "select"
	default:
		return nil, fmt.Errorf("element %s supports no click-like action", ref)
	}

	emitAction(ctx, t.engine, windowID, ref, action)
	return map[string]interface{}{"ref": ref, "action": action}, nil
}

func hasInvoke(n automation.Node) bool {
	_, ok := n.Invoke()
	return ok
}

func hasToggle(n automation.Node) bool {
	_, ok := n.Toggle()
	return ok
}

func hasSelection(n automation.Node) bool {
	_, ok := n.Selection()
	return ok
}

// SetValueTool writes an element's value through its value capability.
type SetValueTool struct {
	windows *automation.WindowManager
	engine  *facts.Engine
}

func (t *SetValueTool) Name() string { return "windows_set_value" }
func (t *SetValueTool) Description() string {
	return `Set the value of a text box, combo box, or slider by ref.

Replaces the whole value. Use windows_type instead to append keystrokes to
the focused window. Fails on read-only elements and elements without a
value capability.`
}
func (t *SetValueTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"ref": map[string]interface{}{
				"type":        "string",
				"description": "Element ref from windows_snapshot",
			},
			"value": map[string]interface{}{
				"type":        "string",
				"description": "New value",
			},
		},
		"required": []string{"ref", "value"},
	}
}
func (t *SetValueTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ref := getStringArg(args, "ref")
	node, windowID, err := resolveRef(t.windows, ref)
	if err != nil {
		return nil, err
	}

	value, ok := node.Value()
	if !ok {
		return nil, fmt.Errorf("element %s has no value capability", ref)
	}
	if err := value.Set(getStringArg(args, "value")); err != nil {
		return nil, fmt.Errorf("setting value on %s: %w", ref, err)
	}

	emitAction(ctx, t.engine, windowID, ref, "set_value")
	return map[string]interface{}{"ref": ref, "action": "set_value"}, nil
}

// GetValueTool reads an element's current value and state by ref.
type GetValueTool struct {
	windows *automation.WindowManager
}

func (t *GetValueTool) Name() string { return "windows_get_value" }
func (t *GetValueTool) Description() string {
	return `Read an element's current value and state tags by ref.

Returns: {ref, role, name, value?, states}. Value is present only for
elements with a value capability.`
}
func (t *GetValueTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"ref": map[string]interface{}{
				"type":        "string",
				"description": "Element ref from windows_snapshot",
			},
		},
		"required": []string{"ref"},
	}
}
func (t *GetValueTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	ref := getStringArg(args, "ref")
	node, _, err := resolveRef(t.windows, ref)
	if err != nil {
		return nil, err
	}

	role, name := snapshot.Classify(node)
	result := map[string]interface{}{
		"ref":    ref,
		"role":   string(role),
		"name":   name,
		"states": snapshot.States(node),
	}
	if value, ok := node.Value(); ok {
		if current, ok := value.Get(); ok {
			result["value"] = current
		}
	}
	return result, nil
}

// ExpandTool expands or collapses a tree item, combo box, or menu by ref.
type ExpandTool struct {
	windows *automation.WindowManager
	engine  *facts.Engine
}

func (t *ExpandTool) Name() string { return "windows_expand" }
func (t *ExpandTool) Description() string {
	return `Expand or collapse an element by ref.

Works on elements with the expand/collapse capability (tree items, combo
boxes, menus). New children revealed by expanding are NOT in the current
snapshot; take a fresh windows_snapshot to see them and get their refs.`
}
func (t *ExpandTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"ref": map[string]interface{}{
				"type":        "string",
				"description": "Element ref from windows_snapshot",
			},
			"expand": map[string]interface{}{
				"type":        "boolean",
				"description": "true to expand, false to collapse (default: true)",
			},
		},
		"required": []string{"ref"},
	}
}
func (t *ExpandTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ref := getStringArg(args, "ref")
	node, windowID, err := resolveRef(t.windows, ref)
	if err != nil {
		return nil, err
	}

	expand, ok := node.ExpandCollapse()
	if !ok {
		return nil, fmt.Errorf("element %s has no expand/collapse capability", ref)
	}

	action := "expand"
	if getBoolArg(args, "expand", true) {
		err = expand.Expand()
	} else {
		action = "collapse"
		err = expand.Collapse()
	}
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", action, ref, err)
	}

	emitAction(ctx, t.engine, windowID, ref, action)
	return map[string]interface{}{"ref": ref, "action": action}, nil
}

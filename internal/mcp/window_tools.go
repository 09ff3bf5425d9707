package mcp

import (
	"context"
	"fmt"

	"desknerd-mcp-server/internal/automation"
	"desknerd-mcp-server/internal/config"
	"desknerd-mcp-server/internal/facts"
)

type StatusTool struct {
	windows *automation.WindowManager
	engine  *facts.Engine
	cfg     config.Config
}

func (t *StatusTool) Name() string { return "windows_status" }
func (t *StatusTool) Description() string {
	return `Report server health and diagnostics.

Returns: server name/version, automation driver, number of tracked windows,
number of live element references, and the facts buffer size.

USE THIS to verify the server is responsive before starting automation.`
}
func (t *StatusTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *StatusTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	result := map[string]interface{}{
		"name":    t.cfg.Server.Name,
		"version": t.cfg.Server.Version,
		"driver":  t.cfg.Automation.Driver,
		"windows": t.windows.Count(),
		"refs":    t.windows.Registry().Count(),
	}
	if t.engine != nil {
		result["facts"] = t.engine.Len()
	}
	return result, nil
}

type LaunchTool struct {
	windows *automation.WindowManager
}

func (t *LaunchTool) Name() string { return "windows_launch" }
func (t *LaunchTool) Description() string {
	return `Launch an application and wait for its main window.

Returns: {windowId, title, app}. The windowId is the handle for all other
window tools and the prefix of every element ref in its snapshots.

WORKFLOW:
1. windows_launch -> get windowId
2. windows_snapshot -> see elements and their refs
3. windows_click / windows_set_value -> act on refs`
}
func (t *LaunchTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"app": map[string]interface{}{
				"type":        "string",
				"description": "Application to launch (e.g. notepad.exe)",
			},
		},
		"required": []string{"app"},
	}
}
func (t *LaunchTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	app := getStringArg(args, "app")
	if app == "" {
		return nil, fmt.Errorf("app is required")
	}

	info, err := t.windows.Launch(ctx, app)
	if err != nil {
		return nil, err
	}
	return info, nil
}

type ListWindowsTool struct {
	windows *automation.WindowManager
}

func (t *ListWindowsTool) Name() string { return "windows_list_windows" }
func (t *ListWindowsTool) Description() string {
	return `List all windows tracked by the server.

Returns: {windows: [{windowId, title, app, focused}]}.

USE THIS FIRST to discover existing windows before launching new ones.`
}
func (t *ListWindowsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *ListWindowsTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{"windows": t.windows.List(ctx)}, nil
}

type FocusTool struct {
	windows *automation.WindowManager
}

func (t *FocusTool) Name() string { return "windows_focus" }
func (t *FocusTool) Description() string {
	return `Bring a window to the foreground.

PREREQUISITE for windows_type and windows_press_key on most desktops:
keystrokes land in the focused window.`
}
func (t *FocusTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"windowId": map[string]interface{}{
				"type":        "string",
				"description": "Target window (from windows_launch or windows_list_windows)",
			},
		},
		"required": []string{"windowId"},
	}
}
func (t *FocusTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := getStringArg(args, "windowId")
	if id == "" {
		return nil, fmt.Errorf("windowId is required")
	}
	if err := t.windows.Focus(ctx, id); err != nil {
		return nil, err
	}
	return map[string]interface{}{"windowId": id, "focused": true}, nil
}

type CloseTool struct {
	windows *automation.WindowManager
}

func (t *CloseTool) Name() string { return "windows_close" }
func (t *CloseTool) Description() string {
	return `Close a window.

Closing invalidates every element ref issued for that window; take a fresh
snapshot of other windows before reusing old refs.`
}
func (t *CloseTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"windowId": map[string]interface{}{
				"type":        "string",
				"description": "Target window to close",
			},
		},
		"required": []string{"windowId"},
	}
}
func (t *CloseTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := getStringArg(args, "windowId")
	if id == "" {
		return nil, fmt.Errorf("windowId is required")
	}
	if err := t.windows.Close(ctx, id); err != nil {
		return nil, err
	}
	return map[string]interface{}{"windowId": id, "closed": true}, nil
}

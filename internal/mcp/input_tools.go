package mcp

import (
	"context"
	"encoding/base64"
	"fmt"

	"desknerd-mcp-server/internal/automation"
)

// TypeTool sends keystrokes to a window's focused editable element.
type TypeTool struct {
	windows *automation.WindowManager
}

func (t *TypeTool) Name() string { return "windows_type" }
func (t *TypeTool) Description() string {
	return `Type text into a window as keystrokes.

Appends to whatever editable element currently has focus inside the
window. Use windows_set_value to replace a specific element's value
instead. Use windows_press_key for non-printing keys (Enter, Tab, ...).`
}
func (t *TypeTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"windowId": map[string]interface{}{
				"type":        "string",
				"description": "Window ID from windows_launch or windows_list_windows",
			},
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Text to type",
			},
		},
		"required": []string{"windowId", "text"},
	}
}
func (t *TypeTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := getStringArg(args, "windowId")
	text := getStringArg(args, "text")
	if id == "" {
		return nil, fmt.Errorf("windowId is required")
	}
	if err := t.windows.TypeText(ctx, id, text); err != nil {
		return nil, err
	}
	return map[string]interface{}{"windowId": id, "typed": len(text)}, nil
}

// PressKeyTool sends a key chord to a window.
type PressKeyTool struct {
	windows *automation.WindowManager
}

func (t *PressKeyTool) Name() string { return "windows_press_key" }
func (t *PressKeyTool) Description() string {
	return `Press one or more keys in a window, pressed together as a chord.

Examples: ["Enter"], ["Ctrl", "S"], ["Alt", "F4"]. For plain text use
windows_type.`
}
func (t *PressKeyTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"windowId": map[string]interface{}{
				"type":        "string",
				"description": "Window ID from windows_launch or windows_list_windows",
			},
			"keys": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": `Keys pressed together, e.g. ["Ctrl", "S"]`,
			},
		},
		"required": []string{"windowId", "keys"},
	}
}
func (t *PressKeyTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := getStringArg(args, "windowId")
	keys := getStringSliceArg(args, "keys")
	if id == "" {
		return nil, fmt.Errorf("windowId is required")
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("keys is required")
	}
	if err := t.windows.PressKeys(ctx, id, keys); err != nil {
		return nil, err
	}
	return map[string]interface{}{"windowId": id, "keys": keys}, nil
}

// ScreenshotTool captures a window (or the desktop) as PNG.
type ScreenshotTool struct {
	windows *automation.WindowManager
}

func (t *ScreenshotTool) Name() string { return "windows_screenshot" }
func (t *ScreenshotTool) Description() string {
	return `Capture a screenshot as base64-encoded PNG.

With windowId, captures that window; without, captures the whole desktop.
Prefer windows_snapshot for reading UI structure; screenshots are for
visual verification only.`
}
func (t *ScreenshotTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"windowId": map[string]interface{}{
				"type":        "string",
				"description": "Window to capture; omit for the whole desktop",
			},
		},
	}
}
func (t *ScreenshotTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := getStringArg(args, "windowId")
	png, err := t.windows.Screenshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"windowId": id,
		"mimeType": "image/png",
		"data":     base64.StdEncoding.EncodeToString(png),
	}, nil
}

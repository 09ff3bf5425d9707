// Package automation abstracts the desktop accessibility layer behind a
// driver interface so the snapshot engine and MCP tools never touch a
// platform API directly. The "sim" driver ships in-process; platform
// drivers (UIA, AX) register through OpenDriver on their build targets.
package automation

import (
	"context"
	"fmt"

	"desknerd-mcp-server/internal/config"
)

// Kind identifies the underlying control type the driver reports for a node.
// The snapshot classifier maps kinds onto its closed role vocabulary; anything
// a driver cannot express maps to KindUnknown.
type Kind int

const (
	KindUnknown Kind = iota
	KindButton
	KindEdit
	KindText
	KindCheckBox
	KindRadioButton
	KindComboBox
	KindList
	KindListItem
	KindMenu
	KindMenuItem
	KindMenuBar
	KindTree
	KindTreeItem
	KindTabControl
	KindTabItem
	KindTable
	KindRow
	KindHeader
	KindHeaderItem
	KindSlider
	KindSpinner
	KindProgressBar
	KindHyperlink
	KindImage
	KindGroup
	KindWindow
	KindDocument
	KindToolBar
	KindToolTip
	KindScrollBar
	KindStatusBar
	KindSeparator
	KindThumb
	KindTitleBar
	KindDataGrid
	KindCustom
)

// ToggleState is the tri-state result of a toggle capability query.
type ToggleState int

const (
	ToggleOff ToggleState = iota
	ToggleOn
	ToggleIndeterminate
)

// ExpandState is the tri-state result of an expand/collapse capability query.
type ExpandState int

const (
	// ExpandLeaf means the node does not currently expand or collapse.
	ExpandLeaf ExpandState = iota
	ExpandExpanded
	ExpandCollapsed
)

// Node is an opaque handle to one element of a live, externally owned UI
// tree. Property accessors return (value, ok); ok=false means the read was
// unavailable (the element vanished, the provider threw, the property is
// unsupported) and callers must treat the value as absent, never as an error.
// Capability accessors return (capability, ok); ok=false means the node does
// not advertise that capability and its methods must not be assumed safe.
type Node interface {
	Kind() (Kind, bool)
	Name() (string, bool)
	AutomationID() (string, bool)
	Enabled() (bool, bool)
	Offscreen() (bool, bool)

	Value() (ValueAccess, bool)
	Toggle() (ToggleAccess, bool)
	Selection() (SelectionAccess, bool)
	ExpandCollapse() (ExpandAccess, bool)
	Invoke() (InvokeAccess, bool)

	// Children enumerates immediate children. The enumeration itself may
	// fail transiently; callers treat an error as "no children".
	Children() ([]Node, error)
}

// ValueAccess reads and writes a node's value (text boxes, sliders, ...).
type ValueAccess interface {
	Get() (string, bool)
	ReadOnly() (bool, bool)
	Set(value string) error
}

// ToggleAccess queries and flips a node's checked state.
type ToggleAccess interface {
	State() (ToggleState, bool)
	Toggle() error
}

// SelectionAccess queries and sets a node's selected state.
type SelectionAccess interface {
	Selected() (bool, bool)
	Select() error
}

// ExpandAccess queries and changes a node's expand/collapse state.
type ExpandAccess interface {
	State() (ExpandState, bool)
	Expand() error
	Collapse() error
}

// InvokeAccess performs the node's default action (click).
type InvokeAccess interface {
	Do() error
}

// Window is a driver-owned top-level window.
type Window interface {
	// Handle is the driver-native window identifier, stable while the
	// window lives.
	Handle() string
	Title() (string, bool)
	App() string
	Root() Node
}

// Driver is the desktop automation backend. All methods take a context so
// platform drivers can honor caller deadlines; the sim driver ignores them.
type Driver interface {
	// Launch starts an application and returns its main window.
	Launch(ctx context.Context, app string) (Window, error)
	// Windows lists all top-level windows the driver currently sees.
	Windows(ctx context.Context) ([]Window, error)
	Close(ctx context.Context, w Window) error
	Focus(ctx context.Context, w Window) error
	// Focused reports the currently foreground window, if any.
	Focused(ctx context.Context) (Window, bool)

	TypeText(ctx context.Context, w Window, text string) error
	PressKeys(ctx context.Context, w Window, keys []string) error
	// Screenshot returns PNG bytes for the window, or the whole desktop
	// when w is nil.
	Screenshot(ctx context.Context, w Window) ([]byte, error)

	Shutdown() error
}

// OpenDriver resolves the configured driver backend.
func OpenDriver(cfg config.AutomationConfig) (Driver, error) {
	switch cfg.Driver {
	case "sim":
		return NewSimDriver(cfg.AppsPath)
	default:
		return nil, fmt.Errorf("unknown automation driver: %q", cfg.Driver)
	}
}

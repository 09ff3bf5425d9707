// Package snapshot turns a live automation tree into a compact, agent
// readable text outline. Every surfaced element gets a short reference token
// other tools can resolve back to the live node for the lifetime of the
// snapshot.
package snapshot

import (
	"strings"

	"desknerd-mcp-server/internal/automation"
)

// Role is the closed vocabulary of semantic role tags a snapshot line can
// carry. Agents parse these by convention; the set never grows silently.
type Role string

const (
	RoleButton       Role = "button"
	RoleTextbox      Role = "textbox"
	RoleText         Role = "text"
	RoleCheckbox     Role = "checkbox"
	RoleRadio        Role = "radio"
	RoleCombobox     Role = "combobox"
	RoleList         Role = "list"
	RoleListItem     Role = "listitem"
	RoleMenu         Role = "menu"
	RoleMenuItem     Role = "menuitem"
	RoleMenuBar      Role = "menubar"
	RoleTree         Role = "tree"
	RoleTreeItem     Role = "treeitem"
	RoleTabList      Role = "tablist"
	RoleTab          Role = "tab"
	RoleTable        Role = "table"
	RoleRow          Role = "row"
	RoleHeader       Role = "header"
	RoleColumnHeader Role = "columnheader"
	RoleSlider       Role = "slider"
	RoleSpinButton   Role = "spinbutton"
	RoleProgressBar  Role = "progressbar"
	RoleLink         Role = "link"
	RoleImage        Role = "image"
	RoleGroup        Role = "group"
	RoleWindow       Role = "window"
	RoleDocument     Role = "document"
	RoleToolbar      Role = "toolbar"
	RoleTooltip      Role = "tooltip"
	RoleScrollBar    Role = "scrollbar"
	RoleStatus       Role = "status"
	RoleSeparator    Role = "separator"
	RoleThumb        Role = "thumb"
	RoleTitleBar     Role = "titlebar"
	RoleGrid         Role = "grid"
	RoleCustom       Role = "custom"
	RoleElement      Role = "element"
)

// maxFallbackIDLength bounds the automation-id fallback; anything longer is
// machine noise, not a name.
const maxFallbackIDLength = 50

var kindRoles = map[automation.Kind]Role{
	automation.KindButton:      RoleButton,
	automation.KindEdit:        RoleTextbox,
	automation.KindText:        RoleText,
	automation.KindCheckBox:    RoleCheckbox,
	automation.KindRadioButton: RoleRadio,
	automation.KindComboBox:    RoleCombobox,
	automation.KindList:        RoleList,
	automation.KindListItem:    RoleListItem,
	automation.KindMenu:        RoleMenu,
	automation.KindMenuItem:    RoleMenuItem,
	automation.KindMenuBar:     RoleMenuBar,
	automation.KindTree:        RoleTree,
	automation.KindTreeItem:    RoleTreeItem,
	automation.KindTabControl:  RoleTabList,
	automation.KindTabItem:     RoleTab,
	automation.KindTable:       RoleTable,
	automation.KindRow:         RoleRow,
	automation.KindHeader:      RoleHeader,
	automation.KindHeaderItem:  RoleColumnHeader,
	automation.KindSlider:      RoleSlider,
	automation.KindSpinner:     RoleSpinButton,
	automation.KindProgressBar: RoleProgressBar,
	automation.KindHyperlink:   RoleLink,
	automation.KindImage:       RoleImage,
	automation.KindGroup:       RoleGroup,
	automation.KindWindow:      RoleWindow,
	automation.KindDocument:    RoleDocument,
	automation.KindToolBar:     RoleToolbar,
	automation.KindToolTip:     RoleTooltip,
	automation.KindScrollBar:   RoleScrollBar,
	automation.KindStatusBar:   RoleStatus,
	automation.KindSeparator:   RoleSeparator,
	automation.KindThumb:       RoleThumb,
	automation.KindTitleBar:    RoleTitleBar,
	automation.KindDataGrid:    RoleGrid,
	automation.KindCustom:      RoleCustom,
}

// Classify maps a node onto its role tag and display name. Query-only and
// total: an unreadable kind classifies as a generic element, an unreadable
// name resolves to no name. It never mutates the node and never fails.
func Classify(n automation.Node) (Role, string) {
	role := RoleElement
	if kind, ok := n.Kind(); ok {
		if mapped, known := kindRoles[kind]; known {
			role = mapped
		}
	}
	return role, resolveName(n)
}

// resolveName prefers the human-readable display name; a blank name falls
// back to the stable automation id in brackets when the id is short enough
// to be meaningful.
func resolveName(n automation.Node) string {
	if name, ok := n.Name(); ok {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			return trimmed
		}
	}
	if id, ok := n.AutomationID(); ok {
		if id != "" && len(id) < maxFallbackIDLength {
			return "[" + id + "]"
		}
	}
	return ""
}

package snapshot

import "desknerd-mcp-server/internal/automation"

// States derives the node's state tags in their fixed output order:
// disabled, offscreen, readonly, checked|indeterminate, selected,
// expanded|collapsed. Only capabilities the node advertises are queried, and
// any unavailable read contributes nothing; a node that fails every read
// yields an empty tag set rather than aborting the snapshot. Tri-state
// capabilities (toggle, expand/collapse) stay silent in their neutral state.
func States(n automation.Node) []string {
	var tags []string

	if enabled, ok := n.Enabled(); ok && !enabled {
		tags = append(tags, "disabled")
	}
	if offscreen, ok := n.Offscreen(); ok && offscreen {
		tags = append(tags, "offscreen")
	}
	if value, ok := n.Value(); ok {
		if readOnly, ok := value.ReadOnly(); ok && readOnly {
			tags = append(tags, "readonly")
		}
	}
	if toggle, ok := n.Toggle(); ok {
		if state, ok := toggle.State(); ok {
			switch state {
			case automation.ToggleOn:
				tags = append(tags, "checked")
			case automation.ToggleIndeterminate:
				tags = append(tags, "indeterminate")
			}
		}
	}
	if selection, ok := n.Selection(); ok {
		if selected, ok := selection.Selected(); ok && selected {
			tags = append(tags, "selected")
		}
	}
	if expand, ok := n.ExpandCollapse(); ok {
		if state, ok := expand.State(); ok {
			switch state {
			case automation.ExpandExpanded:
				tags = append(tags, "expanded")
			case automation.ExpandCollapsed:
				tags = append(tags, "collapsed")
			}
		}
	}

	return tags
}

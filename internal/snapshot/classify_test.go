package snapshot

import (
	"strings"
	"testing"

	"desknerd-mcp-server/internal/automation"
)

func TestClassifyRoles(t *testing.T) {
	tests := []struct {
		kind string
		want Role
	}{
		{"button", RoleButton},
		{"edit", RoleTextbox},
		{"checkbox", RoleCheckbox},
		{"tabcontrol", RoleTabList},
		{"headeritem", RoleColumnHeader},
		{"spinner", RoleSpinButton},
		{"hyperlink", RoleLink},
		{"statusbar", RoleStatus},
		{"datagrid", RoleGrid},
		{"custom", RoleCustom},
		{"pane", RoleElement}, // unknown provider kind
	}
	for _, tt := range tests {
		n := automation.NewSimNode(automation.NodeSpec{Kind: tt.kind, Name: "x"})
		role, _ := Classify(n)
		if role != tt.want {
			t.Errorf("Classify(kind=%s) role = %q, want %q", tt.kind, role, tt.want)
		}
	}
}

func TestClassifyUnreadableKindIsElement(t *testing.T) {
	n := automation.NewSimNode(automation.NodeSpec{
		Kind: "button", Name: "OK",
		Unreadable: []string{"kind"},
	})
	role, name := Classify(n)
	if role != RoleElement {
		t.Errorf("role = %q, want element when the kind read fails", role)
	}
	if name != "OK" {
		t.Errorf("name = %q, want OK (name read still works)", name)
	}
}

func TestClassifyNameResolution(t *testing.T) {
	tests := []struct {
		desc string
		spec automation.NodeSpec
		want string
	}{
		{
			desc: "display name wins",
			spec: automation.NodeSpec{Kind: "button", Name: "Seven", AutomationID: "num7Button"},
			want: "Seven",
		},
		{
			desc: "name is trimmed",
			spec: automation.NodeSpec{Kind: "button", Name: "  Seven  "},
			want: "Seven",
		},
		{
			desc: "blank name falls back to bracketed id",
			spec: automation.NodeSpec{Kind: "button", AutomationID: "num7Button"},
			want: "[num7Button]",
		},
		{
			desc: "whitespace-only name falls back",
			spec: automation.NodeSpec{Kind: "button", Name: "   ", AutomationID: "num7Button"},
			want: "[num7Button]",
		},
		{
			desc: "overlong id is machine noise, no name",
			spec: automation.NodeSpec{Kind: "button", AutomationID: strings.Repeat("a", 50)},
			want: "",
		},
		{
			desc: "49-char id still qualifies",
			spec: automation.NodeSpec{Kind: "button", AutomationID: strings.Repeat("a", 49)},
			want: "[" + strings.Repeat("a", 49) + "]",
		},
		{
			desc: "unreadable name falls back to id",
			spec: automation.NodeSpec{Kind: "button", Name: "Seven", AutomationID: "num7Button", Unreadable: []string{"name"}},
			want: "[num7Button]",
		},
		{
			desc: "nothing readable, no name",
			spec: automation.NodeSpec{Kind: "button", Unreadable: []string{"name", "automation_id"}},
			want: "",
		},
	}
	for _, tt := range tests {
		_, name := Classify(automation.NewSimNode(tt.spec))
		if name != tt.want {
			t.Errorf("%s: name = %q, want %q", tt.desc, name, tt.want)
		}
	}
}

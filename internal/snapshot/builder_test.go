package snapshot

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"desknerd-mcp-server/internal/automation"
)

func buildTree(spec automation.NodeSpec) automation.Node {
	return automation.NewSimNode(spec)
}

func strptr(s string) *string { return &s }

func TestBuildCalcOutline(t *testing.T) {
	root := buildTree(automation.NodeSpec{
		Kind: "window", Name: "Calc",
		Children: []automation.NodeSpec{
			{Kind: "text", Name: "0", AutomationID: "display"},
			{Kind: "group", Name: "Number pad", Children: []automation.NodeSpec{
				{Kind: "button", Name: "Seven", Invokable: true},
				{Kind: "button", Name: "Eight", Invokable: true},
			}},
		},
	})

	b := NewBuilder(automation.NewRefRegistry())
	result := b.Build("w1", root, Options{})

	want := strings.Join([]string{
		`- window "Calc" [ref=w1e1]`,
		`  - text "0" [ref=w1e2]`,
		`  - group "Number pad" [ref=w1e3]`,
		`    - button "Seven" [ref=w1e4]`,
		`    - button "Eight" [ref=w1e5]`,
		``,
	}, "\n")

	if diff := cmp.Diff(want, result.Text); diff != "" {
		t.Errorf("outline mismatch (-want +got):\n%s", diff)
	}
	if result.Truncated {
		t.Errorf("Truncated = true for a tree well under the cap")
	}
	if len(result.Lines) != 5 {
		t.Errorf("len(Lines) = %d, want 5", len(result.Lines))
	}
}

func TestBuildRefsRestartPerSnapshot(t *testing.T) {
	root := buildTree(automation.NodeSpec{
		Kind: "window", Name: "App",
		Children: []automation.NodeSpec{{Kind: "button", Name: "OK", Invokable: true}},
	})

	refs := automation.NewRefRegistry()
	b := NewBuilder(refs)

	first := b.Build("w1", root, Options{})
	second := b.Build("w1", root, Options{})

	if first.Text != second.Text {
		t.Errorf("rebuild of an unchanged tree differs:\nfirst:\n%s\nsecond:\n%s", first.Text, second.Text)
	}
	if got := second.Lines[0].Ref; got != "w1e1" {
		t.Errorf("second snapshot root ref = %q, want w1e1", got)
	}
	// Only the latest snapshot's tokens may remain live.
	if got := refs.Count(); got != 2 {
		t.Errorf("registry holds %d refs after rebuild, want 2", got)
	}
}

func TestBuildSkipsUnnamedDecorativeChrome(t *testing.T) {
	root := buildTree(automation.NodeSpec{
		Kind: "window", Name: "App",
		Children: []automation.NodeSpec{
			{Kind: "separator"},
			{Kind: "pane", Name: "", Children: []automation.NodeSpec{
				{Kind: "button", Name: "Inside", Invokable: true},
			}},
			{Kind: "separator", Name: "Section break"},
		},
	})

	b := NewBuilder(automation.NewRefRegistry())
	result := b.Build("w1", root, Options{})

	text := result.Text
	if strings.Contains(text, "- separator [") {
		t.Errorf("unnamed separator was emitted:\n%s", text)
	}
	if !strings.Contains(text, `- separator "Section break"`) {
		t.Errorf("named separator missing:\n%s", text)
	}
	// Unknown kind maps to element; unnamed element is skipped but its
	// children indent as if it were emitted.
	if !strings.Contains(text, `    - button "Inside"`) {
		t.Errorf("child of skipped element not at depth 2:\n%s", text)
	}
}

func TestBuildFilterHidesNodeNotSubtree(t *testing.T) {
	root := buildTree(automation.NodeSpec{
		Kind: "window", Name: "App",
		Children: []automation.NodeSpec{
			{Kind: "group", Name: "Pad", Children: []automation.NodeSpec{
				{Kind: "button", Name: "OK", Invokable: true},
				{Kind: "text", Name: "hint"},
			}},
		},
	})

	b := NewBuilder(automation.NewRefRegistry())
	result := b.Build("w1", root, Options{Filter: FilterInteractive})

	want := "- button \"OK\" [ref=w1e1]\n"
	if result.Text != want {
		t.Errorf("interactive filter output = %q, want %q", result.Text, want)
	}
	// The window and group were hidden, not descended past: the button sits
	// at depth 0 because hidden ancestors contribute no indentation.
	if result.Lines[0].Depth != 0 {
		t.Errorf("button depth = %d, want 0", result.Lines[0].Depth)
	}
}

func TestBuildFilterIsMonotonic(t *testing.T) {
	root := buildTree(automation.NodeSpec{
		Kind: "window", Name: "App",
		Children: []automation.NodeSpec{
			{Kind: "text", Name: "label"},
			{Kind: "group", Name: "Pad", Children: []automation.NodeSpec{
				{Kind: "button", Name: "OK", Invokable: true},
				{Kind: "edit", Name: "Input", Value: strptr("")},
			}},
		},
	})

	all := NewBuilder(automation.NewRefRegistry()).Build("w1", root, Options{})
	allRoles := make(map[string]int)
	for _, l := range all.Lines {
		allRoles[string(l.Role)+"/"+l.Name]++
	}

	for _, filter := range []Filter{FilterInteractive, FilterText, FilterStructure} {
		got := NewBuilder(automation.NewRefRegistry()).Build("w1", root, Options{Filter: filter})
		for _, l := range got.Lines {
			if allRoles[string(l.Role)+"/"+l.Name] == 0 {
				t.Errorf("filter %s surfaced %s %q absent from the unfiltered snapshot", filter, l.Role, l.Name)
			}
		}
	}
}

func TestBuildElementCap(t *testing.T) {
	children := make([]automation.NodeSpec, 10)
	for i := range children {
		children[i] = automation.NodeSpec{Kind: "button", Name: "B", Invokable: true}
	}
	root := buildTree(automation.NodeSpec{Kind: "window", Name: "App", Children: children})

	b := NewBuilder(automation.NewRefRegistry())
	result := b.Build("w1", root, Options{MaxElements: 4})

	if len(result.Lines) != 4 {
		t.Errorf("len(Lines) = %d, want exactly the cap 4", len(result.Lines))
	}
	if !result.Truncated {
		t.Errorf("Truncated = false after the cap cut the traversal")
	}

	// A tree exactly at the cap is complete, not truncated.
	exact := buildTree(automation.NodeSpec{Kind: "window", Name: "App",
		Children: children[:3]})
	result = NewBuilder(automation.NewRefRegistry()).Build("w1", exact, Options{MaxElements: 4})
	if result.Truncated {
		t.Errorf("Truncated = true for a tree that fits the cap exactly")
	}
	if len(result.Lines) != 4 {
		t.Errorf("len(Lines) = %d, want 4", len(result.Lines))
	}
}

func TestBuildDepthLimit(t *testing.T) {
	root := buildTree(automation.NodeSpec{
		Kind: "window", Name: "d0",
		Children: []automation.NodeSpec{
			{Kind: "group", Name: "d1", Children: []automation.NodeSpec{
				{Kind: "group", Name: "d2", Children: []automation.NodeSpec{
					{Kind: "button", Name: "d3", Invokable: true},
				}},
			}},
		},
	})

	result := NewBuilder(automation.NewRefRegistry()).Build("w1", root, Options{MaxDepth: 2})

	if strings.Contains(result.Text, "d3") {
		t.Errorf("node beyond MaxDepth was emitted:\n%s", result.Text)
	}
	if !strings.Contains(result.Text, "d2") {
		t.Errorf("node at MaxDepth missing:\n%s", result.Text)
	}
	if result.Truncated {
		t.Errorf("depth-limited snapshot reported Truncated")
	}
}

func TestBuildSurvivesChildEnumerationFailure(t *testing.T) {
	root := buildTree(automation.NodeSpec{
		Kind: "window", Name: "App",
		Children: []automation.NodeSpec{
			{Kind: "list", Name: "Broken", FailChildren: true, Children: []automation.NodeSpec{
				{Kind: "listitem", Name: "never seen"},
			}},
			{Kind: "button", Name: "Still here", Invokable: true},
		},
	})

	result := NewBuilder(automation.NewRefRegistry()).Build("w1", root, Options{})

	if !strings.Contains(result.Text, `- list "Broken"`) {
		t.Errorf("failing node itself missing:\n%s", result.Text)
	}
	if strings.Contains(result.Text, "never seen") {
		t.Errorf("children of a failing enumeration were emitted:\n%s", result.Text)
	}
	if !strings.Contains(result.Text, `- button "Still here"`) {
		t.Errorf("sibling after the failure missing:\n%s", result.Text)
	}
}

func TestBuildNameTruncationAndEscaping(t *testing.T) {
	long := strings.Repeat("x", 60)
	root := buildTree(automation.NodeSpec{
		Kind: "window", Name: "App",
		Children: []automation.NodeSpec{
			{Kind: "text", Name: long},
			{Kind: "text", Name: "line1\nline2 \"quoted\" back\\slash"},
		},
	})

	result := NewBuilder(automation.NewRefRegistry()).Build("w1", root, Options{})

	wantTruncated := strings.Repeat("x", 50) + "…"
	if !strings.Contains(result.Text, `"`+wantTruncated+`"`) {
		t.Errorf("long name not truncated to 50 runes plus ellipsis:\n%s", result.Text)
	}
	if !strings.Contains(result.Text, `"line1\nline2 \"quoted\" back\\slash"`) {
		t.Errorf("name not escaped:\n%s", result.Text)
	}
	// Every emitted line stays physically one line.
	for _, line := range strings.Split(strings.TrimRight(result.Text, "\n"), "\n") {
		if !strings.HasPrefix(strings.TrimLeft(line, " "), "- ") {
			t.Errorf("malformed outline line: %q", line)
		}
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
	}{
		{"all", FilterAll},
		{"interactive", FilterInteractive},
		{"text", FilterText},
		{"structure", FilterStructure},
		{"", FilterAll},
		{"bogus", FilterAll},
	}
	for _, tt := range tests {
		if got := ParseFilter(tt.in); got != tt.want {
			t.Errorf("ParseFilter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

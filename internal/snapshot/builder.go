package snapshot

import (
	"strings"

	"desknerd-mcp-server/internal/automation"
)

// Filter narrows which roles a snapshot surfaces. Filtering hides a node
// without hiding its subtree: children of a filtered node are still visited.
type Filter string

const (
	FilterAll         Filter = "all"
	FilterInteractive Filter = "interactive"
	FilterText        Filter = "text"
	FilterStructure   Filter = "structure"
)

// ParseFilter maps a tool argument onto a Filter, defaulting to all.
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterInteractive, FilterText, FilterStructure:
		return Filter(s)
	default:
		return FilterAll
	}
}

// interactiveRoles are the actionable controls an agent can drive directly.
var interactiveRoles = map[Role]bool{
	RoleButton:   true,
	RoleTextbox:  true,
	RoleCheckbox: true,
	RoleRadio:    true,
	RoleCombobox: true,
	RoleListItem: true,
	RoleMenuItem: true,
	RoleTab:      true,
	RoleLink:     true,
	RoleSlider:   true,
}

var textRoles = map[Role]bool{
	RoleText:     true,
	RoleTextbox:  true,
	RoleDocument: true,
}

// structureRoles are the container roles that give a tree its shape.
var structureRoles = map[Role]bool{
	RoleWindow:  true,
	RoleGroup:   true,
	RoleList:    true,
	RoleTree:    true,
	RoleTabList: true,
	RoleMenu:    true,
	RoleToolbar: true,
	RoleGrid:    true,
	RoleTable:   true,
}

// decorativeRoles carry no meaning on their own; unnamed ones are noise and
// are skipped (their children are not).
var decorativeRoles = map[Role]bool{
	RoleElement:   true,
	RoleThumb:     true,
	RoleScrollBar: true,
	RoleSeparator: true,
	RoleTitleBar:  true,
}

func (f Filter) keeps(role Role) bool {
	switch f {
	case FilterInteractive:
		return interactiveRoles[role]
	case FilterText:
		return textRoles[role]
	case FilterStructure:
		return structureRoles[role]
	default:
		return true
	}
}

// Options bounds one snapshot traversal. Zero values fall back to the
// defaults below.
type Options struct {
	MaxDepth      int
	MaxElements   int
	NameMaxLength int
	Filter        Filter
}

const (
	DefaultMaxDepth      = 10
	DefaultMaxElements   = 200
	DefaultNameMaxLength = 50
)

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxElements <= 0 {
		o.MaxElements = DefaultMaxElements
	}
	if o.NameMaxLength <= 0 {
		o.NameMaxLength = DefaultNameMaxLength
	}
	if o.Filter == "" {
		o.Filter = FilterAll
	}
	return o
}

// Line is one emitted snapshot element.
type Line struct {
	Depth  int      `json:"depth"`
	Role   Role     `json:"role"`
	Name   string   `json:"name,omitempty"`
	Ref    string   `json:"ref"`
	States []string `json:"states,omitempty"`
}

// Result is an immutable snapshot value. Truncated is set only when the
// element cap cut the traversal short; depth-limited branches are
// indistinguishable from naturally ending ones.
type Result struct {
	Text      string
	Lines     []Line
	Truncated bool
}

// Builder orchestrates bounded traversals of automation trees, registering
// each surfaced element in the shared reference registry.
type Builder struct {
	refs *automation.RefRegistry
}

func NewBuilder(refs *automation.RefRegistry) *Builder {
	return &Builder{refs: refs}
}

// Build walks the tree under root and emits one line per surfaced element,
// pre-order, indented two spaces per depth level. Building a window scope
// first invalidates every token from that scope's previous snapshot; tokens
// are fresh each capture, never reused.
func (b *Builder) Build(windowScope string, root automation.Node, opts Options) Result {
	opts = opts.withDefaults()
	b.refs.Clear(windowScope)

	w := &walker{
		scope: windowScope,
		opts:  opts,
		refs:  b.refs,
	}
	w.visit(root, 0)

	return Result{
		Text:      w.text.String(),
		Lines:     w.lines,
		Truncated: w.truncated,
	}
}

type walker struct {
	scope     string
	opts      Options
	refs      *automation.RefRegistry
	text      strings.Builder
	lines     []Line
	truncated bool
}

// visit decides emit / skip-but-descend / stop for one node, then recurses.
// The element cap is checked before any classification work so a capped
// traversal stops paying for the external tree at each remaining node.
func (w *walker) visit(n automation.Node, depth int) {
	if w.truncated {
		return
	}
	if len(w.lines) >= w.opts.MaxElements {
		// Hard stop: the whole traversal ends here, not just this branch.
		w.truncated = true
		return
	}
	if depth > w.opts.MaxDepth {
		return
	}

	role, name := Classify(n)

	if !w.opts.Filter.keeps(role) {
		// Filtered nodes are hidden, not their subtrees. Children keep the
		// same depth so the outline shows no gap for the hidden node.
		w.descend(n, depth)
		return
	}

	if decorativeRoles[role] && name == "" {
		// Unnamed decorative chrome is noise; a named decorative node is
		// always emitted. Children descend a level as if the node were
		// emitted.
		w.descend(n, depth+1)
		return
	}

	ref := w.refs.Register(w.scope, n)
	states := States(n)
	name = truncateName(name, w.opts.NameMaxLength)

	line := Line{Depth: depth, Role: role, Name: name, Ref: ref, States: states}
	w.lines = append(w.lines, line)
	w.writeLine(line)

	w.descend(n, depth+1)
}

// descend enumerates children fresh and visits each. An enumeration failure
// means this node is a leaf; siblings and the rest of the traversal are
// unaffected.
func (w *walker) descend(n automation.Node, depth int) {
	children, err := n.Children()
	if err != nil {
		return
	}
	for _, child := range children {
		if w.truncated {
			return
		}
		w.visit(child, depth)
	}
}

func (w *walker) writeLine(l Line) {
	for i := 0; i < l.Depth; i++ {
		w.text.WriteString("  ")
	}
	w.text.WriteString("- ")
	w.text.WriteString(string(l.Role))
	if l.Name != "" {
		w.text.WriteString(` "`)
		w.text.WriteString(escapeName(l.Name))
		w.text.WriteString(`"`)
	}
	w.text.WriteString(" [ref=")
	w.text.WriteString(l.Ref)
	w.text.WriteString("]")
	for _, tag := range l.States {
		w.text.WriteString(" [")
		w.text.WriteString(tag)
		w.text.WriteString("]")
	}
	w.text.WriteString("\n")
}

// truncateName bounds the name by rune count, marking the cut with an
// ellipsis.
func truncateName(name string, max int) string {
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	return string(runes[:max]) + "…"
}

var nameEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
)

func escapeName(name string) string {
	return nameEscaper.Replace(name)
}

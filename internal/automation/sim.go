package automation

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// AppCatalog describes the applications the sim driver can "launch". Loaded
// from YAML so workspaces can script their own windows for development and
// integration testing.
type AppCatalog struct {
	Apps map[string]AppSpec `yaml:"apps"`
}

// AppSpec is one launchable simulated application.
type AppSpec struct {
	Title string   `yaml:"title"`
	Tree  NodeSpec `yaml:"tree"`
}

// NodeSpec declares one simulated automation node. Capability grants follow
// presence: a node has the value capability when "value" is set, the toggle
// capability when "toggle" is set, and so on. The failure-injection fields
// exist so the snapshot engine's resilience paths can be exercised without a
// flaky real desktop.
type NodeSpec struct {
	Kind         string     `yaml:"kind"`
	Name         string     `yaml:"name"`
	AutomationID string     `yaml:"automation_id"`
	Disabled     bool       `yaml:"disabled"`
	Offscreen    bool       `yaml:"offscreen"`
	Value        *string    `yaml:"value"`
	ReadOnly     bool       `yaml:"readonly"`
	Toggle       string     `yaml:"toggle"` // on | off | indeterminate
	Selectable   bool       `yaml:"selectable"`
	Selected     bool       `yaml:"selected"`
	Expand       string     `yaml:"expand"` // expanded | collapsed | leaf
	Invokable    bool       `yaml:"invokable"`
	Children     []NodeSpec `yaml:"children"`

	// FailChildren makes Children() return an error, simulating a node
	// whose subtree enumeration throws.
	FailChildren bool `yaml:"fail_children"`
	// Unreadable lists properties whose reads report unavailable:
	// kind, name, automation_id, enabled, offscreen, value, toggle,
	// selection, expand.
	Unreadable []string `yaml:"unreadable"`
}

var kindNames = map[string]Kind{
	"button":      KindButton,
	"edit":        KindEdit,
	"text":        KindText,
	"checkbox":    KindCheckBox,
	"radiobutton": KindRadioButton,
	"combobox":    KindComboBox,
	"list":        KindList,
	"listitem":    KindListItem,
	"menu":        KindMenu,
	"menuitem":    KindMenuItem,
	"menubar":     KindMenuBar,
	"tree":        KindTree,
	"treeitem":    KindTreeItem,
	"tabcontrol":  KindTabControl,
	"tabitem":     KindTabItem,
	"table":       KindTable,
	"row":         KindRow,
	"header":      KindHeader,
	"headeritem":  KindHeaderItem,
	"slider":      KindSlider,
	"spinner":     KindSpinner,
	"progressbar": KindProgressBar,
	"hyperlink":   KindHyperlink,
	"image":       KindImage,
	"group":       KindGroup,
	"window":      KindWindow,
	"document":    KindDocument,
	"toolbar":     KindToolBar,
	"tooltip":     KindToolTip,
	"scrollbar":   KindScrollBar,
	"statusbar":   KindStatusBar,
	"separator":   KindSeparator,
	"thumb":       KindThumb,
	"titlebar":    KindTitleBar,
	"datagrid":    KindDataGrid,
	"custom":      KindCustom,
}

// SimNode implements Node over an in-memory tree built from a NodeSpec.
type SimNode struct {
	mu           sync.Mutex
	kind         Kind
	name         string
	automationID string
	disabled     bool
	offscreen    bool

	hasValue bool
	value    string
	readOnly bool

	hasToggle bool
	toggle    ToggleState

	hasSelection bool
	selected     bool

	hasExpand bool
	expand    ExpandState

	invokable bool
	invoked   int

	children     []*SimNode
	failChildren bool
	unreadable   map[string]bool
}

// NewSimNode builds a node tree from its spec. Unknown kind strings map to
// KindUnknown rather than failing; the classifier treats those as generic
// elements, which is exactly what a real provider does with exotic controls.
func NewSimNode(spec NodeSpec) *SimNode {
	n := &SimNode{
		kind:         kindNames[spec.Kind],
		name:         spec.Name,
		automationID: spec.AutomationID,
		disabled:     spec.Disabled,
		offscreen:    spec.Offscreen,
		invokable:    spec.Invokable,
		failChildren: spec.FailChildren,
		unreadable:   make(map[string]bool, len(spec.Unreadable)),
	}
	for _, p := range spec.Unreadable {
		n.unreadable[p] = true
	}
	if spec.Value != nil {
		n.hasValue = true
		n.value = *spec.Value
		n.readOnly = spec.ReadOnly
	}
	switch spec.Toggle {
	case "on":
		n.hasToggle, n.toggle = true, ToggleOn
	case "off":
		n.hasToggle, n.toggle = true, ToggleOff
	case "indeterminate":
		n.hasToggle, n.toggle = true, ToggleIndeterminate
	}
	if spec.Selectable || spec.Selected {
		n.hasSelection = true
		n.selected = spec.Selected
	}
	switch spec.Expand {
	case "expanded":
		n.hasExpand, n.expand = true, ExpandExpanded
	case "collapsed":
		n.hasExpand, n.expand = true, ExpandCollapsed
	case "leaf":
		n.hasExpand, n.expand = true, ExpandLeaf
	}
	for _, c := range spec.Children {
		n.children = append(n.children, NewSimNode(c))
	}
	return n
}

func (n *SimNode) Kind() (Kind, bool) {
	if n.unreadable["kind"] {
		return KindUnknown, false
	}
	return n.kind, true
}

func (n *SimNode) Name() (string, bool) {
	if n.unreadable["name"] {
		return "", false
	}
	return n.name, true
}

func (n *SimNode) AutomationID() (string, bool) {
	if n.unreadable["automation_id"] {
		return "", false
	}
	return n.automationID, true
}

func (n *SimNode) Enabled() (bool, bool) {
	if n.unreadable["enabled"] {
		return false, false
	}
	return !n.disabled, true
}

func (n *SimNode) Offscreen() (bool, bool) {
	if n.unreadable["offscreen"] {
		return false, false
	}
	return n.offscreen, true
}

func (n *SimNode) Value() (ValueAccess, bool) {
	if !n.hasValue || n.unreadable["value"] {
		return nil, false
	}
	return simValue{n}, true
}

func (n *SimNode) Toggle() (ToggleAccess, bool) {
	if !n.hasToggle || n.unreadable["toggle"] {
		return nil, false
	}
	return simToggle{n}, true
}

func (n *SimNode) Selection() (SelectionAccess, bool) {
	if !n.hasSelection || n.unreadable["selection"] {
		return nil, false
	}
	return simSelection{n}, true
}

func (n *SimNode) ExpandCollapse() (ExpandAccess, bool) {
	if !n.hasExpand || n.unreadable["expand"] {
		return nil, false
	}
	return simExpand{n}, true
}

func (n *SimNode) Invoke() (InvokeAccess, bool) {
	if !n.invokable {
		return nil, false
	}
	return simInvoke{n}, true
}

func (n *SimNode) Children() ([]Node, error) {
	if n.failChildren {
		return nil, fmt.Errorf("child enumeration failed")
	}
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out, nil
}

// InvokeCount reports how many times the node's default action ran. Test
// hook.
func (n *SimNode) InvokeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.invoked
}

type simValue struct{ n *SimNode }

func (v simValue) Get() (string, bool) {
	v.n.mu.Lock()
	defer v.n.mu.Unlock()
	return v.n.value, true
}

func (v simValue) ReadOnly() (bool, bool) { return v.n.readOnly, true }

func (v simValue) Set(value string) error {
	v.n.mu.Lock()
	defer v.n.mu.Unlock()
	if v.n.readOnly {
		return fmt.Errorf("value is read-only")
	}
	v.n.value = value
	return nil
}

type simToggle struct{ n *SimNode }

func (t simToggle) State() (ToggleState, bool) {
	t.n.mu.Lock()
	defer t.n.mu.Unlock()
	return t.n.toggle, true
}

func (t simToggle) Toggle() error {
	t.n.mu.Lock()
	defer t.n.mu.Unlock()
	if t.n.toggle == ToggleOn {
		t.n.toggle = ToggleOff
	} else {
		t.n.toggle = ToggleOn
	}
	return nil
}

type simSelection struct{ n *SimNode }

func (s simSelection) Selected() (bool, bool) {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	return s.n.selected, true
}

func (s simSelection) Select() error {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	s.n.selected = true
	return nil
}

type simExpand struct{ n *SimNode }

func (e simExpand) State() (ExpandState, bool) {
	e.n.mu.Lock()
	defer e.n.mu.Unlock()
	return e.n.expand, true
}

func (e simExpand) Expand() error {
	e.n.mu.Lock()
	defer e.n.mu.Unlock()
	e.n.expand = ExpandExpanded
	return nil
}

func (e simExpand) Collapse() error {
	e.n.mu.Lock()
	defer e.n.mu.Unlock()
	e.n.expand = ExpandCollapsed
	return nil
}

type simInvoke struct{ n *SimNode }

func (i simInvoke) Do() error {
	i.n.mu.Lock()
	defer i.n.mu.Unlock()
	i.n.invoked++
	return nil
}

type simWindow struct {
	handle string
	app    string
	title  string
	root   *SimNode
}

func (w *simWindow) Handle() string        { return w.handle }
func (w *simWindow) Title() (string, bool) { return w.title, true }
func (w *simWindow) App() string           { return w.app }
func (w *simWindow) Root() Node            { return w.root }

// SimDriver is an in-process Driver over scripted window trees. It exists
// for development on machines without a real automation provider and as the
// fixture factory for tests.
type SimDriver struct {
	mu         sync.Mutex
	catalog    AppCatalog
	windows    []*simWindow
	focused    *simWindow
	nextHandle int
}

// NewSimDriver loads the app catalog from appsPath. An empty or missing path
// falls back to the built-in catalog (notepad.exe and calc.exe).
func NewSimDriver(appsPath string) (*SimDriver, error) {
	catalog := DefaultCatalog()

	if appsPath != "" {
		raw, err := os.ReadFile(appsPath)
		if err == nil {
			var loaded AppCatalog
			if err := yaml.Unmarshal(raw, &loaded); err != nil {
				return nil, fmt.Errorf("parsing app catalog %s: %w", appsPath, err)
			}
			if len(loaded.Apps) > 0 {
				catalog = loaded
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading app catalog %s: %w", appsPath, err)
		}
	}

	return &SimDriver{catalog: catalog}, nil
}

// DefaultCatalog ships two small apps mirroring the classic smoke targets: a
// text editor and a calculator.
func DefaultCatalog() AppCatalog {
	text := ""
	return AppCatalog{Apps: map[string]AppSpec{
		"notepad.exe": {
			Title: "Untitled - Notepad",
			Tree: NodeSpec{
				Kind: "window", Name: "Untitled - Notepad",
				Children: []NodeSpec{
					{Kind: "menubar", Name: "Application", Children: []NodeSpec{
						{Kind: "menuitem", Name: "File", Invokable: true},
						{Kind: "menuitem", Name: "Edit", Invokable: true},
						{Kind: "menuitem", Name: "View", Invokable: true},
					}},
					{Kind: "document", Name: "Text editor", AutomationID: "editor", Value: &text},
					{Kind: "statusbar", Name: "Status", Children: []NodeSpec{
						{Kind: "text", Name: "Ln 1, Col 1"},
					}},
				},
			},
		},
		"calc.exe": {
			Title: "Calc",
			Tree: NodeSpec{
				Kind: "window", Name: "Calc",
				Children: []NodeSpec{
					{Kind: "text", Name: "0", AutomationID: "display"},
					{Kind: "group", Name: "Number pad", Children: []NodeSpec{
						{Kind: "button", Name: "Seven", AutomationID: "num7Button", Invokable: true},
						{Kind: "button", Name: "Eight", AutomationID: "num8Button", Invokable: true},
						{Kind: "button", Name: "Nine", AutomationID: "num9Button", Invokable: true},
						{Kind: "button", Name: "Plus", AutomationID: "plusButton", Invokable: true},
						{Kind: "button", Name: "Equals", AutomationID: "equalButton", Invokable: true},
					}},
				},
			},
		},
	}}
}

// Launch instantiates a fresh window tree for the named app.
func (d *SimDriver) Launch(_ context.Context, app string) (Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	spec, ok := d.catalog.Apps[app]
	if !ok {
		return nil, fmt.Errorf("unknown application: %s", app)
	}

	d.nextHandle++
	w := &simWindow{
		handle: "sim-" + strconv.Itoa(d.nextHandle),
		app:    app,
		title:  spec.Title,
		root:   NewSimNode(spec.Tree),
	}
	d.windows = append(d.windows, w)
	d.focused = w
	return w, nil
}

// AddWindow injects a pre-built window, bypassing the catalog. Test hook.
func (d *SimDriver) AddWindow(app, title string, root *SimNode) Window {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextHandle++
	w := &simWindow{
		handle: "sim-" + strconv.Itoa(d.nextHandle),
		app:    app,
		title:  title,
		root:   root,
	}
	d.windows = append(d.windows, w)
	d.focused = w
	return w
}

func (d *SimDriver) Windows(_ context.Context) ([]Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Window, len(d.windows))
	for i, w := range d.windows {
		out[i] = w
	}
	return out, nil
}

func (d *SimDriver) Close(_ context.Context, w Window) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, sw := range d.windows {
		if sw.handle == w.Handle() {
			d.windows = append(d.windows[:i], d.windows[i+1:]...)
			if d.focused == sw {
				d.focused = nil
			}
			return nil
		}
	}
	return fmt.Errorf("window not found: %s", w.Handle())
}

func (d *SimDriver) Focus(_ context.Context, w Window) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, sw := range d.windows {
		if sw.handle == w.Handle() {
			d.focused = sw
			return nil
		}
	}
	return fmt.Errorf("window not found: %s", w.Handle())
}

func (d *SimDriver) Focused(_ context.Context) (Window, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.focused == nil {
		return nil, false
	}
	return d.focused, true
}

// TypeText appends text to the first writable text target in the window,
// depth-first, mimicking keystrokes landing in the focused editor.
func (d *SimDriver) TypeText(_ context.Context, w Window, text string) error {
	root, err := d.rootFor(w)
	if err != nil {
		return err
	}

	target := findEditable(root)
	if target == nil {
		return fmt.Errorf("no text input target in window %s", w.Handle())
	}

	target.mu.Lock()
	target.value += text
	target.mu.Unlock()
	return nil
}

// PressKeys accepts any non-empty combo; the sim desktop has no real
// keyboard state to mutate.
func (d *SimDriver) PressKeys(_ context.Context, w Window, keys []string) error {
	if _, err := d.rootFor(w); err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("no keys given")
	}
	return nil
}

// Screenshot renders a flat placeholder PNG; shade varies per window so
// callers can tell captures apart.
func (d *SimDriver) Screenshot(_ context.Context, w Window) ([]byte, error) {
	shade := uint8(0x30)
	if w != nil {
		if _, err := d.rootFor(w); err != nil {
			return nil, err
		}
		for _, c := range w.Handle() {
			shade += uint8(c)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	fill := color.RGBA{R: shade, G: shade, B: shade, A: 0xFF}
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *SimDriver) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.windows = nil
	d.focused = nil
	return nil
}

func (d *SimDriver) rootFor(w Window) (*SimNode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, sw := range d.windows {
		if w != nil && sw.handle == w.Handle() {
			return sw.root, nil
		}
	}
	return nil, fmt.Errorf("window not found")
}

func findEditable(n *SimNode) *SimNode {
	if n.hasValue && !n.readOnly && (n.kind == KindEdit || n.kind == KindDocument) {
		return n
	}
	for _, c := range n.children {
		if found := findEditable(c); found != nil {
			return found
		}
	}
	return nil
}

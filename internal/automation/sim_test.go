package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSimDriverLaunchFromDefaultCatalog(t *testing.T) {
	d, err := NewSimDriver("")
	if err != nil {
		t.Fatalf("NewSimDriver: %v", err)
	}
	ctx := context.Background()

	w, err := d.Launch(ctx, "calc.exe")
	if err != nil {
		t.Fatalf("Launch(calc.exe): %v", err)
	}
	if title, _ := w.Title(); title != "Calc" {
		t.Errorf("title = %q, want Calc", title)
	}
	if w.App() != "calc.exe" {
		t.Errorf("app = %q, want calc.exe", w.App())
	}

	if _, err := d.Launch(ctx, "nope.exe"); err == nil {
		t.Errorf("Launch of unknown app succeeded")
	}

	windows, err := d.Windows(ctx)
	if err != nil {
		t.Fatalf("Windows: %v", err)
	}
	if len(windows) != 1 {
		t.Errorf("len(Windows) = %d, want 1", len(windows))
	}
	if fw, ok := d.Focused(ctx); !ok || fw.Handle() != w.Handle() {
		t.Errorf("launched window is not focused")
	}
}

func TestSimDriverLaunchFromYAMLCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apps.yaml")
	catalog := `apps:
  demo.exe:
    title: Demo
    tree:
      kind: window
      name: Demo
      children:
        - kind: button
          name: Go
          invokable: true
`
	if err := os.WriteFile(path, []byte(catalog), 0o644); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}

	d, err := NewSimDriver(path)
	if err != nil {
		t.Fatalf("NewSimDriver: %v", err)
	}
	w, err := d.Launch(context.Background(), "demo.exe")
	if err != nil {
		t.Fatalf("Launch(demo.exe): %v", err)
	}

	children, err := w.Root().Children()
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("len(children) = %d, want 1", len(children))
	}
	if name, _ := children[0].Name(); name != "Go" {
		t.Errorf("child name = %q, want Go", name)
	}
	if _, ok := children[0].Invoke(); !ok {
		t.Errorf("invokable: true did not grant the invoke capability")
	}
}

func TestSimDriverCloseAndFocus(t *testing.T) {
	d, _ := NewSimDriver("")
	ctx := context.Background()

	w1, _ := d.Launch(ctx, "notepad.exe")
	w2, _ := d.Launch(ctx, "calc.exe")

	if err := d.Focus(ctx, w1); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	if fw, _ := d.Focused(ctx); fw.Handle() != w1.Handle() {
		t.Errorf("focus did not move to w1")
	}

	if err := d.Close(ctx, w1); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Close(ctx, w1); err == nil {
		t.Errorf("double close succeeded")
	}
	if _, ok := d.Focused(ctx); ok {
		t.Errorf("closed window still focused")
	}

	windows, _ := d.Windows(ctx)
	if len(windows) != 1 || windows[0].Handle() != w2.Handle() {
		t.Errorf("surviving windows = %v, want only w2", windows)
	}
}

func TestSimDriverTypeText(t *testing.T) {
	d, _ := NewSimDriver("")
	ctx := context.Background()

	w, _ := d.Launch(ctx, "notepad.exe")
	if err := d.TypeText(ctx, w, "hello"); err != nil {
		t.Fatalf("TypeText: %v", err)
	}
	if err := d.TypeText(ctx, w, " world"); err != nil {
		t.Fatalf("TypeText: %v", err)
	}

	editor := findEditable(w.(*simWindow).root)
	if editor == nil {
		t.Fatalf("notepad tree has no editable target")
	}
	access, _ := editor.Value()
	if got, _ := access.Get(); got != "hello world" {
		t.Errorf("editor value = %q, want %q", got, "hello world")
	}

	// calc has no editable surface
	calc, _ := d.Launch(ctx, "calc.exe")
	if err := d.TypeText(ctx, calc, "1"); err == nil {
		t.Errorf("TypeText into calc succeeded, want no-target error")
	}
}

func TestSimDriverScreenshotIsPNG(t *testing.T) {
	d, _ := NewSimDriver("")
	ctx := context.Background()
	w, _ := d.Launch(ctx, "calc.exe")

	for _, target := range []Window{w, nil} {
		data, err := d.Screenshot(ctx, target)
		if err != nil {
			t.Fatalf("Screenshot(%v): %v", target, err)
		}
		if len(data) < 8 || string(data[1:4]) != "PNG" {
			t.Errorf("screenshot is not a PNG (%d bytes)", len(data))
		}
	}
}

func TestSimNodeFailureInjection(t *testing.T) {
	n := NewSimNode(NodeSpec{
		Kind: "list", Name: "Broken", FailChildren: true,
		Children: []NodeSpec{{Kind: "listitem", Name: "hidden"}},
	})
	if _, err := n.Children(); err == nil {
		t.Errorf("FailChildren did not fail enumeration")
	}

	u := NewSimNode(NodeSpec{
		Kind: "button", Name: "x", AutomationID: "id",
		Unreadable: []string{"name", "enabled"},
	})
	if _, ok := u.Name(); ok {
		t.Errorf("unreadable name still read")
	}
	if _, ok := u.Enabled(); ok {
		t.Errorf("unreadable enabled still read")
	}
	if id, ok := u.AutomationID(); !ok || id != "id" {
		t.Errorf("untouched property became unreadable")
	}
}

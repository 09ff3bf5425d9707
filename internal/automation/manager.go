package automation

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"desknerd-mcp-server/internal/config"
	"desknerd-mcp-server/internal/facts"
)

// WindowInfo is the public metadata for a tracked window.
type WindowInfo struct {
	ID       string    `json:"windowId"`
	Title    string    `json:"title,omitempty"`
	App      string    `json:"app,omitempty"`
	Focused  bool      `json:"focused,omitempty"`
	OpenedAt time.Time `json:"opened_at"`
}

type windowRecord struct {
	info WindowInfo
	win  Window
}

// EngineSink defines the minimal interface we need from the logic layer.
type EngineSink interface {
	AddFacts(ctx context.Context, fs []facts.Fact) error
}

// WindowManager owns the automation driver and tracks launched windows. Each
// window gets a short scope ID ("w1", "w2", ...) that doubles as the prefix
// of every element reference token issued for it.
type WindowManager struct {
	cfg    config.AutomationConfig
	driver Driver
	engine EngineSink
	refs   *RefRegistry

	mu        sync.RWMutex
	windows   map[string]*windowRecord
	order     []string
	nextScope int
}

func NewWindowManager(cfg config.AutomationConfig, driver Driver, sink EngineSink) *WindowManager {
	return &WindowManager{
		cfg:     cfg,
		driver:  driver,
		engine:  sink,
		refs:    NewRefRegistry(),
		windows: make(map[string]*windowRecord),
	}
}

// Registry exposes the reference registry shared with the snapshot builder.
func (m *WindowManager) Registry() *RefRegistry {
	return m.refs
}

// Launch starts an application and registers its main window under a fresh
// window scope.
func (m *WindowManager) Launch(ctx context.Context, app string) (WindowInfo, error) {
	if app == "" {
		return WindowInfo{}, fmt.Errorf("app is required")
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.GetLaunchTimeout())
	defer cancel()

	win, err := m.driver.Launch(ctx, app)
	if err != nil {
		return WindowInfo{}, fmt.Errorf("launching %s: %w", app, err)
	}

	m.mu.Lock()
	m.nextScope++
	id := "w" + strconv.Itoa(m.nextScope)
	title, _ := win.Title()
	info := WindowInfo{
		ID:       id,
		Title:    title,
		App:      app,
		OpenedAt: time.Now(),
	}
	m.windows[id] = &windowRecord{info: info, win: win}
	m.order = append(m.order, id)
	m.mu.Unlock()

	m.emitFact(ctx, "window_opened", id, app, title)
	return info, nil
}

// List returns all tracked windows, refreshing titles and focus state from
// the driver. Driver failures leave the last known metadata in place.
func (m *WindowManager) List(ctx context.Context) []WindowInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	var focusedHandle string
	if fw, ok := m.driver.Focused(ctx); ok {
		focusedHandle = fw.Handle()
	}

	out := make([]WindowInfo, 0, len(m.order))
	for _, id := range m.order {
		rec, ok := m.windows[id]
		if !ok {
			continue
		}
		if title, ok := rec.win.Title(); ok {
			rec.info.Title = title
		}
		rec.info.Focused = rec.win.Handle() == focusedHandle && focusedHandle != ""
		out = append(out, rec.info)
	}
	return out
}

// Window resolves a window scope to its live driver window.
func (m *WindowManager) Window(id string) (Window, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.windows[id]
	if !ok {
		return nil, false
	}
	return rec.win, true
}

// Close closes the window and invalidates every reference token issued under
// its scope.
func (m *WindowManager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	rec, ok := m.windows[id]
	if ok {
		delete(m.windows, id)
		for i, o := range m.order {
			if o == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("window not found: %s", id)
	}

	// The scope dies with the window even if the driver refuses to close.
	m.refs.Clear(id)

	if err := m.driver.Close(ctx, rec.win); err != nil {
		return fmt.Errorf("closing %s: %w", id, err)
	}

	m.emitFact(ctx, "window_closed", id, rec.info.App)
	return nil
}

// Focus brings the window to the foreground.
func (m *WindowManager) Focus(ctx context.Context, id string) error {
	win, ok := m.Window(id)
	if !ok {
		return fmt.Errorf("window not found: %s", id)
	}
	return m.driver.Focus(ctx, win)
}

// Resolve looks up an element reference token issued by a prior snapshot.
func (m *WindowManager) Resolve(ref string) (Node, bool) {
	return m.refs.Resolve(ref)
}

// TypeText injects text into the window.
func (m *WindowManager) TypeText(ctx context.Context, id, text string) error {
	win, ok := m.Window(id)
	if !ok {
		return fmt.Errorf("window not found: %s", id)
	}
	if err := m.driver.TypeText(ctx, win, text); err != nil {
		return err
	}
	m.emitFact(ctx, "input_event", id, "type", text)
	return nil
}

// PressKeys injects a key combination into the window.
func (m *WindowManager) PressKeys(ctx context.Context, id string, keys []string) error {
	win, ok := m.Window(id)
	if !ok {
		return fmt.Errorf("window not found: %s", id)
	}
	if err := m.driver.PressKeys(ctx, win, keys); err != nil {
		return err
	}
	m.emitFact(ctx, "input_event", id, "keys", fmt.Sprintf("%v", keys))
	return nil
}

// Screenshot captures the window, or the whole desktop when id is empty.
func (m *WindowManager) Screenshot(ctx context.Context, id string) ([]byte, error) {
	var win Window
	if id != "" {
		w, ok := m.Window(id)
		if !ok {
			return nil, fmt.Errorf("window not found: %s", id)
		}
		win = w
	}
	return m.driver.Screenshot(ctx, win)
}

// Count returns the number of tracked windows.
func (m *WindowManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.windows)
}

// Shutdown releases the driver.
func (m *WindowManager) Shutdown() error {
	m.mu.Lock()
	m.windows = make(map[string]*windowRecord)
	m.order = nil
	m.mu.Unlock()
	return m.driver.Shutdown()
}

func (m *WindowManager) emitFact(ctx context.Context, predicate string, args ...interface{}) {
	if m.engine == nil {
		return
	}
	fact := facts.Fact{Predicate: predicate, Args: args, Timestamp: time.Now()}
	if err := m.engine.AddFacts(ctx, []facts.Fact{fact}); err != nil {
		log.Printf("emit %s fact: %v", predicate, err)
	}
}

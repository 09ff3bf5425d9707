package automation

import (
	"fmt"
	"testing"
)

func TestRegisterIssuesSequentialTokens(t *testing.T) {
	r := NewRefRegistry()
	node := NewSimNode(NodeSpec{Kind: "button", Name: "OK"})

	for i := 1; i <= 3; i++ {
		want := fmt.Sprintf("w1e%d", i)
		if got := r.Register("w1", node); got != want {
			t.Errorf("Register #%d = %q, want %q", i, got, want)
		}
	}

	// A second scope counts independently.
	if got := r.Register("w2", node); got != "w2e1" {
		t.Errorf("first w2 token = %q, want w2e1", got)
	}
	if got := r.Count(); got != 4 {
		t.Errorf("Count = %d, want 4", got)
	}
}

func TestResolveRoundTrip(t *testing.T) {
	r := NewRefRegistry()
	a := NewSimNode(NodeSpec{Kind: "button", Name: "A"})
	b := NewSimNode(NodeSpec{Kind: "button", Name: "B"})

	refA := r.Register("w1", a)
	refB := r.Register("w1", b)

	got, ok := r.Resolve(refB)
	if !ok {
		t.Fatalf("Resolve(%q) missed", refB)
	}
	if got != Node(b) {
		t.Errorf("Resolve(%q) returned wrong node", refB)
	}
	if got, _ := r.Resolve(refA); got != Node(a) {
		t.Errorf("Resolve(%q) returned wrong node", refA)
	}
}

func TestResolveMissIsNotAnError(t *testing.T) {
	r := NewRefRegistry()
	if _, ok := r.Resolve("w1e1"); ok {
		t.Errorf("Resolve on an empty registry reported a hit")
	}
	r.Register("w1", NewSimNode(NodeSpec{Kind: "button"}))
	if _, ok := r.Resolve("w1e99"); ok {
		t.Errorf("Resolve of a never-issued token reported a hit")
	}
}

func TestClearInvalidatesWholeScopeAndResetsSequence(t *testing.T) {
	r := NewRefRegistry()
	node := NewSimNode(NodeSpec{Kind: "button"})

	r.Register("w1", node)
	r.Register("w1", node)
	w2ref := r.Register("w2", node)

	r.Clear("w1")

	if _, ok := r.Resolve("w1e1"); ok {
		t.Errorf("w1e1 survived Clear(w1)")
	}
	if _, ok := r.Resolve("w1e2"); ok {
		t.Errorf("w1e2 survived Clear(w1)")
	}
	if _, ok := r.Resolve(w2ref); !ok {
		t.Errorf("Clear(w1) leaked into scope w2")
	}

	// Sequences restart after a clear; fresh tokens can collide textually
	// with dead ones, which is why stale resolution must miss, not alias.
	if got := r.Register("w1", node); got != "w1e1" {
		t.Errorf("first token after clear = %q, want w1e1", got)
	}

	// Clearing an unknown scope is a no-op.
	r.Clear("w99")
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		token string
		scope string
		seq   int
		ok    bool
	}{
		{"w1e4", "w1", 4, true},
		{"w12e34", "w12", 34, true},
		{"w1e0", "", 0, false},
		{"w1", "", 0, false},
		{"e4", "", 0, false},
		{"", "", 0, false},
		{"w1e", "", 0, false},
		{"w1exy", "", 0, false},
	}
	for _, tt := range tests {
		scope, seq, ok := ParseRef(tt.token)
		if ok != tt.ok || scope != tt.scope || seq != tt.seq {
			t.Errorf("ParseRef(%q) = (%q, %d, %v), want (%q, %d, %v)",
				tt.token, scope, seq, ok, tt.scope, tt.seq, tt.ok)
		}
	}
}

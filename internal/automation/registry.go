package automation

import (
	"regexp"
	"strconv"
	"sync"
)

// RefRegistry maps short element reference tokens (e.g. "w1e4") to live
// automation nodes. Tokens are scoped per window: each window scope holds its
// own monotonically increasing sequence, and a scope-wide clear is the only
// way a token expires. There is deliberately no per-token removal; an
// external tree can mutate between calls, so partial invalidation can never
// be made safe.
type RefRegistry struct {
	mu     sync.RWMutex
	scopes map[string]*scopeArena
}

// scopeArena holds one window scope's issued tokens. Clear replaces the
// whole arena, so cross-scope interference is impossible by construction.
type scopeArena struct {
	nextSeq int
	refs    map[string]Node
}

var refPattern = regexp.MustCompile(`^(.+)e([0-9]+)$`)

// ParseRef splits a reference token into its window scope and sequence
// number. Returns ok=false for strings that are not well-formed tokens.
func ParseRef(token string) (scope string, seq int, ok bool) {
	m := refPattern.FindStringSubmatch(token)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n < 1 {
		return "", 0, false
	}
	return m[1], n, true
}

// NewRefRegistry creates an empty registry.
func NewRefRegistry() *RefRegistry {
	return &RefRegistry{scopes: make(map[string]*scopeArena)}
}

// Clear invalidates every token issued under windowScope and resets its
// sequence counter. Clearing an unknown or already-empty scope is a no-op.
func (r *RefRegistry) Clear(windowScope string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scopes, windowScope)
}

// Register stores node under a fresh token for windowScope and returns the
// token. Sequences start at 1 and increase by one per registration until the
// scope is cleared.
func (r *RefRegistry) Register(windowScope string, node Node) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	arena, ok := r.scopes[windowScope]
	if !ok {
		arena = &scopeArena{refs: make(map[string]Node)}
		r.scopes[windowScope] = arena
	}

	arena.nextSeq++
	token := windowScope + "e" + strconv.Itoa(arena.nextSeq)
	arena.refs[token] = node
	return token
}

// Resolve looks up a token. A miss is a normal outcome (stale token from a
// prior snapshot), not a fault.
func (r *RefRegistry) Resolve(token string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, arena := range r.scopes {
		if node, ok := arena.refs[token]; ok {
			return node, true
		}
	}
	return nil, false
}

// Count returns the number of live mappings across all scopes. Diagnostic
// only.
func (r *RefRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, arena := range r.scopes {
		total += len(arena.refs)
	}
	return total
}

// Package facts wraps the Mangle deductive database with desktop-automation
// fact management: window lifecycle, snapshot contents, and input events are
// pushed as facts, and agents can query them or derive over them with
// submitted rules.
package facts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"desknerd-mcp-server/internal/config"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// Fact is a normalized event emitted by the automation bridge.
type Fact struct {
	Predicate string        `json:"predicate"`
	Args      []interface{} `json:"args"`
	Timestamp time.Time     `json:"timestamp"`
}

// QueryResult is a binding of variables to values from a Mangle query.
type QueryResult map[string]interface{}

// Engine buffers recent facts for direct reads and mirrors them into a
// Mangle store for rule evaluation. Unlike a high-frequency event stream,
// desktop facts arrive in small pull-driven batches (one snapshot, one
// action), so there is no sampling layer; the buffer limit alone bounds
// memory.
type Engine struct {
	cfg config.FactsConfig

	mu           sync.RWMutex
	schemaLoaded bool
	programInfo  *analysis.ProgramInfo
	store        factstore.FactStore

	// Source accumulator: every recompile re-analyzes the schema plus all
	// submitted rules as one unit, so later rules can lean on earlier
	// declarations and no clause is ever dropped.
	schemaSource []byte
	ruleSources  []string

	// Chronological buffer plus per-predicate index for O(m) reads.
	facts []Fact
	index map[string][]int
}

func NewEngine(cfg config.FactsConfig) (*Engine, error) {
	e := &Engine{
		cfg:   cfg,
		facts: make([]Fact, 0, cfg.FactBufferLimit),
		index: make(map[string][]int),
		store: factstore.NewSimpleInMemoryStore(),
	}

	if cfg.Enable && cfg.SchemaPath != "" {
		if err := e.LoadSchema(cfg.SchemaPath); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// LoadSchema parses a Mangle schema file, analyzes it, and prepares the
// engine for evaluation.
func (e *Engine) LoadSchema(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := parse.Unit(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.schemaSource = data
	if err := e.recompileLocked(); err != nil {
		e.schemaSource = nil
		return fmt.Errorf("analyze schema: %w", err)
	}
	e.schemaLoaded = true

	return nil
}

// AddRule dynamically adds a Mangle rule for runtime assertions. The rule is
// re-analyzed together with the schema and every previously submitted rule,
// then evaluated against the store so it derives over facts already present.
func (e *Engine) AddRule(ruleSource string) error {
	if !e.cfg.Enable {
		return nil
	}

	if _, err := parse.Unit(bytes.NewReader([]byte(ruleSource))); err != nil {
		return fmt.Errorf("parse rule: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ruleSources = append(e.ruleSources, ruleSource)
	if err := e.recompileLocked(); err != nil {
		e.ruleSources = e.ruleSources[:len(e.ruleSources)-1]
		// Restore the last known-good program.
		if prevErr := e.recompileLocked(); prevErr != nil {
			e.programInfo = nil
			e.schemaLoaded = false
			return fmt.Errorf("analyze rule: %w", err)
		}
		return fmt.Errorf("analyze rule: %w", err)
	}
	e.schemaLoaded = true

	if err := engine.EvalProgram(e.programInfo, e.store); err != nil {
		return fmt.Errorf("eval program after rule submission: %w", err)
	}

	return nil
}

// recompileLocked re-analyzes the accumulated schema and rule sources into a
// fresh program. Caller holds e.mu.
func (e *Engine) recompileLocked() error {
	if len(e.schemaSource) == 0 && len(e.ruleSources) == 0 {
		e.programInfo = nil
		return nil
	}

	var combined bytes.Buffer
	combined.Write(e.schemaSource)
	for _, src := range e.ruleSources {
		combined.WriteString("\n")
		combined.WriteString(src)
	}

	sourceUnit, err := parse.Unit(bytes.NewReader(combined.Bytes()))
	if err != nil {
		return err
	}
	programInfo, err := analysis.AnalyzeOneUnit(sourceUnit, make(map[ast.PredicateSym]ast.Decl))
	if err != nil {
		return err
	}

	e.programInfo = programInfo
	return nil
}

// AddFacts appends incoming facts to the buffer and the Mangle store, then
// re-evaluates the program so derived predicates stay current.
func (e *Engine) AddFacts(_ context.Context, incoming []Fact) error {
	if !e.cfg.Enable {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	baseIdx := len(e.facts)
	e.facts = append(e.facts, incoming...)
	if e.cfg.FactBufferLimit > 0 && len(e.facts) > e.cfg.FactBufferLimit {
		trim := len(e.facts) - e.cfg.FactBufferLimit
		e.facts = e.facts[trim:]
		e.rebuildIndex()
	} else {
		for i, f := range incoming {
			e.index[f.Predicate] = append(e.index[f.Predicate], baseIdx+i)
		}
	}

	for _, f := range incoming {
		e.store.Add(e.factToAtom(f))
	}

	if e.schemaLoaded && e.programInfo != nil {
		if err := engine.EvalProgram(e.programInfo, e.store); err != nil {
			return fmt.Errorf("eval program after fact insertion: %w", err)
		}
	}

	return nil
}

// Query executes a Mangle query and returns all satisfying variable
// bindings. Falls back to a direct buffer scan when the store has no match,
// which covers facts pushed without declarations.
func (e *Engine) Query(_ context.Context, queryStr string) ([]QueryResult, error) {
	if !e.cfg.Enable {
		return nil, fmt.Errorf("facts engine disabled")
	}

	sourceUnit, err := parse.Unit(bytes.NewReader([]byte(queryStr)))
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	if len(sourceUnit.Clauses) == 0 {
		return nil, fmt.Errorf("no query found")
	}
	queryAtom := sourceUnit.Clauses[0].Head

	e.mu.RLock()
	defer e.mu.RUnlock()

	results := make([]QueryResult, 0)
	err = e.store.GetFacts(queryAtom, func(atom ast.Atom) error {
		result := make(QueryResult)
		for i, arg := range queryAtom.Args {
			if i >= len(atom.Args) {
				break
			}
			if varArg, ok := arg.(ast.Variable); ok {
				result[varArg.Symbol] = convertConstant(atom.Args[i])
			}
		}
		results = append(results, result)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query execution: %w", err)
	}

	if len(results) == 0 {
		results = append(results, e.queryBufferDirect(queryAtom.Predicate.Symbol, queryAtom.Args)...)
	}

	return results, nil
}

// queryBufferDirect matches buffered facts against a predicate and argument
// pattern, binding variables positionally.
func (e *Engine) queryBufferDirect(predicate string, queryArgs []ast.BaseTerm) []QueryResult {
	results := make([]QueryResult, 0)

	for _, idx := range e.index[predicate] {
		if idx < 0 || idx >= len(e.facts) {
			continue
		}
		f := e.facts[idx]
		if len(queryArgs) > 0 && len(f.Args) < len(queryArgs) {
			continue
		}

		result := make(QueryResult)
		matches := true
		for i, qArg := range queryArgs {
			if i >= len(f.Args) {
				break
			}
			switch arg := qArg.(type) {
			case ast.Variable:
				result[arg.Symbol] = f.Args[i]
			case ast.Constant:
				if fmt.Sprintf("%v", f.Args[i]) != fmt.Sprintf("%v", convertConstant(arg)) {
					matches = false
				}
			}
			if !matches {
				break
			}
		}
		if matches {
			results = append(results, result)
		}
	}

	return results
}

// FactsByPredicate returns buffered facts for one predicate, oldest first.
func (e *Engine) FactsByPredicate(predicate string) []Fact {
	e.mu.RLock()
	defer e.mu.RUnlock()

	indices := e.index[predicate]
	out := make([]Fact, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(e.facts) {
			out = append(out, e.facts[idx])
		}
	}
	return out
}

// Facts returns a copy of the whole buffer, oldest first.
func (e *Engine) Facts() []Fact {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Fact(nil), e.facts...)
}

// Len reports how many facts the buffer currently holds.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.facts)
}

// Ready reports whether the engine can answer queries. Schema-less engines
// still answer via the buffer fallback.
func (e *Engine) Ready() bool {
	return e.cfg.Enable
}

func (e *Engine) factToAtom(f Fact) ast.Atom {
	args := make([]ast.BaseTerm, len(f.Args))
	for i, arg := range f.Args {
		args[i] = toConstant(arg)
	}
	return ast.Atom{
		Predicate: ast.PredicateSym{Symbol: f.Predicate, Arity: len(f.Args)},
		Args:      args,
	}
}

func toConstant(v interface{}) ast.Constant {
	switch val := v.(type) {
	case string:
		return ast.String(val)
	case int:
		return ast.Number(int64(val))
	case int64:
		return ast.Number(val)
	case float64:
		return ast.Float64(val)
	case bool:
		if val {
			return ast.String("true")
		}
		return ast.String("false")
	default:
		return ast.String(fmt.Sprintf("%v", v))
	}
}

func convertConstant(c ast.BaseTerm) interface{} {
	if c == nil {
		return nil
	}
	switch term := c.(type) {
	case ast.Constant:
		if term.Type == ast.StringType {
			val, _ := term.StringValue()
			return val
		} else if term.Type == ast.NumberType {
			return term.NumberValue
		} else if term.Type == ast.Float64Type {
			if val, err := term.Float64Value(); err == nil {
				return val
			}
		}
		return term.String()
	case ast.Variable:
		return term.Symbol
	default:
		return fmt.Sprintf("%v", c)
	}
}

func (e *Engine) rebuildIndex() {
	e.index = make(map[string][]int)
	for i, f := range e.facts {
		e.index[f.Predicate] = append(e.index[f.Predicate], i)
	}
}

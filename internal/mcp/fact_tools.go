package mcp

import (
	"context"
	"fmt"

	"desknerd-mcp-server/internal/facts"
)

// QueryFactsTool evaluates a datalog query over the automation fact base.
type QueryFactsTool struct {
	engine *facts.Engine
}

func (t *QueryFactsTool) Name() string { return "windows_query_facts" }
func (t *QueryFactsTool) Description() string {
	return `Query the automation fact base with a datalog atom.

The server records structured facts as it works: window_opened, and
window_closed track lifecycle; snapshot_taken, ax_element, and ax_state
describe the last snapshot of each window; ui_action and input_event
record what tools did. Variables start with an uppercase letter.

Examples:
  ax_element(W, Ref, "button", Name)   -- every button seen in snapshots
  ui_action("w1", Ref, Action)         -- everything done to window w1
  window_opened(W, App)                -- which app each window runs

Rules added with windows_submit_rule define new queryable predicates.`
}
func (t *QueryFactsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": `Datalog atom, e.g. ax_element(W, Ref, "button", Name)`,
			},
		},
		"required": []string{"query"},
	}
}
func (t *QueryFactsTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query := getStringArg(args, "query")
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	results, err := t.engine.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": results,
	}, nil
}

// ReadFactsTool dumps raw buffered facts, optionally for one predicate.
type ReadFactsTool struct {
	engine *facts.Engine
}

func (t *ReadFactsTool) Name() string { return "windows_read_facts" }
func (t *ReadFactsTool) Description() string {
	return `Read raw recorded facts without running a query.

Returns the most recent facts in arrival order, newest last. Pass a
predicate to restrict to one kind (e.g. "ui_action"). For joins and
variable binding use windows_query_facts instead.`
}
func (t *ReadFactsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"predicate": map[string]interface{}{
				"type":        "string",
				"description": "Restrict to one predicate; omit for all facts",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Max facts to return, newest kept (default 100)",
			},
		},
	}
}
func (t *ReadFactsTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	var recorded []facts.Fact
	if predicate := getStringArg(args, "predicate"); predicate != "" {
		recorded = t.engine.FactsByPredicate(predicate)
	} else {
		recorded = t.engine.Facts()
	}
	limit := getIntArg(args, "limit", 100)
	if limit > 0 && len(recorded) > limit {
		recorded = recorded[len(recorded)-limit:]
	}
	return map[string]interface{}{
		"total": t.engine.Len(),
		"count": len(recorded),
		"facts": recorded,
	}, nil
}

// SubmitRuleTool adds a derived-predicate rule to the fact base.
type SubmitRuleTool struct {
	engine *facts.Engine
}

func (t *SubmitRuleTool) Name() string { return "windows_submit_rule" }
func (t *SubmitRuleTool) Description() string {
	return `Add a datalog rule deriving a new predicate from recorded facts.

Example:
  clicked_button(W, Name) :- ui_action(W, Ref, "invoke"),
                             ax_element(W, Ref, "button", Name).

The rule persists for the rest of the session and its head predicate
becomes queryable via windows_query_facts.`
}
func (t *SubmitRuleTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"rule": map[string]interface{}{
				"type":        "string",
				"description": "Datalog rule source, 'head :- body.'",
			},
		},
		"required": []string{"rule"},
	}
}
func (t *SubmitRuleTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	rule := getStringArg(args, "rule")
	if rule == "" {
		return nil, fmt.Errorf("rule is required")
	}
	if err := t.engine.AddRule(rule); err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}
	return map[string]interface{}{"status": "rule added"}, nil
}

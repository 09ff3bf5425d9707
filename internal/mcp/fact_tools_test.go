package mcp

import (
	"testing"

	"desknerd-mcp-server/internal/facts"
)

func TestQueryFactsTool(t *testing.T) {
	srv := newTestServer(t)
	info := launchWindow(t, srv, "calc.exe")
	takeSnapshot(t, srv, map[string]interface{}{"windowId": info.ID})

	raw, err := srv.ExecuteTool("windows_query_facts", map[string]interface{}{
		"query": `ax_element(W, Ref, "button", Name).`,
	})
	if err != nil {
		t.Fatalf("windows_query_facts: %v", err)
	}
	result := raw.(map[string]interface{})
	if result["count"].(int) != 5 {
		t.Errorf("count = %v, want the 5 calc buttons", result["count"])
	}

	if _, err := srv.ExecuteTool("windows_query_facts", map[string]interface{}{}); err == nil {
		t.Error("query without a query string succeeded")
	}
	if _, err := srv.ExecuteTool("windows_query_facts", map[string]interface{}{
		"query": "broken $$ syntax",
	}); err == nil {
		t.Error("malformed query succeeded")
	}
}

func TestReadFactsTool(t *testing.T) {
	srv := newTestServer(t)
	info := launchWindow(t, srv, "calc.exe")
	takeSnapshot(t, srv, map[string]interface{}{"windowId": info.ID})

	raw, err := srv.ExecuteTool("windows_read_facts", map[string]interface{}{})
	if err != nil {
		t.Fatalf("windows_read_facts: %v", err)
	}
	all := raw.(map[string]interface{})
	if all["count"].(int) == 0 {
		t.Fatal("no facts read after launch and snapshot")
	}

	raw, err = srv.ExecuteTool("windows_read_facts", map[string]interface{}{
		"predicate": "window_opened",
	})
	if err != nil {
		t.Fatalf("windows_read_facts(window_opened): %v", err)
	}
	opened := raw.(map[string]interface{})
	if opened["count"].(int) != 1 {
		t.Errorf("window_opened count = %v, want 1", opened["count"])
	}

	raw, _ = srv.ExecuteTool("windows_read_facts", map[string]interface{}{
		"predicate": "ax_element", "limit": 2,
	})
	limited := raw.(map[string]interface{})
	if limited["count"].(int) != 2 {
		t.Errorf("limited count = %v, want 2", limited["count"])
	}
}

func TestSubmitRuleTool(t *testing.T) {
	srv := newTestServer(t)
	info := launchWindow(t, srv, "calc.exe")
	text := snapshotText(t, srv, info.ID)
	ref := refFor(t, text, `button "Seven"`)

	rule := `
Decl ui_action(W, Ref, Action).
Decl ax_element(W, Ref, Role, Name).
Decl clicked_button(W, Name).

clicked_button(W, Name) :-
    ui_action(W, Ref, "invoke"),
    ax_element(W, Ref, "button", Name).
`
	if _, err := srv.ExecuteTool("windows_submit_rule", map[string]interface{}{"rule": rule}); err != nil {
		t.Fatalf("windows_submit_rule: %v", err)
	}

	if _, err := srv.ExecuteTool("windows_click", map[string]interface{}{"ref": ref}); err != nil {
		t.Fatalf("windows_click: %v", err)
	}

	raw, err := srv.ExecuteTool("windows_query_facts", map[string]interface{}{
		"query": "clicked_button(W, Name).",
	})
	if err != nil {
		t.Fatalf("querying derived predicate: %v", err)
	}
	result := raw.(map[string]interface{})
	if result["count"].(int) != 1 {
		t.Fatalf("derived count = %v, want 1", result["count"])
	}
	bindings := result["results"].([]facts.QueryResult)
	if bindings[0]["Name"] != "Seven" {
		t.Errorf("Name = %v, want Seven", bindings[0]["Name"])
	}

	if _, err := srv.ExecuteTool("windows_submit_rule", map[string]interface{}{}); err == nil {
		t.Error("submit_rule without rule succeeded")
	}
	if _, err := srv.ExecuteTool("windows_submit_rule", map[string]interface{}{
		"rule": "broken $$",
	}); err == nil {
		t.Error("malformed rule succeeded")
	}
}

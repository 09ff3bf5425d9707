package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"desknerd-mcp-server/internal/facts"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	resourceMIMEJSON = "application/json"
)

func (s *Server) registerAllResources() {
	if s == nil || s.mcpServer == nil {
		return
	}

	s.mcpServer.AddResource(
		mcp.NewResource(
			"desknerd://about",
			"DeskNERD About",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("High-level server info and usage notes."),
		),
		s.handleAboutResource,
	)

	s.mcpServer.AddResource(
		mcp.NewResource(
			"desknerd://config",
			"Active Configuration",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("Effective server configuration (filesystem paths redacted)."),
		),
		s.handleConfigResource,
	)

	s.mcpServer.AddResource(
		mcp.NewResource(
			"desknerd://windows",
			"Open Windows",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("Currently tracked top-level windows."),
		),
		s.handleWindowsResource,
	)

	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"desknerd://window/{windowId}/facts{?predicate,limit}",
			"Window Facts",
			mcp.WithTemplateMIMEType(resourceMIMEJSON),
			mcp.WithTemplateDescription("Read a token-efficient slice of facts for a window (optionally filtered by predicate)."),
		),
		s.handleWindowFactsResource,
	)
}

func (s *Server) handleAboutResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	payload := map[string]interface{}{
		"name":    s.cfg.Server.Name,
		"version": s.cfg.Server.Version,
		"driver":  s.cfg.Automation.Driver,
		"notes": []string{
			"Resources are read-only context endpoints; use tools for actions/mutations.",
			"Take a windows_snapshot to get element refs before clicking or typing.",
			"Refs are invalidated by every new snapshot of the same window and by window close.",
		},
		"timestamp_ms": time.Now().UnixMilli(),
	}

	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}

// handleConfigResource serves the effective configuration. Filesystem paths
// (log file, app catalog, schema, trace dir) stay out of the payload; remote
// SSE clients have no business learning the workspace layout.
func (s *Server) handleConfigResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cfg := s.cfg
	payload := map[string]interface{}{
		"server": map[string]interface{}{
			"name":    cfg.Server.Name,
			"version": cfg.Server.Version,
		},
		"automation": map[string]interface{}{
			"driver":         cfg.Automation.Driver,
			"launch_timeout": cfg.Automation.GetLaunchTimeout().String(),
		},
		"snapshot": map[string]interface{}{
			"max_depth":       cfg.Snapshot.GetMaxDepth(),
			"max_elements":    cfg.Snapshot.GetMaxElements(),
			"name_max_length": cfg.Snapshot.GetNameMaxLength(),
			"filter":          cfg.Snapshot.GetFilter(),
		},
		"facts": map[string]interface{}{
			"enabled":           cfg.Facts.Enable,
			"fact_buffer_limit": cfg.Facts.FactBufferLimit,
			"schema_configured": cfg.Facts.SchemaPath != "",
		},
		"recorder": map[string]interface{}{
			"enabled": cfg.Recorder.Enabled,
		},
		"mcp": map[string]interface{}{
			"sse_port": cfg.MCP.SSEPort,
		},
	}

	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}

func (s *Server) handleWindowsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	payload := map[string]interface{}{
		"windows": s.windows.List(ctx),
		"count":   s.windows.Count(),
	}

	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}

func (s *Server) handleWindowFactsResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("facts engine unavailable")
	}

	windowID := argString(request.Params.Arguments["windowId"])
	if windowID == "" {
		return nil, fmt.Errorf("missing windowId")
	}
	predicate := argString(request.Params.Arguments["predicate"])
	limit := asInt(request.Params.Arguments["limit"])
	if limit <= 0 {
		limit = 25
	}
	if limit > 500 {
		limit = 500
	}

	recent := selectRecentWindowFacts(s.engine, windowID, predicate, limit)

	payload := map[string]interface{}{
		"window_id": windowID,
		"predicate": predicate,
		"limit":     limit,
		"count":     len(recent),
		"facts":     recent,
	}
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}

// selectRecentWindowFacts keeps the newest facts whose first argument is the
// window ID, returned oldest first. Every emitted predicate puts the window
// ID in arg 0 so one filter covers them all.
func selectRecentWindowFacts(engine *facts.Engine, windowID, predicate string, limit int) []facts.Fact {
	if engine == nil || windowID == "" || limit <= 0 {
		return []facts.Fact{}
	}

	var source []facts.Fact
	if predicate != "" {
		source = engine.FactsByPredicate(predicate)
	} else {
		source = engine.Facts()
	}

	out := make([]facts.Fact, 0, min(limit, len(source)))
	for i := len(source) - 1; i >= 0 && len(out) < limit; i-- {
		f := source[i]
		if len(f.Args) == 0 {
			continue
		}
		if fmt.Sprintf("%v", f.Args[0]) != windowID {
			continue
		}
		out = append(out, f)
	}

	// Reverse to return chronological order (oldest -> newest).
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func argString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []string:
		if len(value) == 0 {
			return ""
		}
		return value[0]
	default:
		return fmt.Sprintf("%v", value)
	}
}

func asInt(v any) int {
	switch value := v.(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err == nil {
			return n
		}
	case []string:
		if len(value) > 0 {
			return asInt(value[0])
		}
	}
	return 0
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"desknerd-mcp-server/internal/automation"
	"desknerd-mcp-server/internal/config"
	"desknerd-mcp-server/internal/facts"
	mcpserver "desknerd-mcp-server/internal/mcp"
	"desknerd-mcp-server/internal/recorder"
)

func main() {
	configPath := flag.String("config", "", "Path to the DeskNERD MCP config file (overrides workspace discovery)")
	ssePort := flag.Int("sse-port", 0, "Optional SSE port override (falls back to config)")
	noWorkspace := flag.Bool("no-workspace", false, "Skip .desknerd/ workspace discovery")
	workspaceDir := flag.String("workspace-dir", "", "Use this directory as the workspace root instead of walking up")
	initWorkspace := flag.Bool("init", false, "Create a .desknerd/ workspace in the current directory and exit")
	flag.Parse()

	if *initWorkspace {
		cwd, err := os.Getwd()
		if err != nil {
			log.Fatalf("failed to resolve current directory: %v", err)
		}
		if err := config.InitWorkspace(cwd); err != nil {
			log.Fatalf("failed to init workspace: %v", err)
		}
		log.Printf("initialized workspace at %s", cwd)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, workspace, err := config.LoadWithWorkspace(*configPath, config.WorkspaceOptions{
		Disable:     *noWorkspace,
		ExplicitDir: *workspaceDir,
	})
	if err != nil {
		// Before we can redirect logs, write to stderr as last resort
		log.Fatalf("failed to load config: %v", err)
	}
	if *ssePort != 0 {
		cfg.MCP.SSEPort = *ssePort
	}

	// Redirect logging to file for stdio mode (stderr interferes with MCP protocol)
	if cfg.MCP.SSEPort == 0 && cfg.Server.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		} else {
			// If we can't open log file, disable logging to avoid stderr pollution
			log.SetOutput(io.Discard)
		}
	}
	if workspace != "" {
		log.Printf("using workspace %s", workspace)
	}

	engine, err := facts.NewEngine(cfg.Facts)
	if err != nil {
		log.Fatalf("failed to initialize facts engine: %v", err)
	}

	driver, err := automation.OpenDriver(cfg.Automation)
	if err != nil {
		log.Fatalf("failed to open automation driver: %v", err)
	}

	windows := automation.NewWindowManager(cfg.Automation, driver, engine)
	defer func() {
		if err := windows.Shutdown(); err != nil {
			log.Printf("window manager shutdown: %v", err)
		}
	}()

	var rec *recorder.Recorder
	if cfg.Recorder.Enabled {
		rec, err = recorder.NewRecorder(cfg.Recorder.TraceDir)
		if err != nil {
			log.Printf("flight recorder disabled: %v", err)
			rec = nil
		} else {
			if err := rec.Start(); err != nil {
				log.Printf("flight recorder disabled: %v", err)
				rec = nil
			} else {
				defer rec.Close()
			}
		}
	}

	server, err := mcpserver.NewServer(cfg, windows, engine, rec)
	if err != nil {
		log.Fatalf("failed to initialize MCP server: %v", err)
	}

	var startErr error
	if cfg.MCP.SSEPort > 0 {
		log.Printf("starting DeskNERD MCP SSE server on port %d", cfg.MCP.SSEPort)
		startErr = server.StartSSE(ctx, cfg.MCP.SSEPort)
	} else {
		log.Printf("starting DeskNERD MCP stdio server")
		startErr = server.Start(ctx)
	}

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		log.Fatalf("server exited with error: %v", startErr)
	}
}

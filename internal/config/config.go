package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// WorkspaceDirName is the directory name for project-level DeskNERD config.
	WorkspaceDirName = ".desknerd"
	// WorkspaceConfigFile is the config file name inside the workspace directory.
	WorkspaceConfigFile = "config.yaml"
	// MaxSearchDepth limits how many parent directories to walk when discovering a workspace.
	MaxSearchDepth = 10
)

// WorkspaceOptions controls workspace discovery behavior.
type WorkspaceOptions struct {
	// Disable skips workspace discovery entirely (--no-workspace flag).
	Disable bool
	// ExplicitDir uses this directory as workspace root instead of walking up (--workspace-dir flag).
	ExplicitDir string
}

// Config captures all tunable settings for the DeskNERD MCP server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Automation AutomationConfig `yaml:"automation"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	MCP        MCPConfig        `yaml:"mcp"`
	Facts      FactsConfig      `yaml:"facts"`
	Recorder   RecorderConfig   `yaml:"recorder"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
}

// AutomationConfig selects and configures the desktop automation driver.
type AutomationConfig struct {
	// Driver backend: "sim" (in-process simulated desktop) or a platform
	// driver registered at build time (e.g. "uia" on Windows builds).
	Driver string `yaml:"driver"`
	// Path to the sim driver's application catalog (YAML tree definitions).
	AppsPath string `yaml:"apps_path"`
	// How long windows_launch waits for the main window (e.g. "10s").
	LaunchTimeout string `yaml:"launch_timeout"`
}

// SnapshotConfig holds the default bounds for windows_snapshot.
// Per-call tool arguments override these.
type SnapshotConfig struct {
	// Maximum tree depth to descend (default: 10).
	MaxDepth int `yaml:"max_depth"`
	// Hard cap on emitted elements per snapshot (default: 200).
	MaxElements int `yaml:"max_elements"`
	// Element names longer than this are truncated with an ellipsis (default: 50).
	NameMaxLength int `yaml:"name_max_length"`
	// Default role filter: all | interactive | text | structure.
	Filter string `yaml:"filter"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
}

// FactsConfig controls the embedded deductive engine.
type FactsConfig struct {
	Enable          bool   `yaml:"enable"`
	SchemaPath      string `yaml:"schema_path"`
	FactBufferLimit int    `yaml:"fact_buffer_limit"`
}

// RecorderConfig controls the tool-call flight recorder.
type RecorderConfig struct {
	Enabled  bool   `yaml:"enabled"`
	TraceDir string `yaml:"trace_dir"`
}

// DefaultConfig provides reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "desknerd-mcp",
			Version: "0.0.3",
			LogFile: "desknerd-mcp.log",
		},
		Automation: AutomationConfig{
			Driver:        "sim",
			AppsPath:      "apps.yaml",
			LaunchTimeout: "10s",
		},
		Snapshot: SnapshotConfig{
			MaxDepth:      10,
			MaxElements:   200,
			NameMaxLength: 50,
			Filter:        "all",
		},
		MCP: MCPConfig{
			SSEPort: 0,
		},
		Facts: FactsConfig{
			Enable:          true,
			FactBufferLimit: 2048,
		},
		Recorder: RecorderConfig{
			Enabled:  true,
			TraceDir: "data/traces",
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// DiscoverWorkspace walks up from startDir looking for a .desknerd/config.yaml file.
// Returns the workspace root directory (parent of .desknerd/) or empty string if not found.
func DiscoverWorkspace(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving start directory: %w", err)
	}

	for i := 0; i < MaxSearchDepth; i++ {
		candidate := filepath.Join(dir, WorkspaceDirName, WorkspaceConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", nil
}

// LoadWithWorkspace implements multi-layer config merge:
//
//	DefaultConfig() <- .desknerd/config.yaml <- explicit --config <- CLI flags
//
// Returns the merged config and the workspace directory (empty if none found).
func LoadWithWorkspace(explicitConfig string, opts WorkspaceOptions) (Config, string, error) {
	cfg := DefaultConfig()
	wsDir := ""

	// Layer 1: Workspace config (if not disabled)
	if !opts.Disable {
		var err error
		if opts.ExplicitDir != "" {
			candidate := filepath.Join(opts.ExplicitDir, WorkspaceDirName, WorkspaceConfigFile)
			if _, statErr := os.Stat(candidate); statErr == nil {
				wsDir = opts.ExplicitDir
			}
		} else {
			cwd, cwdErr := os.Getwd()
			if cwdErr != nil {
				return cfg, "", fmt.Errorf("getting working directory: %w", cwdErr)
			}
			wsDir, err = DiscoverWorkspace(cwd)
			if err != nil {
				return cfg, "", fmt.Errorf("discovering workspace: %w", err)
			}
		}

		if wsDir != "" {
			wsConfigPath := filepath.Join(wsDir, WorkspaceDirName, WorkspaceConfigFile)
			raw, err := os.ReadFile(wsConfigPath)
			if err != nil {
				return cfg, "", fmt.Errorf("reading workspace config %s: %w", wsConfigPath, err)
			}
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, "", fmt.Errorf("parsing workspace config %s: %w", wsConfigPath, err)
			}
			cfg = resolveWorkspacePaths(cfg, wsDir)
		}
	}

	// Layer 2: Explicit config file (--config flag)
	if explicitConfig != "" {
		raw, err := os.ReadFile(explicitConfig)
		if err != nil {
			return cfg, wsDir, fmt.Errorf("reading explicit config %s: %w", explicitConfig, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, wsDir, fmt.Errorf("parsing explicit config %s: %w", explicitConfig, err)
		}
	}

	return cfg, wsDir, cfg.Validate()
}

// InitWorkspace creates a .desknerd/ directory with template files at root.
func InitWorkspace(root string) error {
	wsDir := filepath.Join(root, WorkspaceDirName)

	if _, err := os.Stat(wsDir); err == nil {
		return fmt.Errorf("workspace directory already exists: %s", wsDir)
	}

	dirs := []string{
		wsDir,
		filepath.Join(wsDir, "data"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	templateConfig := `# DeskNERD project-level configuration
# Values here override defaults but are overridden by --config and CLI flags.

# automation:
#   driver: sim
#   apps_path: ".desknerd/apps.yaml"

# snapshot:
#   max_depth: 10
#   max_elements: 200

# facts:
#   schema_path: ".desknerd/desktop.mg"
`
	configPath := filepath.Join(wsDir, WorkspaceConfigFile)
	if err := os.WriteFile(configPath, []byte(templateConfig), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	gitignoreContent := "# Runtime data (logs, traces) - do not version control\ndata/\n"
	gitignorePath := filepath.Join(wsDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}

// resolveWorkspacePaths resolves relative paths in the config against the workspace directory.
func resolveWorkspacePaths(cfg Config, wsDir string) Config {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(wsDir, p)
	}

	cfg.Server.LogFile = resolve(cfg.Server.LogFile)
	cfg.Automation.AppsPath = resolve(cfg.Automation.AppsPath)
	cfg.Facts.SchemaPath = resolve(cfg.Facts.SchemaPath)
	cfg.Recorder.TraceDir = resolve(cfg.Recorder.TraceDir)
	return cfg
}

// Validate ensures required fields exist so the server can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if c.Automation.Driver == "" {
		return errors.New("automation.driver is required")
	}
	switch c.Snapshot.Filter {
	case "", "all", "interactive", "text", "structure":
	default:
		return fmt.Errorf("snapshot.filter must be one of all|interactive|text|structure, got %q", c.Snapshot.Filter)
	}
	return nil
}

// GetLaunchTimeout returns the parsed launch timeout with a sane default.
func (a AutomationConfig) GetLaunchTimeout() time.Duration {
	if a.LaunchTimeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(a.LaunchTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetMaxDepth returns the configured depth bound with a sane default.
func (s SnapshotConfig) GetMaxDepth() int {
	if s.MaxDepth <= 0 {
		return 10
	}
	return s.MaxDepth
}

// GetMaxElements returns the configured element cap with a sane default.
func (s SnapshotConfig) GetMaxElements() int {
	if s.MaxElements <= 0 {
		return 200
	}
	return s.MaxElements
}

// GetNameMaxLength returns the configured name length bound with a sane default.
func (s SnapshotConfig) GetNameMaxLength() int {
	if s.NameMaxLength <= 0 {
		return 50
	}
	return s.NameMaxLength
}

// GetFilter returns the configured default filter.
func (s SnapshotConfig) GetFilter() string {
	if s.Filter == "" {
		return "all"
	}
	return s.Filter
}

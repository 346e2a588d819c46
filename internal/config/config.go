package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// ContactsPath is the address-book file (.json, .yaml or .yml).
	// Relative paths resolve against the base directory. Empty means <base>/contacts.json.
	ContactsPath string `json:"contacts_path,omitempty"`

	// MaxSelectionRounds caps the rejection-sampling loop. Past the cap the
	// last drawn candidate is accepted.
	MaxSelectionRounds int `json:"max_selection_rounds"`

	// RefreshIntervalSeconds is the periodic refresh timer for every surface.
	// 0 or negative turns the timer off.
	RefreshIntervalSeconds int `json:"refresh_interval_seconds"`

	// ContactsPollSeconds is how often the address-book file is checked for changes.
	ContactsPollSeconds int `json:"contacts_poll_seconds"`

	// EngageRetries is how many extra attempts an engagement increment gets
	// after a storage failure before the failure is logged and dropped.
	// 0 or negative disables retries.
	EngageRetries int `json:"engage_retries"`

	// Surfaces names the displays the host keeps refreshed. Timer and
	// data-change triggers only reach these; the web widget answers 404 for
	// any other name. "default" is always present.
	Surfaces []string `json:"surfaces,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside <base>/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool type names to disable entirely.
	// Known types: "contact", "counter".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is text or json.
	LogFormat string `json:"log_format,omitempty"`

	// WebBind and WebPort address the web widget server.
	WebBind string `json:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty"`

	// BaseDir is where the database, exports and default address book live.
	// Set by the loader, never read from JSON.
	BaseDir string `json:"-"`

	// Keys where an explicit 0 overrides the default.
	refreshSet bool
	retriesSet bool
}

// explicitInts records which zero-meaningful keys a config file sets.
type explicitInts struct {
	RefreshIntervalSeconds *int `json:"refresh_interval_seconds"`
	EngageRetries          *int `json:"engage_retries"`
}

// DefaultBaseDir returns ~/.kin.
func DefaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".kin"), nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxSelectionRounds:     1000,
		RefreshIntervalSeconds: 1800,
		ContactsPollSeconds:    60,
		EngageRetries:          1,
		Surfaces:               []string{"default"},
		LogLevel:               "info",
		LogFormat:              "text",
		WebBind:                "127.0.0.1",
		WebPort:                8732,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.kin.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	cfg.BaseDir = baseDir
	return cfg, nil
}

// LoadWithRepo loads configuration from both global (~/.kin) and repo (.kin) directories.
// Repo config is found by walking upward from startDir to find the nearest .kin/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	cfg.BaseDir = globalDir
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .kin/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".kin", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ResolveContactsPath returns the absolute address-book path.
func (c *Config) ResolveContactsPath() string {
	p := strings.TrimSpace(c.ContactsPath)
	if p == "" {
		return filepath.Join(c.BaseDir, "contacts.json")
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// ExportsDir returns <base>/exports.
func (c *Config) ExportsDir() string {
	return filepath.Join(c.BaseDir, "exports")
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	var explicit explicitInts
	if err := json.Unmarshal(data, &explicit); err != nil {
		return nil, err
	}
	cfg.refreshSet = explicit.RefreshIntervalSeconds != nil
	cfg.retriesSet = explicit.EngageRetries != nil

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		BaseDir: firstString(overlay.BaseDir, base.BaseDir),
	}

	// Scalars: overlay wins if non-zero, else base
	result.ContactsPath = firstString(overlay.ContactsPath, base.ContactsPath)
	result.MaxSelectionRounds = firstInt(overlay.MaxSelectionRounds, base.MaxSelectionRounds)
	result.RefreshIntervalSeconds = explicitInt(overlay.refreshSet, overlay.RefreshIntervalSeconds, base.RefreshIntervalSeconds)
	result.ContactsPollSeconds = firstInt(overlay.ContactsPollSeconds, base.ContactsPollSeconds)
	result.EngageRetries = explicitInt(overlay.retriesSet, overlay.EngageRetries, base.EngageRetries)
	result.refreshSet = base.refreshSet || overlay.refreshSet
	result.retriesSet = base.retriesSet || overlay.retriesSet
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = firstString(overlay.LogFormat, base.LogFormat)
	result.WebBind = firstString(overlay.WebBind, base.WebBind)
	result.WebPort = firstInt(overlay.WebPort, base.WebPort)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)
	result.Surfaces = mergeStringSlice(base.Surfaces, overlay.Surfaces)

	return result
}

// explicitInt is firstInt for keys where a present 0 is a real value.
func explicitInt(set bool, overlay, base int) int {
	if set || overlay != 0 {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Environment variables the LambdaTest tooling conventionally uses.
const (
	envUsername  = "LT_USERNAME"
	envAccessKey = "LT_ACCESS_KEY"
)

// CLIConfig describes the HyperExecute binary wells drives. The YAML file
// named by ConfigFile belongs to the CLI; wells passes the path through
// and never generates or validates its contents.
type CLIConfig struct {
	Binary     string   `json:"binary"`
	Args       []string `json:"args,omitempty"`
	ConfigFile string   `json:"configFile"`
	LogFile    string   `json:"logFile,omitempty"` // default "hyperexecute-cli.log"
	WorkDir    string   `json:"workDir,omitempty"`
}

// CredentialsConfig holds account credentials. Either field may be left
// empty to fall back to the LT_USERNAME / LT_ACCESS_KEY environment.
type CredentialsConfig struct {
	Username  string `json:"username,omitempty"`
	AccessKey string `json:"accessKey,omitempty"`
}

// FollowConfig paces the controller loop in 'wells run' / 'wells watch':
// how long to pause between Advance calls and when to give up entirely.
type FollowConfig struct {
	IntervalMs int `json:"intervalMs,omitempty"`
	TimeoutMin int `json:"timeoutMin,omitempty"`
}

// BrowserConfig configures job-page evidence capture.
type BrowserConfig struct {
	Enabled        bool   `json:"enabled,omitempty"`
	ExecutablePath string `json:"executablePath,omitempty"`
	Headless       bool   `json:"headless,omitempty"`
	ScreenshotDir  string `json:"screenshotDir,omitempty"`
}

// WellsConfig is the main configuration loaded from wells.config.json.
type WellsConfig struct {
	CLI         CLIConfig          `json:"cli"`
	Credentials *CredentialsConfig `json:"credentials,omitempty"`
	Budgets     *BudgetConfig      `json:"budgets,omitempty"`
	Follow      *FollowConfig      `json:"follow,omitempty"`
	Browser     *BrowserConfig     `json:"browser,omitempty"`
	Logging     *LoggingConfig     `json:"logging,omitempty"`
}

// ResolvedConfig is the fully resolved configuration.
type ResolvedConfig struct {
	ProjectRoot string
	Config      WellsConfig
}

// ConfigPath returns the path to wells.config.json.
func ConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, "wells.config.json")
}

// LoadConfig loads, defaults and validates wells.config.json.
func LoadConfig(projectRoot string) (*ResolvedConfig, error) {
	configPath := ConfigPath(projectRoot)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("wells.config.json not found\n\nRun 'wells init' to create one")
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg WellsConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid wells.config.json: %w", err)
	}

	applyConfigDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &ResolvedConfig{
		ProjectRoot: projectRoot,
		Config:      cfg,
	}, nil
}

// applyConfigDefaults fills every optional section with stock values.
func applyConfigDefaults(cfg *WellsConfig) {
	if cfg.CLI.LogFile == "" {
		cfg.CLI.LogFile = "hyperexecute-cli.log"
	}
	if cfg.Budgets == nil {
		cfg.Budgets = &BudgetConfig{}
	}
	applyBudgetDefaults(cfg.Budgets)
	if cfg.Follow == nil {
		cfg.Follow = &FollowConfig{}
	}
	if cfg.Follow.IntervalMs <= 0 {
		cfg.Follow.IntervalMs = 2000
	}
	if cfg.Follow.TimeoutMin <= 0 {
		cfg.Follow.TimeoutMin = 30
	}
	if cfg.Browser == nil {
		cfg.Browser = &BrowserConfig{
			Enabled:       true,
			Headless:      true,
			ScreenshotDir: ".wells/screenshots",
		}
	}
	if cfg.Logging == nil {
		cfg.Logging = DefaultLoggingConfig()
	}
}

// validateConfig validates the required fields.
func validateConfig(cfg *WellsConfig) error {
	if cfg.CLI.Binary == "" {
		return fmt.Errorf("cli.binary is required")
	}
	if cfg.CLI.ConfigFile == "" {
		return fmt.Errorf("cli.configFile is required")
	}
	return nil
}

// LogPath returns the absolute path of the CLI log file the watchers poll.
func (rc *ResolvedConfig) LogPath() string {
	if filepath.IsAbs(rc.Config.CLI.LogFile) {
		return rc.Config.CLI.LogFile
	}
	return filepath.Join(rc.WorkDir(), rc.Config.CLI.LogFile)
}

// WorkDir returns the directory the CLI runs in.
func (rc *ResolvedConfig) WorkDir() string {
	if rc.Config.CLI.WorkDir != "" {
		if filepath.IsAbs(rc.Config.CLI.WorkDir) {
			return rc.Config.CLI.WorkDir
		}
		return filepath.Join(rc.ProjectRoot, rc.Config.CLI.WorkDir)
	}
	return rc.ProjectRoot
}

// Budgets returns the resolved milestone budgets.
func (rc *ResolvedConfig) Budgets() *BudgetConfig {
	return rc.Config.Budgets
}

// Credentials resolves account credentials: config first, environment as
// fallback. Empty fields are reported by CheckReadiness, not here.
func (rc *ResolvedConfig) Credentials() Credentials {
	creds := Credentials{}
	if rc.Config.Credentials != nil {
		creds.Username = rc.Config.Credentials.Username
		creds.AccessKey = rc.Config.Credentials.AccessKey
	}
	if creds.Username == "" {
		creds.Username = os.Getenv(envUsername)
	}
	if creds.AccessKey == "" {
		creds.AccessKey = os.Getenv(envAccessKey)
	}
	return creds
}

// DataDir returns the .wells directory.
func (rc *ResolvedConfig) DataDir() string {
	return filepath.Join(rc.ProjectRoot, ".wells")
}

// findGitRoot walks upward looking for a .git directory.
func findGitRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// GetProjectRoot returns the project root (git root or cwd).
func GetProjectRoot() string {
	cwd, _ := os.Getwd()
	return findGitRoot(cwd)
}

// isCommandAvailable checks if a command is available in PATH.
func isCommandAvailable(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// WriteDefaultConfig writes a starter wells.config.json.
func WriteDefaultConfig(projectRoot string) error {
	cfg := WellsConfig{
		CLI: CLIConfig{
			Binary:     "hyperexecute",
			ConfigFile: "hyperexecute.yaml",
			LogFile:    "hyperexecute-cli.log",
		},
		Follow: &FollowConfig{
			IntervalMs: 2000,
			TimeoutMin: 30,
		},
		Browser: &BrowserConfig{
			Enabled:       true,
			Headless:      true,
			ScreenshotDir: ".wells/screenshots",
		},
	}

	return AtomicWriteJSON(ConfigPath(projectRoot), cfg)
}

// CheckReadiness validates the environment before a run. Returns a list of
// blocking issues; empty means ready.
func CheckReadiness(rc *ResolvedConfig) []string {
	var issues []string

	if !isCommandAvailable(rc.Config.CLI.Binary) {
		issues = append(issues, fmt.Sprintf("cli.binary: '%s' not found in PATH", rc.Config.CLI.Binary))
	}

	configFile := rc.Config.CLI.ConfigFile
	if !filepath.IsAbs(configFile) {
		configFile = filepath.Join(rc.WorkDir(), configFile)
	}
	if !fileExists(configFile) {
		issues = append(issues, fmt.Sprintf("cli.configFile: %s does not exist", configFile))
	}

	creds := rc.Credentials()
	if creds.Username == "" {
		issues = append(issues, "no username: set credentials.username or "+envUsername)
	}
	if creds.AccessKey == "" {
		issues = append(issues, "no access key: set credentials.accessKey or "+envAccessKey)
	}

	return issues
}

// CheckReadinessWarnings returns non-blocking warnings.
func CheckReadinessWarnings(rc *ResolvedConfig) []string {
	var warnings []string
	if rc.Config.Browser != nil && rc.Config.Browser.Enabled {
		if rc.Config.Browser.ExecutablePath == "" && !isCommandAvailable("google-chrome") && !isCommandAvailable("chromium") {
			warnings = append(warnings, "no Chrome/Chromium found in PATH — job-page screenshots will be skipped. Set browser.executablePath or install Chrome.")
		}
	}
	return warnings
}

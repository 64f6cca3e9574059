// Package config provides configuration loading and management for the tile provider generator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/osmtiles-provider/internal/telemetry"
)

const (
	// EnvPrefix is the prefix for environment variables read through viper
	EnvPrefix = "OSMTILES"

	// DefaultTimeout is the per-source fetch timeout used when none is configured
	DefaultTimeout = 30 * time.Second

	// DefaultSidecarExtension is the extension used for sidecar scripts when none is configured
	DefaultSidecarExtension = "js"
)

const (
	// SourceTypeStatic renders a local template with static variables
	SourceTypeStatic = "static"

	// SourceTypeCapabilities renders a template with the latest value of a remote capabilities document
	SourceTypeCapabilities = "capabilities"

	// SourceTypeSession renders a template with credentials harvested from an authenticated session
	SourceTypeSession = "session"

	// SourceTypeFile passes local config (and optional sidecar) files through verbatim
	SourceTypeFile = "file"
)

// namePattern restricts source and master names to safe filename stems.
var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Output controls where generated artifacts are written
	Output OutputConfig `yaml:"output"`

	// Templates controls where templates are looked up
	Templates TemplatesConfig `yaml:"templates,omitempty"`

	// Timeout bounds every single source fetch (e.g., "30s")
	// Defaults to 30s if not specified
	Timeout string `yaml:"timeout,omitempty"`

	// Masters are the top-level templates rendered over every known source.
	// Each master produces {output.root}/{name}.conf
	Masters []MasterConfig `yaml:"masters"`

	// Sources are the tile providers, in composition order
	Sources []SourceConfig `yaml:"sources"`

	// Telemetry configures optional metrics and tracing export
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// OutputConfig defines the output tree
type OutputConfig struct {
	// Root is the directory receiving the master configs and the provider/ tree
	Root string `yaml:"root"`
}

// TemplatesConfig defines template lookup settings
type TemplatesConfig struct {
	// Dir is an optional directory whose templates take precedence over the built-in ones
	Dir string `yaml:"dir,omitempty"`
}

// MasterConfig defines one composed master configuration
type MasterConfig struct {
	// Name is the output file stem
	Name string `yaml:"name"`

	// Template is the template name to render
	Template string `yaml:"template"`
}

// SourceConfig defines a single tile provider
type SourceConfig struct {
	// Name is the identifier for this source and the stem of its generated files
	Name string `yaml:"name"`

	// Type-specific configurations (only one should be set)
	Static       *StaticConfig       `yaml:"static,omitempty"`
	Capabilities *CapabilitiesConfig `yaml:"capabilities,omitempty"`
	Session      *SessionConfig      `yaml:"session,omitempty"`
	File         *FileConfig         `yaml:"file,omitempty"`
}

// StaticConfig defines a pure local template render
type StaticConfig struct {
	// Template is the template name to render
	Template string `yaml:"template"`

	// Vars are exposed to the template as .Vars
	Vars map[string]string `yaml:"vars,omitempty"`
}

// CapabilitiesConfig defines a render driven by a remote capabilities document
type CapabilitiesConfig struct {
	// URL is the capabilities endpoint returning JSON
	URL string `yaml:"url"`

	// Path is the gjson path of the value collection (e.g., "data.timesteps")
	Path string `yaml:"path,omitempty"`

	// Template is the template name to render
	Template string `yaml:"template"`

	// Vars are exposed to the template as .Vars
	Vars map[string]string `yaml:"vars,omitempty"`
}

// GetPath returns the value collection path, using "data.timesteps" if not specified
func (c *CapabilitiesConfig) GetPath() string {
	if c.Path == "" {
		return "data.timesteps"
	}
	return c.Path
}

// SessionConfig defines a render driven by credentials from an authenticated session
type SessionConfig struct {
	// LoginURL is the login page carrying the security token meta tags.
	// A login attempt landing back on this URL is treated as a failed login.
	LoginURL string `yaml:"loginURL"`

	// SessionURL receives the credential form POST
	SessionURL string `yaml:"sessionURL"`

	// AuthURL is visited after login to obtain the session cookies
	AuthURL string `yaml:"authURL"`

	// CookieURL is the URL whose cookies are read; defaults to AuthURL
	CookieURL string `yaml:"cookieURL,omitempty"`

	// Email is the account login
	Email string `yaml:"email"`

	// PasswordFile is the path to a file containing the account password
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// PasswordEnv names an environment variable holding the account password
	PasswordEnv string `yaml:"passwordEnv,omitempty"`

	// Cookies maps the three harvested credential fields to cookie names
	Cookies SessionCookiesConfig `yaml:"cookies,omitempty"`

	// Template is the template name to render
	Template string `yaml:"template"`

	// Vars are exposed to the template as .Vars
	Vars map[string]string `yaml:"vars,omitempty"`
}

// SessionCookiesConfig names the cookies holding the harvested credentials
type SessionCookiesConfig struct {
	KeyPairID string `yaml:"keyPairID,omitempty"`
	Policy    string `yaml:"policy,omitempty"`
	Signature string `yaml:"signature,omitempty"`
}

// GetCookieURL returns the URL whose cookies are read
func (s *SessionConfig) GetCookieURL() string {
	if s.CookieURL == "" {
		return s.AuthURL
	}
	return s.CookieURL
}

// GetCookies returns the cookie names, defaulting to the CloudFront signed cookie names
func (s *SessionConfig) GetCookies() SessionCookiesConfig {
	cookies := s.Cookies
	if cookies.KeyPairID == "" {
		cookies.KeyPairID = "CloudFront-Key-Pair-Id"
	}
	if cookies.Policy == "" {
		cookies.Policy = "CloudFront-Policy"
	}
	if cookies.Signature == "" {
		cookies.Signature = "CloudFront-Signature"
	}
	return cookies
}

// GetPassword returns the account password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the environment variable named by PasswordEnv
//
// The password from file will have leading/trailing whitespace trimmed.
func (s *SessionConfig) GetPassword() (string, error) {
	if s.PasswordFile != "" {
		cleanPath := filepath.Clean(s.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", s.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if s.PasswordEnv != "" {
		if envPassword := os.Getenv(s.PasswordEnv); envPassword != "" {
			return envPassword, nil
		}
	}

	return "", fmt.Errorf("no session password configured: set passwordFile or passwordEnv")
}

// FileConfig defines a verbatim passthrough of local files
type FileConfig struct {
	// Config is the path to the config snippet
	Config string `yaml:"config"`

	// Sidecar is the optional path to the sidecar script
	Sidecar string `yaml:"sidecar,omitempty"`

	// SidecarExtension is the extension of the generated sidecar file.
	// Defaults to "js" when Sidecar is set.
	SidecarExtension string `yaml:"sidecarExtension,omitempty"`
}

// GetSidecarExtension returns the declared sidecar extension, or "" when no sidecar is configured
func (f *FileConfig) GetSidecarExtension() string {
	if f.Sidecar == "" {
		return ""
	}
	if f.SidecarExtension == "" {
		return DefaultSidecarExtension
	}
	return strings.TrimPrefix(f.SidecarExtension, ".")
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetTimeout returns the per-source fetch timeout
func (c *Config) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return DefaultTimeout
	}
	return d
}

// SourceNames returns the configured source names in composition order
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, src := range c.Sources {
		names = append(names, src.Name)
	}
	return names
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Output.Root == "" {
		return fmt.Errorf("output.root is required")
	}

	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("timeout must be a valid duration (e.g., '30s', '1m'): %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
		}
	}

	if err := c.validateMasters(); err != nil {
		return err
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}

	sourceNames := make(map[string]bool)
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Name == "" {
			return fmt.Errorf("source[%d]: name is required", i)
		}
		if !namePattern.MatchString(src.Name) {
			return fmt.Errorf("source[%d]: name '%s' must match %s", i, src.Name, namePattern.String())
		}
		if sourceNames[src.Name] {
			return fmt.Errorf("source[%d]: duplicate source name '%s'", i, src.Name)
		}
		sourceNames[src.Name] = true

		if err := validateSourceConfig(src, i); err != nil {
			return err
		}
	}

	return nil
}

// validateMasters validates the master template list
func (c *Config) validateMasters() error {
	if len(c.Masters) == 0 {
		return fmt.Errorf("at least one master must be configured")
	}

	masterNames := make(map[string]bool)
	for i, m := range c.Masters {
		if m.Name == "" {
			return fmt.Errorf("master[%d]: name is required", i)
		}
		if !namePattern.MatchString(m.Name) {
			return fmt.Errorf("master[%d]: name '%s' must match %s", i, m.Name, namePattern.String())
		}
		if masterNames[m.Name] {
			return fmt.Errorf("master[%d]: duplicate master name '%s'", i, m.Name)
		}
		masterNames[m.Name] = true
		if m.Template == "" {
			return fmt.Errorf("master[%d] (%s): template is required", i, m.Name)
		}
	}
	return nil
}

// validateSourceConfig validates a single source configuration
func validateSourceConfig(src *SourceConfig, index int) error {
	prefix := fmt.Sprintf("source[%d] (%s)", index, src.Name)

	if err := validateSourceTypeCount(src, prefix); err != nil {
		return err
	}

	return validateSourceSpecificConfig(src, prefix)
}

// validateSourceTypeCount ensures exactly one source type is configured
func validateSourceTypeCount(src *SourceConfig, prefix string) error {
	configCount := 0
	if src.Static != nil {
		configCount++
	}
	if src.Capabilities != nil {
		configCount++
	}
	if src.Session != nil {
		configCount++
	}
	if src.File != nil {
		configCount++
	}

	if configCount == 0 {
		return fmt.Errorf("%s: one of static, capabilities, session, or file configuration must be specified", prefix)
	}
	if configCount > 1 {
		return fmt.Errorf("%s: only one of static, capabilities, session, or file configuration may be specified", prefix)
	}

	return nil
}

// validateSourceSpecificConfig validates the configuration for each source type
func validateSourceSpecificConfig(src *SourceConfig, prefix string) error {
	switch {
	case src.Static != nil:
		if src.Static.Template == "" {
			return fmt.Errorf("%s: static.template is required", prefix)
		}
	case src.Capabilities != nil:
		return validateCapabilitiesConfig(src.Capabilities, prefix)
	case src.Session != nil:
		return validateSessionConfig(src.Session, prefix)
	case src.File != nil:
		return validateFileConfig(src.File, prefix)
	}
	return nil
}

// validateCapabilitiesConfig validates capabilities-specific configuration
func validateCapabilitiesConfig(c *CapabilitiesConfig, prefix string) error {
	if c.URL == "" {
		return fmt.Errorf("%s: capabilities.url is required", prefix)
	}
	if c.Template == "" {
		return fmt.Errorf("%s: capabilities.template is required", prefix)
	}
	return nil
}

// validateSessionConfig validates session-specific configuration
func validateSessionConfig(s *SessionConfig, prefix string) error {
	if s.LoginURL == "" {
		return fmt.Errorf("%s: session.loginURL is required", prefix)
	}
	if s.SessionURL == "" {
		return fmt.Errorf("%s: session.sessionURL is required", prefix)
	}
	if s.AuthURL == "" {
		return fmt.Errorf("%s: session.authURL is required", prefix)
	}
	if s.Email == "" {
		return fmt.Errorf("%s: session.email is required", prefix)
	}
	if s.PasswordFile == "" && s.PasswordEnv == "" {
		return fmt.Errorf("%s: one of session.passwordFile or session.passwordEnv is required", prefix)
	}
	if s.Template == "" {
		return fmt.Errorf("%s: session.template is required", prefix)
	}
	return nil
}

// validateFileConfig validates file-specific configuration
func validateFileConfig(f *FileConfig, prefix string) error {
	if f.Config == "" {
		return fmt.Errorf("%s: file.config is required", prefix)
	}
	if f.SidecarExtension != "" && f.Sidecar == "" {
		return fmt.Errorf("%s: file.sidecarExtension requires file.sidecar", prefix)
	}
	if ext := f.GetSidecarExtension(); ext != "" && !namePattern.MatchString(ext) {
		return fmt.Errorf("%s: file.sidecarExtension '%s' must match %s", prefix, ext, namePattern.String())
	}
	return nil
}

// GetType returns the inferred type of the source config based on which field is present
func (s *SourceConfig) GetType() string {
	if s.Static != nil {
		return SourceTypeStatic
	}
	if s.Capabilities != nil {
		return SourceTypeCapabilities
	}
	if s.Session != nil {
		return SourceTypeSession
	}
	if s.File != nil {
		return SourceTypeFile
	}
	return ""
}

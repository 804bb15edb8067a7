// Package config loads judge-patrol configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Command-line flags (applied by the caller)
//  2. Environment variables (JUDGE_PATROL_*)
//  3. Config file
//  4. Built-in defaults
//
// Config file search order:
//  1. explicit --config path
//  2. .judge-patrol.yaml in current directory
//  3. ~/.config/judge-patrol/config.yaml
//
// No model names are built in. A route is wired only when a model is
// configured for it, either directly or through the top-level model.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timvw/judge-patrol/internal/model"
)

// RouteConfig selects the judge for one modality and tier. Empty fields
// fall back to the top-level values.
type RouteConfig struct {
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	BaseURL  string `yaml:"base_url" json:"base_url,omitempty"`
	APIKey   string `yaml:"api_key" json:"-"`
}

// Routes holds one RouteConfig per modality and tier.
type Routes struct {
	TextFast    RouteConfig `yaml:"text_fast"`
	TextSmart   RouteConfig `yaml:"text_smart"`
	VisualFast  RouteConfig `yaml:"visual_fast"`
	VisualSmart RouteConfig `yaml:"visual_smart"`
}

// Config holds all judge-patrol configuration.
type Config struct {
	// LLM defaults shared by all routes
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	MaxTokens int64  `yaml:"max_tokens"`

	Routes Routes `yaml:"routes"`

	// Driver settings
	Timeout  string `yaml:"timeout"` // Go duration string, e.g. "90s"
	Parallel int    `yaml:"parallel"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"`

	// TimeoutDuration is parsed from Timeout after loading.
	TimeoutDuration time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Provider:  "anthropic",
		MaxTokens: 1024,
		Timeout:   "120s",
		Parallel:  4,
	}
}

// Load reads configuration from the given file (or the search path when
// empty) and environment variables. Environment variables override file
// values.
func Load(explicitPath string) (*Config, error) {
	cfg := Defaults()

	path, data, err := findConfigFile(explicitPath)
	switch {
	case err == nil:
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	case explicitPath != "":
		return nil, err
	}

	mergeEnv(cfg)

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize parses derived fields. Call it again after applying flags.
func (c *Config) Finalize() error {
	d, err := ParseDurationOrDisable(c.Timeout, 120*time.Second)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	c.TimeoutDuration = d

	if c.MaxTokens < 0 || c.MaxTokens > math.MaxInt32 {
		return fmt.Errorf("invalid max_tokens %d: must be between 0 and %d", c.MaxTokens, math.MaxInt32)
	}
	return nil
}

// findConfigFile returns the path and contents of the first config file found.
func findConfigFile(explicitPath string) (string, []byte, error) {
	if explicitPath != "" {
		data, err := os.ReadFile(explicitPath)
		if err != nil {
			return "", nil, fmt.Errorf("reading config file: %w", err)
		}
		return explicitPath, data, nil
	}

	if data, err := os.ReadFile(".judge-patrol.yaml"); err == nil {
		return ".judge-patrol.yaml", data, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "judge-patrol", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Provider != "" {
		cfg.Provider = file.Provider
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if file.APIKey != "" {
		cfg.APIKey = file.APIKey
	}
	if file.MaxTokens > 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if file.Timeout != "" {
		cfg.Timeout = file.Timeout
	}
	if file.Parallel > 0 {
		cfg.Parallel = file.Parallel
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
	for _, name := range RouteNames {
		mergeRoute(cfg.Routes.ptr(name), *file.Routes.ptr(name))
	}
}

func mergeRoute(dst *RouteConfig, src RouteConfig) {
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins over the file.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("JUDGE_PATROL_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("JUDGE_PATROL_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("JUDGE_PATROL_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("JUDGE_PATROL_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("JUDGE_PATROL_TIMEOUT"); v != "" {
		cfg.Timeout = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
	for _, name := range RouteNames {
		prefix := "JUDGE_PATROL_" + strings.ToUpper(name) + "_"
		r := cfg.Routes.ptr(name)
		if v := os.Getenv(prefix + "PROVIDER"); v != "" {
			r.Provider = v
		}
		if v := os.Getenv(prefix + "MODEL"); v != "" {
			r.Model = v
		}
	}
}

// RouteNames lists the route keys in display order.
var RouteNames = []string{"text_fast", "text_smart", "visual_fast", "visual_smart"}

// RouteName returns the key for a modality and tier, e.g. "visual_smart".
func RouteName(modality model.Modality, tier model.Intelligence) string {
	m := "text"
	if modality == model.ModalityVisual {
		m = "visual"
	}
	t := "fast"
	if tier == model.IntelligenceSmart {
		t = "smart"
	}
	return m + "_" + t
}

func (r *Routes) ptr(name string) *RouteConfig {
	switch name {
	case "text_smart":
		return &r.TextSmart
	case "visual_fast":
		return &r.VisualFast
	case "visual_smart":
		return &r.VisualSmart
	default:
		return &r.TextFast
	}
}

// SetRouteModel overrides the model of one route (used for CLI flags).
func (c *Config) SetRouteModel(name, modelName string) {
	if modelName != "" {
		c.Routes.ptr(name).Model = modelName
	}
}

// Route returns the fully resolved route for a modality and tier:
// route values first, then top-level values, then provider API key
// fallbacks from the environment.
func (c *Config) Route(modality model.Modality, tier model.Intelligence) RouteConfig {
	r := *c.Routes.ptr(RouteName(modality, tier))
	if r.Provider == "" {
		r.Provider = c.Provider
	}
	if r.Model == "" {
		r.Model = c.Model
	}
	if r.BaseURL == "" {
		r.BaseURL = c.BaseURL
	}
	if r.APIKey == "" {
		r.APIKey = c.APIKey
	}
	if r.APIKey == "" {
		r.APIKey = providerAPIKey(r.Provider)
	}
	if r.BaseURL == "" {
		r.BaseURL = azureBaseURL(r.Provider)
	}
	return r
}

// Wired reports whether a route has enough configuration to build a judge.
func (r RouteConfig) Wired() bool {
	return r.Provider != "" && r.Model != ""
}

// providerAPIKey returns the conventional API key env var for a provider.
func providerAPIKey(provider string) string {
	var keys []string
	switch provider {
	case "anthropic":
		keys = []string{"AZURE_OPENAI_API_KEY", "ANTHROPIC_API_KEY"}
	case "openai":
		keys = []string{"AZURE_OPENAI_API_KEY", "OPENAI_API_KEY"}
	case "gemini", "google":
		keys = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// azureBaseURL derives an Azure endpoint from AZURE_RESOURCE_NAME.
func azureBaseURL(provider string) string {
	rn := os.Getenv("AZURE_RESOURCE_NAME")
	if rn == "" {
		return ""
	}
	switch provider {
	case "anthropic":
		// The Anthropic SDK appends v1/messages to the base URL.
		return fmt.Sprintf("https://%s.services.ai.azure.com/anthropic/", rn)
	case "openai":
		return fmt.Sprintf("https://%s.openai.azure.com/openai/v1", rn)
	}
	return ""
}

// ParseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func ParseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	switch s {
	case "":
		return fallback, nil
	case "0", "off", "disable":
		return 0, nil
	}
	return time.ParseDuration(s)
}

// IsAzureEndpoint returns true if the URL is an Azure endpoint.
func IsAzureEndpoint(url string) bool {
	return strings.Contains(url, ".azure.com") || strings.Contains(url, ".azure.us")
}

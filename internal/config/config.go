// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for a suite run.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Runner  RunnerConfig  `mapstructure:"runner" yaml:"runner"`
	Wait    WaitConfig    `mapstructure:"wait" yaml:"wait"`
	Params  ParamsConfig  `mapstructure:"params" yaml:"params"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig selects the browser and how it is launched.
type BrowserConfig struct {
	// Name is the CLI-facing browser selector: chrome, firefox or edge.
	Name     string   `mapstructure:"name" yaml:"name"`
	Headless bool     `mapstructure:"headless" yaml:"headless"`
	Args     []string `mapstructure:"args" yaml:"args"`
	// Binary overrides the browser executable for direct-connect runs.
	Binary string `mapstructure:"binary" yaml:"binary"`
	// InstallDrivers downloads the Playwright driver and engine before launching.
	InstallDrivers bool `mapstructure:"install_drivers" yaml:"install_drivers"`
}

// RunnerConfig mirrors the run configuration of the suite.
type RunnerConfig struct {
	SeleniumAddress string        `mapstructure:"selenium_address" yaml:"selenium_address"`
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	DirectConnect   bool          `mapstructure:"direct_connect" yaml:"direct_connect"`
	Framework       string        `mapstructure:"framework" yaml:"framework"`
	Specs           []string      `mapstructure:"specs" yaml:"specs"`
	FailFast        bool          `mapstructure:"fail_fast" yaml:"fail_fast"`
	StepTimeout     time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
}

// WaitConfig holds the default timeouts of the condition-wait layer and the
// settle delays used by the interaction helpers.
type WaitConfig struct {
	URLTimeout         time.Duration `mapstructure:"url_timeout" yaml:"url_timeout"`
	ElementTimeout     time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	TextTimeout        time.Duration `mapstructure:"text_timeout" yaml:"text_timeout"`
	PollInterval       time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SettleDelay        time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	BlurDelay          time.Duration `mapstructure:"blur_delay" yaml:"blur_delay"`
	InputDelay         time.Duration `mapstructure:"input_delay" yaml:"input_delay"`
	StorageClearBudget time.Duration `mapstructure:"storage_clear_budget" yaml:"storage_clear_budget"`
}

// ParamsConfig carries the free-form run parameters exposed to helpers.
type ParamsConfig struct {
	// BrowserName overrides the interaction family (e.g. "safari", "ie").
	BrowserName string `mapstructure:"browser_name" yaml:"browser_name"`
	DomainName  string `mapstructure:"domain_name" yaml:"domain_name"`
	OSX         bool   `mapstructure:"osx" yaml:"osx"`
	Env         string `mapstructure:"env" yaml:"env"`
}

// ReportConfig controls the run report.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	// Output is a file path; empty disables the report, "stdout" prints it.
	Output string `mapstructure:"output" yaml:"output"`
}

// NewDefaultConfig returns a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "petstore-e2e")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.name", "chrome")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.binary", "")
	v.SetDefault("browser.install_drivers", false)

	// -- Runner --
	v.SetDefault("runner.selenium_address", "http://localhost:4444/wd/hub")
	v.SetDefault("runner.base_url", "https://petstore.octoperf.com/actions/Catalog.action")
	v.SetDefault("runner.direct_connect", false)
	v.SetDefault("runner.framework", "scenario")
	v.SetDefault("runner.specs", []string{"store.*"})
	v.SetDefault("runner.fail_fast", true)
	v.SetDefault("runner.step_timeout", "2m")

	// -- Wait --
	v.SetDefault("wait.url_timeout", "30s")
	v.SetDefault("wait.element_timeout", "10s")
	v.SetDefault("wait.text_timeout", "20s")
	v.SetDefault("wait.poll_interval", "100ms")
	v.SetDefault("wait.settle_delay", "1s")
	v.SetDefault("wait.blur_delay", "500ms")
	v.SetDefault("wait.input_delay", "500ms")
	v.SetDefault("wait.storage_clear_budget", "1500ms")

	// -- Params --
	v.SetDefault("params.browser_name", "")
	v.SetDefault("params.domain_name", "")
	v.SetDefault("params.osx", false)
	v.SetDefault("params.env", "")

	// -- Report --
	v.SetDefault("report.format", "junit")
	v.SetDefault("report.output", "")
}

// NewConfigFromViper unmarshals and validates a configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Runner.BaseURL) == "" {
		return fmt.Errorf("runner.base_url is a required configuration field")
	}
	if _, err := url.ParseRequestURI(c.Runner.BaseURL); err != nil {
		return fmt.Errorf("runner.base_url is not a valid URL: %w", err)
	}
	if !c.Runner.DirectConnect {
		u, err := url.Parse(c.Runner.SeleniumAddress)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("runner.selenium_address must be an absolute URL when direct_connect is false")
		}
	}
	if c.Runner.StepTimeout <= 0 {
		return fmt.Errorf("runner.step_timeout must be positive")
	}
	if err := c.Wait.Validate(); err != nil {
		return fmt.Errorf("wait configuration invalid: %w", err)
	}
	switch c.Report.Format {
	case "junit", "json":
	default:
		return fmt.Errorf("report.format must be one of junit, json (got %q)", c.Report.Format)
	}
	return nil
}

// Validate checks that every wait timeout and the poll interval are positive.
func (w *WaitConfig) Validate() error {
	checks := map[string]time.Duration{
		"url_timeout":     w.URLTimeout,
		"element_timeout": w.ElementTimeout,
		"text_timeout":    w.TextTimeout,
		"poll_interval":   w.PollInterval,
	}
	for name, d := range checks {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if w.SettleDelay < 0 || w.BlurDelay < 0 || w.InputDelay < 0 || w.StorageClearBudget < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}

// Package manager picks the automation backend for a run and owns the
// lifecycle of the browser sessions it opens.
package manager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/cdp"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/pwdriver"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/wait"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/webdriver"
	"github.com/xkilldash9x/petstore-e2e/internal/capabilities"
	"github.com/xkilldash9x/petstore-e2e/internal/config"
)

// Backend names.
const (
	BackendWebDriver  = "webdriver"
	BackendCDP        = "cdp"
	BackendPlaywright = "playwright"
)

const shutdownGracePeriod = 15 * time.Second

// Launchers start a driver for each backend. Tests replace them.
type Launchers struct {
	WebDriver  func(ctx context.Context, c capabilities.Capability, address string, logger *zap.Logger) (browser.Driver, error)
	CDP        func(ctx context.Context, c capabilities.Capability, binary string, logger *zap.Logger) (browser.Driver, error)
	Playwright func(ctx context.Context, engine string, opts pwdriver.LaunchOptions, logger *zap.Logger) (browser.Driver, error)
}

// DefaultLaunchers uses the real backends.
func DefaultLaunchers() Launchers {
	return Launchers{
		WebDriver: func(ctx context.Context, c capabilities.Capability, address string, logger *zap.Logger) (browser.Driver, error) {
			return webdriver.Open(ctx, c, address, logger)
		},
		CDP: func(ctx context.Context, c capabilities.Capability, binary string, logger *zap.Logger) (browser.Driver, error) {
			return cdp.Launch(ctx, c, binary, logger)
		},
		Playwright: func(ctx context.Context, engine string, opts pwdriver.LaunchOptions, logger *zap.Logger) (browser.Driver, error) {
			return pwdriver.Launch(ctx, engine, opts, logger)
		},
	}
}

// Manager opens sessions according to the run configuration.
type Manager struct {
	cfg       *config.Config
	logger    *zap.Logger
	launchers Launchers
	platform  capabilities.Platform

	mu      sync.Mutex
	nextID  uint64
	drivers map[uint64]browser.Driver
}

// New creates a manager. Zero launchers fall back to DefaultLaunchers.
func New(cfg *config.Config, logger *zap.Logger, launchers Launchers) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultLaunchers()
	if launchers.WebDriver == nil {
		launchers.WebDriver = def.WebDriver
	}
	if launchers.CDP == nil {
		launchers.CDP = def.CDP
	}
	if launchers.Playwright == nil {
		launchers.Playwright = def.Playwright
	}
	return &Manager{
		cfg:       cfg,
		logger:    logger.Named("browser_manager"),
		launchers: launchers,
		platform:  capabilities.HostPlatform(),
		drivers:   make(map[uint64]browser.Driver),
	}
}

// Capability returns the capability record for the configured browser.
func (m *Manager) Capability() (capabilities.Capability, error) {
	return capabilities.Select(m.cfg.Browser.Name, capabilities.Options{
		Args:     m.cfg.Browser.Args,
		Headless: m.cfg.Browser.Headless,
		Platform: m.platform,
	})
}

// Backend reports which backend and, for Playwright, which engine serve c.
// Without direct connect every browser goes through the WebDriver hub. With
// it, Firefox and the safari family use Playwright and the rest use CDP.
func (m *Manager) Backend(c capabilities.Capability) (backend, engine string) {
	switch {
	case !m.cfg.Runner.DirectConnect:
		return BackendWebDriver, ""
	case strings.EqualFold(m.cfg.Params.BrowserName, "safari"):
		return BackendPlaywright, pwdriver.WebKit
	case c.ID == capabilities.Firefox:
		return BackendPlaywright, pwdriver.Firefox
	default:
		return BackendCDP, ""
	}
}

func (m *Manager) launch(ctx context.Context, c capabilities.Capability) (browser.Driver, error) {
	backend, engine := m.Backend(c)
	m.logger.Info("Opening browser.", zap.String("browser", c.BrowserName), zap.String("backend", backend), zap.String("engine", engine))
	switch backend {
	case BackendWebDriver:
		return m.launchers.WebDriver(ctx, c, m.cfg.Runner.SeleniumAddress, m.logger)
	case BackendPlaywright:
		return m.launchers.Playwright(ctx, engine, pwdriver.LaunchOptions{
			Headless: m.cfg.Browser.Headless,
			Args:     m.cfg.Browser.Args,
			Binary:   m.cfg.Browser.Binary,
			Install:  m.cfg.Browser.InstallDrivers,
		}, m.logger)
	default:
		return m.launchers.CDP(ctx, c, m.cfg.Browser.Binary, m.logger)
	}
}

// SessionOptions maps the configuration onto session options.
func SessionOptions(cfg *config.Config, logger *zap.Logger) session.Options {
	return session.Options{
		Params: session.Params{
			BrowserName: cfg.Params.BrowserName,
			DomainName:  cfg.Params.DomainName,
			Env:         cfg.Params.Env,
			OSX:         cfg.Params.OSX,
			BaseURL:     cfg.Runner.BaseURL,
		},
		Timeouts: wait.Timeouts{
			URL:     cfg.Wait.URLTimeout,
			Element: cfg.Wait.ElementTimeout,
			Text:    cfg.Wait.TextTimeout,
			Poll:    cfg.Wait.PollInterval,
		},
		Delays: session.Delays{
			Settle:             cfg.Wait.SettleDelay,
			Blur:               cfg.Wait.BlurDelay,
			Input:              cfg.Wait.InputDelay,
			StorageClearBudget: cfg.Wait.StorageClearBudget,
		},
		Logger: logger,
	}
}

// Open starts a browser and wraps it in a session. It satisfies scenario.Opener.
func (m *Manager) Open(ctx context.Context) (*session.Session, error) {
	c, err := m.Capability()
	if err != nil {
		return nil, err
	}
	d, err := m.launch(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s session: %w", c.BrowserName, err)
	}

	tracked := m.track(d)
	s, err := session.New(ctx, tracked, SessionOptions(m.cfg, m.logger))
	if err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGracePeriod)
		defer cancel()
		if qerr := tracked.Quit(cleanupCtx); qerr != nil {
			m.logger.Warn("Failed to close browser after session setup failed.", zap.Error(qerr))
		}
		return nil, err
	}
	return s, nil
}

// trackedDriver unregisters itself from the manager when it quits.
type trackedDriver struct {
	browser.Driver
	m  *Manager
	id uint64
}

func (t *trackedDriver) Quit(ctx context.Context) error {
	t.m.forget(t.id)
	return t.Driver.Quit(ctx)
}

func (m *Manager) track(d browser.Driver) *trackedDriver {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.drivers[m.nextID] = d
	return &trackedDriver{Driver: d, m: m, id: m.nextID}
}

func (m *Manager) forget(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drivers, id)
}

// OpenCount reports how many browsers are still running.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drivers)
}

// Shutdown closes every browser that is still running, concurrently.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	remaining := m.drivers
	m.drivers = make(map[uint64]browser.Driver)
	m.mu.Unlock()

	if len(remaining) == 0 {
		return nil
	}
	m.logger.Info("Closing remaining browsers.", zap.Int("count", len(remaining)))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGracePeriod)
	defer cancel()
	// One failed close must not cancel the others.
	var g errgroup.Group
	for _, d := range remaining {
		g.Go(func() error {
			return d.Quit(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to close all browsers: %w", err)
	}
	return nil
}

package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// Browser engines Playwright can launch.
const (
	Firefox  = "firefox"
	WebKit   = "webkit"
	Chromium = "chromium"
)

const (
	installTimeout = 5 * time.Minute
	launchTimeout  = 60 * time.Second
)

// LaunchOptions configure a Playwright launch.
type LaunchOptions struct {
	Headless bool
	Args     []string
	// Binary overrides the engine executable.
	Binary string
	// Install downloads the driver and engine before launching.
	Install bool
}

// ReportedName is the browser name a session sees for an engine. WebKit
// stands in for Safari.
func ReportedName(engine string) string {
	if engine == WebKit {
		return "safari"
	}
	return engine
}

// Launch starts the Playwright driver, launches engine and opens one page in
// a fresh browser context. Quit on the returned driver stops everything.
func Launch(ctx context.Context, engine string, opts LaunchOptions, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("playwright")

	if opts.Install {
		if err := ensureInstallation(ctx, engine, logger); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}

	var bt playwright.BrowserType
	switch engine {
	case Firefox:
		bt = pw.Firefox
	case WebKit:
		bt = pw.WebKit
	case Chromium:
		bt = pw.Chromium
	default:
		_ = pw.Stop()
		return nil, fmt.Errorf("unsupported playwright engine %q", engine)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
		Timeout:  playwright.Float(float64(launchTimeout.Milliseconds())),
	}
	if opts.Binary != "" {
		launch.ExecutablePath = playwright.String(opts.Binary)
	}
	b, err := bt.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch %s: %w", engine, err)
	}

	page, err := newPage(b)
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, err
	}

	closeFunc := func() error {
		return errors.Join(b.Close(), pw.Stop())
	}
	logger.Info("Browser launched.", zap.String("engine", engine), zap.String("version", b.Version()))
	return New(page, ReportedName(engine), logger, closeFunc), nil
}

func newPage(b playwright.Browser) (playwright.Page, error) {
	bctx, err := b.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	page.SetDefaultTimeout(float64(defaultOpTimeout.Milliseconds()))
	return page, nil
}

// ensureInstallation installs the driver and engine, giving up after installTimeout.
func ensureInstallation(ctx context.Context, engine string, logger *zap.Logger) error {
	logger.Info("Verifying Playwright installation.", zap.String("engine", engine))
	installCtx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- playwright.Install(&playwright.RunOptions{Browsers: []string{engine}})
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to install playwright %s: %w", engine, err)
		}
		return nil
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for Playwright installation: %w", installCtx.Err())
	}
}

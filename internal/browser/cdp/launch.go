package cdp

import (
	"context"
	"fmt"
	goruntime "runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/capabilities"
)

const startupTimeout = 30 * time.Second

// Launch starts a local Chromium-family browser for c and returns a driver
// bound to its first tab. binary overrides the executable; Edge needs it.
// The browser outlives ctx and is only closed by Quit.
func Launch(ctx context.Context, c capabilities.Capability, binary string, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("cdp")

	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(ctx), allocatorOptions(c, binary)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)
	cancelBrowser := func() error {
		err := chromedp.Cancel(tabCtx)
		tabCancel()
		allocCancel()
		return err
	}
	d := newDriver(tabCtx, c.BrowserName, logger, cancelBrowser)

	logger.Info("Launching browser.", zap.String("browser", c.BrowserName), zap.Strings("args", c.Args))
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := d.runActionsFunc(startCtx, chromedp.Navigate("about:blank")); err != nil {
		_ = cancelBrowser()
		return nil, fmt.Errorf("%s failed to start or respond: %w", c.BrowserName, err)
	}
	logger.Info("Browser launched and responsive.")
	return d, nil
}

// allocatorOptions starts from chromedp's defaults, headful unless the
// capability args ask for headless, then applies the capability args.
func allocatorOptions(c capabilities.Capability, binary string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", false))

	for name, value := range flagArgs(c.Args) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if binary != "" {
		opts = append(opts, chromedp.ExecPath(binary))
	}

	// Containers on Linux rarely allow the setuid sandbox.
	if goruntime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	return opts
}

// flagArgs turns "--name=value" and "--name" arguments into chromedp flags.
func flagArgs(args []string) map[string]interface{} {
	flags := make(map[string]interface{}, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimLeft(parts[0], "-")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}
	return flags
}

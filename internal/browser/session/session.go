// Package session binds a live driver to the run parameters, wait budgets
// and browser-family behaviour that every interaction helper needs.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/wait"
	"github.com/xkilldash9x/petstore-e2e/internal/observability"
)

// Params are the free-form run parameters exposed to helpers.
type Params struct {
	// BrowserName overrides the family reported by the driver.
	BrowserName string
	DomainName  string
	Env         string
	OSX         bool
	BaseURL     string
}

// Delays are the fixed settle pauses used by helpers.
type Delays struct {
	Settle             time.Duration
	Blur               time.Duration
	Input              time.Duration
	StorageClearBudget time.Duration
}

// DefaultDelays returns 1s settle, 500ms blur and input, 1500ms storage clearing.
func DefaultDelays() Delays {
	return Delays{
		Settle:             time.Second,
		Blur:               500 * time.Millisecond,
		Input:              500 * time.Millisecond,
		StorageClearBudget: 1500 * time.Millisecond,
	}
}

// Options configure a Session.
type Options struct {
	Params   Params
	Timeouts wait.Timeouts
	Delays   Delays
	Logger   *zap.Logger
	// Family forces a strategy instead of resolving one from the browser name.
	Family Family
}

// Session is one browser session plus everything helpers need to drive it.
// It is not safe for concurrent use; steps run sequentially against it.
type Session struct {
	id          string
	driver      browser.Driver
	browserName string
	family      Family
	waiter      *wait.Waiter
	params      Params
	delays      Delays
	logger      *zap.Logger
}

// New wraps d in a Session. The browser family comes from opts.Family, then
// Params.BrowserName, then the driver's negotiated capabilities.
func New(ctx context.Context, d browser.Driver, opts Options) (*Session, error) {
	if d == nil {
		return nil, fmt.Errorf("session requires a driver")
	}

	name := strings.ToLower(strings.TrimSpace(opts.Params.BrowserName))
	if name == "" {
		reported, err := d.BrowserName(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read browser name from driver: %w", err)
		}
		name = strings.ToLower(reported)
	}

	family := opts.Family
	if family == nil {
		family = FamilyFor(name)
	}

	delays := opts.Delays
	if delays == (Delays{}) {
		delays = DefaultDelays()
	}

	id := uuid.New().String()
	logger := observability.ForSession(opts.Logger, id, name)

	s := &Session{
		id:          id,
		driver:      d,
		browserName: name,
		family:      family,
		waiter:      wait.New(d, opts.Timeouts, logger),
		params:      opts.Params,
		delays:      delays,
		logger:      logger,
	}
	logger.Debug("Session ready.", zap.String("family", family.Name()))
	return s, nil
}

func (s *Session) ID() string              { return s.id }
func (s *Session) Driver() browser.Driver  { return s.driver }
func (s *Session) Family() Family          { return s.family }
func (s *Session) Waiter() *wait.Waiter    { return s.waiter }
func (s *Session) Params() Params          { return s.params }
func (s *Session) Delays() Delays          { return s.delays }
func (s *Session) Logger() *zap.Logger     { return s.logger }
func (s *Session) BrowserName() string     { return s.browserName }
func (s *Session) Timeouts() wait.Timeouts { return s.waiter.Timeouts() }

// Sleep pauses for d or until ctx is done.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the browser session.
func (s *Session) Close(ctx context.Context) error {
	if err := s.driver.Quit(ctx); err != nil {
		return fmt.Errorf("failed to quit session %s: %w", s.id, err)
	}
	s.logger.Debug("Session closed.")
	return nil
}

package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

// PlaywrightLauncher launches Firefox, Chromium or WebKit through the
// Playwright driver.
type PlaywrightLauncher struct {
	engine string
	log    *zerolog.Logger
}

// NewPlaywright creates a launcher for the given Playwright browser type.
func NewPlaywright(engine string, log *zerolog.Logger) *PlaywrightLauncher {
	return &PlaywrightLauncher{engine: engine, log: log}
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
}

// Launch starts the driver, the browser and one page. Everything started
// here is torn down again if a later step fails.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run(&playwright.RunOptions{Verbose: false})
	if err != nil {
		return nil, classifyPlaywrightError("starting playwright", err)
	}

	var bt playwright.BrowserType
	switch l.engine {
	case EngineChromium:
		bt = pw.Chromium
	case EngineWebKit:
		bt = pw.WebKit
	default:
		bt = pw.Firefox
	}

	b, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, classifyPlaywrightError("launching "+l.engine, err)
	}
	l.log.Debug().Str("engine", l.engine).Bool("headless", opts.Headless).Msg("browser launched")

	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.StorageState != "" {
		ctxOpts.StorageStatePath = playwright.String(opts.StorageState)
	}
	if opts.Proxy != nil {
		ctxOpts.Proxy = &playwright.Proxy{Server: opts.Proxy.Server}
		if opts.Proxy.Username != "" {
			ctxOpts.Proxy.Username = playwright.String(opts.Proxy.Username)
			ctxOpts.Proxy.Password = playwright.String(opts.Proxy.Password)
		}
	}
	if opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(opts.UserAgent)
	}

	bctx, err := b.NewContext(ctxOpts)
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("creating browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("opening page: %w", err)
	}

	return &playwrightSession{pw: pw, browser: b, bctx: bctx, page: page}, nil
}

func (s *playwrightSession) Goto(ctx context.Context, url string, wait WaitUntil, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := playwright.PageGotoOptions{WaitUntil: playwrightWaitState(wait)}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}

	if _, err := s.page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (s *playwrightSession) ExpectResponse(ctx context.Context, match func(string) bool, timeout time.Duration, trigger func() error) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	found := make(chan string, 1)
	onResponse := func(r playwright.Response) {
		if u := r.URL(); match(u) {
			offer(found, u)
		}
	}
	s.page.On("response", onResponse)
	defer s.page.RemoveListener("response", onResponse)

	return awaitResponse(ctx, found, timeout, trigger)
}

func (s *playwrightSession) Title(ctx context.Context) (string, error) {
	return s.page.Title()
}

func (s *playwrightSession) SaveStorageState(ctx context.Context, path string) error {
	if _, err := s.bctx.StorageState(path); err != nil {
		return fmt.Errorf("saving storage state: %w", err)
	}
	return nil
}

func (s *playwrightSession) Close() error {
	return errors.Join(s.browser.Close(), s.pw.Stop())
}

// Messages playwright-go and the Playwright server produce when the driver
// or a browser build was never downloaded.
var driverMissingMarkers = []string{
	"please install the driver",
	"could not get driver instance",
	"Executable doesn't exist",
}

// classifyPlaywrightError tags startup failures caused by a missing install
// with ErrDriverMissing. Anything else is wrapped as-is.
func classifyPlaywrightError(op string, err error) error {
	msg := err.Error()
	for _, m := range driverMissingMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%s: %w: %w", op, ErrDriverMissing, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func playwrightWaitState(w WaitUntil) *playwright.WaitUntilState {
	if w == WaitNetworkIdle {
		return playwright.WaitUntilStateNetworkidle
	}
	return playwright.WaitUntilStateDomcontentloaded
}

// Install downloads the Playwright driver and the browser for engine.
// For the rod engine it fetches the Chromium revision Rod expects.
func Install(engine string) error {
	engine = strings.ToLower(engine)
	if engine == EngineRod {
		return installRod()
	}
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{engine}}); err != nil {
		return fmt.Errorf("installing playwright %s: %w", engine, err)
	}
	return nil
}

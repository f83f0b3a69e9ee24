package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
)

// RodLauncher launches a local Chromium through Rod. Storage snapshots are
// kept in the Playwright JSON shape.
type RodLauncher struct {
	log *zerolog.Logger
}

// NewRod creates a Rod launcher.
func NewRod(log *zerolog.Logger) *RodLauncher {
	return &RodLauncher{log: log}
}

type rodSession struct {
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
	log     *zerolog.Logger
}

func (l *RodLauncher) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled")
	if opts.Proxy != nil {
		ln = ln.Proxy(opts.Proxy.Server)
	}

	wsURL, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching chromium: %w", err)
	}
	l.log.Debug().Str("url", wsURL).Bool("headless", opts.Headless).Msg("browser launched")

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		ln.Cleanup()
		return nil, fmt.Errorf("connecting to chromium: %w", err)
	}

	s := &rodSession{browser: b, lnch: ln, log: l.log}

	if opts.Proxy != nil && opts.Proxy.Username != "" {
		// Chromium takes proxy credentials through the auth challenge only.
		wait := b.HandleAuth(opts.Proxy.Username, opts.Proxy.Password)
		go func() {
			if err := wait(); err != nil {
				l.log.Debug().Err(err).Msg("proxy auth handler stopped")
			}
		}()
	}

	var state *StorageState
	if opts.StorageState != "" {
		state, err = ReadStorageState(opts.StorageState)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := b.SetCookies(toRodCookies(state.Cookies)); err != nil {
			s.Close()
			return nil, fmt.Errorf("restoring cookies: %w", err)
		}
	}

	page, err := stealth.Page(b)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	s.page = page

	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			s.Close()
			return nil, fmt.Errorf("setting user agent: %w", err)
		}
	}

	if state != nil {
		script, err := state.localStorageScript()
		if err != nil {
			s.Close()
			return nil, err
		}
		if script != "" {
			if _, err := page.EvalOnNewDocument(script); err != nil {
				s.Close()
				return nil, fmt.Errorf("restoring local storage: %w", err)
			}
		}
	}

	return s, nil
}

func (s *rodSession) Goto(ctx context.Context, url string, wait WaitUntil, timeout time.Duration) error {
	navCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p := s.page.Context(navCtx)
	waitNav := p.WaitNavigation(rodLifecycleEvent(wait))

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	waitNav()

	if err := navCtx.Err(); err != nil {
		return fmt.Errorf("waiting for %s on %s: %w", wait, url, err)
	}
	return nil
}

func (s *rodSession) ExpectResponse(ctx context.Context, match func(string) bool, timeout time.Duration, trigger func() error) (string, error) {
	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan string, 1)
	wait := s.page.Context(listenCtx).EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if match(e.Response.URL) {
			offer(found, e.Response.URL)
			return true
		}
		return false
	})
	go wait()

	return awaitResponse(ctx, found, timeout, trigger)
}

func (s *rodSession) Title(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("reading page info: %w", err)
	}
	return info.Title, nil
}

// SaveStorageState writes all browser cookies plus the local storage of the
// page's current origin.
func (s *rodSession) SaveStorageState(ctx context.Context, path string) error {
	cookies, err := s.browser.Context(ctx).GetCookies()
	if err != nil {
		return fmt.Errorf("reading cookies: %w", err)
	}

	state := &StorageState{Cookies: fromRodCookies(cookies)}

	res, err := s.page.Context(ctx).Eval(`() => ({
		origin: location.origin,
		localStorage: Object.entries(localStorage).map(([name, value]) => ({name, value})),
	})`)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not read local storage, saving cookies only")
	} else {
		var origin OriginState
		if err := res.Value.Unmarshal(&origin); err != nil {
			return fmt.Errorf("decoding local storage: %w", err)
		}
		if len(origin.LocalStorage) > 0 {
			state.mergeOrigin(origin)
		}
	}

	return WriteStorageState(path, state)
}

func (s *rodSession) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return err
}

func rodLifecycleEvent(w WaitUntil) proto.PageLifecycleEventName {
	if w == WaitNetworkIdle {
		return proto.PageLifecycleEventNameNetworkIdle
	}
	return proto.PageLifecycleEventNameDOMContentLoaded
}

func fromRodCookies(in []*proto.NetworkCookie) []Cookie {
	out := make([]Cookie, 0, len(in))
	for _, c := range in {
		expires := float64(c.Expires)
		if c.Session {
			expires = -1
		}
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out
}

func toRodCookies(in []Cookie) []*proto.NetworkCookieParam {
	out := make([]*proto.NetworkCookieParam, 0, len(in))
	for _, c := range in {
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		}
		if c.Expires > 0 {
			p.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		out = append(out, p)
	}
	return out
}

func installRod() error {
	if _, err := launcher.NewBrowser().Get(); err != nil {
		return fmt.Errorf("downloading chromium: %w", err)
	}
	return nil
}

// Package browser drives a real browser for manifest capture. Two engines
// sit behind the same Launcher interface: Playwright (Firefox by default)
// and Rod (Chromium over CDP).
package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Engine names accepted in configuration.
const (
	EngineFirefox  = "firefox"
	EngineChromium = "chromium"
	EngineWebKit   = "webkit"
	EngineRod      = "rod"
)

var (
	// ErrDriverMissing is returned when the automation driver cannot start
	// because it was never installed.
	ErrDriverMissing = errors.New("browser driver not installed")

	// ErrNoMatch is returned by ExpectResponse when no response satisfied
	// the predicate before the timeout.
	ErrNoMatch = errors.New("no matching response")
)

// Engines lists the supported engine names.
func Engines() []string {
	return []string{EngineFirefox, EngineChromium, EngineWebKit, EngineRod}
}

// ValidEngine reports whether name is a supported engine.
func ValidEngine(name string) bool {
	for _, e := range Engines() {
		if strings.EqualFold(e, name) {
			return true
		}
	}
	return false
}

// WaitUntil selects the page lifecycle event navigation waits for.
type WaitUntil int

const (
	WaitDOMContentLoaded WaitUntil = iota
	WaitNetworkIdle
)

func (w WaitUntil) String() string {
	switch w {
	case WaitDOMContentLoaded:
		return "domcontentloaded"
	case WaitNetworkIdle:
		return "networkidle"
	default:
		return "unknown"
	}
}

// Proxy is the proxy structure handed to the browser launch API.
type Proxy struct {
	Server   string // scheme://host[:port]
	Username string
	Password string
}

// LaunchOptions configures one browser session.
type LaunchOptions struct {
	Headless bool

	// StorageState is a snapshot file to seed cookies and local storage
	// from. Empty starts a fresh profile.
	StorageState string

	Proxy     *Proxy
	UserAgent string
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// Session is one browser with a single open page.
type Session interface {
	// Goto navigates the page and waits for the given lifecycle event.
	// A zero timeout uses the engine default.
	Goto(ctx context.Context, url string, wait WaitUntil, timeout time.Duration) error

	// ExpectResponse runs trigger and returns the URL of the first network
	// response accepted by match. Returns ErrNoMatch when nothing matched
	// within timeout. Errors from trigger are returned unchanged.
	ExpectResponse(ctx context.Context, match func(url string) bool, timeout time.Duration, trigger func() error) (string, error)

	// Title returns the current document title.
	Title(ctx context.Context) (string, error)

	// SaveStorageState writes cookies and local storage to path.
	SaveStorageState(ctx context.Context, path string) error

	// Close shuts the browser process down.
	Close() error
}

// New returns the launcher for the named engine.
func New(engine string, log *zerolog.Logger) (Launcher, error) {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	switch strings.ToLower(engine) {
	case EngineFirefox, EngineChromium, EngineWebKit:
		return NewPlaywright(strings.ToLower(engine), log), nil
	case EngineRod:
		return NewRod(log), nil
	default:
		return nil, fmt.Errorf("unsupported engine %q", engine)
	}
}

// ProxyFromURL translates a proxy URL into the launch structure.
// An empty URL yields nil. Scheme and reachability are not checked.
func ProxyFromURL(raw string) (*Proxy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}

	host := u.Hostname()
	if port := u.Port(); port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	p := &Proxy{Server: u.Scheme + "://" + host}
	if u.User != nil {
		p.Username = u.User.Username()
		p.Password, _ = u.User.Password()
	}
	return p, nil
}

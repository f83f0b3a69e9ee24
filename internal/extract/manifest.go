package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hlsgrab/internal/browser"
	"hlsgrab/internal/media"
)

// Default timeouts for one capture.
const (
	DefaultResponseTimeout = 15 * time.Second
	DefaultPageLoadTimeout = 20 * time.Second
)

// SessionEnsurer returns a usable storage snapshot path.
type SessionEnsurer interface {
	Ensure(ctx context.Context, loginURL, statePath string) (string, error)
}

// FormatParser turns a manifest URL into formats.
type FormatParser interface {
	ExtractM3U8Formats(ctx context.Context, manifestURL, videoID string) ([]media.Format, error)
}

// Options configures a ManifestExtractor.
type Options struct {
	// StatePath is the storage snapshot file. Required.
	StatePath string

	// LoginURL is opened for interactive login when the snapshot is
	// missing. Empty falls back to the page being extracted.
	LoginURL string

	// ProxyURL is translated on every extraction.
	ProxyURL string

	UserAgent       string
	ResponseTimeout time.Duration
	PageLoadTimeout time.Duration
}

// ManifestExtractor loads a page headlessly with a saved session, captures
// the first manifest response and hands it to a FormatParser.
type ManifestExtractor struct {
	launcher browser.Launcher
	sessions SessionEnsurer
	formats  FormatParser
	opts     Options
	log      *zerolog.Logger
}

// NewManifestExtractor wires an extractor from its collaborators.
func NewManifestExtractor(l browser.Launcher, s SessionEnsurer, f FormatParser, opts Options, log *zerolog.Logger) *ManifestExtractor {
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = DefaultResponseTimeout
	}
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = DefaultPageLoadTimeout
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &ManifestExtractor{launcher: l, sessions: s, formats: f, opts: opts, log: log}
}

// Extract runs one capture for pageURL.
func (e *ManifestExtractor) Extract(ctx context.Context, pageURL string) (*media.Info, error) {
	videoID := VideoID(pageURL)
	log := e.log.With().Str("id", videoID).Logger()

	loginURL := e.opts.LoginURL
	if loginURL == "" {
		loginURL = pageURL
	}

	statePath, err := e.sessions.Ensure(ctx, loginURL, e.opts.StatePath)
	if err != nil {
		return nil, DriverHint(fmt.Errorf("preparing session: %w", err))
	}

	proxy, err := browser.ProxyFromURL(e.opts.ProxyURL)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", pageURL).Msg("capturing manifest")
	manifestURL, title, err := e.capture(ctx, pageURL, statePath, proxy)
	if err != nil {
		return nil, err
	}
	log.Info().Str("manifest", manifestURL).Msg("manifest detected")

	if title == "" {
		title = videoID
	}

	formats, err := e.formats.ExtractM3U8Formats(ctx, manifestURL, videoID)
	if err != nil {
		return nil, fmt.Errorf("extracting formats: %w", err)
	}

	return &media.Info{
		ID:          videoID,
		Title:       title,
		WebpageURL:  pageURL,
		ManifestURL: manifestURL,
		Formats:     formats,
	}, nil
}

// capture owns the browser lifetime: it is closed on every return path.
func (e *ManifestExtractor) capture(ctx context.Context, pageURL, statePath string, proxy *browser.Proxy) (string, string, error) {
	sess, err := e.launcher.Launch(ctx, browser.LaunchOptions{
		Headless:     true,
		StorageState: statePath,
		Proxy:        proxy,
		UserAgent:    e.opts.UserAgent,
	})
	if err != nil {
		return "", "", DriverHint(fmt.Errorf("launching browser: %w", err))
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			e.log.Debug().Err(cerr).Msg("closing browser")
		}
	}()

	manifestURL, err := sess.ExpectResponse(ctx, IsManifestURL, e.opts.ResponseTimeout, func() error {
		return sess.Goto(ctx, pageURL, browser.WaitDOMContentLoaded, e.opts.PageLoadTimeout)
	})
	if err != nil {
		if errors.Is(err, browser.ErrNoMatch) {
			return "", "", &ExpectedError{
				Msg: "could not detect HLS manifest",
				Err: fmt.Errorf("%w: %w", ErrManifestNotFound, err),
			}
		}
		return "", "", err
	}
	if manifestURL == "" {
		return "", "", &ExpectedError{Msg: "could not detect HLS manifest", Err: ErrManifestNotFound}
	}

	title, err := sess.Title(ctx)
	if err != nil {
		return "", "", fmt.Errorf("reading page title: %w", err)
	}

	return manifestURL, strings.TrimSpace(title), nil
}

// DriverHint turns a missing automation driver into an actionable error.
func DriverHint(err error) error {
	if errors.Is(err, browser.ErrDriverMissing) {
		return &ExpectedError{
			Msg: "browser driver not installed; run `hlsgrab install`",
			Err: err,
		}
	}
	return err
}

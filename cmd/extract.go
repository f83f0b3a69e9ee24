package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"hlsgrab/internal/browser"
	"hlsgrab/internal/download"
	"hlsgrab/internal/extract"
	"hlsgrab/internal/history"
	"hlsgrab/internal/hls"
	"hlsgrab/internal/httputil"
	"hlsgrab/internal/media"
	"hlsgrab/internal/player"
	"hlsgrab/internal/session"
	"hlsgrab/internal/ui"
)

// extractRun is the default command: hlsgrab <url>
func extractRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	pageURL := args[0]
	if err := httputil.ValidateURL(pageURL); err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	ex, err := newExtractor()
	if err != nil {
		return err
	}

	info, err := ex.Extract(cmd.Context(), pageURL)
	if err != nil {
		return err
	}
	logger.Debug().Str("id", info.ID).Str("manifest", info.ManifestURL).Int("formats", len(info.Formats)).Msg("extracted")

	recordHistory(info)

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), info)
	}

	if !flagPick && !flagPlay && flagDownload == "" {
		printInfo(cmd.OutOrStdout(), info)
		return nil
	}

	f, err := chooseFormat(info)
	if err != nil {
		return err
	}

	if flagPlay {
		return playFormat(cmd.Context(), info, f)
	}

	dir, err := cfg.ExpandDownloadDir()
	if err != nil {
		return err
	}

	d := &download.Downloader{UserAgent: httpUserAgent(), Log: &logger}
	path, err := d.Download(cmd.Context(), info, f, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", path)
	return nil
}

// newExtractor wires the browser, session and format parser from cfg.
func newExtractor() (extract.Extractor, error) {
	launcher, err := browser.New(cfg.Engine, &logger)
	if err != nil {
		return nil, err
	}

	client, err := httputil.NewClient(cfg.Proxy)
	if err != nil {
		return nil, err
	}

	parser := hls.NewParser(client, httpUserAgent(), &logger)

	return extract.NewManifestExtractor(launcher, newInitializer(launcher), parser, extract.Options{
		StatePath:       cfg.StateFile,
		LoginURL:        cfg.LoginURL,
		ProxyURL:        cfg.Proxy,
		UserAgent:       cfg.UserAgent,
		ResponseTimeout: cfg.ResponseTimeout.Duration,
		PageLoadTimeout: cfg.PageLoadTimeout.Duration,
	}, &logger), nil
}

func newInitializer(launcher browser.Launcher) *session.Initializer {
	return &session.Initializer{
		Launcher:  launcher,
		Confirmer: ui.NewTerminal(),
		ProxyURL:  cfg.Proxy,
		UserAgent: cfg.UserAgent,
		Log:       &logger,
	}
}

// httpUserAgent is the user agent for manifest and segment requests made
// outside the browser.
func httpUserAgent() string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}
	return httputil.DefaultUserAgent
}

func playFormat(ctx context.Context, info *media.Info, f *media.Format) error {
	p, err := player.New(cfg.Player)
	if err != nil {
		return err
	}
	logger.Info().Str("player", p.Name()).Str("format", f.FormatID).Msg("starting playback")
	return player.Play(ctx, p, player.Request{
		URL:       f.URL,
		Title:     info.Title,
		Referer:   info.WebpageURL,
		UserAgent: httpUserAgent(),
	})
}

func chooseFormat(info *media.Info) (*media.Format, error) {
	if !flagPick {
		return media.SelectFormat(info.Formats, cfg.Format)
	}

	if len(info.Formats) == 0 {
		return nil, fmt.Errorf("no formats available")
	}
	items := make([]string, len(info.Formats))
	for i, f := range info.Formats {
		items[i] = media.FormatDisplayLine(f)
	}

	idx, err := ui.Select("Format", items)
	if err != nil {
		return nil, err
	}
	return &info.Formats[idx], nil
}

// recordHistory saves the extraction. Failures are logged, never fatal.
func recordHistory(info *media.Info) {
	if !cfg.History {
		return
	}

	store, err := history.Open()
	if err != nil {
		logger.Warn().Err(err).Msg("history unavailable")
		return
	}
	defer store.Close()

	if err := store.Save(info, time.Now()); err != nil {
		logger.Warn().Err(err).Msg("could not record history")
	}
}

type jsonFormat struct {
	FormatID string  `json:"format_id"`
	URL      string  `json:"url"`
	Ext      string  `json:"ext"`
	Protocol string  `json:"protocol"`
	TBR      float64 `json:"tbr,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	FPS      float64 `json:"fps,omitempty"`
	VCodec   string  `json:"vcodec,omitempty"`
	ACodec   string  `json:"acodec,omitempty"`
	Language string  `json:"language,omitempty"`
}

type jsonInfo struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	WebpageURL  string       `json:"webpage_url"`
	ManifestURL string       `json:"manifest_url"`
	Formats     []jsonFormat `json:"formats"`
}

func toJSONInfo(info *media.Info) jsonInfo {
	out := jsonInfo{
		ID:          info.ID,
		Title:       info.Title,
		WebpageURL:  info.WebpageURL,
		ManifestURL: info.ManifestURL,
		Formats:     make([]jsonFormat, 0, len(info.Formats)),
	}
	for _, f := range info.Formats {
		out.Formats = append(out.Formats, jsonFormat{
			FormatID: f.FormatID,
			URL:      f.URL,
			Ext:      f.Ext,
			Protocol: f.Protocol,
			TBR:      f.Bandwidth,
			Width:    f.Width,
			Height:   f.Height,
			FPS:      f.FPS,
			VCodec:   f.VCodec,
			ACodec:   f.ACodec,
			Language: f.Language,
		})
	}
	return out
}

func writeJSON(w io.Writer, info *media.Info) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSONInfo(info))
}

func printInfo(w io.Writer, info *media.Info) {
	fmt.Fprintf(w, "ID:       %s\n", info.ID)
	fmt.Fprintf(w, "Title:    %s\n", info.Title)
	fmt.Fprintf(w, "Manifest: %s\n", info.ManifestURL)
	if len(info.Formats) == 0 {
		fmt.Fprintln(w, "No formats found.")
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-24s %-12s %7s\n", "FORMAT", "RESOLUTION", "TBR")
	for _, f := range info.Formats {
		fmt.Fprintln(w, media.FormatDisplayLine(f))
	}
}

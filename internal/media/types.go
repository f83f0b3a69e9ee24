// Package media defines shared types for the hlsgrab application.
package media

import (
	"fmt"
	"time"
)

// Info is the result of one extraction: what the page is called and the
// formats its HLS manifest offers.
type Info struct {
	ID          string   // First 8 hex chars of md5(WebpageURL)
	Title       string   // Page title, or ID when the page has none
	WebpageURL  string   // URL the browser was pointed at
	ManifestURL string   // First .m3u8 response seen during the page load
	Formats     []Format // Worst to best
}

// Format describes one downloadable rendition of a manifest.
type Format struct {
	FormatID    string  // e.g., "hls-2128", "hls-audio-aac-English"
	URL         string  // Media playlist URL for this rendition
	ManifestURL string  // Manifest the format was parsed from
	Ext         string  // "mp4" for video, "m4a" for audio-only
	Protocol    string  // Always "m3u8_native"
	Bandwidth   float64 // Total bitrate in kbit/s (tbr)
	Width       int
	Height      int
	FPS         float64
	VCodec      string // "none" for audio-only renditions
	ACodec      string
	Language    string
	Name        string
}

// AudioOnly reports whether the format carries no video track.
func (f Format) AudioOnly() bool {
	return f.VCodec == "none"
}

// Resolution returns "WxH", "audio only" or "unknown".
func (f Format) Resolution() string {
	switch {
	case f.AudioOnly():
		return "audio only"
	case f.Width > 0 && f.Height > 0:
		return fmt.Sprintf("%dx%d", f.Width, f.Height)
	default:
		return "unknown"
	}
}

// HistoryEntry represents a single past extraction.
type HistoryEntry struct {
	ID          string
	Title       string
	WebpageURL  string
	ManifestURL string
	Formats     int
	ExtractedAt time.Time
}

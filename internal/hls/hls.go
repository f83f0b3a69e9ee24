// Package hls turns an HLS manifest URL into a list of formats.
package hls

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"
	"github.com/rs/zerolog"

	"hlsgrab/internal/httputil"
	"hlsgrab/internal/media"
)

const (
	formatPrefix = "hls"
	protocol     = "m3u8_native"
)

// Parser downloads manifests and parses them into formats.
type Parser struct {
	client    *http.Client
	userAgent string
	log       *zerolog.Logger
}

// NewParser creates a Parser that fetches through client.
func NewParser(client *http.Client, userAgent string, log *zerolog.Logger) *Parser {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Parser{client: client, userAgent: userAgent, log: log}
}

// ExtractM3U8Formats fetches manifestURL and returns its formats, worst first.
func (p *Parser) ExtractM3U8Formats(ctx context.Context, manifestURL, videoID string) ([]media.Format, error) {
	p.log.Info().Str("id", videoID).Msg("downloading m3u8 information")

	body, finalURL, err := httputil.Fetch(ctx, p.client, manifestURL, p.userAgent)
	if err != nil {
		return nil, fmt.Errorf("%s: fetching manifest: %w", videoID, err)
	}

	formats, err := ParseFormats(body, finalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", videoID, err)
	}

	p.log.Debug().Str("id", videoID).Int("formats", len(formats)).Msg("parsed manifest")
	return formats, nil
}

// ParseFormats parses manifest data. Relative URIs are resolved against
// manifestURL. A media playlist yields a single "hls" format.
func ParseFormats(data []byte, manifestURL string) ([]media.Format, error) {
	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest URL: %w", err)
	}

	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	switch listType {
	case m3u8.MEDIA:
		return []media.Format{{
			FormatID:    formatPrefix,
			URL:         manifestURL,
			ManifestURL: manifestURL,
			Ext:         "mp4",
			Protocol:    protocol,
		}}, nil
	case m3u8.MASTER:
		master, ok := playlist.(*m3u8.MasterPlaylist)
		if !ok {
			return nil, fmt.Errorf("unexpected playlist type %T", playlist)
		}
		return masterFormats(master, base)
	default:
		return nil, fmt.Errorf("unknown playlist type")
	}
}

func masterFormats(master *m3u8.MasterPlaylist, base *url.URL) ([]media.Format, error) {
	manifestURL := base.String()
	var formats []media.Format
	seenAlt := make(map[string]bool)

	for i, v := range master.Variants {
		if v == nil || v.Iframe || v.URI == "" {
			continue
		}

		u, err := resolve(base, v.URI)
		if err != nil {
			return nil, err
		}

		bw := v.AverageBandwidth
		if bw == 0 {
			bw = v.Bandwidth
		}

		f := media.Format{
			URL:         u,
			ManifestURL: manifestURL,
			Ext:         "mp4",
			Protocol:    protocol,
			Bandwidth:   float64(bw) / 1000,
			FPS:         v.FrameRate,
			Name:        v.Name,
		}
		f.Width, f.Height = parseResolution(v.Resolution)
		f.VCodec, f.ACodec = splitCodecs(v.Codecs)

		if bw > 0 {
			f.FormatID = fmt.Sprintf("%s-%d", formatPrefix, (bw+500)/1000)
		} else {
			f.FormatID = fmt.Sprintf("%s-%d", formatPrefix, i)
		}
		formats = append(formats, f)

		for _, alt := range v.Alternatives {
			if alt == nil || alt.URI == "" || !strings.EqualFold(alt.Type, "AUDIO") {
				continue
			}
			au, err := resolve(base, alt.URI)
			if err != nil {
				return nil, err
			}
			if seenAlt[au] {
				continue
			}
			seenAlt[au] = true

			id := []string{formatPrefix}
			for _, part := range []string{alt.GroupId, alt.Name} {
				if part != "" {
					id = append(id, strings.ReplaceAll(part, " ", "_"))
				}
			}
			formats = append(formats, media.Format{
				FormatID:    strings.Join(id, "-"),
				URL:         au,
				ManifestURL: manifestURL,
				Ext:         "m4a",
				Protocol:    protocol,
				VCodec:      "none",
				Language:    alt.Language,
				Name:        alt.Name,
			})
		}
	}

	if len(formats) == 0 {
		return nil, fmt.Errorf("manifest lists no playable variants")
	}

	sortFormats(formats)
	dedupeIDs(formats)
	return formats, nil
}

// sortFormats orders audio-only renditions first, then video by height and
// bitrate.
func sortFormats(formats []media.Format) {
	sort.SliceStable(formats, func(i, j int) bool {
		a, b := formats[i], formats[j]
		if a.AudioOnly() != b.AudioOnly() {
			return a.AudioOnly()
		}
		if a.Height != b.Height {
			return a.Height < b.Height
		}
		return a.Bandwidth < b.Bandwidth
	})
}

// dedupeIDs suffixes repeated format IDs with -1, -2, ... skipping any
// suffix another format already uses.
func dedupeIDs(formats []media.Format) {
	taken := make(map[string]bool, len(formats))
	for _, f := range formats {
		taken[f.FormatID] = true
	}

	kept := make(map[string]bool, len(formats))
	next := make(map[string]int, len(formats))
	for i := range formats {
		id := formats[i].FormatID
		if !kept[id] {
			kept[id] = true
			continue
		}
		for {
			next[id]++
			candidate := fmt.Sprintf("%s-%d", id, next[id])
			if !taken[candidate] {
				taken[candidate] = true
				kept[candidate] = true
				formats[i].FormatID = candidate
				break
			}
		}
	}
}

func resolve(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parsing playlist URI %q: %w", ref, err)
	}
	return base.ResolveReference(u).String(), nil
}

func parseResolution(res string) (int, int) {
	w, h, ok := strings.Cut(strings.ToLower(res), "x")
	if !ok {
		return 0, 0
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return width, height
}

var (
	videoCodecPrefixes = []string{"avc1", "avc3", "hvc1", "hev1", "dvh1", "dvhe", "vp09", "vp8", "vp9", "av01"}
	audioCodecPrefixes = []string{"mp4a", "ac-3", "ec-3", "opus", "flac", "mp3"}
)

// splitCodecs separates a CODECS attribute into video and audio parts.
func splitCodecs(codecs string) (vcodec, acodec string) {
	var vs, as []string
	for _, c := range strings.Split(codecs, ",") {
		c = strings.TrimSpace(c)
		switch {
		case c == "":
		case hasAnyPrefix(c, videoCodecPrefixes):
			vs = append(vs, c)
		case hasAnyPrefix(c, audioCodecPrefixes):
			as = append(as, c)
		}
	}
	vcodec = strings.Join(vs, ",")
	acodec = strings.Join(as, ",")
	if vcodec == "" && acodec != "" {
		vcodec = "none"
	}
	return vcodec, acodec
}

func hasAnyPrefix(s string, prefixes []string) bool {
	s = strings.ToLower(s)
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

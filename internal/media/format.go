package media

import (
	"fmt"
	"strings"
)

// SelectFormat picks a format by selector: "best", "worst", or an exact
// format ID. Formats are expected in worst-to-best order.
func SelectFormat(formats []Format, selector string) (*Format, error) {
	if len(formats) == 0 {
		return nil, fmt.Errorf("no formats available")
	}

	switch strings.ToLower(strings.TrimSpace(selector)) {
	case "", "best":
		// Prefer the best rendition that still carries video.
		for i := len(formats) - 1; i >= 0; i-- {
			if !formats[i].AudioOnly() {
				return &formats[i], nil
			}
		}
		return &formats[len(formats)-1], nil
	case "worst":
		for i := range formats {
			if !formats[i].AudioOnly() {
				return &formats[i], nil
			}
		}
		return &formats[0], nil
	}

	for i := range formats {
		if formats[i].FormatID == selector {
			return &formats[i], nil
		}
	}
	return nil, fmt.Errorf("requested format %q is not available", selector)
}

// FormatDisplayLine renders a format for list output and fzf selection.
func FormatDisplayLine(f Format) string {
	line := fmt.Sprintf("%-24s %-12s %6.0fk", f.FormatID, f.Resolution(), f.Bandwidth)
	if f.FPS > 0 {
		line += fmt.Sprintf(" %gfps", f.FPS)
	}
	if codecs := strings.Trim(f.VCodec+","+f.ACodec, ","); codecs != "" {
		line += " " + codecs
	}
	if f.Language != "" {
		line += " [" + f.Language + "]"
	}
	return line
}

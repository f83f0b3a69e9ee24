// Package download remuxes a captured HLS format to a local file with ffmpeg.
// Uses exec.CommandContext with explicit argument slices and validates
// output paths against directory traversal attacks.
package download

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"hlsgrab/internal/httputil"
	"hlsgrab/internal/media"
)

// Downloader runs ffmpeg for one format at a time.
type Downloader struct {
	UserAgent string
	Log       *zerolog.Logger
}

// OutputName returns the file name for a format: the sanitized title, the
// format id and an extension that matches the stream contents.
func OutputName(info *media.Info, f *media.Format) string {
	ext := ".mp4"
	if f.AudioOnly() {
		ext = ".m4a"
	}
	return httputil.SanitizeFilename(info.Title) + " [" + httputil.SanitizeFilename(f.FormatID) + "]" + ext
}

// Args builds the ffmpeg argument list for copying f into outputPath.
func (d *Downloader) Args(info *media.Info, f *media.Format, outputPath string) []string {
	args := []string{"-y", "-loglevel", "warning", "-stats"}
	if d.UserAgent != "" {
		args = append(args, "-user_agent", d.UserAgent)
	}
	if info.WebpageURL != "" {
		args = append(args, "-referer", info.WebpageURL)
	}

	args = append(args,
		"-i", f.URL,
		"-c", "copy", // no re-encoding
	)
	if !f.AudioOnly() {
		// HLS audio is ADTS; mp4 needs it wrapped.
		args = append(args, "-bsf:a", "aac_adtstoasc")
	}

	args = append(args,
		"-metadata", fmt.Sprintf("title=%s", info.Title),
		outputPath,
	)
	return args
}

// Download fetches one format into outputDir and returns the written path.
func (d *Downloader) Download(ctx context.Context, info *media.Info, f *media.Format, outputDir string) (string, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	absDir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	outputPath, err := httputil.SafeDownloadPath(absDir, OutputName(info, f))
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, d.Args(info, f, outputPath)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if d.Log != nil {
		d.Log.Info().Str("format", f.FormatID).Str("path", outputPath).Msg("downloading")
	}

	if err := cmd.Run(); err != nil {
		// Clean up partial download on failure
		os.Remove(outputPath)
		return "", fmt.Errorf("ffmpeg download failed: %w", err)
	}

	return outputPath, nil
}

// Package player hands a captured format to a local media player.
// All player invocations use exec.CommandContext with explicit argument
// slices; titles and URLs from the page never pass through a shell.
package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Request is one playback: the media playlist plus the headers the CDN
// expects to see.
type Request struct {
	URL       string
	Title     string
	Referer   string
	UserAgent string
}

// Player is the interface for media player implementations.
type Player interface {
	// Name returns the player binary name.
	Name() string

	// Args builds the command line for req.
	Args(req Request) []string

	// Available checks if the player binary exists in PATH.
	Available() bool
}

// Names lists the supported players.
func Names() []string {
	return []string{"mpv", "vlc", "iina", "celluloid"}
}

// New creates a player by name. Unknown names return an error.
func New(name string) (Player, error) {
	switch name {
	case "", "mpv":
		return &MPV{}, nil
	case "vlc":
		return &VLC{}, nil
	case "iina", "celluloid":
		return &Generic{name: name}, nil
	default:
		return nil, fmt.Errorf("unsupported player %q", name)
	}
}

// Play runs p for req and waits for it to exit. A non-zero exit status
// is how most players report a user quit, so it is not an error.
func Play(ctx context.Context, p Player, req Request) error {
	if !p.Available() {
		return fmt.Errorf("%s not found in PATH", p.Name())
	}

	cmd := exec.CommandContext(ctx, p.Name(), p.Args(req)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("running %s: %w", p.Name(), err)
	}
	return nil
}

func lookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Package session makes sure an authenticated browser storage snapshot
// exists before extraction. When it is missing, a visible browser is opened
// on the login page and a human logs in by hand.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"hlsgrab/internal/browser"
)

// LoginPrompt is shown while the visible browser waits for the operator.
const LoginPrompt = "Log in in the browser window, then press ENTER here…"

// ErrLoginAborted is returned when the operator backs out of the login.
var ErrLoginAborted = errors.New("login aborted")

// Confirmer blocks until a human confirms they are done.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) error
}

// Initializer produces the storage snapshot used by every extraction.
type Initializer struct {
	Launcher  browser.Launcher
	Confirmer Confirmer
	// ProxyURL is translated on every call to Ensure.
	ProxyURL  string
	UserAgent string
	Log       *zerolog.Logger
}

// Ensure returns statePath unchanged when a regular file already exists
// there; its contents are trusted as-is. Otherwise it runs the interactive
// login against loginURL and writes the snapshot to statePath.
//
// The operator confirmation has no timeout; only ctx cancellation or an
// explicit abort ends it early.
func (in *Initializer) Ensure(ctx context.Context, loginURL, statePath string) (string, error) {
	fi, err := os.Stat(statePath)
	switch {
	case err == nil && fi.Mode().IsRegular():
		return statePath, nil
	case err == nil:
		return "", fmt.Errorf("session state %s is not a regular file", statePath)
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("checking session state: %w", err)
	}

	in.Log.Info().Str("state", statePath).Msg("session state not found, launching headful login")
	return in.login(ctx, loginURL, statePath)
}

// Refresh always runs the interactive login. An existing snapshot is only
// replaced once the new one has been written; an aborted or failed login
// leaves it untouched.
func (in *Initializer) Refresh(ctx context.Context, loginURL, statePath string) (string, error) {
	in.Log.Info().Str("state", statePath).Msg("refreshing session state, launching headful login")
	return in.login(ctx, loginURL, statePath)
}

func (in *Initializer) login(ctx context.Context, loginURL, statePath string) (string, error) {
	proxy, err := browser.ProxyFromURL(in.ProxyURL)
	if err != nil {
		return "", err
	}

	sess, err := in.Launcher.Launch(ctx, browser.LaunchOptions{
		Headless:  false,
		Proxy:     proxy,
		UserAgent: in.UserAgent,
	})
	if err != nil {
		return "", fmt.Errorf("launching login browser: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			in.Log.Debug().Err(cerr).Msg("closing login browser")
		}
	}()

	if err := sess.Goto(ctx, loginURL, browser.WaitNetworkIdle, 0); err != nil {
		return "", fmt.Errorf("opening login page: %w", err)
	}

	if err := in.Confirmer.Confirm(ctx, LoginPrompt); err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrLoginAborted, err)
	}

	if err := saveAtomic(ctx, sess, statePath); err != nil {
		return "", err
	}

	in.Log.Info().Str("state", statePath).Msg("wrote storage state")
	return statePath, nil
}

// saveAtomic has the browser write into a sibling temp file and renames it
// over statePath, so readers never see a partial snapshot.
func saveAtomic(ctx context.Context, sess browser.Session, statePath string) error {
	dir := filepath.Dir(statePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := sess.SaveStorageState(ctx, tmpPath); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}
	if err := os.Rename(tmpPath, statePath); err != nil {
		return fmt.Errorf("replacing session state: %w", err)
	}
	return nil
}

//go:build integration

package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// Run with: go test -tags integration ./internal/browser/
// Engines whose driver is not installed are skipped.

const playerPage = `<!doctype html>
<html><head><title>  My Video  </title></head>
<body><script>
document.cookie = "sid=abc123; path=/";
localStorage.setItem("token", "t-1");
setTimeout(() => fetch("/master.m3u8?token=xyz"), 50);
</script></body></html>`

const silentPage = `<!doctype html><html><head><title>Nothing here</title></head><body></body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/watch/abc", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, playerPage)
	})
	mux.HandleFunc("/silent", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, silentPage)
	})
	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=800000\nlow.m3u8\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func isManifest(u string) bool {
	return strings.Contains(u, ".m3u8?") || strings.HasSuffix(u, ".m3u8")
}

func launchOrSkip(t *testing.T, engine string, opts LaunchOptions) Session {
	t.Helper()
	log := zerolog.Nop()
	l, err := New(engine, &log)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sess, err := l.Launch(ctx, opts)
	if errors.Is(err, ErrDriverMissing) {
		t.Skipf("%s driver not installed: %v", engine, err)
	}
	if err != nil {
		t.Fatalf("Launch(%s): %v", engine, err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestEnginesCaptureManifest(t *testing.T) {
	srv := newTestServer(t)

	for _, engine := range []string{EngineFirefox, EngineRod} {
		t.Run(engine, func(t *testing.T) {
			sess := launchOrSkip(t, engine, LaunchOptions{Headless: true})
			ctx := context.Background()

			got, err := sess.ExpectResponse(ctx, isManifest, 15*time.Second, func() error {
				return sess.Goto(ctx, srv.URL+"/watch/abc", WaitDOMContentLoaded, 20*time.Second)
			})
			if err != nil {
				t.Fatalf("ExpectResponse() error: %v", err)
			}
			if want := srv.URL + "/master.m3u8?token=xyz"; got != want {
				t.Errorf("manifest = %q, want %q", got, want)
			}

			title, err := sess.Title(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if strings.TrimSpace(title) != "My Video" {
				t.Errorf("title = %q", title)
			}

			path := filepath.Join(t.TempDir(), "state.json")
			if err := sess.SaveStorageState(ctx, path); err != nil {
				t.Fatalf("SaveStorageState() error: %v", err)
			}
			st, err := ReadStorageState(path)
			if err != nil {
				t.Fatal(err)
			}
			var sawCookie bool
			for _, c := range st.Cookies {
				if c.Name == "sid" && c.Value == "abc123" {
					sawCookie = true
				}
			}
			if !sawCookie {
				t.Errorf("cookie not saved: %+v", st.Cookies)
			}
		})
	}
}

func TestEnginesNoManifest(t *testing.T) {
	srv := newTestServer(t)

	for _, engine := range []string{EngineFirefox, EngineRod} {
		t.Run(engine, func(t *testing.T) {
			sess := launchOrSkip(t, engine, LaunchOptions{Headless: true})
			ctx := context.Background()

			start := time.Now()
			_, err := sess.ExpectResponse(ctx, isManifest, time.Second, func() error {
				return sess.Goto(ctx, srv.URL+"/silent", WaitDOMContentLoaded, 20*time.Second)
			})
			if !errors.Is(err, ErrNoMatch) {
				t.Fatalf("error = %v, want ErrNoMatch", err)
			}
			if elapsed := time.Since(start); elapsed > 10*time.Second {
				t.Errorf("took %s to give up", elapsed)
			}
		})
	}
}

func TestEnginesNavigationErrorPropagates(t *testing.T) {
	srv := newTestServer(t)
	dead := srv.URL
	srv.Close()

	for _, engine := range []string{EngineFirefox, EngineRod} {
		t.Run(engine, func(t *testing.T) {
			sess := launchOrSkip(t, engine, LaunchOptions{Headless: true})
			ctx := context.Background()

			_, err := sess.ExpectResponse(ctx, isManifest, 15*time.Second, func() error {
				return sess.Goto(ctx, dead+"/watch/abc", WaitDOMContentLoaded, 5*time.Second)
			})
			if err == nil {
				t.Fatal("expected a navigation error")
			}
			if errors.Is(err, ErrNoMatch) {
				t.Errorf("navigation failure reported as no match: %v", err)
			}
		})
	}
}

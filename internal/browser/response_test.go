package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
)

const manifestURL = "https://cdn.example.com/master.m3u8?token=xyz"

type awaitResult struct {
	url string
	err error
}

// runAwait fails the test if awaitResponse does not return within limit.
func runAwait(t *testing.T, ctx context.Context, found chan string, timeout time.Duration, trigger func() error, limit time.Duration) awaitResult {
	t.Helper()
	res := make(chan awaitResult, 1)
	go func() {
		u, err := awaitResponse(ctx, found, timeout, trigger)
		res <- awaitResult{u, err}
	}()
	select {
	case r := <-res:
		return r
	case <-time.After(limit):
		t.Fatalf("awaitResponse did not return within %s", limit)
		return awaitResult{}
	}
}

func TestAwaitResponse(t *testing.T) {
	navTimeout := fmt.Errorf("navigating: %w: Timeout 20000ms exceeded", playwright.ErrTimeout)
	navFailed := errors.New("net::ERR_NAME_NOT_RESOLVED")

	tests := []struct {
		name    string
		timeout time.Duration
		// trigger gets the channel so it can simulate responses arriving
		// during navigation.
		trigger func(found chan string) error
		// late is sent after the trigger returns, when non-empty.
		lateAfter time.Duration
		late      string
		wantURL   string
		wantErr   error
	}{
		{
			name:    "response during navigation",
			timeout: time.Second,
			trigger: func(found chan string) error { offer(found, manifestURL); return nil },
			wantURL: manifestURL,
		},
		{
			name:      "response after navigation",
			timeout:   time.Second,
			trigger:   func(chan string) error { return nil },
			lateAfter: 20 * time.Millisecond,
			late:      manifestURL,
			wantURL:   manifestURL,
		},
		{
			name:    "no response",
			timeout: 30 * time.Millisecond,
			trigger: func(chan string) error { return nil },
			wantErr: ErrNoMatch,
		},
		{
			name:      "response after timeout is ignored",
			timeout:   30 * time.Millisecond,
			trigger:   func(chan string) error { return nil },
			lateAfter: 150 * time.Millisecond,
			late:      manifestURL,
			wantErr:   ErrNoMatch,
		},
		{
			name:    "navigation timeout outlives response timeout",
			timeout: 20 * time.Millisecond,
			trigger: func(chan string) error { time.Sleep(100 * time.Millisecond); return navTimeout },
			wantErr: navTimeout,
		},
		{
			name:    "navigation error wins over match",
			timeout: time.Second,
			trigger: func(found chan string) error { offer(found, manifestURL); return navFailed },
			wantErr: navFailed,
		},
		{
			name:    "slow navigation with early match",
			timeout: 20 * time.Millisecond,
			trigger: func(found chan string) error {
				offer(found, manifestURL)
				time.Sleep(80 * time.Millisecond)
				return nil
			},
			wantURL: manifestURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := make(chan string, 1)
			trigger := func() error {
				err := tt.trigger(found)
				if tt.late != "" {
					go func() {
						time.Sleep(tt.lateAfter)
						offer(found, tt.late)
					}()
				}
				return err
			}

			r := runAwait(t, context.Background(), found, tt.timeout, trigger, 2*time.Second)

			if tt.wantErr != nil {
				if !errors.Is(r.err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", r.err, tt.wantErr)
				}
				if tt.wantErr != ErrNoMatch && errors.Is(r.err, ErrNoMatch) {
					t.Errorf("navigation error reported as no match: %v", r.err)
				}
				return
			}
			if r.err != nil {
				t.Fatalf("unexpected error: %v", r.err)
			}
			if r.url != tt.wantURL {
				t.Errorf("url = %q, want %q", r.url, tt.wantURL)
			}
		})
	}
}

func TestAwaitResponseNavigationTimeoutKeepsType(t *testing.T) {
	navTimeout := fmt.Errorf("navigating: %w", playwright.ErrTimeout)
	found := make(chan string, 1)

	r := runAwait(t, context.Background(), found, 10*time.Millisecond, func() error {
		time.Sleep(50 * time.Millisecond)
		return navTimeout
	}, 2*time.Second)

	if r.err != navTimeout {
		t.Errorf("error = %v, want the navigation error unchanged", r.err)
	}
}

func TestAwaitResponseContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	defer close(block)

	found := make(chan string, 1)
	time.AfterFunc(20*time.Millisecond, cancel)

	r := runAwait(t, ctx, found, time.Hour, func() error {
		<-block
		return nil
	}, 2*time.Second)

	if !errors.Is(r.err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", r.err)
	}
}

func TestOfferDoesNotBlock(t *testing.T) {
	found := make(chan string, 1)
	offer(found, "first")
	offer(found, "second")

	if got := <-found; got != "first" {
		t.Errorf("got %q, want first", got)
	}
}

func TestClassifyPlaywrightError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMissing bool
	}{
		{"driver not installed", errors.New("please install the driver (v1.45.1) and browsers first: open /root/.cache/ms-playwright-go: no such file"), true},
		{"no driver instance", errors.New("could not get driver instance: $HOME is not defined"), true},
		{"browser build missing", errors.New("Executable doesn't exist at /root/.cache/ms-playwright/firefox-1458/firefox/firefox"), true},
		{"display missing", errors.New("Looks like you launched a headed browser without having a XServer running"), false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:9222: connect: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyPlaywrightError("starting playwright", tt.err)
			if got := errors.Is(err, ErrDriverMissing); got != tt.wantMissing {
				t.Errorf("errors.Is(ErrDriverMissing) = %v, want %v (%v)", got, tt.wantMissing, err)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("original error lost: %v", err)
			}
		})
	}
}

package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/quanghiep03198/rfid-agent/internal/backup"
	"github.com/quanghiep03198/rfid-agent/internal/config"
	"github.com/quanghiep03198/rfid-agent/internal/platform"
)

// Fetcher is one retrieval strategy. A nil error with no file at dest is
// still a failure.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, url, dest string) error
}

// CurlFetcher downloads with the external curl tool.
type CurlFetcher struct {
	runner   platform.CommandRunner
	settings config.CurlSettings
}

// NewCurlFetcher creates a CurlFetcher. A nil runner uses os/exec.
func NewCurlFetcher(runner platform.CommandRunner, s config.CurlSettings) *CurlFetcher {
	if runner == nil {
		runner = platform.ExecRunner{}
	}
	if s.Path == "" {
		s.Path = "curl"
	}
	return &CurlFetcher{runner: runner, settings: s}
}

// Name implements Fetcher.
func (f *CurlFetcher) Name() string { return "curl" }

// Fetch implements Fetcher.
func (f *CurlFetcher) Fetch(ctx context.Context, url, dest string) error {
	args := []string{
		"-L", "-f",
		"-o", dest,
		url,
		"--connect-timeout", strconv.Itoa(f.settings.ConnectTimeout),
		"--max-time", strconv.Itoa(f.settings.MaxTime),
		"--retry", strconv.Itoa(f.settings.Retries),
	}
	out, err := f.runner.Run(ctx, f.settings.Path, args...)
	if err != nil {
		return fmt.Errorf("curl failed: %w: %s", err, truncate(out, 200))
	}
	return nil
}

// HTTPFetcher downloads in-process with net/http.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the given overall timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Name implements Fetcher.
func (f *HTTPFetcher) Name() string { return "http" }

// Fetch implements Fetcher. The body is written to a sibling .part file and
// renamed into place once complete.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(part)
		return fmt.Errorf("transfer interrupted: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(part)
		return err
	}
	return os.Rename(part, dest)
}

// LocalFetcher copies archives referenced by a local path or file:// URL.
type LocalFetcher struct{}

// Name implements Fetcher.
func (LocalFetcher) Name() string { return "copy" }

// Fetch implements Fetcher.
func (LocalFetcher) Fetch(_ context.Context, url, dest string) error {
	return backup.CopyFile(localPath(url), dest)
}

// RetryDownloader runs its fetchers in order on every attempt and backs off
// exponentially between attempts.
type RetryDownloader struct {
	logger     *log.Logger
	fetchers   []Fetcher
	local      Fetcher
	maxRetries int
	base       time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// DownloaderOption configures a RetryDownloader.
type DownloaderOption func(*RetryDownloader)

// WithFetchers replaces the remote fetchers.
func WithFetchers(f ...Fetcher) DownloaderOption {
	return func(d *RetryDownloader) {
		d.fetchers = f
	}
}

// WithLocalFetcher replaces the fetcher used for local references.
func WithLocalFetcher(f Fetcher) DownloaderOption {
	return func(d *RetryDownloader) {
		d.local = f
	}
}

// WithMaxRetries sets the number of attempts. Values below 1 are ignored.
func WithMaxRetries(n int) DownloaderOption {
	return func(d *RetryDownloader) {
		if n >= 1 {
			d.maxRetries = n
		}
	}
}

// WithRetryBase sets the wait after the first failed attempt.
func WithRetryBase(base time.Duration) DownloaderOption {
	return func(d *RetryDownloader) {
		if base > 0 {
			d.base = base
		}
	}
}

// WithDownloadSleep replaces the wait between attempts.
func WithDownloadSleep(fn func(ctx context.Context, d time.Duration) error) DownloaderOption {
	return func(d *RetryDownloader) {
		d.sleep = fn
	}
}

// NewDownloader creates a RetryDownloader trying curl then net/http, three
// attempts, waiting 1s then 2s.
func NewDownloader(logger *log.Logger, opts ...DownloaderOption) *RetryDownloader {
	d := &RetryDownloader{
		logger: logger,
		fetchers: []Fetcher{
			NewCurlFetcher(nil, config.CurlSettings{ConnectTimeout: 30, MaxTime: 300, Retries: 3}),
			NewHTTPFetcher(5 * time.Minute),
		},
		local:      LocalFetcher{},
		maxRetries: 3,
		base:       time.Second,
		sleep:      platform.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches url into dest. Attempt n waits base*2^(n-1) after
// failing; the last attempt does not wait. It returns true iff dest exists
// after a fetcher succeeded.
func (d *RetryDownloader) Download(ctx context.Context, url, dest string) bool {
	fetchers := d.fetchers
	if !isRemote(url) {
		fetchers = []Fetcher{d.local}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		d.logger.Error("Cannot create download directory", "dir", filepath.Dir(dest), "error", err)
		return false
	}

	schedule := d.schedule()
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		if ctx.Err() != nil {
			d.logger.Warn("Download cancelled", "url", url)
			return false
		}

		d.logger.Info("Download attempt", "attempt", fmt.Sprintf("%d/%d", attempt, d.maxRetries), "url", url)
		for _, f := range fetchers {
			err := f.Fetch(ctx, url, dest)
			if err == nil {
				if info, statErr := os.Stat(dest); statErr == nil && info.Mode().IsRegular() {
					d.logger.Info("Download successful", "strategy", f.Name(), "bytes", info.Size())
					return true
				}
				err = errors.New("destination missing after download")
			}
			d.logger.Warn("Download strategy failed", "strategy", f.Name(), "attempt", attempt, "error", err)
			_ = os.Remove(dest)
		}

		if attempt < d.maxRetries {
			wait := schedule.NextBackOff()
			d.logger.Debug("Waiting before next attempt", "wait", wait)
			if err := d.sleep(ctx, wait); err != nil {
				d.logger.Warn("Download cancelled", "url", url)
				return false
			}
		}
	}

	d.logger.Error("All download attempts failed", "url", url, "attempts", d.maxRetries)
	return false
}

// schedule returns base, 2*base, 4*base, ... without jitter or a cap.
func (d *RetryDownloader) schedule() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 24 * time.Hour
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jask/panelmatch/internal/database/repository"
)

const (
	defaultBaseURL     = "https://docs.google.com"
	defaultHTTPTimeout = 30 * time.Second
	maxBody            = 32 << 20
)

// ErrRateLimited is wrapped by RateLimitError.
var ErrRateLimited = errors.New("sheets: rate limited")

// RateLimitError says how long to wait before the next fetch is allowed.
type RateLimitError struct {
	Wait   time.Duration
	Reason string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("sheets: rate limited (%s), retry in %s", e.Reason, e.Wait.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Config describes the fetcher configuration.
type Config struct {
	BaseURL       string
	SpreadsheetID string
	CacheTTL      time.Duration
	MinInterval   time.Duration
	MaxPerHour    int
	// TabDelay separates downloads within one round.
	TabDelay time.Duration
	// Wait sleeps through rate limits instead of failing.
	Wait       bool
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Fetcher downloads sheet tabs as CSV through the anonymous export URL,
// caching bodies and fetch history in the ledger.
type Fetcher struct {
	cfg  Config
	base *url.URL
	repo *repository.SheetRepo
	http *http.Client
	log  *slog.Logger
}

// Result is one fetched tab.
type Result struct {
	GID       string
	Body      []byte
	FetchedAt time.Time
	Cached    bool
	Err       error
}

// NewFetcher validates cfg and returns a Fetcher backed by repo.
func NewFetcher(cfg Config, repo *repository.SheetRepo) (*Fetcher, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	if repo == nil {
		return nil, errors.New("sheets: repository is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("sheets: parse base url: %w", err)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fetcher{cfg: cfg, base: u, repo: repo, http: client, log: logger}, nil
}

// ExportURL is the CSV export address of one tab.
func (f *Fetcher) ExportURL(gid string) string {
	u := f.base.JoinPath("spreadsheets", "d", f.cfg.SpreadsheetID, "export")
	q := url.Values{}
	q.Set("format", "csv")
	if gid != "" {
		q.Set("gid", gid)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch returns one tab's CSV. See FetchTabs.
func (f *Fetcher) Fetch(ctx context.Context, gid string, force bool) (Result, error) {
	res, err := f.FetchTabs(ctx, []string{gid}, force)
	if err != nil {
		return Result{}, err
	}
	return res[0], res[0].Err
}

// FetchTabs returns the CSV of each tab in order. When every tab has a cached
// body younger than CacheTTL no request is made, unless force is set.
// Otherwise all tabs are downloaded in one round, which must respect the
// limits: one round per MinInterval and at most MaxPerHour downloads per
// hour. When a limit is hit and Wait is unset, cached bodies of any age are
// served if every tab has one, except under force. A failed download is
// reported in its Result and does not stop the round.
func (f *Fetcher) FetchTabs(ctx context.Context, gids []string, force bool) ([]Result, error) {
	out := make([]Result, len(gids))
	fresh, stale := true, true
	for i, gid := range gids {
		c, err := f.repo.GetCache(ctx, f.cfg.SpreadsheetID, gid)
		if err != nil {
			return nil, fmt.Errorf("read cache: %w", err)
		}
		if c == nil {
			fresh, stale = false, false
			continue
		}
		out[i] = Result{GID: gid, Body: c.Body, FetchedAt: c.FetchedAt, Cached: true}
		if f.now().Sub(c.FetchedAt) >= f.cfg.CacheTTL {
			fresh = false
		}
	}
	if !force && fresh {
		f.log.Debug("sheets served from cache", slog.Int("tabs", len(gids)))
		return out, nil
	}

	if err := f.awaitRate(ctx, len(gids)); err != nil {
		if !force && stale && errors.Is(err, ErrRateLimited) {
			f.log.Warn("rate limited, serving stale cache", slog.String("reason", err.Error()))
			return out, nil
		}
		return nil, err
	}

	for i, gid := range gids {
		if i > 0 {
			if err := sleep(ctx, f.cfg.TabDelay); err != nil {
				return nil, err
			}
		}
		out[i] = f.fetchTab(ctx, gid)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return out, nil
}

func (f *Fetcher) fetchTab(ctx context.Context, gid string) Result {
	now := f.now()
	body, ferr := f.download(ctx, gid)
	if err := f.repo.RecordFetch(ctx, f.cfg.SpreadsheetID, gid, ferr == nil, now); err != nil {
		return Result{GID: gid, Err: fmt.Errorf("record fetch: %w", err)}
	}
	if ferr != nil {
		f.log.Warn("sheet fetch failed", slog.String("gid", gid), slog.String("error", ferr.Error()))
		return Result{GID: gid, Err: ferr}
	}
	if err := f.repo.PutCache(ctx, repository.SheetCache{
		SpreadsheetID: f.cfg.SpreadsheetID,
		GID:           gid,
		Body:          body,
		FetchedAt:     now,
	}); err != nil {
		return Result{GID: gid, Err: fmt.Errorf("write cache: %w", err)}
	}
	f.log.Info("sheet fetched", slog.String("gid", gid), slog.Int("bytes", len(body)))
	return Result{GID: gid, Body: body, FetchedAt: now}
}

// awaitRate returns a RateLimitError, or with Wait set sleeps until the
// limits allow a round of that many downloads.
func (f *Fetcher) awaitRate(ctx context.Context, tabs int) error {
	if f.cfg.MaxPerHour > 0 && tabs > f.cfg.MaxPerHour {
		return fmt.Errorf("sheets: %d tabs exceed the hourly limit of %d", tabs, f.cfg.MaxPerHour)
	}
	for {
		err := f.checkRate(ctx, f.now(), tabs)
		var rl *RateLimitError
		if !f.cfg.Wait || !errors.As(err, &rl) {
			return err
		}
		f.log.Info("rate limited, waiting", slog.String("reason", rl.Reason), slog.Duration("wait", rl.Wait))
		if err := sleep(ctx, rl.Wait+time.Second); err != nil {
			return err
		}
	}
}

func (f *Fetcher) now() time.Time {
	return f.cfg.Now().UTC().Truncate(time.Second)
}

// checkRate applies both limits to the persisted fetch history. The hourly
// limit must leave room for all tabs of the round.
func (f *Fetcher) checkRate(ctx context.Context, now time.Time, tabs int) error {
	if f.cfg.MinInterval > 0 {
		last, err := f.repo.LastFetch(ctx)
		if err != nil {
			return fmt.Errorf("read fetch history: %w", err)
		}
		if last != nil {
			if since := now.Sub(*last); since < f.cfg.MinInterval {
				return &RateLimitError{Wait: f.cfg.MinInterval - since, Reason: "minimum interval"}
			}
		}
	}
	if f.cfg.MaxPerHour > 0 {
		recent, err := f.repo.FetchesSince(ctx, now.Add(-time.Hour))
		if err != nil {
			return fmt.Errorf("read fetch history: %w", err)
		}
		if over := len(recent) + tabs - f.cfg.MaxPerHour; over > 0 {
			// wait until the over oldest fetches leave the window
			expires := recent[over-1]
			return &RateLimitError{Wait: expires.Add(time.Hour).Sub(now), Reason: "hourly limit"}
		}
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, gid string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.ExportURL(gid), nil)
	if err != nil {
		return nil, fmt.Errorf("build sheet request: %w", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet %s: %w", gid, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("fetch sheet %s: status %d", gid, resp.StatusCode)
	}
	// private sheets redirect to a sign-in page instead of failing
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		return nil, fmt.Errorf("fetch sheet %s: got html, is the sheet shared publicly?", gid)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", gid, err)
	}
	return body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

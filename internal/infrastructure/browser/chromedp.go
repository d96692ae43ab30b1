package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/ports"
)

const defaultPageTimeout = 30 * time.Second

// Fetcher drives a headless Chrome instance to list links and read the
// rendered text of dynamic pages. Municipal sites lean heavily on
// client-side rendering, so a plain HTTP GET often sees an empty shell.
type Fetcher struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	logger      *slog.Logger
}

var (
	_ ports.LinkFetcher = (*Fetcher)(nil)
	_ ports.PageFetcher = (*Fetcher)(nil)
)

// Options configure the browser fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// New starts a shared exec allocator; Close releases it.
func New(opts Options, logger *slog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultPageTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "ActivityScanner/1.0"
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &Fetcher{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		timeout:     opts.Timeout,
		logger:      logger,
	}
}

// Close tears down the browser allocator.
func (f *Fetcher) Close() {
	f.cancelAlloc()
}

// FetchLinks navigates to the page and returns every anchor with a resolved
// href, in document order.
func (f *Fetcher) FetchLinks(ctx context.Context, url string) ([]domain.Link, error) {
	var links []domain.Link
	script := `Array.from(document.querySelectorAll('a[href]')).map(a => ({text: a.innerText.trim(), href: a.href}))`

	err := f.run(ctx, url, chromedp.Evaluate(script, &links))
	if err != nil {
		return nil, err
	}
	if f.logger != nil {
		f.logger.Debug("links fetched", "url", url, "count", len(links))
	}
	return links, nil
}

// FetchPageText returns the rendered body text of the page.
func (f *Fetcher) FetchPageText(ctx context.Context, url string) (string, error) {
	var text string
	err := f.run(ctx, url, chromedp.Text("body", &text, chromedp.ByQuery))
	if err != nil {
		return "", err
	}
	return text, nil
}

func (f *Fetcher) run(ctx context.Context, url string, action chromedp.Action) error {
	taskCtx, cancelTask := chromedp.NewContext(f.allocCtx)
	defer cancelTask()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, f.timeout)
	defer cancelTimeout()

	// The browser context does not descend from the caller's context, so
	// propagate its cancellation by hand.
	stop := context.AfterFunc(ctx, cancelTask)
	defer stop()

	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		action,
	)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ports.ErrFetchTimeout, url, f.timeout)
	}
	return fmt.Errorf("%w: %s: %v", ports.ErrNavigationFailed, url, err)
}

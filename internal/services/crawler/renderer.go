package crawler

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/common"
)

// Renderer fetches pages through headless Chrome for JS-rendered sites.
// A browser is expensive, so it is allocated lazily on first use and
// reused for the life of the service.
type Renderer struct {
	config common.CrawlerConfig
	logger arbor.ILogger

	mu        sync.Mutex
	allocCtx  context.Context
	allocStop context.CancelFunc
	available *bool
}

// NewRenderer creates a renderer. No browser is started until Render is
// first called.
func NewRenderer(config common.CrawlerConfig, logger arbor.ILogger) *Renderer {
	return &Renderer{
		config: config,
		logger: logger,
	}
}

// Available reports whether a Chrome binary can be found on this host.
func (r *Renderer) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.available != nil {
		return *r.available
	}

	found := false
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	r.available = &found

	if !found {
		r.logger.Warn().Msg("No Chrome binary found - JS-rendered sites will use raw HTML")
	}
	return found
}

// Render navigates to a URL in headless Chrome, waits for scripts to
// settle, and returns the rendered document HTML.
func (r *Renderer) Render(ctx context.Context, pageURL string) (string, error) {
	allocCtx, err := r.allocator()
	if err != nil {
		return "", err
	}

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeout := r.config.TimeoutDuration() + r.config.JSWaitDuration()
	pageCtx, cancelPage := context.WithTimeout(browserCtx, timeout)
	defer cancelPage()

	var html string
	err = chromedp.Run(pageCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(r.config.JSWaitDuration()),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("headless render of %s failed: %w", pageURL, err)
	}

	r.logger.Debug().
		Str("url", pageURL).
		Int("html_length", len(html)).
		Msg("Page rendered via headless browser")

	return html, nil
}

// allocator returns the shared Chrome allocator, creating it on first use.
func (r *Renderer) allocator() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.allocCtx != nil {
		return r.allocCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(r.config.UserAgent),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	r.allocCtx, r.allocStop = chromedp.NewExecAllocator(context.Background(), opts...)
	return r.allocCtx, nil
}

// Close shuts down the shared browser allocator.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.allocStop != nil {
		r.allocStop()
		r.allocCtx = nil
		r.allocStop = nil
	}
}

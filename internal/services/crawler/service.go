package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
)

// Service crawls a site breadth-first up to a page budget. Pages are
// fetched over plain HTTP first; when the homepage looks JS-rendered the
// fetch escalates to a headless browser render and the result is flagged.
type Service struct {
	config   common.CrawlerConfig
	logger   arbor.ILogger
	client   *http.Client
	renderer *Renderer

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// NewService creates a new crawl service.
func NewService(config common.CrawlerConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
		client: &http.Client{
			Timeout: config.TimeoutDuration(),
		},
		renderer: NewRenderer(config, logger),
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiter returns the politeness limiter for a domain.
func (s *Service) limiter(domain string) *rate.Limiter {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()

	limiter, ok := s.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(s.config.DelayDuration()), 1)
		s.limiters[domain] = limiter
	}
	return limiter
}

// Crawl fetches up to maxPages same-host pages starting from targetURL.
// onProgress receives live counters after every page; it must not block.
// Returns an error only when the start page itself cannot be fetched.
func (s *Service) Crawl(ctx context.Context, targetURL string, maxPages int, onProgress interfaces.CrawlProgressFunc) (*models.CrawlResult, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	start, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid crawl target %s: %w", targetURL, err)
	}
	host := start.Hostname()

	result := &models.CrawlResult{}
	queue := []string{targetURL}
	visited := map[string]bool{canonical(targetURL): true}
	converter := md.NewConverter(host, true, nil)

	for len(queue) > 0 && len(result.Pages) < maxPages {
		if err := ctx.Err(); err != nil {
			break
		}

		current := queue[0]
		queue = queue[1:]

		if err := s.limiter(host).Wait(ctx); err != nil {
			break
		}

		html, rendered, fetchErr := s.fetchPage(ctx, current, len(result.Pages) == 0)
		if fetchErr != nil {
			if len(result.Pages) == 0 {
				return nil, fmt.Errorf("failed to fetch %s: %w", current, fetchErr)
			}
			s.logger.Warn().Err(fetchErr).Str("url", current).Msg("Skipping unreachable page")
			continue
		}
		if rendered {
			result.JSRendered = true
		}

		page, links := s.extractPage(current, html, converter)
		result.Pages = append(result.Pages, page)

		for _, link := range links {
			key := canonical(link)
			if visited[key] {
				continue
			}
			visited[key] = true
			if sameHost(link, host) && len(visited) <= maxPages*4 {
				queue = append(queue, link)
			}
		}

		if onProgress != nil {
			onProgress(len(result.Pages), len(visited), current)
		}

		s.logger.Debug().
			Str("url", current).
			Int("crawled", len(result.Pages)).
			Int("found", len(visited)).
			Msg("Page crawled")
	}

	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("no pages could be crawled from %s", targetURL)
	}

	return result, nil
}

// fetchPage fetches one URL. On the first page a JS-rendered shell
// escalates to a headless render; deeper pages are never rendered to keep
// the crawl cheap.
func (s *Service) fetchPage(ctx context.Context, pageURL string, allowRender bool) (string, bool, error) {
	html, err := s.fetchHTTP(ctx, pageURL)
	if err != nil {
		if allowRender && s.renderer.Available() {
			rendered, rerr := s.renderer.Render(ctx, pageURL)
			if rerr == nil {
				return rendered, true, nil
			}
		}
		return "", false, err
	}

	if allowRender && looksJSRendered(html) && s.renderer.Available() {
		rendered, rerr := s.renderer.Render(ctx, pageURL)
		if rerr != nil {
			s.logger.Warn().Err(rerr).Str("url", pageURL).Msg("Headless render failed, using raw HTML")
			return html, false, nil
		}
		return rendered, true, nil
	}

	return html, false, nil
}

func (s *Service) fetchHTTP(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return "", fmt.Errorf("unsupported content type %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// extractPage parses fetched HTML into a page record plus its same-site
// candidate links.
func (s *Service) extractPage(pageURL, html string, converter *md.Converter) (models.PageRecord, []string) {
	page := models.PageRecord{
		URL:  pageURL,
		Path: common.PathOf(pageURL),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to parse page HTML")
		return page, nil
	}

	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	page.Headline = strings.TrimSpace(doc.Find("h1").First().Text())

	// Strip chrome that would pollute the prompt content
	doc.Find("script, style, noscript, svg, iframe").Remove()
	if body, err := doc.Find("body").Html(); err == nil {
		if content, err := converter.ConvertString(body); err == nil {
			content = strings.TrimSpace(content)
			if s.config.MaxContentChars > 0 && len(content) > s.config.MaxContentChars {
				content = content[:s.config.MaxContentChars]
			}
			page.Content = content
		}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return page, nil
	}

	var links []string
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "javascript:") {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		resolved.Fragment = ""
		link := resolved.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	return page, links
}

// looksJSRendered detects single-page-app shells: pages whose visible text
// is nearly empty while scripts dominate the document.
func looksJSRendered(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := strings.TrimSpace(body.Text())
	scripts := doc.Find("script").Length()

	return len(text) < 200 && scripts > 0
}

func sameHost(link, host string) bool {
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	linkHost := strings.TrimPrefix(parsed.Hostname(), "www.")
	return linkHost == strings.TrimPrefix(host, "www.")
}

// canonical normalizes a URL for the visited set: scheme and trailing
// slash differences should not cause re-crawls.
func canonical(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}
	path := strings.TrimSuffix(parsed.Path, "/")
	return strings.TrimPrefix(parsed.Hostname(), "www.") + path + "?" + parsed.RawQuery
}

var _ interfaces.CrawlService = (*Service)(nil)

package scrape

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

// Page is the readable text of one crawled page.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Site is what a website crawl found. The first page is the start URL.
type Site struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Pages       []Page `json:"pages"`
}

// PageMap keys page text by URL.
func (s Site) PageMap() map[string]string {
	out := make(map[string]string, len(s.Pages))
	for _, p := range s.Pages {
		out[p.URL] = p.Text
	}
	return out
}

// Text joins every page's text, start page first.
func (s Site) Text() string {
	parts := make([]string, 0, len(s.Pages))
	for _, p := range s.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// ScrapeWebsite crawls rawURL and same-host links up to MaxPages pages.
// Errors are logged; whatever was collected is returned.
func (s *Scraper) ScrapeWebsite(ctx context.Context, rawURL string) Site {
	start := time.Now()
	site := Site{URL: strings.TrimSpace(rawURL), Pages: []Page{}}

	startURL, err := normalizeURL(site.URL)
	if err != nil {
		s.logger.Warn("scrape.site.invalid_url", "url", rawURL, "error", err)
		return site
	}
	site.URL = startURL
	host := strings.ToLower(hostOf(startURL))

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	c := colly.NewCollector(
		colly.Async(true),
		colly.MaxDepth(2),
		colly.AllowedDomains(host),
		colly.StdlibContext(ctx),
		colly.UserAgent(s.cfg.UserAgent),
	)
	c.SetRequestTimeout(s.cfg.Timeout)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 2, Delay: s.cfg.Delay})

	var (
		mu      sync.Mutex
		pages   []Page
		visited = map[string]bool{}
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	c.OnResponse(func(r *colly.Response) {
		ct := r.Headers.Get("Content-Type")
		if strings.Contains(strings.ToLower(ct), "charset") {
			// colly already transcoded bodies that declare a charset
			return
		}
		enc, name, _ := charset.DetermineEncoding(r.Body, ct)
		if name == "utf-8" || enc == nil {
			return
		}
		if decoded, err := enc.NewDecoder().Bytes(r.Body); err == nil {
			r.Body = decoded
		}
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		u, err := normalizeURL(e.Request.URL.String())
		if err != nil {
			return
		}
		title := strings.TrimSpace(e.DOM.Find("title").First().Text())
		text := mainText(e.DOM)

		mu.Lock()
		if visited[u] || len(pages) >= s.cfg.MaxPages {
			mu.Unlock()
			return
		}
		visited[u] = true
		pages = append(pages, Page{URL: u, Title: title, Text: text})
		if u == startURL {
			site.Title = title
			site.Description = strings.TrimSpace(e.DOM.Find(`meta[name="description"]`).AttrOr("content", ""))
		}
		room := len(pages) < s.cfg.MaxPages
		mu.Unlock()

		if !room {
			return
		}
		e.DOM.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			lower := strings.ToLower(href)
			if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(lower, "mailto:") ||
				strings.HasPrefix(lower, "tel:") || strings.HasPrefix(lower, "javascript:") {
				return
			}
			next, err := normalizeURL(e.Request.AbsoluteURL(href))
			if err != nil || hostOf(next) != host {
				return
			}
			_ = e.Request.Visit(next)
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		s.logger.Warn("scrape.site.page_failed", "url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})

	if err := c.Visit(startURL); err != nil {
		s.logger.Warn("scrape.site.failed", "url", startURL, "error", err)
		return site
	}
	c.Wait()

	// start page first, then crawl order
	for i, p := range pages {
		if p.URL == startURL && i > 0 {
			pages[0], pages[i] = pages[i], pages[0]
			break
		}
	}
	site.Pages = append(site.Pages, pages...)
	s.logger.Info("scrape.site.ok",
		"url", startURL,
		"pages", len(site.Pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return site
}

// normalizeURL adds a missing scheme and drops the fragment and trailing
// slash so one page has one key.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", &url.Error{Op: "normalize", URL: raw, Err: errNotWeb}
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// mainText extracts readable text, preferring semantic content containers.
func mainText(sel *goquery.Selection) string {
	doc := sel.Clone()
	doc.Find("script, style, noscript, nav, footer, header, aside, .nav, .navbar, .footer, .header, .sidebar, .ads").Remove()

	var b strings.Builder
	for _, selector := range []string{"main", "article", "[role='main']", "#content", ".content", "body"} {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); len(t) > 40 {
				b.WriteString(t)
				b.WriteString("\n")
			}
		})
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		b.WriteString(doc.Find("body").Text())
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

package scrape

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

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html/charset"
)

const (
	DefaultTimeout   = 20 * time.Second
	DefaultMaxPages  = 8
	DefaultMaxURLs   = 5
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

type Config struct {
	Timeout   time.Duration
	SearchURL string // HTML search endpoint queried with ?q=
	MaxPages  int
	UserAgent string
	// Delay between requests to one host while crawling.
	Delay time.Duration
}

// Scraper does web research for the client and seller tabs. Every method
// degrades to an empty result on network or parse errors.
type Scraper struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewScraper(cfg Config, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Scraper{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// DiscoverURLs searches for the company's web presence and returns up to max
// result URLs, at most one per host.
func (s *Scraper) DiscoverURLs(ctx context.Context, company string, max int) []string {
	if max <= 0 {
		max = DefaultMaxURLs
	}
	company = strings.TrimSpace(company)
	if company == "" {
		return []string{}
	}
	links, err := s.search(ctx, company+" official website")
	if err != nil {
		s.logger.Warn("scrape.discover.failed", "company", company, "error", err)
		return []string{}
	}

	searchHost := hostOf(s.cfg.SearchURL)
	seen := map[string]bool{}
	out := make([]string, 0, max)
	for _, l := range links {
		h := strings.TrimPrefix(hostOf(l), "www.")
		if h == "" || h == searchHost || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, l)
		if len(out) == max {
			break
		}
	}
	s.logger.Info("scrape.discover.ok", "company", company, "urls", len(out))
	return out
}

// LinkedInLookup returns the company's LinkedIn page, or "" when the search
// finds none.
func (s *Scraper) LinkedInLookup(ctx context.Context, company string) string {
	company = strings.TrimSpace(company)
	if company == "" {
		return ""
	}
	links, err := s.search(ctx, "site:linkedin.com/company "+company)
	if err != nil {
		s.logger.Warn("scrape.linkedin.failed", "company", company, "error", err)
		return ""
	}
	for _, l := range links {
		u, err := url.Parse(l)
		if err != nil {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if (host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com")) && strings.HasPrefix(u.Path, "/company/") {
			u.RawQuery, u.Fragment = "", ""
			return u.String()
		}
	}
	return ""
}

// search fetches the results page for q and returns the outbound result
// links in page order.
func (s *Scraper) search(ctx context.Context, q string) ([]string, error) {
	if s.cfg.SearchURL == "" {
		return nil, fmt.Errorf("no search url configured")
	}
	rid := uuid.New().String()
	start := time.Now()

	u, err := url.Parse(s.cfg.SearchURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	params := u.Query()
	params.Set("q", q)
	u.RawQuery = params.Encode()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned %s", resp.Status)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, 4<<20), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode search page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	var links []string
	sel := doc.Find("a.result__a")
	if sel.Length() == 0 {
		sel = doc.Find("a[href]")
	}
	sel.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if l := resultTarget(u, href); l != "" {
			links = append(links, l)
		}
	})
	s.logger.Debug("scrape.search.ok", "req_id", rid, "links", len(links), "elapsed_ms", time.Since(start).Milliseconds())
	return links, nil
}

// resultTarget resolves href against the results page and unwraps redirect
// links of the form /l/?uddg=<target>. Non-http targets yield "".
func resultTarget(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if target := abs.Query().Get("uddg"); target != "" {
		if t, err := url.Parse(target); err == nil {
			abs = t
		}
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

var errNotWeb = errors.New("not an http(s) url")

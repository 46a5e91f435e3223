package primitives

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/mbrown1837/webmonitor/internal/models"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// httpCrawler is the default Crawler: a breadth-first same-host walk
// using golang.org/x/net/html for DOM parsing and golang.org/x/sync/errgroup
// for bounded concurrent fetches per depth level — grounded on the
// teacher's lpmanager/manager.go goroutine-per-liquidity-provider fan-out,
// generalized from "one goroutine per LP" to "one goroutine per page".
type httpCrawler struct {
	fetch       *FetchClient
	concurrency int
}

// NewHTTPCrawler returns the default Crawler adapter.
func NewHTTPCrawler(fetch *FetchClient, concurrency int) Crawler {
	if concurrency < 1 {
		concurrency = 4
	}
	return &httpCrawler{fetch: fetch, concurrency: concurrency}
}

func (c *httpCrawler) Crawl(ctx context.Context, rootURL string, maxDepth int, excludeKeywords []string) (*CrawlResult, error) {
	root, err := url.Parse(rootURL)
	if err != nil {
		return nil, fmt.Errorf("httpcrawler: parse root url: %w", err)
	}

	result := &CrawlResult{}
	visited := map[string]bool{rootURL: true}
	var mu sync.Mutex
	frontier := []string{rootURL}

	for depth := 0; depth <= maxDepth && len(frontier) > 0; depth++ {
		next := make(map[string]bool)
		g, gctx := errgroup.WithContext(ctx)
		sem := make(chan struct{}, c.concurrency)

		for _, pageURL := range frontier {
			pageURL := pageURL
			if excluded(pageURL, excludeKeywords) {
				continue
			}
			g.Go(func() error {
				sem <- struct{}{}
				defer func() { <-sem }()

				links, images, meta, status, fetchErr := c.fetchAndParse(gctx, pageURL)
				mu.Lock()
				defer mu.Unlock()

				if fetchErr != nil {
					result.BrokenLinks = append(result.BrokenLinks, models.BrokenLink{
						SourcePage: rootURL, URL: pageURL, StatusCode: status, Error: fetchErr.Error(),
					})
					return nil // a broken page does not abort the crawl
				}

				result.Pages = append(result.Pages, pageURL)
				result.ImageURLs = append(result.ImageURLs, images...)
				result.MissingMeta = append(result.MissingMeta, meta...)

				for _, link := range links {
					resolved, ok := sameHostAbsolute(root, link)
					if !ok || visited[resolved] || excluded(resolved, excludeKeywords) {
						continue
					}
					visited[resolved] = true
					next[resolved] = true
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for u := range next {
			frontier = append(frontier, u)
		}
	}

	return result, nil
}

func (c *httpCrawler) fetchAndParse(ctx context.Context, pageURL string) (links, images []string, meta []models.MissingMeta, statusCode int, err error) {
	host := ""
	if u, parseErr := url.Parse(pageURL); parseErr == nil {
		host = u.Host
	}

	body, contentType, fetchErr := c.fetch.Get(ctx, pageURL, host)
	if fetchErr != nil {
		return nil, nil, nil, 0, fetchErr
	}
	if !strings.Contains(contentType, "html") && contentType != "" {
		return nil, nil, nil, 0, nil
	}

	doc, parseErr := html.Parse(strings.NewReader(string(body)))
	if parseErr != nil {
		return nil, nil, nil, 0, fmt.Errorf("parse html: %w", parseErr)
	}

	var hasDescription, hasTitle bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				if href := attr(n, "href"); href != "" {
					links = append(links, href)
				}
			case "img":
				if src := attr(n, "src"); src != "" {
					images = append(images, src)
				}
			case "title":
				hasTitle = true
			case "meta":
				if attr(n, "name") == "description" {
					hasDescription = true
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if !hasTitle {
		meta = append(meta, models.MissingMeta{Page: pageURL, Tag: "title"})
	}
	if !hasDescription {
		meta = append(meta, models.MissingMeta{Page: pageURL, Tag: "meta description"})
	}

	return links, images, meta, http.StatusOK, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func sameHostAbsolute(root *url.URL, href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := root.ResolveReference(u)
	if resolved.Host != root.Host {
		return "", false
	}
	resolved.Fragment = ""
	return resolved.String(), true
}

func excluded(pageURL string, keywords []string) bool {
	path := pageURL
	if u, err := url.Parse(pageURL); err == nil {
		path = u.Path
	}
	lower := strings.ToLower(path)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"sjsage522/jobfeedworker/logger"
	apperrors "sjsage522/jobfeedworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// FeedCrawler extracts job records from a rendered feed page
type FeedCrawler struct {
	URL       string
	Selectors Selectors
	renderer  Renderer
	base      *url.URL
	log       *logger.Logger
}

var _ Crawler = (*FeedCrawler)(nil)

// NewFeedCrawler creates a crawler for the configured feed
func NewFeedCrawler(config CrawlerConfig, renderer Renderer, log *logger.Logger) (*FeedCrawler, error) {
	base, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FeedCrawler{
		URL:       config.URL,
		Selectors: config.Selectors,
		renderer:  renderer,
		base:      base,
		log:       log,
	}, nil
}

// Extract renders the feed and maps every job card to a JobRecord, in page
// order. A page without any card is an error: the layout has most likely
// changed, and an empty result would read as "nothing new".
func (c *FeedCrawler) Extract(ctx context.Context) ([]JobRecord, error) {
	content, err := c.renderer.Render(ctx, c.URL)
	if err != nil {
		return nil, apperrors.NewExtraction(c.URL, "render failed", err)
	}

	doc, err := c.createDocument(content)
	if err != nil {
		return nil, apperrors.NewExtraction(c.URL, "HTML parse failed", err)
	}

	cards := doc.Find(c.Selectors.Card)
	if cards.Length() == 0 {
		return nil, apperrors.NewExtraction(c.URL, fmt.Sprintf("no job cards matched %q", c.Selectors.Card), nil)
	}

	records := make([]JobRecord, 0, cards.Length())
	cards.Each(func(i int, s *goquery.Selection) {
		rec := c.processCard(s)
		c.log.Debug().
			Int("index", i).
			Str("title", rec.Title).
			Str("link", rec.Link).
			Str("publish_date", rec.PublishDate).
			Msg("Extracted job card")
		records = append(records, rec)
	})

	return records, nil
}

// createDocument parses rendered HTML into a goquery document
func (c *FeedCrawler) createDocument(content string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

// processCard resolves each field independently; a missing element leaves
// that field empty.
func (c *FeedCrawler) processCard(s *goquery.Selection) JobRecord {
	var rec JobRecord

	titleSel := s.Find(c.Selectors.Title).First()
	if titleSel.Length() > 0 {
		rec.Title = strings.TrimSpace(titleSel.Text())
		if href, ok := titleSel.Attr("href"); ok {
			rec.Link = c.absoluteLink(href)
		}
	}

	if c.Selectors.Description != "" {
		rec.Description = blockText(s.Find(c.Selectors.Description).First())
	}
	if c.Selectors.PostedAt != "" {
		rec.PublishDate = strings.TrimSpace(s.Find(c.Selectors.PostedAt).First().Text())
	}

	return rec
}

// blockElements start and end a line in rendered text
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "pre": true, "tr": true,
}

// blockText returns the text of s the way a browser's innerText separates it:
// line breaks and block boundaries become whitespace, then whitespace runs
// collapse to single spaces.
func blockText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "br":
				b.WriteByte('\n')
				return
			case "script", "style", "template":
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func (c *FeedCrawler) absoluteLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.base.ResolveReference(ref).String()
}

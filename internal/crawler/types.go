package crawler

import "context"

// JobRecord represents one job card scraped from the feed
type JobRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	PublishDate string `json:"publish_date"`
}

// Renderer loads a URL and returns the rendered DOM as HTML
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Crawler interface defines the contract for feed extraction
type Crawler interface {
	// Extract returns the feed's job records, newest first
	Extract(ctx context.Context) ([]JobRecord, error)
}

// Selectors contains CSS selectors for the elements of a job card
type Selectors struct {
	Card        string
	Title       string
	Description string
	PostedAt    string
}

// CrawlerConfig contains configuration for the feed crawler
type CrawlerConfig struct {
	URL       string
	Selectors Selectors
}

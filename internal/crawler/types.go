package crawler

import (
	"context"
	"time"
)

// UnknownField is the display text used when a product container is missing
const UnknownField = "Unbekannt"

// ProductRecord represents one scraped storefront entry
type ProductRecord struct {
	ImageURL string `json:"image_url"`
	Name     string `json:"name"`
	Price    string `json:"price"`
}

// Source supplies the ordered product listing for one dispatch pass
type Source interface {
	// FetchItems scrapes the storefront and returns its products in page order
	FetchItems(ctx context.Context) ([]ProductRecord, error)

	// GetName returns the source's name for logging and identification
	GetName() string
}

// Selectors contains CSS selectors for the storefront markup
type Selectors struct {
	Image   string
	Product string
	Title   string
	Price   string
}

// DefaultSelectors returns the selectors matching the fnitemshop.com markup
func DefaultSelectors() Selectors {
	return Selectors{
		Image:   "img",
		Product: "div.product",
		Title:   "div.product-title",
		Price:   "div.product-price",
	}
}

// CrawlerConfig contains configuration for the storefront crawler
type CrawlerConfig struct {
	URL            string
	ImagePrefix    string
	Provider       string
	UseBrowser     bool
	BrowserTimeout time.Duration
	Selectors      Selectors
}

package crawler

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/shopcollagebot/helpers"
	"sjsage522/shopcollagebot/logger"
	shoperrors "sjsage522/shopcollagebot/pkg/errors"
)

// ShopCrawler scrapes the product grid of a storefront page
type ShopCrawler struct {
	URL         string
	ImagePrefix string
	Provider    string
	Selectors   Selectors
	log         *logger.Logger
	fetchFunc   func(ctx context.Context) (io.Reader, error)
}

// Ensure ShopCrawler implements Source
var _ Source = (*ShopCrawler)(nil)

// NewShopCrawler creates a storefront crawler
func NewShopCrawler(config CrawlerConfig) *ShopCrawler {
	if config.Provider == "" {
		config.Provider = "ItemShop"
	}
	if config.Selectors == (Selectors{}) {
		config.Selectors = DefaultSelectors()
	}

	c := &ShopCrawler{
		URL:         config.URL,
		ImagePrefix: config.ImagePrefix,
		Provider:    config.Provider,
		Selectors:   config.Selectors,
		log:         logger.ForCrawler(config.Provider),
	}

	if config.UseBrowser {
		c.log.Info().Str("url", config.URL).Msg("Using headless browser fetch")
		timeout := config.BrowserTimeout
		c.fetchFunc = func(ctx context.Context) (io.Reader, error) {
			return fetchWithBrowser(ctx, c.URL, timeout)
		}
	} else {
		c.fetchFunc = func(ctx context.Context) (io.Reader, error) {
			return helpers.FetchWithRandomHeaders(ctx, c.URL)
		}
	}

	return c
}

// GetName returns the crawler's provider name
func (c *ShopCrawler) GetName() string {
	return c.Provider
}

// FetchItems loads the storefront page and extracts its products in page order
func (c *ShopCrawler) FetchItems(ctx context.Context) ([]ProductRecord, error) {
	body, err := c.fetchFunc(ctx)
	if err != nil {
		return nil, shoperrors.NewSourceFetch(c.Provider, "cannot load storefront page", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, shoperrors.NewParsing(c.Provider, "cannot parse storefront page", err)
	}

	items := c.extractItems(doc)
	c.log.Info().Int("items", len(items)).Msg("Storefront items loaded")
	return items, nil
}

// extractItems walks the images sequentially so the result keeps page order
func (c *ShopCrawler) extractItems(doc *goquery.Document) []ProductRecord {
	var items []ProductRecord

	doc.Find(c.Selectors.Image).Each(func(_ int, img *goquery.Selection) {
		src, exists := img.Attr("src")
		if !exists {
			return
		}

		imageURL := c.ResolveURL(strings.TrimSpace(src))
		if imageURL == "" || !strings.HasPrefix(imageURL, c.ImagePrefix) {
			return
		}

		items = append(items, c.processProduct(img, imageURL))
	})

	return items
}

// processProduct reads name and price from the product container around an image
func (c *ShopCrawler) processProduct(img *goquery.Selection, imageURL string) ProductRecord {
	record := ProductRecord{
		ImageURL: imageURL,
		Name:     UnknownField,
		Price:    UnknownField,
	}

	parent := img.ParentsFiltered(c.Selectors.Product).First()
	if parent.Length() == 0 {
		return record
	}

	record.Name = strings.TrimSpace(parent.Find(c.Selectors.Title).First().Text())
	record.Price = strings.TrimSpace(parent.Find(c.Selectors.Price).First().Text())
	return record
}

// ResolveURL resolves a possibly relative reference against the storefront URL
func (c *ShopCrawler) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	base, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}


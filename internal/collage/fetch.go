package collage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	// decoders for the accepted product image formats
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/go-resty/resty/v2"
	_ "golang.org/x/image/webp"

	"sjsage522/shopcollagebot/helpers"
	shoperrors "sjsage522/shopcollagebot/pkg/errors"
)

// FetchResult is the outcome of one image download: either a decoded image
// or the reason the product has to be skipped.
type FetchResult struct {
	Image image.Image
	Err   error
}

// OK reports whether the result carries a usable image
func (r FetchResult) OK() bool {
	return r.Err == nil && r.Image != nil
}

// ImageFetcher downloads and decodes a single product image
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) FetchResult
}

const (
	// MaxImageBytes caps the size of a downloaded product image
	MaxImageBytes = 20 << 20
	// MaxImagePixels caps the decoded size of a product image
	MaxImagePixels = 8192 * 8192
)

// HTTPFetcher fetches images over HTTP, one independent request per image
type HTTPFetcher struct {
	client   *resty.Client
	maxBytes int64
}

// Ensure HTTPFetcher implements ImageFetcher
var _ ImageFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher whose requests are bounded by timeout
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "image/avif,image/webp,image/png,image/jpeg,*/*;q=0.8")

	return &HTTPFetcher{client: client, maxBytes: MaxImageBytes}
}

// Fetch downloads url and decodes it. It never returns an error; failures are
// reported through FetchResult.Err.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) FetchResult {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", helpers.RandomUserAgent()).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return FetchResult{Err: shoperrors.NewImageFetch(url, "request failed", err)}
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return FetchResult{Err: shoperrors.NewImageFetch(url, fmt.Sprintf("unexpected status code: %d", resp.StatusCode()), nil)}
	}

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return FetchResult{Err: shoperrors.NewImageFetch(url, "cannot read body", err)}
	}
	if int64(len(data)) > f.maxBytes {
		return FetchResult{Err: shoperrors.NewImageFetch(url, fmt.Sprintf("image larger than %d bytes", f.maxBytes), nil)}
	}

	img, err := decodeBounded(data)
	if err != nil {
		return FetchResult{Err: shoperrors.NewImageDecode(url, err)}
	}

	return FetchResult{Image: img}
}

// decodeBounded reads the header first so oversized images are rejected
// before their pixels are allocated
func decodeBounded(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxImagePixels {
		return nil, fmt.Errorf("image of %dx%d pixels exceeds the %d pixel limit", cfg.Width, cfg.Height, MaxImagePixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// Package collage tiles product images into a fixed 8x8 grid canvas.
package collage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"

	"sjsage522/shopcollagebot/internal/crawler"
	"sjsage522/shopcollagebot/logger"
)

const (
	// CanvasSize is the width and height of a collage in pixels
	CanvasSize = 2048
	// GridSize is the number of cells per row and per column
	GridSize = 8
	// CellSize is the width and height of one product tile
	CellSize = CanvasSize / GridSize
	// Capacity is the number of products one collage can hold
	Capacity = GridSize * GridSize
)

// Background is the fill color of empty cells
var Background = color.NRGBA{R: 30, G: 30, B: 30, A: 255}

// ErrTooManyItems is returned when a batch exceeds the grid capacity
var ErrTooManyItems = errors.New("collage: more items than grid cells")

var acceptedExtensions = []string{"jpg", "jpeg", "png", "webp"}

// Collage is an encoded canvas and the placement counts that produced it
type Collage struct {
	PNG     []byte
	Placed  int
	Skipped int
}

// Reader returns a reader positioned at the start of the encoded PNG
func (c *Collage) Reader() io.Reader {
	return bytes.NewReader(c.PNG)
}

// Builder composes collages from product images
type Builder struct {
	fetcher ImageFetcher
	log     *logger.Logger
}

// NewBuilder creates a collage builder using the given fetcher
func NewBuilder(fetcher ImageFetcher) *Builder {
	return &Builder{
		fetcher: fetcher,
		log:     logger.ForComponent("collage"),
	}
}

// AcceptedExtension reports whether the URL path names a supported image type
func AcceptedExtension(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range acceptedExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Build fetches every item's image in order and packs the successful ones
// row-major into the canvas. Failed or filtered items leave no gap.
func (b *Builder) Build(ctx context.Context, items []crawler.ProductRecord) (*Collage, error) {
	if len(items) > Capacity {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyItems, len(items), Capacity)
	}

	canvas := imaging.New(CanvasSize, CanvasSize, Background)
	cursor := 0
	skipped := 0

	for _, item := range items {
		if !AcceptedExtension(item.ImageURL) {
			b.log.Debug().Str("image_url", item.ImageURL).Msg("Skipping unsupported image type")
			skipped++
			continue
		}

		result := b.fetcher.Fetch(ctx, item.ImageURL)
		if !result.OK() {
			b.log.Warn().Str("image_url", item.ImageURL).Err(result.Err).Msg("Skipping product image")
			skipped++
			continue
		}

		Place(canvas, result.Image, cursor)
		cursor++
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode collage: %w", err)
	}

	b.log.Debug().Int("placed", cursor).Int("skipped", skipped).Msg("Collage built")

	return &Collage{PNG: buf.Bytes(), Placed: cursor, Skipped: skipped}, nil
}

// Place scales img to one cell and writes it at the given grid slot
func Place(canvas *image.NRGBA, img image.Image, slot int) {
	cell := imaging.Resize(opaque(imaging.Clone(img)), CellSize, CellSize, imaging.CatmullRom)
	// resampling can round alpha just below 255
	opaque(cell)

	at := image.Pt((slot%GridSize)*CellSize, (slot/GridSize)*CellSize)
	draw.Draw(canvas, image.Rectangle{Min: at, Max: at.Add(cell.Bounds().Size())}, cell, image.Point{}, draw.Src)
}

// opaque drops the alpha channel, keeping the color values as they are
func opaque(img *image.NRGBA) *image.NRGBA {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

// Package dispatch splits the storefront listing into collage batches and
// delivers them, in order, to the configured channel.
package dispatch

import (
	"context"
	"errors"

	"sjsage522/shopcollagebot/internal/catalog"
	"sjsage522/shopcollagebot/internal/collage"
	"sjsage522/shopcollagebot/internal/crawler"
	"sjsage522/shopcollagebot/logger"
	shoperrors "sjsage522/shopcollagebot/pkg/errors"
	"sjsage522/shopcollagebot/services/publisher"
)

// BatchSize is the number of products per collage
const BatchSize = collage.Capacity

// CollageBuilder composes one collage from at most BatchSize products
type CollageBuilder interface {
	Build(ctx context.Context, items []crawler.ProductRecord) (*collage.Collage, error)
}

// Report summarizes one dispatch pass
type Report struct {
	PassID       string
	Items        int
	Batches      int
	Placed       int
	Skipped      int
	Sent         int
	Failed       int
	PromoSent    bool
	SourceFailed bool
}

// Dispatcher sends collages of a product listing to a publisher
type Dispatcher struct {
	builder      CollageBuilder
	publisher    publisher.Publisher
	catalog      *catalog.Catalog
	announcement catalog.Announcement
}

// NewDispatcher creates a dispatcher
func NewDispatcher(builder CollageBuilder, pub publisher.Publisher, cat *catalog.Catalog, announcement catalog.Announcement) *Dispatcher {
	return &Dispatcher{
		builder:      builder,
		publisher:    pub,
		catalog:      cat,
		announcement: announcement,
	}
}

// Batches splits items into consecutive slices of at most size, in order
func Batches(items []crawler.ProductRecord, size int) [][]crawler.ProductRecord {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	batches := make([][]crawler.ProductRecord, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}

// Dispatch builds and sends one collage per batch, strictly one after the
// other. The last post also carries the price list and is followed by the
// promo. A failed send is logged and does not stop later sends; all send
// failures are joined into the returned error. report may be nil.
func (d *Dispatcher) Dispatch(ctx context.Context, items []crawler.ProductRecord, report *Report) error {
	if report == nil {
		report = &Report{}
	}
	log := logger.ForComponent("dispatch").WithField("pass_id", report.PassID)

	batches := Batches(items, BatchSize)
	report.Items = len(items)
	report.Batches = len(batches)

	var errs []error
	for i, batch := range batches {
		last := i == len(batches)-1

		if err := d.sendBatch(ctx, batch, last, report); err != nil {
			report.Failed++
			errs = append(errs, err)
			log.Error().Err(err).Int("batch", i+1).Int("batches", len(batches)).Msg("Failed to send batch")
		} else {
			report.Sent++
			log.Info().Int("batch", i+1).Int("batches", len(batches)).Msg("Batch sent")
		}

		if !last {
			continue
		}

		if err := d.publisher.PublishPromo(ctx, d.announcement.Promo); err != nil {
			errs = append(errs, shoperrors.NewDelivery("dispatch", "cannot send promo", err))
			log.Error().Err(err).Msg("Failed to send promo")
		} else {
			report.PromoSent = true
		}
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) sendBatch(ctx context.Context, batch []crawler.ProductRecord, last bool, report *Report) error {
	c, err := d.builder.Build(ctx, batch)
	if err != nil {
		return shoperrors.NewDelivery("dispatch", "cannot build collage", err)
	}
	report.Placed += c.Placed
	report.Skipped += c.Skipped

	post := publisher.Post{
		Caption: d.announcement.Caption,
		Files: []publisher.File{{
			Name:        catalog.CollageFileName,
			ContentType: "image/png",
			Data:        c.PNG,
		}},
	}
	if last {
		post.Files = append(post.Files, d.catalog.PriceListFile())
	}

	if err := d.publisher.PublishCollage(ctx, post); err != nil {
		return shoperrors.NewDelivery("dispatch", "cannot send collage", err)
	}
	return nil
}

package publisher

import (
	"context"
	"errors"

	"sjsage522/shopcollagebot/logger"
)

// Fanout sends to a primary publisher and copies every message to mirrors.
// Only the primary's errors are returned; mirror failures are logged.
type Fanout struct {
	primary Publisher
	mirrors []Publisher
	log     *logger.Logger
}

// Ensure Fanout implements Publisher
var _ Publisher = (*Fanout)(nil)

// NewFanout creates a fan-out publisher
func NewFanout(primary Publisher, mirrors ...Publisher) *Fanout {
	return &Fanout{
		primary: primary,
		mirrors: mirrors,
		log:     logger.ForPublisher("fanout"),
	}
}

// PublishCollage sends the post to the primary, then to every mirror
func (f *Fanout) PublishCollage(ctx context.Context, post Post) error {
	err := f.primary.PublishCollage(ctx, post)
	for _, m := range f.mirrors {
		if mErr := m.PublishCollage(ctx, post); mErr != nil {
			f.log.Warn().Err(mErr).Msg("Mirror failed to publish collage")
		}
	}
	return err
}

// PublishPromo sends the promo to the primary, then to every mirror
func (f *Fanout) PublishPromo(ctx context.Context, promo Promo) error {
	err := f.primary.PublishPromo(ctx, promo)
	for _, m := range f.mirrors {
		if mErr := m.PublishPromo(ctx, promo); mErr != nil {
			f.log.Warn().Err(mErr).Msg("Mirror failed to publish promo")
		}
	}
	return err
}

// Close closes the primary and all mirrors
func (f *Fanout) Close() error {
	errs := []error{f.primary.Close()}
	for _, m := range f.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}

package dispatch

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"sjsage522/shopcollagebot/internal"
	"sjsage522/shopcollagebot/logger"
)

// ErrPassInFlight is returned when a pass is requested while another one runs
var ErrPassInFlight = errors.New("dispatch: a pass is already in flight")

// BusyNotice is the reply given to a command that arrives during a pass
const BusyNotice = "⏳ Die Shop-Auswahl wird gerade schon gesendet."

// Runner executes complete dispatch passes: scrape, then dispatch
type Runner struct {
	deps       internal.Dependencies
	dispatcher *Dispatcher
	log        *logger.Logger
}

// NewRunner creates a pass runner from its dependencies
func NewRunner(deps internal.Dependencies) *Runner {
	return &Runner{
		deps:       deps,
		dispatcher: NewDispatcher(deps.Builder, deps.Publisher, deps.Catalog, deps.Announcement),
		log:        logger.ForComponent("runner"),
	}
}

// RunPass runs one pass unless another holds the pass lock. A storefront
// failure or an empty listing ends the pass without sending anything.
func (r *Runner) RunPass(ctx context.Context, trigger string) (*Report, error) {
	ok, err := r.deps.Locker.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPassInFlight
	}
	defer func() {
		if err := r.deps.Locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			r.log.Warn().Err(err).Msg("Failed to release pass lock")
		}
	}()

	report := &Report{PassID: uuid.NewString()}
	log := r.log.WithFields(logger.Fields{"pass_id": report.PassID, "trigger": trigger})
	log.Info().Str("source", r.deps.Source.GetName()).Msg("Starting dispatch pass")

	items, err := r.deps.Source.FetchItems(ctx)
	if err != nil {
		report.SourceFailed = true
		log.Error().Err(err).Msg("Failed to load storefront; skipping pass")
		return report, nil
	}
	if len(items) == 0 {
		log.Info().Msg("Storefront returned no items; nothing to send")
		return report, nil
	}

	err = r.dispatcher.Dispatch(ctx, items, report)

	log.Info().
		Int("items", report.Items).
		Int("batches", report.Batches).
		Int("placed", report.Placed).
		Int("skipped", report.Skipped).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Bool("promo_sent", report.PromoSent).
		Msg("Dispatch pass finished")

	return report, err
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"sjsage522/shopcollagebot/internal/dispatch"
	"sjsage522/shopcollagebot/logger"
	shoperrors "sjsage522/shopcollagebot/pkg/errors"
)

// TriggerSchedule marks passes started by the daily schedule
const TriggerSchedule = "schedule"

// PassRunner runs one dispatch pass
type PassRunner interface {
	RunPass(ctx context.Context, trigger string) (*dispatch.Report, error)
}

// Worker fires a dispatch pass at every occurrence of a cron schedule
type Worker struct {
	runner   PassRunner
	schedule cron.Schedule
	location *time.Location
	log      *logger.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewWorker creates a worker for a standard five field cron expression,
// evaluated in loc
func NewWorker(runner PassRunner, spec string, loc *time.Location) (*Worker, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, shoperrors.NewConfiguration(fmt.Sprintf("invalid schedule %q", spec), err)
	}
	if loc == nil {
		loc = time.Local
	}

	return &Worker{
		runner:   runner,
		schedule: schedule,
		location: loc,
		log:      logger.ForWorker(),
		now:      time.Now,
		after:    time.After,
	}, nil
}

// Next returns the first fire time strictly after from
func (w *Worker) Next(from time.Time) time.Time {
	return w.schedule.Next(from.In(w.location))
}

// Start runs passes on schedule until ctx is done. The timer is re-armed
// from the clock after every pass, so fire times missed while a pass ran
// or the process was down are not replayed. A fire time is never used twice,
// even if the clock steps back.
func (w *Worker) Start(ctx context.Context) error {
	var lastFire time.Time
	for {
		if ctx.Err() != nil {
			w.log.Info().Msg("Scheduler stopped")
			return nil
		}

		now := w.now()
		from := now
		if from.Before(lastFire) {
			from = lastFire
		}
		next := w.Next(from)
		wait := next.Sub(now)
		w.log.Info().
			Time("next_run", next).
			Dur("wait", wait).
			Msg("Next scheduled pass")

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Scheduler stopped")
			return nil
		case <-w.after(wait):
		}

		lastFire = next
		w.runScheduled(ctx)
	}
}

func (w *Worker) runScheduled(ctx context.Context) {
	start := w.now()
	report, err := w.runner.RunPass(ctx, TriggerSchedule)
	elapsed := w.now().Sub(start)

	switch {
	case errors.Is(err, dispatch.ErrPassInFlight):
		w.log.Warn().Msg("Skipping scheduled pass; another pass is running")
	case err != nil:
		w.log.Error().Err(err).Dur("elapsed", elapsed).Msg("Scheduled pass finished with errors")
	default:
		w.log.Info().Str("pass_id", report.PassID).Dur("elapsed", elapsed).Msg("Scheduled pass finished")
	}
}

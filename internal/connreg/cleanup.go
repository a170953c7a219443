package connreg

import (
	"github.com/robfig/cron/v3"

	"github.com/blackdru/arena-server/internal/obslog"
)

// Janitor runs Registry.Cleanup on a fixed schedule in the background,
// grounded on the rias-glitch-telegram-webapp hub's periodic
// cleanupStaleRooms/cleanupStaleWaiting tickers, generalized to
// robfig/cron's seconds-resolution parser for a declarative schedule
// rather than a hand-rolled ticker loop.
type Janitor struct {
	cron *cron.Cron
}

// StartJanitor schedules reg.Cleanup() at the given cron spec (seconds
// resolution, e.g. "*/30 * * * * *" for every 30s) and starts it immediately.
func StartJanitor(reg *Registry, spec string) (*Janitor, error) {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		removed := reg.Cleanup()
		if removed > 0 {
			obslog.Background().Infow("connreg cleanup", "removed", removed)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return &Janitor{cron: c}, nil
}

// Stop halts the schedule, waiting for any in-flight run to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

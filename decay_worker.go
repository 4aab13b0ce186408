package keepsake

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// decayScheduler drives periodic DecayAll sweeps. Decay has no coupling to
// chat handling: it only runs when this scheduler (or a caller) invokes it.
type decayScheduler struct {
	runner *cron.Cron
}

// StartDecayScheduler registers a DecayAll sweep on the configured cron
// schedule (Config.DecaySchedule, default "@daily") and starts it. The sweep
// is idempotent per day, so overlapping or extra runs are harmless.
func (k *Keepsake) StartDecayScheduler() error {
	if k.sweeper != nil {
		return fmt.Errorf("keepsake: decay scheduler already started")
	}

	runner := cron.New()
	_, err := runner.AddFunc(k.config.DecaySchedule, func() {
		k.DecayAll(context.Background())
	})
	if err != nil {
		return fmt.Errorf("keepsake: decay schedule %q: %w", k.config.DecaySchedule, err)
	}

	runner.Start()
	k.sweeper = &decayScheduler{runner: runner}
	k.logger.Info("decay scheduler started", "schedule", k.config.DecaySchedule)
	return nil
}

func (d *decayScheduler) stop() {
	<-d.runner.Stop().Done()
}

package hal

import (
	"context"
	"fmt"
	"time"
)

// RunConfig controls Run.
type RunConfig struct {
	Hz    int
	Ticks uint64
}

// Run calls step at cfg.Hz until ctx is done, step fails, or cfg.Ticks
// steps have run. A zero Ticks runs until cancelled.
func Run(ctx context.Context, cfg RunConfig, step func(tick uint64) error) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("hal: invalid run hz: %d", cfg.Hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if step != nil {
				if err := step(tick); err != nil {
					return err
				}
			}
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}

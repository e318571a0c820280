package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/webloom/storefront-backend/pkg/logger"
)

const defaultSweepInterval = time.Minute

// Sweeper expires abandoned gateway handoffs on a fixed cadence so stale
// attempts do not hold the per-user single-flight slot forever.
type Sweeper struct {
	flow     *Flow
	logg     *logger.Logger
	interval time.Duration
}

func NewSweeper(flow *Flow, interval time.Duration, logg *logger.Logger) (*Sweeper, error) {
	if flow == nil {
		return nil, fmt.Errorf("flow required")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{flow: flow, logg: logg, interval: interval}, nil
}

// Run sweeps until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logg != nil {
				s.logg.Info(ctx, "checkout sweeper context canceled")
			}
			return ctx.Err()
		case <-ticker.C:
			if expired := s.flow.Sweep(ctx); expired > 0 && s.logg != nil {
				cctx := s.logg.WithFields(ctx, map[string]any{"expired": expired})
				s.logg.Info(cctx, "checkout.sweep")
			}
		}
	}
}

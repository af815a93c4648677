package cluster

import (
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// progressReporter emits throttled debug logs while a pass streams a large
// raster. It is shared across per-worker visitor clones; the counter is
// atomic and the limiter keeps log volume bounded regardless of raster size.
type progressReporter struct {
	logger  *slog.Logger
	pass    string
	limiter *rate.Limiter
	pixels  atomic.Uint64
}

func newProgressReporter(logger *slog.Logger, pass string) *progressReporter {
	if logger == nil {
		return nil
	}
	return &progressReporter{
		logger:  logger,
		pass:    pass,
		limiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

func (p *progressReporter) tick() {
	if p == nil {
		return
	}
	total := p.pixels.Add(1)
	if p.limiter.Allow() {
		p.logger.Debug("pass progress", "pass", p.pass, "pixels", total)
	}
}

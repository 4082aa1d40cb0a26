package market

import (
	"context"
	"time"

	"yudha/internal/logger"
)

// Provider walks an ordered source chain and falls back to the synthetic
// generator, so Acquire always returns a usable snapshot.
type Provider struct {
	sources   []Source
	synthetic *Synthetic
	timeout   time.Duration
}

func NewProvider(sources []Source, synthetic *Synthetic, timeout time.Duration) *Provider {
	if synthetic == nil {
		synthetic = NewSynthetic(0)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Provider{sources: sources, synthetic: synthetic, timeout: timeout}
}

// Acquire returns the first snapshot a live source produces, otherwise a
// synthetic one. Feed failures are recovered here and never surface.
func (p *Provider) Acquire(ctx context.Context) Snapshot {
	for _, src := range p.sources {
		fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
		snap, err := src.Fetch(fetchCtx)
		cancel()
		if err != nil {
			logger.Warnf("[market] %s fetch failed: %v", src.Name(), err)
			continue
		}
		return snap
	}
	snap, _ := p.synthetic.Fetch(ctx)
	return snap
}

package market

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Synthetic generates a bounded random walk when no live feed answers.
// Walk state persists across calls for the process lifetime; there is one
// instance per provider chain, reset only on restart.
type Synthetic struct {
	mu         sync.Mutex
	price      float64
	volatility float64
	rng        *rand.Rand
}

func NewSynthetic(seedPrice float64) *Synthetic {
	if seedPrice <= 0 {
		seedPrice = 2500
	}
	return &Synthetic{
		price:      seedPrice,
		volatility: 0.02,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Synthetic) Name() string { return SourceSynthetic }

// Fetch never fails.
func (s *Synthetic) Fetch(_ context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Slight upward drift (-0.48 offset) keeps long dry spells interesting.
	step := (s.rng.Float64() - 0.48) * s.price * s.volatility
	s.price += step
	s.volatility = ClampVolatility(s.volatility + (s.rng.Float64()-0.5)*0.005)
	return Snapshot{
		Price:      Round2(s.price),
		Change24h:  Round2(s.rng.Float64()*10 - 5),
		Volatility: Round4(s.volatility),
		Source:     SourceSynthetic,
		Timestamp:  time.Now().UTC(),
	}, nil
}

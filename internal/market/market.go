package market

import (
	"context"
	"math"
	"time"
)

// Provenance tags. The tag on a snapshot always names the source that
// actually produced it, never the one that was tried first.
const (
	SourceCoinGecko = "coingecko"
	SourceBinance   = "binance"
	SourceSynthetic = "synthetic"
)

const (
	MinVolatility = 0.01
	MaxVolatility = 0.05
)

// Snapshot is one observed market point. Immutable once created.
type Snapshot struct {
	Price      float64   `json:"price"`
	Change24h  float64   `json:"change24h"`
	Volatility float64   `json:"volatility"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// Source is a single price feed. Implementations must respect ctx deadlines;
// failure is normal and handled by the provider chain.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Snapshot, error)
}

// ClampVolatility bounds a volatility value to the simulation range.
func ClampVolatility(v float64) float64 {
	return math.Min(MaxVolatility, math.Max(MinVolatility, v))
}

// DeriveVolatility maps a 24h percentage change onto the bounded range.
func DeriveVolatility(change24h float64) float64 {
	return ClampVolatility(math.Abs(change24h) / 100)
}

// Round2 and Round4 normalize feed values the way they are persisted.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }
func Round4(v float64) float64 { return math.Round(v*10000) / 10000 }

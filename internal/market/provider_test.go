package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name string
	snap Snapshot
	err  error
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Fetch(context.Context) (Snapshot, error) {
	return s.snap, s.err
}

func TestAcquirePrimary(t *testing.T) {
	primary := &stubSource{name: SourceCoinGecko, snap: Snapshot{Price: 3000, Source: SourceCoinGecko}}
	secondary := &stubSource{name: SourceBinance, snap: Snapshot{Price: 2999, Source: SourceBinance}}
	p := NewProvider([]Source{primary, secondary}, NewSynthetic(0), time.Second)

	snap := p.Acquire(context.Background())
	assert.Equal(t, SourceCoinGecko, snap.Source)
	assert.Equal(t, float64(3000), snap.Price)
}

func TestAcquireFallsBackToSecondary(t *testing.T) {
	primary := &stubSource{name: SourceCoinGecko, err: errors.New("timeout")}
	secondary := &stubSource{name: SourceBinance, snap: Snapshot{Price: 2500, Source: SourceBinance}}
	p := NewProvider([]Source{primary, secondary}, NewSynthetic(0), time.Second)

	snap := p.Acquire(context.Background())
	assert.Equal(t, SourceBinance, snap.Source)
	assert.Equal(t, float64(2500), snap.Price)
}

func TestAcquireSyntheticNeverFails(t *testing.T) {
	primary := &stubSource{name: SourceCoinGecko, err: errors.New("down")}
	secondary := &stubSource{name: SourceBinance, err: errors.New("down")}
	p := NewProvider([]Source{primary, secondary}, NewSynthetic(2500), time.Second)

	for i := 0; i < 50; i++ {
		snap := p.Acquire(context.Background())
		require.Equal(t, SourceSynthetic, snap.Source)
		assert.Greater(t, snap.Price, float64(0))
		assert.GreaterOrEqual(t, snap.Volatility, MinVolatility)
		assert.LessOrEqual(t, snap.Volatility, MaxVolatility)
	}
}

func TestSyntheticWalkState(t *testing.T) {
	s := NewSynthetic(2500)
	first, err := s.Fetch(context.Background())
	require.NoError(t, err)
	second, err := s.Fetch(context.Background())
	require.NoError(t, err)
	// The walk mutates shared state between calls.
	assert.NotEqual(t, first, second)
}

func TestDeriveVolatility(t *testing.T) {
	assert.Equal(t, 0.01, DeriveVolatility(0))
	assert.Equal(t, 0.025, DeriveVolatility(2.5))
	assert.Equal(t, 0.025, DeriveVolatility(-2.5))
	assert.Equal(t, 0.05, DeriveVolatility(40))
}

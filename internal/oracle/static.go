package oracle

import (
	"context"
	"math/big"
	"sync"
	"time"
)

// StaticFeed holds an in-memory price sample, used for tests and manual
// overrides during incident response.
type StaticFeed struct {
	mu     sync.RWMutex
	sample PriceSample
}

// NewStaticFeed constructs a StaticFeed with the supplied sample.
func NewStaticFeed(answer *big.Int, decimals uint8, updatedAt time.Time) *StaticFeed {
	f := &StaticFeed{}
	f.Set(answer, decimals, updatedAt)
	return f
}

// Set replaces the stored sample.
func (f *StaticFeed) Set(answer *big.Int, decimals uint8, updatedAt time.Time) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.sample = PriceSample{Decimals: decimals, UpdatedAt: updatedAt}
	if answer != nil {
		f.sample.Answer = new(big.Int).Set(answer)
	}
	f.mu.Unlock()
}

// Latest returns a copy of the stored sample.
func (f *StaticFeed) Latest(_ context.Context) (PriceSample, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := PriceSample{Decimals: f.sample.Decimals, UpdatedAt: f.sample.UpdatedAt}
	if f.sample.Answer != nil {
		out.Answer = new(big.Int).Set(f.sample.Answer)
	}
	return out, nil
}

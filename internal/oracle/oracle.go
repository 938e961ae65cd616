// Package oracle reads reference prices from external feeds and validates
// them at the boundary. Samples are fetched fresh on every quote and never
// cached, so staleness is judged per call.
package oracle

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"
)

var (
	// ErrPriceFeedUnset indicates no oracle feed is bound for the currency.
	ErrPriceFeedUnset = errors.New("oracle: price feed unset")
	// ErrStalePrice indicates the sample is older than the freshness window
	// or carries a non-positive answer.
	ErrStalePrice = errors.New("oracle: stale or invalid price")
)

// PriceSample is a single oracle observation.
type PriceSample struct {
	Answer    *big.Int  // Reported price, scaled by Decimals.
	Decimals  uint8     // Decimal precision of Answer.
	UpdatedAt time.Time // When the feed last updated.
}

// Feed reads the latest price sample from an upstream source.
type Feed interface {
	Latest(ctx context.Context) (PriceSample, error)
}

// Adapter resolves feed identifiers and enforces freshness and validity.
// It performs no retries; staleness is surfaced to the caller.
type Adapter struct {
	mu     sync.RWMutex
	feeds  map[string]Feed
	maxAge time.Duration
	nowFn  func() time.Time
}

// NewAdapter constructs an Adapter with the supplied freshness window.
func NewAdapter(maxAge time.Duration) *Adapter {
	return &Adapter{
		feeds:  make(map[string]Feed),
		maxAge: maxAge,
		nowFn:  time.Now,
	}
}

// WithClock overrides the adapter clock for deterministic tests.
func (a *Adapter) WithClock(nowFn func() time.Time) {
	if nowFn == nil {
		return
	}
	a.mu.Lock()
	a.nowFn = nowFn
	a.mu.Unlock()
}

// Register binds a feed under the supplied identifier. Identifiers are
// stored lowercase so lookups are consistent regardless of config casing.
func (a *Adapter) Register(id string, feed Feed) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" || feed == nil {
		return
	}
	a.mu.Lock()
	a.feeds[id] = feed
	a.mu.Unlock()
}

// Feed returns the feed registered under the identifier, or nil.
func (a *Adapter) Feed(id string) Feed {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.feeds[id]
}

// Quote fetches and validates the latest sample from the named feed.
func (a *Adapter) Quote(ctx context.Context, feedID string) (PriceSample, error) {
	feedID = strings.ToLower(strings.TrimSpace(feedID))
	if feedID == "" {
		return PriceSample{}, ErrPriceFeedUnset
	}

	a.mu.RLock()
	feed := a.feeds[feedID]
	maxAge := a.maxAge
	now := a.nowFn()
	a.mu.RUnlock()

	if feed == nil {
		return PriceSample{}, ErrPriceFeedUnset
	}

	sample, err := feed.Latest(ctx)
	if err != nil {
		return PriceSample{}, err
	}
	if sample.Answer == nil || sample.Answer.Sign() <= 0 {
		return PriceSample{}, ErrStalePrice
	}
	if maxAge > 0 && sample.UpdatedAt.Before(now.Add(-maxAge)) {
		return PriceSample{}, ErrStalePrice
	}
	return sample, nil
}

package oracle

import (
	"context"
	"io"
	"math/big"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAdapterQuote_UnsetFeed(t *testing.T) {
	adapter := NewAdapter(time.Minute)

	if _, err := adapter.Quote(context.Background(), ""); err != ErrPriceFeedUnset {
		t.Fatalf("expected ErrPriceFeedUnset for empty id, got %v", err)
	}
	if _, err := adapter.Quote(context.Background(), "missing"); err != ErrPriceFeedUnset {
		t.Fatalf("expected ErrPriceFeedUnset for unknown id, got %v", err)
	}
}

func TestAdapterQuote_Freshness(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	adapter := NewAdapter(time.Minute)
	adapter.WithClock(func() time.Time { return now })

	fresh := NewStaticFeed(big.NewInt(20000000), 8, now.Add(-30*time.Second))
	stale := NewStaticFeed(big.NewInt(20000000), 8, now.Add(-2*time.Minute))
	adapter.Register("fresh", fresh)
	adapter.Register("stale", stale)

	sample, err := adapter.Quote(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("fresh quote: %v", err)
	}
	if sample.Answer.Int64() != 20000000 || sample.Decimals != 8 {
		t.Fatalf("unexpected sample: %+v", sample)
	}

	if _, err := adapter.Quote(context.Background(), "stale"); err != ErrStalePrice {
		t.Fatalf("expected ErrStalePrice, got %v", err)
	}
}

func TestAdapterQuote_NonPositiveAnswer(t *testing.T) {
	now := time.Now()
	adapter := NewAdapter(time.Minute)
	adapter.Register("zero", NewStaticFeed(big.NewInt(0), 8, now))
	adapter.Register("negative", NewStaticFeed(big.NewInt(-1), 8, now))

	if _, err := adapter.Quote(context.Background(), "zero"); err != ErrStalePrice {
		t.Fatalf("expected ErrStalePrice for zero answer, got %v", err)
	}
	if _, err := adapter.Quote(context.Background(), "negative"); err != ErrStalePrice {
		t.Fatalf("expected ErrStalePrice for negative answer, got %v", err)
	}
}

func TestAdapterQuote_CaseInsensitiveIDs(t *testing.T) {
	adapter := NewAdapter(0)
	adapter.Register("BNB-USD", NewStaticFeed(big.NewInt(1), 8, time.Now()))

	if _, err := adapter.Quote(context.Background(), "bnb-usd"); err != nil {
		t.Fatalf("expected lowercase lookup to succeed, got %v", err)
	}
}

type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestHTTPFeed_Latest(t *testing.T) {
	client := doerFunc(func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("x-api-key"); got != "secret" {
			t.Fatalf("expected api key header, got %q", got)
		}
		body := `{"answer":"20000000","decimals":8,"updated_at":1767225600}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	})

	feed := NewHTTPFeed(client, "https://feeds.example.com/bnb-usd", "secret")
	sample, err := feed.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if sample.Answer.Int64() != 20000000 {
		t.Fatalf("expected answer 20000000, got %s", sample.Answer.String())
	}
	if sample.Decimals != 8 {
		t.Fatalf("expected 8 decimals, got %d", sample.Decimals)
	}
	if sample.UpdatedAt.Unix() != 1767225600 {
		t.Fatalf("unexpected updated_at: %v", sample.UpdatedAt)
	}
}

func TestHTTPFeed_BadStatus(t *testing.T) {
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("upstream down")),
		}, nil
	})

	feed := NewHTTPFeed(client, "https://feeds.example.com/bnb-usd", "")
	if _, err := feed.Latest(context.Background()); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestHTTPFeed_InvalidAnswer(t *testing.T) {
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"answer":"not-a-number","decimals":8,"updated_at":1}`)),
		}, nil
	})

	feed := NewHTTPFeed(client, "https://feeds.example.com/bnb-usd", "")
	if _, err := feed.Latest(context.Background()); err == nil {
		t.Fatal("expected error for invalid answer")
	}
}

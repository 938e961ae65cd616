package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"
)

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPFeed fetches price samples from a JSON endpoint shaped like a
// Chainlink aggregator round: {"answer": "...", "decimals": n, "updated_at": unix}.
type HTTPFeed struct {
	client   HTTPDoer
	endpoint string
	apiKey   string
}

// NewHTTPFeed constructs an HTTPFeed. When client is nil http.DefaultClient
// is used. The API key is optional and sent as an x-api-key header when set.
func NewHTTPFeed(client HTTPDoer, endpoint, apiKey string) *HTTPFeed {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFeed{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
	}
}

// Latest fetches the most recent round from the endpoint.
func (f *HTTPFeed) Latest(ctx context.Context) (PriceSample, error) {
	if f == nil || f.endpoint == "" {
		return PriceSample{}, fmt.Errorf("http feed: not configured")
	}
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if errReq != nil {
		return PriceSample{}, errReq
	}
	if f.apiKey != "" {
		req.Header.Set("x-api-key", f.apiKey)
	}
	resp, errDo := f.client.Do(req)
	if errDo != nil {
		return PriceSample{}, errDo
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return PriceSample{}, fmt.Errorf("http feed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Answer    string `json:"answer"`
		Decimals  uint8  `json:"decimals"`
		UpdatedAt int64  `json:"updated_at"`
	}
	if errDecode := json.NewDecoder(resp.Body).Decode(&payload); errDecode != nil {
		return PriceSample{}, fmt.Errorf("http feed: decode: %w", errDecode)
	}

	answerRaw := strings.TrimSpace(payload.Answer)
	if answerRaw == "" {
		return PriceSample{}, fmt.Errorf("http feed: empty answer")
	}
	answer, ok := new(big.Int).SetString(answerRaw, 10)
	if !ok {
		return PriceSample{}, fmt.Errorf("http feed: invalid answer %q", payload.Answer)
	}

	return PriceSample{
		Answer:    answer,
		Decimals:  payload.Decimals,
		UpdatedAt: time.Unix(payload.UpdatedAt, 0),
	}, nil
}

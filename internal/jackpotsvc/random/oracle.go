package random

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OracleSource pulls randomness from an external VRF-style oracle over
// HTTP. The oracle owns the proof format; we pass it through untouched.
type OracleSource struct {
	url    string
	client *http.Client
}

func NewOracleSource(url string) *OracleSource {
	return &OracleSource{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type oracleRequest struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

type oracleResponse struct {
	Value int64  `json:"value"`
	Seed  string `json:"seed"`
	Nonce uint64 `json:"nonce"`
	Proof string `json:"proof"`
}

func (o *OracleSource) Draw(ctx context.Context, min, max int64) (Result, error) {
	if max < min {
		return Result{}, ErrBadRange
	}

	body, err := json.Marshal(oracleRequest{Min: min, Max: max})
	if err != nil {
		return Result{}, fmt.Errorf("marshal oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("oracle draw: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("oracle draw: unexpected status %d", resp.StatusCode)
	}

	var or oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return Result{}, fmt.Errorf("decode oracle response: %w", err)
	}
	if or.Value < min || or.Value > max {
		return Result{}, fmt.Errorf("oracle draw: value %d outside [%d,%d]", or.Value, min, max)
	}

	return Result{Value: or.Value, Seed: or.Seed, Nonce: or.Nonce, Proof: or.Proof}, nil
}

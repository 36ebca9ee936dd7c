package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"
)

// BeaconOracle solicits randomness from a drand-style HTTP beacon. A request
// waits out the confirmation delay, then fetches the latest beacon round and
// derives a per-request value from it. Fetch failures are retried with
// exponential backoff; if all retries fail the request is left outstanding
// and must be resolved operationally.
type BeaconOracle struct {
	BaseURL    string
	Delay      time.Duration
	Timeout    time.Duration
	MaxRetries int

	nextID    uint64
	fulfiller Fulfiller
	client    *http.Client
}

// NewBeaconOracle creates a beacon-backed oracle.
func NewBeaconOracle(baseURL string, delay, timeout time.Duration, maxRetries int) *BeaconOracle {
	return &BeaconOracle{
		BaseURL:    baseURL,
		Delay:      delay,
		Timeout:    timeout,
		MaxRetries: maxRetries,
		client:     &http.Client{Timeout: timeout},
	}
}

// SetFulfiller binds the callback target. Must be called before Request.
func (o *BeaconOracle) SetFulfiller(f Fulfiller) { o.fulfiller = f }

// beaconRound is the expected JSON shape of the beacon endpoint.
type beaconRound struct {
	Round      uint64 `json:"round"`
	Randomness string `json:"randomness"`
}

// Request issues a new request and schedules its fulfillment.
func (o *BeaconOracle) Request(ctx context.Context) (uint64, error) {
	if o.fulfiller == nil {
		return 0, fmt.Errorf("beacon oracle: no fulfiller bound")
	}
	id := atomic.AddUint64(&o.nextID, 1)

	go func() {
		select {
		case <-time.After(o.Delay):
		case <-ctx.Done():
			log.Printf("[WARN] beacon oracle: request %d abandoned: %v", id, ctx.Err())
			return
		}

		value, err := o.fetchWithRetry(ctx, id)
		if err != nil {
			log.Printf("[ERROR] beacon oracle: request %d left outstanding: %v", id, err)
			return
		}
		if err := o.fulfiller.Fulfill(id, value); err != nil {
			log.Printf("[WARN] beacon oracle: fulfillment of request %d rejected: %v", id, err)
		}
	}()

	return id, nil
}

func (o *BeaconOracle) fetchWithRetry(ctx context.Context, requestID uint64) (uint64, error) {
	var lastErr error
	for i := 0; i <= o.MaxRetries; i++ {
		value, err := o.fetch(ctx, requestID)
		if err == nil {
			return value, nil
		}
		lastErr = err
		backoff := time.Duration(1<<uint(i)) * time.Second
		log.Printf("[WARN] beacon fetch failed (attempt %d/%d): %v, retrying in %v",
			i+1, o.MaxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return 0, fmt.Errorf("beacon fetch: %w", lastErr)
}

func (o *BeaconOracle) fetch(ctx context.Context, requestID uint64) (uint64, error) {
	endpoint := o.BaseURL + "/public/latest"
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch beacon round: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("fetch beacon round: status %d, body: %s", resp.StatusCode, string(body))
	}
	var round beaconRound
	if err := json.NewDecoder(resp.Body).Decode(&round); err != nil {
		return 0, fmt.Errorf("decode beacon round: %w", err)
	}
	randomness, err := hex.DecodeString(round.Randomness)
	if err != nil {
		return 0, fmt.Errorf("decode beacon randomness: %w", err)
	}
	return deriveValue(randomness, requestID), nil
}

// deriveValue mixes the beacon output with the request id so two requests
// resolved against the same beacon round still get distinct values.
func deriveValue(randomness []byte, requestID uint64) uint64 {
	h := sha256.New()
	h.Write(randomness)
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], requestID)
	h.Write(idBuf[:])
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

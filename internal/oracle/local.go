package oracle

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

// LocalOracle draws values from crypto/rand after a simulated confirmation
// delay. Intended for development and single-node deployments where no
// external beacon is available.
type LocalOracle struct {
	delay     time.Duration
	nextID    uint64
	fulfiller Fulfiller
}

// NewLocalOracle creates a local randomness source with the given
// confirmation delay.
func NewLocalOracle(delay time.Duration) *LocalOracle {
	return &LocalOracle{delay: delay}
}

// SetFulfiller binds the callback target. Must be called before Request.
func (o *LocalOracle) SetFulfiller(f Fulfiller) { o.fulfiller = f }

// Request issues a new request and schedules its fulfillment.
func (o *LocalOracle) Request(ctx context.Context) (uint64, error) {
	if o.fulfiller == nil {
		return 0, fmt.Errorf("local oracle: no fulfiller bound")
	}
	id := atomic.AddUint64(&o.nextID, 1)

	go func() {
		select {
		case <-time.After(o.delay):
		case <-ctx.Done():
			log.Printf("[WARN] local oracle: request %d abandoned: %v", id, ctx.Err())
			return
		}
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			log.Printf("[ERROR] local oracle: read randomness for request %d: %v", id, err)
			return
		}
		value := binary.BigEndian.Uint64(buf[:])
		if err := o.fulfiller.Fulfill(id, value); err != nil {
			log.Printf("[WARN] local oracle: fulfillment of request %d rejected: %v", id, err)
		}
	}()

	return id, nil
}

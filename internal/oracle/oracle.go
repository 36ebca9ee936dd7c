package oracle

import "context"

// Fulfiller receives the asynchronous randomness callback. Exactly one
// Fulfill call is made per accepted request; a rejected delivery is not
// retried with a different value.
type Fulfiller interface {
	Fulfill(requestID, randomValue uint64) error
}

// Oracle issues randomness requests. Request returns a request identifier
// immediately; the value is delivered later to the bound Fulfiller from a
// separate goroutine.
type Oracle interface {
	Request(ctx context.Context) (uint64, error)
}

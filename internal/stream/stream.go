// Package stream publishes serialized readings to a record stream.
package stream

import (
	"context"
	"errors"
)

// ErrClosed is returned by Poll once the consumer has been closed.
var ErrClosed = errors.New("stream consumer closed")

// Publisher appends one message to the stream.
type Publisher interface {
	Publish(ctx context.Context, partitionKey string, data []byte) error
}

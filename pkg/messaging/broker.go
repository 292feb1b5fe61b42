package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels used by the service.
const (
	ChannelNotifications = "notifications"
	ChannelEmailOutbound = "email.outbound"
)

// Consume subscribes to channel and calls handler for every message until ctx
// is done or the subscription closes. Handler errors are passed to onError and
// do not stop consumption.
func Consume(ctx context.Context, broker Broker, channel string, handler func([]byte) error, onError func(error)) error {
	msgChan, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgChan:
			if !ok {
				return nil
			}
			if err := handler(msg); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}

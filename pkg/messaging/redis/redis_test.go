package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consultation-api/pkg/messaging"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	logger := zerolog.Nop()
	broker := NewRedisBroker(client, &logger)
	defer broker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := broker.Subscribe(ctx, messaging.ChannelNotifications)
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, messaging.ChannelNotifications, map[string]string{"type": "consultation"}))

	select {
	case msg := <-msgs:
		assert.JSONEq(t, `{"type":"consultation"}`, string(msg))
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(context.Background(), Config{URL: "://nope"})
	assert.Error(t, err)
}

func TestNewClientPings(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), Config{URL: "redis://" + mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	defer client.Close()
}

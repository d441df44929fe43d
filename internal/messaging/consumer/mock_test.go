package consumer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/messaging/consumer"
)

func TestMockConsumer(t *testing.T) {
	// given
	c := consumer.NewMockConsumer(zap.NewNop().Sugar())
	ctx := context.Background()

	// when
	first, ack, err := c.Consume(ctx)
	require.NoError(t, err)
	ack(false)

	// then
	for _, expected := range []string{"a2b2c2d2-e2f2-3333-4444-abcdef123456", "a3b3c3d3-e3f3-5555-6666-fedcba654321", first.RequestID} {
		msg, ack, err := c.Consume(ctx)
		require.NoError(t, err)
		require.NoError(t, msg.Validate())
		require.Equal(t, expected, msg.RequestID)
		ack(true)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, _, err = c.Consume(timeoutCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, _, err = c.Consume(ctx)
	require.Error(t, err)
}

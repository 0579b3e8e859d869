package notify

import (
	"context"
	"testing"

	"conference/internal/core/domain"

	"github.com/stretchr/testify/require"
)

// Bus.Publish's amqp channel is only reached once the sink check passes;
// the unsupported-sink branch is safe to exercise without a live broker.
func TestBus_UnsupportedSinkErrorsBeforeTouchingChannel(t *testing.T) {
	b := &Bus{}
	err := b.Publish(context.Background(), &domain.OutboxEntry{Sink: domain.SinkRoomTopic})
	require.Error(t, err)
}

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: TypeAudit, Body: []byte(`{"action":"create","note":"a|b"}`)}
	assert.Equal(t, msg, deserialize(serialize(msg)))

	assert.Equal(t, Message{Body: []byte("raw")}, deserialize("raw"))
}

func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: TypeFinding, Body: []byte("1")}))
	require.NoError(t, q.Publish(ctx, Message{Type: TypeAudit, Body: []byte("2")}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	for _, want := range []string{"1", "2"} {
		select {
		case got := <-msgs:
			assert.Equal(t, want, string(got.Body))
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}

	cancel()
	select {
	case _, open := <-msgs:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemory_PublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: TypeAudit}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: TypeAudit}), context.DeadlineExceeded)
}

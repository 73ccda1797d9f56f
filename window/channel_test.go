package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/turbinevalidator/ingestwindow/shred"
)

func TestChannelReceiver_RecvTimeout(t *testing.T) {
	c := make(chan shred.PacketBatch)
	recv := NewChannelReceiver(c)

	_, err := recv.RecvTimeout(20 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestChannelReceiver_RecvDelivers(t *testing.T) {
	c := make(chan shred.PacketBatch, 1)
	want := shred.PacketBatch{{Data: []byte("a")}}
	c <- want
	recv := NewChannelReceiver(c)

	got, err := recv.RecvTimeout(time.Second)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestChannelReceiver_Disconnected(t *testing.T) {
	c := make(chan shred.PacketBatch)
	close(c)
	recv := NewChannelReceiver(c)

	_, err := recv.RecvTimeout(time.Second)
	require.ErrorIs(t, err, ErrDisconnected)

	_, err = recv.TryRecv()
	require.ErrorIs(t, err, ErrDisconnected)
}

func TestChannelReceiver_TryRecvEmpty(t *testing.T) {
	c := make(chan shred.PacketBatch)
	recv := NewChannelReceiver(c)

	_, err := recv.TryRecv()
	require.ErrorIs(t, err, ErrTimeout)
}

func TestChannelSender_SendAndNoConsumer(t *testing.T) {
	c := make(chan shred.PacketBatch, 1)
	sender := NewChannelSender(c)

	batch := shred.PacketBatch{{Data: []byte("a")}}
	require.NoError(t, sender.Send(batch))
	require.Equal(t, batch, <-c)

	// Channel has no receiver and no buffer slot available now: Send must
	// not block and must report the no-consumer condition.
	full := make(chan shred.PacketBatch) // unbuffered, nobody reading
	fullSender := NewChannelSender(full)
	err := fullSender.Send(batch)
	require.ErrorIs(t, err, ErrNoConsumer)
}

package client

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLoopbackServer binds a UDP socket on an ephemeral loopback port.
func newLoopbackServer(t *testing.T) *net.UDPConn {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	server, err := net.ListenUDP("udp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })
	return server
}

func waitForEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for connection event")
		return Event{}
	}
}

func TestConnectionSendReachesServer(t *testing.T) {
	server := newLoopbackServer(t)

	conn, err := NewConnection(server.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send([]byte("join:tester")))

	require.NoError(t, server.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := server.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "join:tester", string(buf[:n]))
}

func TestConnectionDeliversInboundDatagrams(t *testing.T) {
	server := newLoopbackServer(t)

	conn, err := NewConnection(server.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Send first so the server learns the client's ephemeral address.
	require.NoError(t, conn.Send([]byte("ping")))
	require.NoError(t, server.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 1024)
	_, clientAddr, err := server.ReadFromUDP(buf)
	require.NoError(t, err)

	_, err = server.WriteToUDP([]byte("pong"), clientAddr)
	require.NoError(t, err)

	event := waitForEvent(t, conn.Events())
	assert.Equal(t, EventMessage, event.Kind)
	assert.Equal(t, []byte("pong"), event.Payload)
}

func TestConnectionDisconnectSurvivesFullBuffer(t *testing.T) {
	server := newLoopbackServer(t)

	conn, err := NewConnection(server.LocalAddr().String(), WithEventBuffer(1))
	require.NoError(t, err)

	// Fill the one-slot buffer with an undrained message.
	require.NoError(t, conn.Send([]byte("ping")))
	require.NoError(t, server.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 1024)
	_, clientAddr, err := server.ReadFromUDP(buf)
	require.NoError(t, err)
	_, err = server.WriteToUDP([]byte("pong"), clientAddr)
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for len(conn.Events()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for datagram to buffer")
		}
		time.Sleep(time.Millisecond)
	}

	require.NoError(t, conn.Close())

	// The terminator must still arrive, displacing buffered messages if
	// needed, before the channel closes.
	sawDisconnect := false
	for event := range conn.Events() {
		if event.Kind == EventDisconnected {
			sawDisconnect = true
		}
	}
	assert.True(t, sawDisconnect, "EventDisconnected should be the stream terminator")
}

func TestConnectionCloseEndsEventStream(t *testing.T) {
	server := newLoopbackServer(t)

	conn, err := NewConnection(server.LocalAddr().String())
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "close should be idempotent")

	event := waitForEvent(t, conn.Events())
	assert.Equal(t, EventDisconnected, event.Kind)
	assert.NoError(t, event.Err)

	_, open := <-conn.Events()
	assert.False(t, open, "events channel should close after disconnect")

	assert.ErrorIs(t, conn.Send([]byte("late")), ErrConnectionClosed)
}

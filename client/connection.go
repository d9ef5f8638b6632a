// Package client composes the window, the render engine, and the server
// connection into the playable client. The connection never calls back into
// its owner: it emits events into a channel the client drains each tick.
package client

import (
	"errors"
	"net"
	"sync"

	"github.com/emberworks/ember/logger"
	"go.uber.org/zap"
)

// maxDatagramSize is the largest UDP payload the reader accepts.
const maxDatagramSize = 65507

// ErrConnectionClosed is returned by Send after Close.
var ErrConnectionClosed = errors.New("client: connection closed")

// EventKind discriminates the connection event variants.
type EventKind int

const (
	// EventMessage carries one datagram received from the server.
	EventMessage EventKind = iota

	// EventDisconnected reports that the reader stopped. It is the final
	// event on the channel before it closes.
	EventDisconnected
)

// Event is one connection event drained from Events.
type Event struct {
	// Kind selects which of the remaining fields are meaningful.
	Kind EventKind

	// Payload is the datagram body for EventMessage.
	Payload []byte

	// Err is the reader error for EventDisconnected, nil on clean close.
	Err error
}

// Connection is the message boundary to the server. Inbound traffic arrives
// on the Events channel; the owner polls it each tick and the connection
// never references the owner.
type Connection interface {
	// Events returns the channel inbound events are delivered on. The
	// channel closes after EventDisconnected.
	//
	// Returns:
	//   - <-chan Event: the inbound event channel
	Events() <-chan Event

	// Send transmits one datagram to the server.
	//
	// Parameters:
	//   - payload: the datagram body
	//
	// Returns:
	//   - error: ErrConnectionClosed after Close, otherwise any socket error
	Send(payload []byte) error

	// Close shuts the socket down and stops the reader. The Events channel
	// delivers EventDisconnected and closes. Safe to call multiple times.
	//
	// Returns:
	//   - error: error from closing the socket
	Close() error
}

// udpConnection implements Connection over a connected UDP socket with a
// reader goroutine feeding the event channel.
type udpConnection struct {
	mu *sync.Mutex

	conn   *net.UDPConn
	events chan Event
	closed bool
}

var _ Connection = &udpConnection{}

// NewConnection dials the server over UDP and starts the reader goroutine.
//
// Parameters:
//   - address: server host:port
//   - options: functional options to configure the connection
//
// Returns:
//   - Connection: the connected instance
//   - error: error if the address cannot be resolved or the socket dialed
func NewConnection(address string, options ...ConnectionOption) (Connection, error) {
	cfg := &connectionConfig{eventBuffer: 256}
	for _, option := range options {
		option(cfg)
	}

	remote, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, remote)
	if err != nil {
		return nil, err
	}

	c := &udpConnection{
		mu:     &sync.Mutex{},
		conn:   conn,
		events: make(chan Event, cfg.eventBuffer),
	}
	go c.readLoop()

	logger.Log.Info("connected to server", zap.String("address", address))
	return c, nil
}

func (c *udpConnection) Events() <-chan Event {
	return c.events
}

func (c *udpConnection) Send(payload []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrConnectionClosed
	}
	_, err := c.conn.Write(payload)
	return err
}

func (c *udpConnection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

// readLoop receives datagrams until the socket errors or closes, delivering
// each as an EventMessage. A full channel drops the datagram; UDP gives no
// delivery guarantee anyway, and blocking here would stall the reader
// against a slow tick.
func (c *udpConnection) readLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				err = nil
			}
			// EventDisconnected is the final event on the channel. If the
			// buffer is full, drop the oldest pending message to make room;
			// UDP already permits message loss, losing the terminator does
			// not.
			select {
			case c.events <- Event{Kind: EventDisconnected, Err: err}:
			default:
				select {
				case <-c.events:
				default:
				}
				select {
				case c.events <- Event{Kind: EventDisconnected, Err: err}:
				default:
				}
			}
			close(c.events)
			return
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		select {
		case c.events <- Event{Kind: EventMessage, Payload: payload}:
		default:
			logger.Log.Warn("event buffer full, dropping datagram",
				zap.Int("size", n))
		}
	}
}

// connectionConfig holds construction-time settings for NewConnection.
type connectionConfig struct {
	eventBuffer int
}

// ConnectionOption is a functional option for configuring a Connection.
type ConnectionOption func(*connectionConfig)

// WithEventBuffer sets the capacity of the inbound event channel.
//
// Parameters:
//   - size: channel capacity, minimum 1 (default 256)
//
// Returns:
//   - ConnectionOption: option function to apply
func WithEventBuffer(size int) ConnectionOption {
	return func(cfg *connectionConfig) {
		if size < 1 {
			size = 1
		}
		cfg.eventBuffer = size
	}
}

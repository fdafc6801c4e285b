package game

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Connection queues outbound frames for one socket. Send never blocks the
// caller: when the queue is full the frame is rejected.
type Connection struct {
	id        string
	socket    Socket
	outbox    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	reason    atomic.Value
	open      atomic.Bool
}

func NewConnection(socket Socket, bufferSize int) *Connection {
	c := &Connection{
		id:     uuid.NewString(),
		socket: socket,
		outbox: make(chan []byte, bufferSize),
		closed: make(chan struct{}),
	}
	c.reason.Store("")
	c.open.Store(true)
	return c
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) Send(data []byte) error {
	if !c.open.Load() {
		return ErrConnectionClosed
	}
	select {
	case <-c.closed:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.outbox <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Connection) IsOpen() bool {
	return c.open.Load()
}

// Close marks the connection closed. The write pump flushes what is already
// queued and then closes the socket with reason.
func (c *Connection) Close(reason string) {
	c.closeOnce.Do(func() {
		c.reason.Store(reason)
		c.open.Store(false)
		close(c.closed)
	})
}

func (c *Connection) Read() ([]byte, error) {
	return c.socket.Read()
}

// WritePump is the only goroutine writing to the socket. pings may be nil.
func (c *Connection) WritePump(pings <-chan time.Time) {
	defer func() {
		c.socket.Close(c.reason.Load().(string))
	}()

	for {
		select {
		case data := <-c.outbox:
			if err := c.socket.Write(data); err != nil {
				c.Close("write-failed")
				return
			}
		case <-pings:
			if err := c.socket.Ping(); err != nil {
				c.Close("ping-failed")
				return
			}
		case <-c.closed:
			c.flush()
			return
		}
	}
}

func (c *Connection) flush() {
	for {
		select {
		case data := <-c.outbox:
			if err := c.socket.Write(data); err != nil {
				return
			}
		default:
			return
		}
	}
}

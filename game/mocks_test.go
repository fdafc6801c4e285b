package game

import (
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// --- Socket ---

type MockSocket struct {
	mock.Mock
}

func (m *MockSocket) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSocket) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockSocket) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSocket) Close(reason string) {
	m.Called(reason)
}

// --- WordBank ---

type MockWordBank struct {
	mock.Mock
}

func (m *MockWordBank) Generate(count int) []string {
	args := m.Called(count)
	return args.Get(0).([]string)
}

// --- TickerGenerator ---

type MockTickerGenerator struct {
	mock.Mock
}

func (m *MockTickerGenerator) Create(duration time.Duration) (<-chan time.Time, func()) {
	args := m.Called(duration)
	return args.Get(0).(chan time.Time), args.Get(1).(func())
}

// --- Directory ---

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) RegisterPlayer(p *Player) {
	m.Called(p)
}

func (m *MockDirectory) UnregisterPlayer(clientID string, p *Player) {
	m.Called(clientID, p)
}

func (m *MockDirectory) RemoveRoom(r *Room) {
	m.Called(r)
}

// fakeConn records every frame a room queues for it.
type fakeConn struct {
	locker sync.Mutex
	frames [][]byte
	closed bool
	reason string
}

func (c *fakeConn) Send(data []byte) error {
	c.locker.Lock()
	defer c.locker.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) IsOpen() bool {
	c.locker.Lock()
	defer c.locker.Unlock()
	return !c.closed
}

func (c *fakeConn) Close(reason string) {
	c.locker.Lock()
	defer c.locker.Unlock()
	if !c.closed {
		c.closed = true
		c.reason = reason
	}
}

func (c *fakeConn) closeReason() (string, bool) {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.reason, c.closed
}

func (c *fakeConn) reset() {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.frames = nil
}

func (c *fakeConn) messages() []Message {
	c.locker.Lock()
	defer c.locker.Unlock()
	msgs := make([]Message, 0, len(c.frames))
	for _, f := range c.frames {
		m, err := DecodeMessage(f)
		if err != nil {
			panic(err)
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func (c *fakeConn) rawFrames() [][]byte {
	c.locker.Lock()
	defer c.locker.Unlock()
	return append([][]byte(nil), c.frames...)
}

func framesOf[T Message](c *fakeConn) []T {
	var out []T
	for _, m := range c.messages() {
		if t, ok := m.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

func lastOf[T Message](c *fakeConn) (T, bool) {
	frames := framesOf[T](c)
	if len(frames) == 0 {
		var zero T
		return zero, false
	}
	return frames[len(frames)-1], true
}

var errSocketClosed = errors.New("socket closed")

// fakeSocket feeds queued frames to Read and records writes.
type fakeSocket struct {
	inbox   chan []byte
	written chan []byte

	locker sync.Mutex
	closed bool
	reason string
	done   chan struct{}
	once   sync.Once
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		inbox:   make(chan []byte, 16),
		written: make(chan []byte, 256),
		done:    make(chan struct{}),
	}
}

func (s *fakeSocket) Read() ([]byte, error) {
	select {
	case data := <-s.inbox:
		return data, nil
	case <-s.done:
		return nil, errSocketClosed
	}
}

func (s *fakeSocket) Write(data []byte) error {
	select {
	case s.written <- data:
		return nil
	default:
		return errors.New("write buffer full")
	}
}

func (s *fakeSocket) Ping() error {
	return nil
}

func (s *fakeSocket) Close(reason string) {
	s.once.Do(func() {
		s.locker.Lock()
		s.closed = true
		s.reason = reason
		s.locker.Unlock()
		close(s.done)
	})
}

func (s *fakeSocket) closeReason() (string, bool) {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.reason, s.closed
}

// hangUp simulates the peer going away.
func (s *fakeSocket) hangUp() {
	s.Close("")
}

// fakeScheduler keeps scheduled callbacks until the test fires them.
type fakeScheduler struct {
	locker sync.Mutex
	tasks  []*scheduledTask
}

type scheduledTask struct {
	delay     time.Duration
	fn        func()
	cancelled bool
}

func (s *fakeScheduler) schedule(d time.Duration, f func()) func() {
	s.locker.Lock()
	defer s.locker.Unlock()
	task := &scheduledTask{delay: d, fn: f}
	s.tasks = append(s.tasks, task)
	return func() {
		s.locker.Lock()
		defer s.locker.Unlock()
		task.cancelled = true
	}
}

func (s *fakeScheduler) last() *scheduledTask {
	s.locker.Lock()
	defer s.locker.Unlock()
	if len(s.tasks) == 0 {
		return nil
	}
	return s.tasks[len(s.tasks)-1]
}

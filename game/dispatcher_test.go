package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatcherFixture struct {
	registry   *Registry
	dispatcher *Dispatcher
}

func newTestDispatcher(t *testing.T) *dispatcherFixture {
	t.Helper()
	reg := newTestRegistry(t)
	d := NewDispatcher(reg, reg.tickers, 64, 0, zerolog.Nop())
	return &dispatcherFixture{registry: reg, dispatcher: d}
}

// serve runs the receive loop for clientID and returns a channel closed when
// it ends.
func (f *dispatcherFixture) serve(ctx context.Context, clientID string, socket Socket) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.dispatcher.Serve(ctx, clientID, socket)
	}()
	return done
}

// waitFor collects frames from socket until one satisfies match.
func waitFor[T Message](t *testing.T, socket *fakeSocket, match func(T) bool) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case data := <-socket.written:
			m, err := DecodeMessage(data)
			if err != nil {
				continue
			}
			if typed, ok := m.(T); ok && match(typed) {
				return typed
			}
		case <-timeout:
			var zero T
			t.Fatalf("no matching %T frame", zero)
			return zero
		}
	}
}

func anyFrame[T Message](T) bool { return true }

func handshake(username, room string) []byte {
	return []byte(`{"type":"TYPE_JOIN_ROOM_HANDSHAKE","userName":"` + username + `","roomName":"` + room + `","clientId":"ignored"}`)
}

func TestDispatcherJoinAndChat(t *testing.T) {
	t.Parallel()
	f := newTestDispatcher(t)
	_, err := f.registry.CreateRoom("kongs", 4)
	require.NoError(t, err)

	socket := newFakeSocket()
	done := f.serve(context.Background(), "c1", socket)

	socket.inbox <- []byte(`garbage`)
	socket.inbox <- handshake("alice", "kongs")
	waitFor(t, socket, func(a Announcement) bool { return a.Message == "alice joined the party!" })

	room, ok := f.registry.RoomByClient("c1")
	require.True(t, ok)
	assert.Equal(t, "kongs", room.Name())

	socket.inbox <- []byte(`{"type":"TYPE_CHAT_MESSAGE","from":"alice","roomName":"kongs","message":"hello","timeStamp":1}`)
	chat := waitFor(t, socket, anyFrame[ChatMessage])
	assert.Equal(t, "hello", chat.Message)

	socket.inbox <- []byte(`{"type":"TYPE_CHAT_MESSAGE","from":"alice","roomName":"nowhere","message":"hello","timeStamp":1}`)
	gameErr := waitFor(t, socket, anyFrame[GameError])
	assert.Equal(t, ERROR_ROOM_NOT_FOUND, gameErr.ErrorType)

	socket.inbox <- []byte(`{"type":"TYPE_DISCONNECT_REQUEST"}`)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("receive loop did not stop")
	}

	select {
	case <-room.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room was not torn down")
	}
	require.Eventually(t, func() bool {
		reason, closed := socket.closeReason()
		return closed && reason == "disconnect-request"
	}, time.Second, time.Millisecond)
}

func TestDispatcherJoinErrors(t *testing.T) {
	t.Parallel()
	f := newTestDispatcher(t)
	room, err := f.registry.CreateRoom("kongs", 2)
	require.NoError(t, err)
	require.NoError(t, room.Join(context.Background(), "c1", "alice", &fakeConn{}))

	socket := newFakeSocket()
	f.serve(context.Background(), "c2", socket)

	_, err = f.dispatcher.roomNamed("nowhere")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	socket.inbox <- handshake("bob", "nowhere")
	assert.Equal(t, ERROR_ROOM_NOT_FOUND, waitFor(t, socket, anyFrame[GameError]).ErrorType)

	socket.inbox <- handshake("alice", "kongs")
	assert.Equal(t, ERROR_NAME_TAKEN, waitFor(t, socket, anyFrame[GameError]).ErrorType)

	require.NoError(t, room.Join(context.Background(), "c3", "carol", &fakeConn{}))
	socket.inbox <- handshake("bob", "kongs")
	assert.Equal(t, ERROR_ROOM_FULL, waitFor(t, socket, anyFrame[GameError]).ErrorType)

	socket.hangUp()
}

func TestDispatcherSwitchRoom(t *testing.T) {
	t.Parallel()
	f := newTestDispatcher(t)
	first, err := f.registry.CreateRoom("first", 4)
	require.NoError(t, err)
	second, err := f.registry.CreateRoom("second", 4)
	require.NoError(t, err)
	require.NoError(t, first.Join(context.Background(), "c9", "zed", &fakeConn{}))

	socket := newFakeSocket()
	f.serve(context.Background(), "c1", socket)

	socket.inbox <- handshake("alice", "first")
	waitFor(t, socket, func(a Announcement) bool { return a.Message == "alice joined the party!" })

	socket.inbox <- handshake("alice", "second")
	waitFor(t, socket, func(l PlayersList) bool { return len(l.Players) == 1 && l.Players[0].Username == "alice" })

	require.Eventually(t, func() bool { return !first.HasClient("c1") }, time.Second, time.Millisecond)
	assert.True(t, second.HasClient("c1"))
	assert.False(t, first.HasUsername("alice"))

	socket.hangUp()
}

func TestDispatcherHangUpStartsGracePeriod(t *testing.T) {
	t.Parallel()
	f := newTestDispatcher(t)
	room, err := f.registry.CreateRoom("kongs", 4)
	require.NoError(t, err)

	socket := newFakeSocket()
	done := f.serve(context.Background(), "c1", socket)
	socket.inbox <- handshake("alice", "kongs")
	waitFor(t, socket, anyFrame[PlayersList])

	socket.hangUp()
	<-done

	require.Eventually(t, func() bool { return room.PlayerCount() == 0 }, time.Second, time.Millisecond)
	assert.True(t, room.HasUsername("alice"))
	assert.False(t, room.IsFull())

	// reconnecting on a new socket restores the seat
	again := newFakeSocket()
	f.serve(context.Background(), "c1", again)
	again.inbox <- handshake("alice", "kongs")
	waitFor(t, again, func(a Announcement) bool { return a.Message == "alice joined the party!" })
	assert.Equal(t, 1, room.PlayerCount())

	again.hangUp()
}

func TestDispatcherAck(t *testing.T) {
	t.Parallel()
	f := newTestDispatcher(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.dispatcher.now = func() time.Time { return now }
	_, err := f.registry.CreateRoom("kongs", 4)
	require.NoError(t, err)

	socket := newFakeSocket()
	f.serve(context.Background(), "c1", socket)
	socket.inbox <- handshake("alice", "kongs")
	waitFor(t, socket, anyFrame[PlayersList])

	socket.inbox <- []byte(`{"type":"TYPE_PING"}`)
	require.Eventually(t, func() bool {
		p, ok := f.registry.Player("c1")
		return ok && p.LastAck().Equal(now)
	}, time.Second, time.Millisecond)

	socket.hangUp()
}

func TestDispatcherContextCancel(t *testing.T) {
	t.Parallel()
	f := newTestDispatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	socket := newFakeSocket()
	done := f.serve(ctx, "c1", socket)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("receive loop ignored the cancelled context")
	}
	reason, closed := socket.closeReason()
	assert.True(t, closed)
	assert.Equal(t, "server-shutdown", reason)
}

func TestDispatcherConcurrentClients(t *testing.T) {
	t.Parallel()
	f := newTestDispatcher(t)
	room, err := f.registry.CreateRoom("kongs", 6)
	require.NoError(t, err)

	sockets := make([]*fakeSocket, 4)
	wg := sync.WaitGroup{}
	for i := range sockets {
		sockets[i] = newFakeSocket()
		wg.Go(func() {
			f.serve(context.Background(), testNames[i], sockets[i])
			sockets[i].inbox <- handshake(testNames[i], "kongs")
		})
	}
	wg.Wait()

	require.Eventually(t, func() bool { return room.PlayerCount() == 4 }, 2*time.Second, time.Millisecond)
	for i, s := range sockets {
		waitFor(t, s, func(a Announcement) bool { return a.Message == testNames[i]+" joined the party!" })
		s.hangUp()
	}
}

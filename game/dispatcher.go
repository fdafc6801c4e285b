package game

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher runs one receive loop per connection and routes every decoded
// frame to the room it concerns.
type Dispatcher struct {
	registry     *Registry
	tickers      TickerGenerator
	sendBuffer   int
	pingInterval time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

func NewDispatcher(registry *Registry, tickers TickerGenerator, sendBuffer int, pingInterval time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry:     registry,
		tickers:      tickers,
		sendBuffer:   sendBuffer,
		pingInterval: pingInterval,
		now:          time.Now,
		logger:       logger,
	}
}

// Serve blocks until the socket stops delivering frames, then starts the
// graceful removal of clientID from its room.
func (d *Dispatcher) Serve(ctx context.Context, clientID string, socket Socket) {
	conn := NewConnection(socket, d.sendBuffer)
	logger := d.logger.With().Str("client", clientID).Str("conn", conn.ID()).Logger()

	var pings <-chan time.Time
	if d.pingInterval > 0 {
		ticks, stop := d.tickers.Create(d.pingInterval)
		defer stop()
		pings = ticks
	}
	go conn.WritePump(pings)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close("server-shutdown")
		case <-conn.closed:
		}
	}()

	logger.Debug().Msg("receive loop started")
	for {
		data, err := conn.Read()
		if err != nil {
			logger.Debug().Err(err).Msg("receive loop ended")
			break
		}
		if !d.handleFrame(ctx, clientID, conn, data, logger) {
			break
		}
	}

	if room, ok := d.registry.RoomByClient(clientID); ok {
		room.Leave(clientID, conn)
	}
	conn.Close("")
}

// handleFrame returns false when the client asked to disconnect.
func (d *Dispatcher) handleFrame(ctx context.Context, clientID string, conn Conn, data []byte, logger zerolog.Logger) bool {
	msg, err := DecodeMessage(data)
	if err != nil {
		logger.Warn().Err(err).Msg("dropping undecodable frame")
		return true
	}

	switch m := msg.(type) {
	case JoinRoomHandshake:
		d.handleJoinRoom(ctx, clientID, conn, m, logger)
	case DrawData:
		d.handleDraw(clientID, &m, data)
	case DrawAction:
		if m.Action == ACTION_UNDO {
			d.handleDraw(clientID, nil, data)
		}
	case ChatMessage:
		d.handleChat(clientID, conn, m, data)
	case ChosenWord:
		d.handleChosenWord(clientID, conn, m)
	case Ping, Pong:
		d.handleAck(clientID)
	case DisconnectRequest:
		d.handleDisconnect(clientID, conn)
		return false
	default:
		logger.Debug().Str("type", msg.MessageType()).Msg("ignoring frame")
	}
	return true
}

// roomNamed resolves a room named by a frame.
func (d *Dispatcher) roomNamed(name string) (*Room, error) {
	room, ok := d.registry.Room(name)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (d *Dispatcher) handleJoinRoom(ctx context.Context, clientID string, conn Conn, m JoinRoomHandshake, logger zerolog.Logger) {
	room, err := d.roomNamed(m.RoomName)
	if err != nil {
		conn.Send(MakeGameError(errorCode(err)))
		return
	}

	if current, ok := d.registry.RoomByClient(clientID); ok && current != room {
		current.Evict(clientID, nil, "switched-room")
	}

	if err := room.Join(ctx, clientID, m.Username, conn); err != nil {
		logger.Info().Err(err).Str("room", m.RoomName).Msg("join refused")
		conn.Send(MakeGameError(errorCode(err)))
	}
}

func (d *Dispatcher) handleDraw(clientID string, stroke *DrawData, data []byte) {
	room, ok := d.registry.RoomByClient(clientID)
	if !ok {
		return
	}
	room.Draw(clientID, stroke, data)
}

func (d *Dispatcher) handleChat(clientID string, conn Conn, m ChatMessage, data []byte) {
	if p, ok := d.registry.Player(clientID); ok && !p.AllowChat() {
		d.logger.Debug().Str("client", clientID).Msg("chat rate limited")
		return
	}
	room, err := d.roomNamed(m.RoomName)
	if err != nil {
		conn.Send(MakeGameError(errorCode(err)))
		return
	}
	room.Chat(clientID, m, data)
}

func (d *Dispatcher) handleChosenWord(clientID string, conn Conn, m ChosenWord) {
	room, err := d.roomNamed(m.RoomName)
	if err != nil {
		conn.Send(MakeGameError(errorCode(err)))
		return
	}
	room.ChooseWord(clientID, m.ChosenWord)
}

func (d *Dispatcher) handleAck(clientID string) {
	if p, ok := d.registry.Player(clientID); ok {
		p.Acknowledge(d.now())
	}
}

func (d *Dispatcher) handleDisconnect(clientID string, conn Conn) {
	if room, ok := d.registry.RoomByClient(clientID); ok {
		room.Evict(clientID, conn, "disconnect-request")
	}
	conn.Close("disconnect-request")
}

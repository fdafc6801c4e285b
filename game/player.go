package game

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

func NewPlayer(clientID, username string, conn Conn, chatLimit rate.Limit, chatBurst int) *Player {
	return &Player{
		clientID:    clientID,
		username:    username,
		chatLimiter: rate.NewLimiter(chatLimit, chatBurst),
		conn:        conn,
		isOnline:    true,
	}
}

func (p *Player) ClientID() string {
	return p.clientID
}

func (p *Player) Username() string {
	return p.username
}

func (p *Player) Conn() Conn {
	p.locker.Lock()
	defer p.locker.Unlock()
	return p.conn
}

// attach swaps in a new connection and resets liveness.
func (p *Player) attach(conn Conn) {
	p.locker.Lock()
	defer p.locker.Unlock()
	p.conn = conn
	p.isOnline = true
	p.awaitingAck = false
}

// Send forwards data to the current connection if it is still open.
func (p *Player) Send(data []byte) error {
	conn := p.Conn()
	if conn == nil || !conn.IsOpen() {
		return ErrConnectionClosed
	}
	return conn.Send(data)
}

func (p *Player) IsOnline() bool {
	p.locker.Lock()
	defer p.locker.Unlock()
	return p.isOnline
}

func (p *Player) LastAck() time.Time {
	p.locker.Lock()
	defer p.locker.Unlock()
	return p.lastAck
}

// Acknowledge records a heartbeat answer from the client.
func (p *Player) Acknowledge(now time.Time) {
	p.locker.Lock()
	defer p.locker.Unlock()
	p.awaitingAck = false
	p.isOnline = true
	p.lastAck = now
}

func (p *Player) AllowChat() bool {
	return p.chatLimiter.Allow()
}

// probe sends the next heartbeat ping. If the previous one was never
// answered the player goes offline and probe reports the connection that
// timed out.
func (p *Player) probe() (Conn, bool) {
	p.locker.Lock()
	conn := p.conn
	if p.awaitingAck {
		p.isOnline = false
		p.locker.Unlock()
		return conn, true
	}
	p.awaitingAck = true
	p.locker.Unlock()

	if conn != nil && conn.IsOpen() {
		conn.Send(MakePing())
	}
	return conn, false
}

// startHeartbeat replaces any running heartbeat with a new one that calls
// onTimeout once, from its own goroutine, when a probe goes unanswered.
func (p *Player) startHeartbeat(interval time.Duration, tickers TickerGenerator, onTimeout func(conn Conn)) {
	p.cancelHeartbeat()
	if interval <= 0 || tickers == nil {
		return
	}

	ticks, stopTicker := tickers.Create(interval)
	quit := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(quit)
			stopTicker()
		})
	}

	p.locker.Lock()
	p.stopHeartbeat = stop
	p.locker.Unlock()

	go func() {
		for {
			select {
			case <-ticks:
				if conn, timedOut := p.probe(); timedOut {
					stop()
					onTimeout(conn)
					return
				}
			case <-quit:
				return
			}
		}
	}()
}

func (p *Player) cancelHeartbeat() {
	p.locker.Lock()
	stop := p.stopHeartbeat
	p.stopHeartbeat = nil
	p.locker.Unlock()

	if stop != nil {
		stop()
	}
}

func (p *Player) toPlayerData() PlayerData {
	return PlayerData{Username: p.username, IsDrawing: p.isDrawing, Score: p.score, Rank: p.rank}
}

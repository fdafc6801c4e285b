package game

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

const (
	COUNTDOWN_TICK = time.Second

	GUESS_SCORE_DEFAULT               = 50
	GUESS_SCORE_PERCENTAGE_MULTIPLIER = 50
	GUESS_SCORE_FOR_DRAWING_PLAYER    = 50
	PENALTY_NOBODY_GUESSED_IT         = 50

	WORD_CHOICES_COUNT = 3
)

func DefaultRoomConfigs() RoomConfigs {
	return RoomConfigs{
		WaitingForStart:   10 * time.Second,
		NewRound:          20 * time.Second,
		GameRunning:       60 * time.Second,
		ShowWord:          10 * time.Second,
		GracePeriod:       60 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		ChatLimit:         1,
		ChatBurst:         5,
	}
}

func NewRoom(name string, maxPlayers int, configs RoomConfigs, words WordBank, tickers TickerGenerator, directory Directory, logger zerolog.Logger) *Room {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	return &Room{
		name:       name,
		maxPlayers: maxPlayers,
		configs:    configs,
		words:      words,
		tickers:    tickers,
		directory:  directory,
		logger:     logger.With().Str("room", name).Logger(),
		now:        time.Now,
		shuffle: func(players []*Player) {
			rng.Shuffle(len(players), func(i, j int) { players[i], players[j] = players[j], players[i] })
		},
		pick: rng.IntN,
		schedule: func(d time.Duration, f func()) func() {
			t := time.AfterFunc(d, f)
			return func() { t.Stop() }
		},
		phase:     PHASE_WAITING_FOR_PLAYERS,
		players:   make([]*Player, 0, maxPlayers),
		pending:   make(map[string]*pendingRemoval),
		guessers:  make(map[string]bool),
		clientIDs: make(map[string]bool),
		usernames: make(map[string]bool),
		events:    make(chan roomEvent, 1024),
		done:      make(chan struct{}),
	}
}

// Run is the room's single writer. Every mutation of roster, phase and
// round state happens on this goroutine, in the order events arrive.
func (r *Room) Run() {
	r.logger.Info().Int("max_players", r.maxPlayers).Msg("room started")
	for {
		select {
		case ev := <-r.events:
			r.handleEvent(ev)
			if r.closed() {
				r.logger.Info().Msg("room torn down")
				return
			}
		case <-r.done:
			r.logger.Info().Msg("room torn down")
			return
		}
	}
}

func (r *Room) handleEvent(ev roomEvent) {
	switch e := ev.(type) {
	case RoomJoinRequest:
		r.handleJoinRequest(e)
	case leaveRequest:
		r.handleLeave(e.clientID, e.conn)
	case evictRequest:
		r.handleEvict(e.clientID, e.conn, e.reason)
	case chatRequest:
		r.handleChat(e.clientID, e.message, e.raw)
	case drawRequest:
		r.handleDraw(e.clientID, e.stroke, e.raw)
	case wordChoice:
		r.handleWordChosen(e.clientID, e.word)
	case countdownTick:
		r.handleCountdownTick(e.gen)
	case graceExpiry:
		r.handleGraceExpired(e.clientID, e.gen)
	case closeRequest:
		r.teardown("server-shutdown")
	}
}

func (r *Room) post(ev roomEvent) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}
	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

// Join adds or re-attaches clientID and waits for the room to answer.
func (r *Room) Join(ctx context.Context, clientID, username string, conn Conn) error {
	req := RoomJoinRequest{clientID: clientID, username: username, conn: conn, errChan: make(chan error, 1)}
	if err := r.post(req); err != nil {
		return err
	}
	select {
	case err := <-req.errChan:
		return err
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave starts the reconnect grace period for clientID, provided conn is
// still the player's active connection.
func (r *Room) Leave(clientID string, conn Conn) error {
	return r.post(leaveRequest{clientID: clientID, conn: conn})
}

// Evict removes clientID right away, skipping the grace period. A nil conn
// matches whatever connection the player currently has.
func (r *Room) Evict(clientID string, conn Conn, reason string) error {
	return r.post(evictRequest{clientID: clientID, conn: conn, reason: reason})
}

func (r *Room) Chat(clientID string, message ChatMessage, raw []byte) error {
	return r.post(chatRequest{clientID: clientID, message: message, raw: raw})
}

// Draw forwards a stroke (or an undo when stroke is nil) from clientID.
func (r *Room) Draw(clientID string, stroke *DrawData, raw []byte) error {
	return r.post(drawRequest{clientID: clientID, stroke: stroke, raw: raw})
}

func (r *Room) ChooseWord(clientID, word string) error {
	return r.post(wordChoice{clientID: clientID, word: word})
}

func (r *Room) Close() error {
	return r.post(closeRequest{})
}

func (r *Room) Done() <-chan struct{} {
	return r.done
}

func (r *Room) closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *Room) Name() string {
	return r.name
}

func (r *Room) MaxPlayers() int {
	return r.maxPlayers
}

func (r *Room) PlayerCount() int {
	return int(r.playerCount.Load())
}

// IsFull counts players waiting out their grace period as well.
func (r *Room) IsFull() bool {
	return int(r.occupied.Load()) >= r.maxPlayers
}

func (r *Room) HasClient(clientID string) bool {
	r.view.RLock()
	defer r.view.RUnlock()
	return r.clientIDs[clientID]
}

func (r *Room) HasUsername(username string) bool {
	r.view.RLock()
	defer r.view.RUnlock()
	return r.usernames[username]
}

func (r *Room) Info() RoomInfo {
	return RoomInfo{Name: r.name, MaxPlayers: r.maxPlayers, CurrentPlayerCount: r.PlayerCount()}
}

// publish refreshes the lock-protected view other goroutines read from.
func (r *Room) publish() {
	clientIDs := make(map[string]bool, len(r.players))
	usernames := make(map[string]bool, len(r.players)+len(r.pending))
	for _, p := range r.players {
		clientIDs[p.clientID] = true
		usernames[p.username] = true
	}
	for _, pr := range r.pending {
		usernames[pr.player.username] = true
	}

	r.view.Lock()
	r.clientIDs = clientIDs
	r.usernames = usernames
	r.view.Unlock()

	r.playerCount.Store(int32(len(r.players)))
	r.occupied.Store(int32(len(r.players) + len(r.pending)))
}

func (r *Room) broadcast(data []byte) {
	r.broadcastExcept(data, nil)
}

// broadcastExcept queues data on every open connection but except's. A
// failing recipient is skipped.
func (r *Room) broadcastExcept(data []byte, except *Player) {
	for _, p := range r.players {
		if p == except {
			continue
		}
		if err := p.Send(data); err != nil {
			r.logger.Debug().Err(err).Str("client", p.clientID).Msg("dropped outbound frame")
		}
	}
}

func (r *Room) teardownIfEmpty() {
	if len(r.players) == 0 && len(r.pending) == 0 {
		r.teardown("")
	}
}

func (r *Room) teardown(reason string) {
	r.closeOnce.Do(func() {
		r.cancelCountdown()
		for clientID, pr := range r.pending {
			pr.cancel()
			r.directory.UnregisterPlayer(clientID, pr.player)
		}
		for _, p := range r.players {
			p.cancelHeartbeat()
			r.directory.UnregisterPlayer(p.clientID, p)
			if conn := p.Conn(); conn != nil {
				conn.Close(reason)
			}
		}
		r.players = r.players[:0]
		r.pending = make(map[string]*pendingRemoval)
		r.publish()
		r.directory.RemoveRoom(r)
		close(r.done)
	})
}

package game

import (
	"fmt"
	"slices"
)

func (r *Room) handleJoinRequest(req RoomJoinRequest) {
	req.errChan <- r.addPlayer(req.clientID, req.username, req.conn)
}

func (r *Room) addPlayer(clientID, username string, conn Conn) error {
	if _, p := r.findPlayer(clientID); p != nil {
		previous := p.Conn()
		p.attach(conn)
		if previous != nil && previous != conn {
			previous.Close("replaced")
		}
		r.startHeartbeat(p)
		r.sendRoomSnapshot(p)
		r.broadcastPlayersList()
		return nil
	}

	if pr, ok := r.pending[clientID]; ok {
		pr.cancel()
		delete(r.pending, clientID)

		p := pr.player
		p.attach(conn)
		p.isDrawing = p == r.drawingPlayer
		r.players = slices.Insert(r.players, clampIndex(pr.index, len(r.players)), p)
		r.afterJoin(p)
		return nil
	}

	if r.usernameInUse(username) {
		return ErrNameTaken
	}
	if len(r.players)+len(r.pending) >= r.maxPlayers {
		return ErrRoomFull
	}

	p := NewPlayer(clientID, username, conn, r.configs.ChatLimit, r.configs.ChatBurst)
	r.players = append(r.players, p)
	r.afterJoin(p)
	return nil
}

// clampIndex maps a remembered roster position onto the current roster. A
// position past the end lands on the last slot, not after it.
func clampIndex(index, size int) int {
	switch {
	case size == 0, index < 0:
		return 0
	case index >= size:
		return size - 1
	}
	return index
}

func (r *Room) afterJoin(p *Player) {
	r.directory.RegisterPlayer(p)
	r.startHeartbeat(p)
	r.publish()

	// a transition started by this join already reached p through the
	// room broadcasts
	before := r.phase
	r.applyPhaseEvent(TRIGGER_ROSTER_CHANGED)
	if r.phase == before {
		r.sendRoomSnapshot(p)
	}
	r.broadcastPlayersList()
	r.broadcast(MakeAnnouncement(fmt.Sprintf("%s joined the party!", p.username), ANNOUNCEMENT_JOINED, r.now().UnixMilli()))
}

// sendRoomSnapshot brings a joining or returning player up to date.
func (r *Room) sendRoomSnapshot(p *Player) {
	if r.word != "" && r.drawingPlayer != nil {
		word := r.word
		if !p.isDrawing && r.phase != PHASE_SHOW_WORD {
			word = maskWord(word)
		}
		p.Send(MakeGameState(r.drawingPlayer.username, word))
	}

	phase := r.phase
	p.Send(MakePhaseChange(&phase, r.remaining.Milliseconds(), r.drawerName()))

	if r.phase == PHASE_NEW_ROUND && p == r.drawingPlayer && len(r.wordChoices) > 0 {
		p.Send(MakeNewWords(r.wordChoices))
	}
	if r.phase == PHASE_GAME_RUNNING || r.phase == PHASE_SHOW_WORD {
		p.Send(MakeRoundDrawInfo(slices.Clone(r.drawingHistory)))
	}
}

func (r *Room) handleLeave(clientID string, conn Conn) {
	index, p := r.findPlayer(clientID)
	if p == nil || (conn != nil && p.Conn() != conn) {
		return
	}

	p.cancelHeartbeat()
	r.removeAt(index)

	r.graceGen++
	gen := r.graceGen
	pr := &pendingRemoval{player: p, index: index, gen: gen}
	pr.cancel = r.schedule(r.configs.GracePeriod, func() {
		r.post(graceExpiry{clientID: clientID, gen: gen})
	})
	r.pending[clientID] = pr

	r.logger.Debug().Str("client", clientID).Msg("player left, grace period started")
	r.afterLeave(p)
}

func (r *Room) handleGraceExpired(clientID string, gen uint64) {
	pr, ok := r.pending[clientID]
	if !ok || pr.gen != gen {
		return
	}
	delete(r.pending, clientID)
	r.directory.UnregisterPlayer(clientID, pr.player)
	r.publish()
	r.logger.Debug().Str("client", clientID).Msg("grace period expired")
	r.teardownIfEmpty()
}

// handleEvict removes clientID for good. With a nil conn the client is
// moving to another room on the same connection, so it stays open.
func (r *Room) handleEvict(clientID string, conn Conn, reason string) {
	index, p := r.findPlayer(clientID)
	if p == nil {
		if pr, ok := r.pending[clientID]; ok && conn == nil {
			pr.cancel()
			delete(r.pending, clientID)
			r.directory.UnregisterPlayer(clientID, pr.player)
			r.publish()
			r.teardownIfEmpty()
		}
		return
	}
	if conn != nil && p.Conn() != conn {
		return
	}

	p.cancelHeartbeat()
	r.removeAt(index)
	r.directory.UnregisterPlayer(clientID, p)
	if conn != nil {
		conn.Close(reason)
	}

	r.logger.Info().Str("client", clientID).Str("reason", reason).Msg("player evicted")
	r.afterLeave(p)
	r.teardownIfEmpty()
}

// removeAt drops the roster entry at index. The rotation pointer follows
// the shift so the player who was next to draw stays next.
func (r *Room) removeAt(index int) {
	r.players = slices.Delete(r.players, index, index+1)
	if index < r.drawerIndex {
		r.drawerIndex--
	}
}

func (r *Room) afterLeave(p *Player) {
	wasDrawing := p == r.drawingPlayer
	p.isDrawing = false
	r.publish()

	if wasDrawing && len(r.players) >= 2 {
		r.drawingPlayer = nil
		r.applyPhaseEvent(TRIGGER_DRAWER_LEFT)
	} else {
		r.applyPhaseEvent(TRIGGER_ROSTER_CHANGED)
	}

	r.broadcastPlayersList()
	r.broadcast(MakeAnnouncement(fmt.Sprintf("%s left the party :(", p.username), ANNOUNCEMENT_LEFT, r.now().UnixMilli()))

	if r.phase == PHASE_GAME_RUNNING && r.guessedCount() >= len(r.players)-1 {
		r.endRoundEverybodyGuessed()
	}
}

func (r *Room) startHeartbeat(p *Player) {
	clientID := p.clientID
	p.startHeartbeat(r.configs.HeartbeatInterval, r.tickers, func(conn Conn) {
		r.logger.Info().Str("client", clientID).Msg("heartbeat timed out")
		r.Evict(clientID, conn, "heartbeat-timeout")
	})
}

func (r *Room) findPlayer(clientID string) (int, *Player) {
	for i, p := range r.players {
		if p.clientID == clientID {
			return i, p
		}
	}
	return -1, nil
}

func (r *Room) usernameInUse(username string) bool {
	for _, p := range r.players {
		if p.username == username {
			return true
		}
	}
	for _, pr := range r.pending {
		if pr.player.username == username {
			return true
		}
	}
	return false
}

func (r *Room) drawerName() *string {
	if r.drawingPlayer == nil {
		return nil
	}
	name := r.drawingPlayer.username
	return &name
}

// guessedCount only counts guessers still on the roster.
func (r *Room) guessedCount() int {
	n := 0
	for _, p := range r.players {
		if r.guessers[p.clientID] {
			n++
		}
	}
	return n
}

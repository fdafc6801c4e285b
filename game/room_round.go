package game

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

func (r *Room) applyPhaseEvent(trigger phaseTrigger) {
	t, ok := nextPhase(r.phase, phaseEvent{trigger: trigger, rosterSize: len(r.players), capacity: r.maxPlayers})
	if !ok {
		return
	}
	r.enterPhase(t)
}

func (r *Room) enterPhase(t transition) {
	previous := r.phase
	r.cancelCountdown()
	if previous == PHASE_GAME_RUNNING {
		r.finishStroke()
	}
	if t.shuffleRoster {
		r.shuffle(r.players)
	}

	r.phase = t.to
	r.logger.Debug().Stringer("from", previous).Stringer("to", t.to).Msg("phase changed")

	switch t.to {
	case PHASE_WAITING_FOR_PLAYERS:
		r.waitingForPlayers()
	case PHASE_WAITING_FOR_START:
		r.startCountdown(countdownFor(r.phase, r.configs))
	case PHASE_NEW_ROUND:
		r.newRound()
	case PHASE_GAME_RUNNING:
		r.gameRunning()
	case PHASE_SHOW_WORD:
		r.showWord()
	}
}

func (r *Room) waitingForPlayers() {
	if r.drawingPlayer != nil {
		r.drawingPlayer.isDrawing = false
		r.drawingPlayer = nil
	}
	r.resetRound()
	r.wordChoices = nil

	phase := PHASE_WAITING_FOR_PLAYERS
	r.broadcast(MakePhaseChange(&phase, 0, nil))
}

func (r *Room) newRound() {
	r.resetRound()
	r.wordChoices = r.words.Generate(WORD_CHOICES_COUNT)
	r.nextDrawingPlayer()

	r.broadcastPlayersList()
	if r.drawingPlayer != nil {
		r.drawingPlayer.Send(MakeNewWords(r.wordChoices))
	}
	r.startCountdown(countdownFor(r.phase, r.configs))
}

func (r *Room) resetRound() {
	r.word = ""
	r.chosenWord = ""
	r.drawingHistory = nil
	r.lastStroke = nil
	clear(r.guessers)
}

// nextDrawingPlayer hands the turn to the player at the rotation pointer and
// moves the pointer one step, wrapping after the last player.
func (r *Room) nextDrawingPlayer() {
	if r.drawingPlayer != nil {
		r.drawingPlayer.isDrawing = false
		r.drawingPlayer = nil
	}
	if len(r.players) == 0 {
		return
	}

	index := min(r.drawerIndex, len(r.players)-1)
	r.drawingPlayer = r.players[index]
	r.drawingPlayer.isDrawing = true

	if index < len(r.players)-1 {
		r.drawerIndex = index + 1
	} else {
		r.drawerIndex = 0
	}
}

func (r *Room) gameRunning() {
	clear(r.guessers)

	word := r.chosenWord
	if word == "" && len(r.wordChoices) > 0 {
		word = r.wordChoices[r.pick(len(r.wordChoices))]
	}
	if word == "" {
		if fallback := r.words.Generate(1); len(fallback) > 0 {
			word = fallback[0]
		}
	}
	r.word = word
	r.chosenWord = ""
	r.roundStart = r.now()

	if r.drawingPlayer == nil {
		r.nextDrawingPlayer()
	}
	drawer := r.drawingPlayer
	r.broadcastExcept(MakeGameState(drawer.username, maskWord(word)), drawer)
	drawer.Send(MakeGameState(drawer.username, word))

	r.startCountdown(countdownFor(r.phase, r.configs))
}

func (r *Room) showWord() {
	if len(r.guessers) == 0 && r.drawingPlayer != nil {
		r.drawingPlayer.score -= PENALTY_NOBODY_GUESSED_IT
	}
	r.broadcastPlayersList()
	if r.word != "" {
		r.broadcast(MakeChosenWord(r.word, r.name))
	}
	r.startCountdown(countdownFor(r.phase, r.configs))
}

// finishStroke closes a stroke the drawer was still in the middle of when
// the round stopped.
func (r *Room) finishStroke() {
	last := r.lastStroke
	r.lastStroke = nil
	if last == nil || len(r.drawingHistory) == 0 || last.MotionEvent != MOTION_EVENT_MOVE {
		return
	}
	finish := *last
	finish.MotionEvent = MOTION_EVENT_UP
	data := MakeDrawData(finish)
	r.drawingHistory = append(r.drawingHistory, string(data))
	r.broadcast(data)
}

// startCountdown replaces the active countdown. The first frame names the
// phase and the drawer, later frames only carry the remaining time.
func (r *Room) startCountdown(total time.Duration) {
	r.cancelCountdown()
	r.countdownGen++
	gen := r.countdownGen
	r.remaining = total

	phase := r.phase
	r.broadcast(MakePhaseChange(&phase, total.Milliseconds(), r.drawerName()))

	ticks, stopTicker := r.tickers.Create(COUNTDOWN_TICK)
	quit := make(chan struct{})
	r.stopCountdown = func() {
		close(quit)
		stopTicker()
	}

	go func() {
		for {
			select {
			case <-ticks:
				select {
				case r.events <- countdownTick{gen: gen}:
				case <-quit:
					return
				case <-r.done:
					return
				}
			case <-quit:
				return
			case <-r.done:
				return
			}
		}
	}()
}

func (r *Room) cancelCountdown() {
	if r.stopCountdown != nil {
		r.stopCountdown()
		r.stopCountdown = nil
	}
	r.remaining = 0
}

// handleCountdownTick ignores ticks from a countdown that has since been
// replaced or cancelled.
func (r *Room) handleCountdownTick(gen uint64) {
	if gen != r.countdownGen || r.stopCountdown == nil {
		return
	}
	r.remaining -= COUNTDOWN_TICK
	if r.remaining > 0 {
		r.broadcast(MakePhaseChange(nil, r.remaining.Milliseconds(), nil))
		return
	}
	r.applyPhaseEvent(TRIGGER_COUNTDOWN_EXPIRED)
}

func (r *Room) handleChat(clientID string, message ChatMessage, raw []byte) {
	_, p := r.findPlayer(clientID)
	if p == nil {
		return
	}
	if r.checkGuess(p, message.Message) {
		return
	}
	r.broadcast(raw)
}

// checkGuess reports whether the message was consumed as a correct guess.
// The drawer and players who already found the word never score again, so
// their messages go out as plain chat.
func (r *Room) checkGuess(p *Player, guess string) bool {
	if r.phase != PHASE_GAME_RUNNING || !matchesWord(guess, r.word) {
		return false
	}
	if p == r.drawingPlayer || r.guessers[p.clientID] {
		return false
	}

	p.score += guessScore(r.now().Sub(r.roundStart), r.configs.GameRunning)
	if r.drawingPlayer != nil {
		r.drawingPlayer.score += GUESS_SCORE_FOR_DRAWING_PLAYER / len(r.players)
	}
	r.guessers[p.clientID] = true

	r.broadcastPlayersList()
	r.broadcast(MakeAnnouncement(fmt.Sprintf("%s has guessed it!", p.username), ANNOUNCEMENT_GUESSED_WORD, r.now().UnixMilli()))

	if r.guessedCount() >= len(r.players)-1 {
		r.endRoundEverybodyGuessed()
	}
	return true
}

func guessScore(elapsed, limit time.Duration) int {
	left := 0.0
	if limit > 0 {
		left = max(0, 1-float64(elapsed)/float64(limit))
	}
	return int(GUESS_SCORE_DEFAULT + GUESS_SCORE_PERCENTAGE_MULTIPLIER*left)
}

func (r *Room) endRoundEverybodyGuessed() {
	r.broadcast(MakeAnnouncement("Everybody guessed it! New round is starting...", ANNOUNCEMENT_ALL_GUESSED, r.now().UnixMilli()))
	r.applyPhaseEvent(TRIGGER_ALL_GUESSED)
}

func (r *Room) handleDraw(clientID string, stroke *DrawData, raw []byte) {
	_, p := r.findPlayer(clientID)
	if p == nil {
		return
	}
	if stroke != nil {
		last := *stroke
		r.lastStroke = &last
	}
	if r.phase != PHASE_GAME_RUNNING {
		return
	}
	r.broadcastExcept(raw, p)
	r.drawingHistory = append(r.drawingHistory, string(raw))
}

func (r *Room) handleWordChosen(clientID, word string) {
	_, p := r.findPlayer(clientID)
	if p == nil || p != r.drawingPlayer || r.phase != PHASE_NEW_ROUND {
		return
	}
	word = strings.TrimSpace(word)
	if word == "" {
		return
	}
	r.chosenWord = word
	r.applyPhaseEvent(TRIGGER_WORD_CHOSEN)
}

// broadcastPlayersList ranks players by score, highest first, ties keeping
// roster order.
func (r *Room) broadcastPlayersList() {
	ranked := slices.Clone(r.players)
	slices.SortStableFunc(ranked, func(a, b *Player) int {
		return cmp.Compare(b.score, a.score)
	})
	data := make([]PlayerData, len(ranked))
	for i, p := range ranked {
		p.rank = i + 1
		data[i] = p.toPlayerData()
	}
	r.broadcast(MakePlayersList(data))
}

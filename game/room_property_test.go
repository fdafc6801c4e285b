package game

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// checkRoomInvariants verifies what must hold between any two events.
func checkRoomInvariants(t *rapid.T, r *Room) {
	if len(r.players) <= 1 && r.phase != PHASE_WAITING_FOR_PLAYERS {
		t.Fatalf("%d players in phase %s", len(r.players), r.phase)
	}
	if len(r.players)+len(r.pending) > r.maxPlayers {
		t.Fatalf("%d players and %d pending exceed capacity %d", len(r.players), len(r.pending), r.maxPlayers)
	}
	if r.PlayerCount() != len(r.players) {
		t.Fatalf("published count %d, roster %d", r.PlayerCount(), len(r.players))
	}

	switch r.phase {
	case PHASE_NEW_ROUND, PHASE_GAME_RUNNING, PHASE_SHOW_WORD:
		if r.drawingPlayer == nil {
			t.Fatalf("no drawer in phase %s", r.phase)
		}
	}

	drawing := 0
	drawerSeated := r.drawingPlayer == nil
	names := map[string]bool{}
	for _, p := range r.players {
		if p.isDrawing {
			drawing++
			if p != r.drawingPlayer {
				t.Fatalf("%s draws but is not the drawer", p.username)
			}
		}
		if p == r.drawingPlayer {
			drawerSeated = true
		}
		if names[p.username] {
			t.Fatalf("username %s seated twice", p.username)
		}
		names[p.username] = true
	}
	for _, pr := range r.pending {
		if names[pr.player.username] {
			t.Fatalf("username %s both seated and pending", pr.player.username)
		}
		names[pr.player.username] = true
	}
	if drawing > 1 {
		t.Fatalf("%d players drawing at once", drawing)
	}
	if !drawerSeated {
		t.Fatalf("drawer %s is not on the roster", r.drawingPlayer.username)
	}
}

func TestRoomInvariants(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(2, 5).Draw(rt, "capacity")
		f := newTestRoom(t, capacity)
		conns := map[string]*fakeConn{}

		client := rapid.IntRange(1, capacity+1)
		ops := rapid.IntRange(1, 60).Draw(rt, "ops")

		for range ops {
			if f.room.closed() {
				return
			}
			id := client.Draw(rt, "client")
			clientID := fmt.Sprintf("c%d", id)
			username := testNames[id-1]

			switch rapid.SampledFrom([]string{"join", "leave", "evict", "expire-grace", "tick", "choose", "guess", "chat", "draw"}).Draw(rt, "op") {
			case "join":
				conn := &fakeConn{}
				if err := f.joinWith(clientID, username, conn); err == nil {
					conns[clientID] = conn
				}
			case "leave":
				f.room.handleLeave(clientID, conns[clientID])
			case "evict":
				f.room.handleEvict(clientID, conns[clientID], "heartbeat-timeout")
			case "expire-grace":
				if pr, ok := f.room.pending[clientID]; ok {
					f.room.handleGraceExpired(clientID, pr.gen)
				}
			case "tick":
				if f.room.stopCountdown != nil {
					f.expireCountdown()
				}
			case "choose":
				f.room.handleWordChosen(clientID, "banana")
			case "guess":
				before := 0
				p := f.player(clientID)
				guessedAlready := p != nil && f.room.guessers[clientID]
				if p != nil {
					before = p.score
				}
				f.say(clientID, f.room.word)
				if guessedAlready && p.score != before {
					rt.Fatalf("%s scored twice for the same word", username)
				}
			case "chat":
				f.say(clientID, "hello")
			case "draw":
				stroke := DrawData{MotionEvent: rapid.IntRange(MOTION_EVENT_DOWN, MOTION_EVENT_MOVE).Draw(rt, "motion")}
				f.room.handleDraw(clientID, &stroke, MakeDrawData(stroke))
			}

			checkRoomInvariants(rt, f.room)
		}
	})
}

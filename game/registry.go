package game

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Registry is the process-wide directory of rooms by name and players by
// client id.
type Registry struct {
	locker  sync.RWMutex
	rooms   map[string]*Room
	clients map[string]*Player

	maxRoomSize int
	configs     RoomConfigs
	words       WordBank
	tickers     TickerGenerator
	logger      zerolog.Logger
	wg          sync.WaitGroup
}

func NewRegistry(maxRoomSize int, configs RoomConfigs, words WordBank, tickers TickerGenerator, logger zerolog.Logger) *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		clients:     make(map[string]*Player),
		maxRoomSize: maxRoomSize,
		configs:     configs,
		words:       words,
		tickers:     tickers,
		logger:      logger,
	}
}

func (reg *Registry) MaxRoomSize() int {
	return reg.maxRoomSize
}

// CreateRoom registers a new room and starts its loop.
func (reg *Registry) CreateRoom(name string, maxPlayers int) (*Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidRoomName
	}
	if maxPlayers < 2 {
		return nil, fmt.Errorf("%w: minimum is 2, got %d", ErrRoomTooSmall, maxPlayers)
	}
	if maxPlayers > reg.maxRoomSize {
		return nil, fmt.Errorf("%w: maximum is %d, got %d", ErrRoomTooLarge, reg.maxRoomSize, maxPlayers)
	}

	reg.locker.Lock()
	if _, exists := reg.rooms[name]; exists {
		reg.locker.Unlock()
		return nil, ErrRoomExists
	}
	room := NewRoom(name, maxPlayers, reg.configs, reg.words, reg.tickers, reg, reg.logger)
	reg.rooms[name] = room
	reg.wg.Add(1)
	reg.locker.Unlock()

	go func() {
		defer reg.wg.Done()
		room.Run()
	}()
	return room, nil
}

func (reg *Registry) Room(name string) (*Room, bool) {
	reg.locker.RLock()
	defer reg.locker.RUnlock()
	room, ok := reg.rooms[name]
	return room, ok
}

// ListRooms returns the rooms whose name contains query, ignoring case,
// sorted by name.
func (reg *Registry) ListRooms(query string) []RoomInfo {
	query = strings.ToLower(query)

	reg.locker.RLock()
	infos := make([]RoomInfo, 0, len(reg.rooms))
	for name, room := range reg.rooms {
		if strings.Contains(strings.ToLower(name), query) {
			infos = append(infos, room.Info())
		}
	}
	reg.locker.RUnlock()

	slices.SortFunc(infos, func(a, b RoomInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos
}

// RoomByClient scans the rooms for the one whose roster holds clientID.
func (reg *Registry) RoomByClient(clientID string) (*Room, bool) {
	reg.locker.RLock()
	defer reg.locker.RUnlock()
	for _, room := range reg.rooms {
		if room.HasClient(clientID) {
			return room, true
		}
	}
	return nil, false
}

func (reg *Registry) RegisterPlayer(p *Player) {
	reg.locker.Lock()
	defer reg.locker.Unlock()
	reg.clients[p.ClientID()] = p
	reg.logger.Debug().Str("client", p.ClientID()).Str("username", p.Username()).Msg("player registered")
}

// UnregisterPlayer drops clientID only while it still maps to p, so a stale
// room cannot remove a client that has since joined elsewhere.
func (reg *Registry) UnregisterPlayer(clientID string, p *Player) {
	reg.locker.Lock()
	defer reg.locker.Unlock()
	if reg.clients[clientID] == p {
		delete(reg.clients, clientID)
	}
}

func (reg *Registry) Player(clientID string) (*Player, bool) {
	reg.locker.RLock()
	defer reg.locker.RUnlock()
	p, ok := reg.clients[clientID]
	return p, ok
}

func (reg *Registry) RemoveRoom(r *Room) {
	reg.locker.Lock()
	defer reg.locker.Unlock()
	if reg.rooms[r.name] == r {
		delete(reg.rooms, r.name)
	}
}

// Close asks every room to shut down and waits for their loops to exit.
func (reg *Registry) Close(ctx context.Context) error {
	reg.locker.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.locker.RUnlock()

	for _, room := range rooms {
		room.Close()
	}

	finished := make(chan struct{})
	go func() {
		reg.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

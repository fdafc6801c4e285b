package game

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type WordBank interface {
	Generate(count int) []string
}

// Conn is the outbound half of a client connection as seen by a Room.
type Conn interface {
	Send(data []byte) error
	IsOpen() bool
	Close(reason string)
}

// Socket is the transport a Connection reads from and writes to.
type Socket interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Ping() error
	Close(reason string)
}

type TickerGenerator interface {
	Create(duration time.Duration) (<-chan time.Time, func())
}

// Directory is the part of the Registry a Room reports back to.
type Directory interface {
	RegisterPlayer(p *Player)
	UnregisterPlayer(clientID string, p *Player)
	RemoveRoom(r *Room)
}

type Player struct {
	clientID    string
	username    string
	chatLimiter *rate.Limiter

	// owned by the room loop
	isDrawing bool
	score     int
	rank      int

	locker        sync.Mutex
	conn          Conn
	isOnline      bool
	awaitingAck   bool
	lastAck       time.Time
	stopHeartbeat func()
}

type RoomConfigs struct {
	WaitingForStart   time.Duration
	NewRound          time.Duration
	GameRunning       time.Duration
	ShowWord          time.Duration
	GracePeriod       time.Duration
	HeartbeatInterval time.Duration
	ChatLimit         rate.Limit
	ChatBurst         int
}

type Room struct {
	name       string
	maxPlayers int
	configs    RoomConfigs

	words     WordBank
	tickers   TickerGenerator
	directory Directory
	logger    zerolog.Logger

	now      func() time.Time
	shuffle  func(players []*Player)
	pick     func(n int) int
	schedule func(d time.Duration, f func()) (cancel func())

	// owned by the room loop
	phase          Phase
	players        []*Player
	pending        map[string]*pendingRemoval
	graceGen       uint64
	drawerIndex    int
	drawingPlayer  *Player
	word           string
	chosenWord     string
	wordChoices    []string
	guessers       map[string]bool
	roundStart     time.Time
	drawingHistory []string
	lastStroke     *DrawData

	countdownGen  uint64
	remaining     time.Duration
	stopCountdown func()

	// published for readers outside the loop
	view        sync.RWMutex
	clientIDs   map[string]bool
	usernames   map[string]bool
	playerCount atomic.Int32
	occupied    atomic.Int32

	events    chan roomEvent
	done      chan struct{}
	closeOnce sync.Once
}

type pendingRemoval struct {
	player *Player
	index  int
	gen    uint64
	cancel func()
}

type RoomInfo struct {
	Name               string `json:"name"`
	MaxPlayers         int    `json:"maxPlayers"`
	CurrentPlayerCount int    `json:"playerCount"`
}

type roomEvent interface {
	isRoomEvent()
}

type RoomJoinRequest struct {
	clientID string
	username string
	conn     Conn
	errChan  chan error
}

type leaveRequest struct {
	clientID string
	conn     Conn
}

type evictRequest struct {
	clientID string
	conn     Conn
	reason   string
}

type chatRequest struct {
	clientID string
	message  ChatMessage
	raw      []byte
}

type drawRequest struct {
	clientID string
	stroke   *DrawData
	raw      []byte
}

type wordChoice struct {
	clientID string
	word     string
}

type countdownTick struct {
	gen uint64
}

type graceExpiry struct {
	clientID string
	gen      uint64
}

type closeRequest struct{}

func (RoomJoinRequest) isRoomEvent() {}
func (leaveRequest) isRoomEvent()    {}
func (evictRequest) isRoomEvent()    {}
func (chatRequest) isRoomEvent()     {}
func (drawRequest) isRoomEvent()     {}
func (wordChoice) isRoomEvent()      {}
func (countdownTick) isRoomEvent()   {}
func (graceExpiry) isRoomEvent()     {}
func (closeRequest) isRoomEvent()    {}

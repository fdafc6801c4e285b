package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	TYPE_CHAT_MESSAGE         = "TYPE_CHAT_MESSAGE"
	TYPE_DRAW_DATA            = "TYPE_DRAW_DATA"
	TYPE_DRAW_ACTION          = "TYPE_DRAW_ACTION"
	TYPE_ANNOUNCEMENT         = "TYPE_ANNOUNCEMENT"
	TYPE_JOIN_ROOM_HANDSHAKE  = "TYPE_JOIN_ROOM_HANDSHAKE"
	TYPE_PHASE_CHANGE         = "TYPE_PHASE_CHANGE"
	TYPE_CHOSEN_WORD          = "TYPE_CHOSEN_WORD"
	TYPE_GAME_STATE           = "TYPE_GAME_STATE"
	TYPE_NEW_WORDS            = "TYPE_NEW_WORDS"
	TYPE_GAME_ERROR           = "TYPE_GAME_ERROR"
	TYPE_PING                 = "TYPE_PING"
	TYPE_PONG                 = "TYPE_PONG"
	TYPE_DISCONNECT_REQUEST   = "TYPE_DISCONNECT_REQUEST"
	TYPE_CUR_ROUND_DRAW_INFO  = "TYPE_CUR_ROUND_DRAW_INFO"
	TYPE_PLAYERS_LIST         = "TYPE_PLAYERS_LIST"
	ACTION_UNDO               = "ACTION_UNDO"
	MOTION_EVENT_DOWN         = 0
	MOTION_EVENT_UP           = 1
	MOTION_EVENT_MOVE         = 2
	ANNOUNCEMENT_GUESSED_WORD = 0
	ANNOUNCEMENT_JOINED       = 1
	ANNOUNCEMENT_LEFT         = 2
	ANNOUNCEMENT_ALL_GUESSED  = 3
)

// Message is one decoded wire frame.
type Message interface {
	MessageType() string
}

type BaseMessage struct {
	Type string `json:"type"`
}

type ChatMessage struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	RoomName  string `json:"roomName"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timeStamp"`
}

type DrawData struct {
	Type        string  `json:"type"`
	RoomName    string  `json:"roomName"`
	Color       int     `json:"color"`
	Thickness   float32 `json:"thickness"`
	FromX       float32 `json:"fromX"`
	FromY       float32 `json:"fromY"`
	ToX         float32 `json:"toX"`
	ToY         float32 `json:"toY"`
	MotionEvent int     `json:"motionEvent"`
}

type DrawAction struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

type JoinRoomHandshake struct {
	Type     string `json:"type"`
	Username string `json:"userName"`
	RoomName string `json:"roomName"`
	ClientID string `json:"clientId"`
}

type ChosenWord struct {
	Type       string `json:"type"`
	ChosenWord string `json:"chosenWord"`
	RoomName   string `json:"roomName"`
}

type Announcement struct {
	Type             string `json:"type"`
	Message          string `json:"message"`
	Timestamp        int64  `json:"timestamp"`
	AnnouncementType int    `json:"announcementType"`
}

type PhaseChange struct {
	Type          string  `json:"type"`
	Phase         *Phase  `json:"phase,omitempty"`
	Time          int64   `json:"time"`
	DrawingPlayer *string `json:"drawingPlayer,omitempty"`
}

type GameState struct {
	Type          string `json:"type"`
	DrawingPlayer string `json:"drawingPlayer"`
	Word          string `json:"word"`
}

type NewWords struct {
	Type     string   `json:"type"`
	NewWords []string `json:"newWords"`
}

type PlayerData struct {
	Username  string `json:"userName"`
	IsDrawing bool   `json:"isDrawing"`
	Score     int    `json:"score"`
	Rank      int    `json:"rank"`
}

type PlayersList struct {
	Type    string       `json:"type"`
	Players []PlayerData `json:"players"`
}

type GameError struct {
	Type      string `json:"type"`
	ErrorType int    `json:"errorType"`
}

type RoundDrawInfo struct {
	Type string   `json:"type"`
	Data []string `json:"data"`
}

type Ping struct {
	Type string `json:"type"`
}

type Pong struct {
	Type string `json:"type"`
}

type DisconnectRequest struct {
	Type string `json:"type"`
}

func (m BaseMessage) MessageType() string       { return m.Type }
func (m ChatMessage) MessageType() string       { return TYPE_CHAT_MESSAGE }
func (m DrawData) MessageType() string          { return TYPE_DRAW_DATA }
func (m DrawAction) MessageType() string        { return TYPE_DRAW_ACTION }
func (m JoinRoomHandshake) MessageType() string { return TYPE_JOIN_ROOM_HANDSHAKE }
func (m ChosenWord) MessageType() string        { return TYPE_CHOSEN_WORD }
func (m Announcement) MessageType() string      { return TYPE_ANNOUNCEMENT }
func (m PhaseChange) MessageType() string       { return TYPE_PHASE_CHANGE }
func (m GameState) MessageType() string         { return TYPE_GAME_STATE }
func (m NewWords) MessageType() string          { return TYPE_NEW_WORDS }
func (m PlayersList) MessageType() string       { return TYPE_PLAYERS_LIST }
func (m GameError) MessageType() string         { return TYPE_GAME_ERROR }
func (m RoundDrawInfo) MessageType() string     { return TYPE_CUR_ROUND_DRAW_INFO }
func (m Ping) MessageType() string              { return TYPE_PING }
func (m Pong) MessageType() string              { return TYPE_PONG }
func (m DisconnectRequest) MessageType() string { return TYPE_DISCONNECT_REQUEST }

// DecodeMessage reads the "type" discriminator and decodes the frame into the
// matching message. Frames with an unknown type come back as a BaseMessage.
func DecodeMessage(data []byte) (Message, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	var msg Message
	var err error
	switch base.Type {
	case TYPE_CHAT_MESSAGE:
		msg, err = decodeAs[ChatMessage](data)
	case TYPE_DRAW_DATA:
		msg, err = decodeAs[DrawData](data)
	case TYPE_DRAW_ACTION:
		msg, err = decodeAs[DrawAction](data)
	case TYPE_JOIN_ROOM_HANDSHAKE:
		msg, err = decodeAs[JoinRoomHandshake](data)
	case TYPE_CHOSEN_WORD:
		msg, err = decodeAs[ChosenWord](data)
	case TYPE_ANNOUNCEMENT:
		msg, err = decodeAs[Announcement](data)
	case TYPE_PHASE_CHANGE:
		msg, err = decodeAs[PhaseChange](data)
	case TYPE_GAME_STATE:
		msg, err = decodeAs[GameState](data)
	case TYPE_NEW_WORDS:
		msg, err = decodeAs[NewWords](data)
	case TYPE_PLAYERS_LIST:
		msg, err = decodeAs[PlayersList](data)
	case TYPE_GAME_ERROR:
		msg, err = decodeAs[GameError](data)
	case TYPE_CUR_ROUND_DRAW_INFO:
		msg, err = decodeAs[RoundDrawInfo](data)
	case TYPE_PING:
		msg = Ping{Type: TYPE_PING}
	case TYPE_PONG:
		msg = Pong{Type: TYPE_PONG}
	case TYPE_DISCONNECT_REQUEST:
		msg = DisconnectRequest{Type: TYPE_DISCONNECT_REQUEST}
	default:
		msg = base
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return msg, nil
}

func decodeAs[T Message](data []byte) (T, error) {
	var m T
	err := json.Unmarshal(data, &m)
	return m, err
}

func encode(m Message) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		// every outbound message is a plain struct, marshalling cannot fail
		panic(err)
	}
	return data
}

func MakeAnnouncement(message string, announcementType int, timestamp int64) []byte {
	return encode(Announcement{
		Type:             TYPE_ANNOUNCEMENT,
		Message:          message,
		Timestamp:        timestamp,
		AnnouncementType: announcementType,
	})
}

// MakePhaseChange builds a countdown frame. A nil phase is the "same phase,
// new remaining time" tick.
func MakePhaseChange(phase *Phase, remainingMillis int64, drawingPlayer *string) []byte {
	return encode(PhaseChange{Type: TYPE_PHASE_CHANGE, Phase: phase, Time: remainingMillis, DrawingPlayer: drawingPlayer})
}

func MakeGameState(drawingPlayer, word string) []byte {
	return encode(GameState{Type: TYPE_GAME_STATE, DrawingPlayer: drawingPlayer, Word: word})
}

func MakeNewWords(words []string) []byte {
	return encode(NewWords{Type: TYPE_NEW_WORDS, NewWords: words})
}

func MakeChosenWord(word, roomName string) []byte {
	return encode(ChosenWord{Type: TYPE_CHOSEN_WORD, ChosenWord: word, RoomName: roomName})
}

func MakePlayersList(players []PlayerData) []byte {
	return encode(PlayersList{Type: TYPE_PLAYERS_LIST, Players: players})
}

func MakeGameError(code int) []byte {
	return encode(GameError{Type: TYPE_GAME_ERROR, ErrorType: code})
}

func MakeRoundDrawInfo(frames []string) []byte {
	return encode(RoundDrawInfo{Type: TYPE_CUR_ROUND_DRAW_INFO, Data: frames})
}

func MakePing() []byte {
	return encode(Ping{Type: TYPE_PING})
}

func MakeDrawData(d DrawData) []byte {
	d.Type = TYPE_DRAW_DATA
	return encode(d)
}

// maskWord hides every letter of word behind an underscore, keeps spaces and
// separates each position with a single space so clients can count letters.
func maskWord(word string) string {
	runes := []rune(word)
	masked := make([]string, len(runes))
	for i, r := range runes {
		if r == ' ' {
			masked[i] = " "
		} else {
			masked[i] = "_"
		}
	}
	return strings.Join(masked, " ")
}

func matchesWord(guess, word string) bool {
	return word != "" && strings.ToLower(strings.TrimSpace(guess)) == strings.ToLower(strings.TrimSpace(word))
}

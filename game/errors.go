package game

import "errors"

var (
	ErrRoomNotFound     = errors.New("room-not-found")
	ErrRoomFull         = errors.New("room-full")
	ErrRoomExists       = errors.New("room-already-exists")
	ErrInvalidRoomName  = errors.New("invalid-room-name")
	ErrRoomTooSmall     = errors.New("room-too-small")
	ErrRoomTooLarge     = errors.New("room-too-large")
	ErrNameTaken        = errors.New("name-taken")
	ErrRoomClosed       = errors.New("room-closed")
	ErrMalformedMessage = errors.New("malformed-message")
)

var (
	ErrSendBufferFull   = errors.New("send-buffer-full")
	ErrConnectionClosed = errors.New("connection-closed")
)

// Codes carried by TYPE_GAME_ERROR.
const (
	ERROR_ROOM_NOT_FOUND = iota
	ERROR_ROOM_FULL
	ERROR_NAME_TAKEN
)

func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrRoomFull):
		return ERROR_ROOM_FULL
	case errors.Is(err, ErrNameTaken):
		return ERROR_NAME_TAKEN
	default:
		return ERROR_ROOM_NOT_FOUND
	}
}

package game

import (
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketConnection adapts a gorilla connection to Socket. Frames are
// JSON text.
type WebsocketConnection struct {
	socket      *websocket.Conn
	readTimeout time.Duration
}

func (wc *WebsocketConnection) Write(data []byte) error {
	wc.socket.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return wc.socket.WriteMessage(websocket.TextMessage, data)
}

func (wc *WebsocketConnection) Ping() error {
	return wc.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

func (wc *WebsocketConnection) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	if err == nil && wc.readTimeout > 0 {
		wc.socket.SetReadDeadline(time.Now().Add(wc.readTimeout))
	}
	return p, err
}

func (wc *WebsocketConnection) Close(errCode string) {
	wc.socket.SetWriteDeadline(time.Now().Add(time.Second * 5))
	wc.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, errCode))
	wc.socket.Close()
}

func NewWebsocketConnection(conn *websocket.Conn, readTimeout time.Duration) *WebsocketConnection {
	if readTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(appData string) error {
			conn.SetReadDeadline(time.Now().Add(readTimeout))
			return nil
		})
	}
	return &WebsocketConnection{socket: conn, readTimeout: readTimeout}
}

package realtime

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/igm/sockjs-go/sockjs"
)

// WebSocketConn adapts a gorilla connection to Conn.
type WebSocketConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func NewWebSocketConn(conn *websocket.Conn, writeTimeout time.Duration) *WebSocketConn {
	return &WebSocketConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *WebSocketConn) WriteMessage(data []byte) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WebSocketConn) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}

// SockJSConn adapts a SockJS session to Conn.
type SockJSConn struct {
	session sockjs.Session
}

func NewSockJSConn(session sockjs.Session) *SockJSConn {
	return &SockJSConn{session: session}
}

func (c *SockJSConn) WriteMessage(data []byte) error {
	return c.session.Send(string(data))
}

func (c *SockJSConn) Close() error {
	return c.session.Close(1000, "closed")
}

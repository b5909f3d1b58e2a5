package socket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/handle"
)

type connState uint8

const (
	stateConnecting connState = iota
	stateOpen
	stateClosed
)

const writeWait = 5 * time.Second

// Conn is the host object behind a socket handle.
type Conn struct {
	url   string
	ws    *websocket.Conn
	ref   handle.Ref
	state connState
	mu    sync.Mutex
	// writeMu serializes writers; gorilla connections allow one at a time.
	writeMu sync.Mutex
}

// URL returns the address the connection was opened with.
func (c *Conn) URL() string { return c.url }

// Open reports whether the connection is established and not closed.
func (c *Conn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

func (c *Conn) send(data []byte) error {
	c.mu.Lock()
	ws, state := c.ws, c.state
	c.mu.Unlock()

	switch state {
	case stateConnecting:
		return errors.New(errors.PhaseSocket, errors.KindInvalidInput).
			Path(c.url).
			Detail("socket is still connecting").
			Build()
	case stateClosed:
		return errors.Closed(errors.PhaseSocket, "socket "+c.url)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(errors.PhaseSocket, errors.KindIO, err, "send")
	}
	return nil
}

// shutdown sends a close frame if the connection is open and releases it.
// It reports whether this call performed the transition to closed.
func (c *Conn) shutdown(code int, reason string) bool {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return false
	}
	ws := c.ws
	c.state = stateClosed
	c.mu.Unlock()

	if ws == nil {
		return true
	}
	if code == 0 {
		code = websocket.CloseNormalClosure
	}
	c.writeMu.Lock()
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	_ = ws.Close()
	return true
}

// markClosed records a close initiated by the peer or the network.
// It returns false if the connection was already closed locally.
func (c *Conn) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return false
	}
	c.state = stateClosed
	return true
}

// Drop implements handle.Dropper so removing a socket handle closes it.
func (c *Conn) Drop() {
	c.shutdown(websocket.CloseGoingAway, "")
}

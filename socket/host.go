package socket

import (
	"context"
	stderrors "errors"
	"net"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/handle"
	"github.com/wippyai/hostbridge/metrics"
)

// Host owns the guest's socket connections. Connections live in a handle
// table; their network callbacks run on background goroutines and only
// append to a mutex-guarded queue, which Dispatch drains on the guest's
// goroutine.
type Host struct {
	table   *handle.Table[any]
	dialer  *websocket.Dialer
	logger  *zap.Logger
	metrics *metrics.Metrics
	ctx     context.Context
	cancel  context.CancelFunc
	queue   []Event
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	limit   int64
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(h *Host) { h.dialer = d }
}

// WithMetrics records connection and message counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Host) { h.metrics = m }
}

// WithReadLimit caps the size of an incoming message in bytes.
func WithReadLimit(n int64) Option {
	return func(h *Host) { h.limit = n }
}

// NewHost creates a host storing connections in table.
func NewHost(table *handle.Table[any], opts ...Option) *Host {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Host{
		table:  table,
		dialer: websocket.DefaultDialer,
		logger: zap.NewNop(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Open registers a new connection to url and returns its handle at once.
// The dial happens in the background; EventOpen, or EventError followed by
// EventClose, reports the outcome.
func (h *Host) Open(url string) (handle.Handle, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return 0, errors.Closed(errors.PhaseSocket, "socket host")
	}

	c := &Conn{url: url}
	hd, err := h.table.Create(c)
	if err != nil {
		return 0, err
	}
	ref, err := h.table.Ref(hd)
	if err != nil {
		return 0, err
	}
	c.ref = ref

	h.wg.Add(1)
	go h.connect(c)
	return hd, nil
}

func (h *Host) connect(c *Conn) {
	defer h.wg.Done()
	log := h.logger.With(zap.String("url", c.url), zap.Uint32("handle", uint32(c.ref.Handle)))

	ws, _, err := h.dialer.DialContext(h.ctx, c.url, nil)
	if err != nil {
		log.Debug("dial failed", zap.Error(err))
		c.mu.Lock()
		c.state = stateClosed
		c.mu.Unlock()
		h.push(Event{Type: EventError, Ref: c.ref, Err: errors.Wrap(errors.PhaseSocket, errors.KindIO, err, "dial "+c.url)})
		h.push(Event{Type: EventClose, Ref: c.ref})
		return
	}
	if h.limit > 0 {
		ws.SetReadLimit(h.limit)
	}

	c.mu.Lock()
	if c.state == stateClosed {
		// Closed by the guest while dialing.
		c.mu.Unlock()
		_ = ws.Close()
		return
	}
	c.ws = ws
	c.state = stateOpen
	c.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SocketsOpen.Inc()
		defer h.metrics.SocketsOpen.Dec()
	}
	log.Debug("socket open")
	h.push(Event{Type: EventOpen, Ref: c.ref})
	h.readPump(c, ws, log)
}

func (h *Host) readPump(c *Conn, ws *websocket.Conn, log *zap.Logger) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !c.markClosed() {
				return
			}
			_ = ws.Close()
			var closeErr *websocket.CloseError
			if !stderrors.As(err, &closeErr) && !stderrors.Is(err, net.ErrClosed) {
				log.Debug("socket read failed", zap.Error(err))
				h.push(Event{Type: EventError, Ref: c.ref, Err: errors.Wrap(errors.PhaseSocket, errors.KindIO, err, "read")})
			}
			h.push(Event{Type: EventClose, Ref: c.ref})
			return
		}
		if h.metrics != nil {
			h.metrics.SocketMessages.WithLabelValues("in").Inc()
		}
		h.push(Event{Type: EventMessage, Ref: c.ref, Data: data})
	}
}

func (h *Host) push(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.queue = append(h.queue, e)
}

func (h *Host) conn(hd handle.Handle) (*Conn, error) {
	v, err := h.table.Get(hd)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*Conn)
	if !ok {
		return nil, errors.InvalidHandle(string(h.table.Category()), uint32(hd))
	}
	return c, nil
}

// Send writes data as a text message on the connection named by hd.
func (h *Host) Send(hd handle.Handle, data []byte) error {
	c, err := h.conn(hd)
	if err != nil {
		return err
	}
	if err := c.send(data); err != nil {
		return err
	}
	if h.metrics != nil {
		h.metrics.SocketMessages.WithLabelValues("out").Inc()
	}
	return nil
}

// Close closes the connection named by hd with a close code and reason,
// removes the handle, and discards every queued event for it. No event
// for hd is delivered after Close returns.
func (h *Host) Close(hd handle.Handle, code int, reason string) error {
	c, err := h.detach(hd)
	if err != nil {
		return err
	}
	c.shutdown(code, reason)
	return nil
}

// Take unbinds hd and returns its connection. A connection cannot outlive
// its handle, so it is closed with going-away first and its reader stops.
// Queued events for hd are discarded as with Close.
func (h *Host) Take(hd handle.Handle) (*Conn, error) {
	c, err := h.detach(hd)
	if err != nil {
		return nil, err
	}
	c.Drop()
	return c, nil
}

func (h *Host) detach(hd handle.Handle) (*Conn, error) {
	if _, err := h.conn(hd); err != nil {
		return nil, err
	}
	v, err := h.table.Take(hd)
	if err != nil {
		return nil, err
	}
	c := v.(*Conn)

	h.mu.Lock()
	kept := h.queue[:0]
	for _, e := range h.queue {
		if e.Ref != c.ref {
			kept = append(kept, e)
		}
	}
	clear(h.queue[len(kept):])
	h.queue = kept
	h.mu.Unlock()
	return c, nil
}

// Pending returns the number of queued events.
func (h *Host) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Dispatch delivers queued events to sink in arrival order and returns how
// many were delivered. Events whose handle is no longer bound to the
// connection that produced them are dropped.
func (h *Host) Dispatch(sink Sink) int {
	h.mu.Lock()
	events := h.queue
	h.queue = nil
	h.mu.Unlock()

	delivered := 0
	for _, e := range events {
		if _, err := h.table.Resolve(e.Ref); err != nil {
			continue
		}
		switch e.Type {
		case EventOpen:
			sink.OnSocketOpen(e.Ref.Handle)
		case EventMessage:
			sink.OnSocketMessage(e.Ref.Handle, e.Data)
		case EventClose:
			sink.OnSocketClose(e.Ref.Handle)
		case EventError:
			sink.OnSocketError(e.Ref.Handle, e.Err)
		}
		delivered++
	}
	return delivered
}

// Shutdown closes every connection and waits for background goroutines.
func (h *Host) Shutdown() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.queue = nil
	h.mu.Unlock()

	h.cancel()
	var handles []handle.Handle
	h.table.Each(func(hd handle.Handle, v any) bool {
		if _, ok := v.(*Conn); ok {
			handles = append(handles, hd)
		}
		return true
	})
	for _, hd := range handles {
		_ = h.table.Remove(hd)
	}
	h.wg.Wait()
	return nil
}

package socket

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/handle"
	"github.com/wippyai/hostbridge/metrics"
)

type recorded struct {
	typ  EventType
	h    handle.Handle
	data string
}

type recordingSink struct {
	events []recorded
}

func (s *recordingSink) OnSocketOpen(h handle.Handle) {
	s.events = append(s.events, recorded{typ: EventOpen, h: h})
}

func (s *recordingSink) OnSocketMessage(h handle.Handle, data []byte) {
	s.events = append(s.events, recorded{typ: EventMessage, h: h, data: string(data)})
}

func (s *recordingSink) OnSocketClose(h handle.Handle) {
	s.events = append(s.events, recorded{typ: EventClose, h: h})
}

func (s *recordingSink) OnSocketError(h handle.Handle, err error) {
	s.events = append(s.events, recorded{typ: EventError, h: h, data: err.Error()})
}

func (s *recordingSink) has(typ EventType) bool {
	for _, e := range s.events {
		if e.typ == typ {
			return true
		}
	}
	return false
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// echoServer echoes text messages; "bye" makes it close the connection.
func echoServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "bye" {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newHost(t *testing.T, opts ...Option) *Host {
	t.Helper()
	h := NewHost(handle.NewTable[any](handle.CategorySocket), opts...)
	t.Cleanup(func() { _ = h.Shutdown() })
	return h
}

func waitFor(t *testing.T, h *Host, sink *recordingSink, typ EventType) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		h.Dispatch(sink)
		if sink.has(typ) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s event; got %+v", typ, sink.events)
}

func TestHost_EchoRoundTrip(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHost(t, WithMetrics(metrics.New(reg)))
	sink := &recordingSink{}

	hd, err := h.Open(echoServer(t))
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, h, sink, EventOpen)
	if sink.events[0].h != hd {
		t.Errorf("open for handle %d, want %d", sink.events[0].h, hd)
	}

	if err := h.Send(hd, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, h, sink, EventMessage)
	last := sink.events[len(sink.events)-1]
	if last.typ != EventMessage || last.data != "hello" || last.h != hd {
		t.Errorf("message event = %+v", last)
	}
}

func TestHost_CloseDiscardsQueuedEvents(t *testing.T) {
	h := newHost(t)
	sink := &recordingSink{}

	hd, _ := h.Open(echoServer(t))
	waitFor(t, h, sink, EventOpen)

	for i := 0; i < 3; i++ {
		_ = h.Send(hd, []byte("x"))
	}
	deadline := time.Now().Add(5 * time.Second)
	for h.Pending() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.Close(hd, 1000, "done"); err != nil {
		t.Fatal(err)
	}
	if h.Pending() != 0 {
		t.Errorf("Pending = %d after Close", h.Pending())
	}

	before := len(sink.events)
	time.Sleep(20 * time.Millisecond)
	h.Dispatch(sink)
	if len(sink.events) != before {
		t.Errorf("events delivered after Close: %+v", sink.events[before:])
	}

	if err := h.Send(hd, []byte("late")); !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Errorf("Send after Close err = %v", err)
	}
	if err := h.Close(hd, 1000, ""); !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Errorf("second Close err = %v", err)
	}
}

func TestHost_StaleEventNotDeliveredToRecycledHandle(t *testing.T) {
	h := newHost(t)
	url := echoServer(t)

	old, _ := h.Open(url)
	oldRef, _ := h.table.Ref(old)
	_ = h.Close(old, 1000, "")

	fresh, _ := h.Open(url)
	if fresh != old {
		t.Fatalf("expected handle reuse, got %d and %d", old, fresh)
	}

	h.push(Event{Type: EventMessage, Ref: oldRef, Data: []byte("stale")})

	sink := &recordingSink{}
	waitFor(t, h, sink, EventOpen)
	for _, e := range sink.events {
		if e.data == "stale" {
			t.Fatal("event for closed connection delivered to its successor")
		}
	}
}

func TestHost_RemoteClose(t *testing.T) {
	h := newHost(t)
	sink := &recordingSink{}

	hd, _ := h.Open(echoServer(t))
	waitFor(t, h, sink, EventOpen)
	_ = h.Send(hd, []byte("bye"))
	waitFor(t, h, sink, EventClose)

	if sink.has(EventError) {
		t.Errorf("clean remote close reported an error: %+v", sink.events)
	}
	if err := h.Send(hd, []byte("x")); !stderrors.Is(err, errors.ErrClosed) {
		t.Errorf("Send on remotely closed socket err = %v", err)
	}
	if err := h.Close(hd, 0, ""); err != nil {
		t.Errorf("Close after remote close: %v", err)
	}
}

func TestHost_DialFailure(t *testing.T) {
	h := newHost(t)
	sink := &recordingSink{}

	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	hd, err := h.Open(url)
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, h, sink, EventClose)

	if len(sink.events) != 2 || sink.events[0].typ != EventError || sink.events[1].typ != EventClose {
		t.Fatalf("events = %+v, want error then close", sink.events)
	}
	if sink.events[0].h != hd {
		t.Errorf("error for handle %d", sink.events[0].h)
	}
}

func TestHost_Shutdown(t *testing.T) {
	table := handle.NewTable[any](handle.CategorySocket)
	h := NewHost(table)
	sink := &recordingSink{}

	_, _ = h.Open(echoServer(t))
	waitFor(t, h, sink, EventOpen)

	if err := h.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if table.Len() != 0 {
		t.Errorf("table Len = %d after Shutdown", table.Len())
	}
	if _, err := h.Open("ws://unused"); !stderrors.Is(err, errors.ErrClosed) {
		t.Errorf("Open after Shutdown err = %v", err)
	}
}

func TestHost_NonSocketHandle(t *testing.T) {
	table := handle.NewTable[any](handle.CategorySocket)
	h := NewHost(table)
	defer h.Shutdown()

	hd, _ := table.Create("not a socket")
	if err := h.Send(hd, nil); !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Errorf("Send err = %v", err)
	}
}

func TestHost_TakeStopsReader(t *testing.T) {
	h := NewHost(handle.NewTable[any](handle.CategorySocket))
	sink := &recordingSink{}

	hd, _ := h.Open(echoServer(t))
	waitFor(t, h, sink, EventOpen)
	_ = h.Send(hd, []byte("x"))
	deadline := time.Now().Add(5 * time.Second)
	for h.Pending() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	c, err := h.Take(hd)
	if err != nil {
		t.Fatal(err)
	}
	if c.Open() {
		t.Error("taken connection still open")
	}
	if h.Pending() != 0 {
		t.Errorf("%d events queued for a taken handle", h.Pending())
	}
	if _, err := h.Take(hd); !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Errorf("second Take err = %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = h.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown blocked after Take")
	}
}

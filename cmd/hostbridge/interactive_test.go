package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/hostbridge/input"
)

func TestInteractive_Mouse(t *testing.T) {
	d := newLoopback(t)
	m := newInteractiveModel(d, "test", time.Millisecond)

	m.Update(tea.MouseMsg{X: 5, Y: 6, Action: tea.MouseActionMotion})
	m.Update(tea.MouseMsg{X: 5, Y: 6, Action: tea.MouseActionPress, Button: tea.MouseButtonRight})
	m.Update(tea.MouseMsg{X: 5, Y: 6, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone})
	m.Update(tea.MouseMsg{X: 1, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})

	pending := d.b.Input().Pending()
	want := []input.Event{
		{Type: input.EventPointerMove, X: 5, Y: 6},
		{Type: input.EventPointerDown, Button: input.ButtonRight, X: 5, Y: 6},
		{Type: input.EventPointerUp, Button: input.ButtonRight, X: 5, Y: 6},
	}
	if len(pending) != len(want) {
		t.Fatalf("pending = %+v", pending)
	}
	for i := range want {
		if pending[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, pending[i], want[i])
		}
	}
}

func TestInteractive_Keys(t *testing.T) {
	d := newLoopback(t)
	m := newInteractiveModel(d, "test", time.Millisecond)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m.Update(tea.KeyMsg{Type: tea.KeyF1})

	pending := d.b.Input().Pending()
	if len(pending) != 4 {
		t.Fatalf("pending = %+v", pending)
	}
	if pending[0] != (input.Event{Type: input.EventKeyDown, Key: 'A'}) ||
		pending[1] != (input.Event{Type: input.EventKeyUp, Key: 'A'}) {
		t.Errorf("rune key = %+v", pending[:2])
	}
	if pending[2].Key != 37 {
		t.Errorf("left arrow = %d", pending[2].Key)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
}

func TestInteractive_SocketPrompt(t *testing.T) {
	d := newLoopback(t)
	m := newInteractiveModel(d, "test", time.Millisecond)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.state != stateSocketURL {
		t.Fatal("ctrl+o did not open the prompt")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if d.b.InputCount() != 0 {
		t.Error("prompt typing leaked into the input batch")
	}
	if !strings.Contains(m.View(), "url:") {
		t.Error("prompt not rendered")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != stateInput {
		t.Error("esc did not close the prompt")
	}
}

func TestInteractive_Frame(t *testing.T) {
	d := newLoopback(t)
	m := newInteractiveModel(d, "demo.wasm", time.Millisecond)

	d.b.OnPointerMove(9, 9)
	_, cmd := m.Update(frameMsg(time.Now()))
	if cmd == nil {
		t.Error("frame did not schedule the next one")
	}

	view := m.View()
	for _, s := range []string{"demo.wasm", "9,9", "frame"} {
		if !strings.Contains(view, s) {
			t.Errorf("view missing %q:\n%s", s, view)
		}
	}
}

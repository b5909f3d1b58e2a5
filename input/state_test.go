package input

import "testing"

func TestState_Edges(t *testing.T) {
	s := NewState()

	s.Update([]Event{
		{Type: EventKeyDown, Key: 32},
		{Type: EventPointerDown, Button: ButtonLeft, X: 4, Y: 8},
	})
	if !s.KeyDown(32) || !s.KeyPressed(32) {
		t.Error("space should be down and pressed")
	}
	if !s.ButtonDown(ButtonLeft) || !s.ButtonPressed(ButtonLeft) {
		t.Error("left should be down and pressed")
	}
	if x, y := s.Pointer(); x != 4 || y != 8 {
		t.Errorf("pointer = (%d, %d)", x, y)
	}

	s.Update(nil)
	if !s.KeyDown(32) || s.KeyPressed(32) {
		t.Error("pressed edge should clear after one frame while key stays down")
	}

	s.Update([]Event{
		{Type: EventKeyUp, Key: 32},
		{Type: EventPointerUp, Button: ButtonLeft, X: 5, Y: 9},
		{Type: EventPointerMove, X: 6, Y: 10},
	})
	if s.KeyDown(32) || !s.KeyReleased(32) {
		t.Error("space should be released")
	}
	if s.ButtonDown(ButtonLeft) || !s.ButtonReleased(ButtonLeft) {
		t.Error("left should be released")
	}
	if x, y := s.Pointer(); x != 6 || y != 10 {
		t.Errorf("pointer = (%d, %d)", x, y)
	}
}

func TestState_RepeatDownIsNotPressed(t *testing.T) {
	s := NewState()
	s.Update([]Event{{Type: EventKeyDown, Key: 1}})
	s.Update([]Event{{Type: EventKeyDown, Key: 1}})
	if s.KeyPressed(1) {
		t.Error("auto-repeat reported as a new press")
	}
	s.Update([]Event{{Type: EventKeyUp, Key: 2}})
	if s.KeyReleased(2) {
		t.Error("release of a key never held")
	}
}

func TestEventType_String(t *testing.T) {
	if EventKeyUp.String() != "key_up" || EventType(99).String() != "event(99)" {
		t.Error("EventType.String")
	}
	if ButtonMiddle.String() != "middle" || Button(7).String() != "unknown" {
		t.Error("Button.String")
	}
}

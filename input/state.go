package input

// State folds flushed events into per-frame input state: which keys and
// buttons are held, which changed this frame, and where the pointer is.
// It is the reader's half of the protocol and is not safe for concurrent use.
type State struct {
	keys            map[int32]bool
	keysPressed     map[int32]bool
	keysReleased    map[int32]bool
	buttons         map[Button]bool
	buttonsPressed  map[Button]bool
	buttonsReleased map[Button]bool
	x, y            int32
}

// NewState creates a State with nothing held.
func NewState() *State {
	return &State{
		keys:            make(map[int32]bool),
		keysPressed:     make(map[int32]bool),
		keysReleased:    make(map[int32]bool),
		buttons:         make(map[Button]bool),
		buttonsPressed:  make(map[Button]bool),
		buttonsReleased: make(map[Button]bool),
	}
}

// Update starts a new frame: edges from the previous frame are cleared and
// events are applied in order.
func (s *State) Update(events []Event) {
	clear(s.keysPressed)
	clear(s.keysReleased)
	clear(s.buttonsPressed)
	clear(s.buttonsReleased)

	for _, e := range events {
		switch e.Type {
		case EventPointerMove:
			s.x, s.y = e.X, e.Y
		case EventPointerDown:
			s.x, s.y = e.X, e.Y
			if !s.buttons[e.Button] {
				s.buttonsPressed[e.Button] = true
			}
			s.buttons[e.Button] = true
		case EventPointerUp:
			s.x, s.y = e.X, e.Y
			if s.buttons[e.Button] {
				s.buttonsReleased[e.Button] = true
			}
			delete(s.buttons, e.Button)
		case EventKeyDown:
			if !s.keys[e.Key] {
				s.keysPressed[e.Key] = true
			}
			s.keys[e.Key] = true
		case EventKeyUp:
			if s.keys[e.Key] {
				s.keysReleased[e.Key] = true
			}
			delete(s.keys, e.Key)
		}
	}
}

func (s *State) KeyDown(code int32) bool     { return s.keys[code] }
func (s *State) KeyPressed(code int32) bool  { return s.keysPressed[code] }
func (s *State) KeyReleased(code int32) bool { return s.keysReleased[code] }

func (s *State) ButtonDown(b Button) bool     { return s.buttons[b] }
func (s *State) ButtonPressed(b Button) bool  { return s.buttonsPressed[b] }
func (s *State) ButtonReleased(b Button) bool { return s.buttonsReleased[b] }

// Pointer returns the last known pointer position.
func (s *State) Pointer() (x, y int32) { return s.x, s.y }

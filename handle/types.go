package handle

// Handle is the integer a guest uses to name a host object.
// Handles are dense non-negative indexes into a Table.
type Handle uint32

// Category names an independent handle space.
type Category string

const (
	CategoryTexture         Category = "texture"
	CategoryShader          Category = "shader"
	CategoryProgram         Category = "program"
	CategoryBuffer          Category = "buffer"
	CategorySocket          Category = "socket"
	CategoryUniformLocation Category = "uniform-location"
)

// Categories lists the built-in categories. A category's position is the
// integer id guests use for it.
var Categories = []Category{
	CategoryTexture,
	CategoryShader,
	CategoryProgram,
	CategoryBuffer,
	CategorySocket,
	CategoryUniformLocation,
}

// CategoryByID maps a guest category id to its Category.
func CategoryByID(id uint32) (Category, bool) {
	if int(id) >= len(Categories) {
		return "", false
	}
	return Categories[id], true
}

// Ref is a generation-stamped handle. A Ref taken before its handle was
// removed never resolves, even after the slot is recycled.
type Ref struct {
	Category   Category
	Handle     Handle
	Generation uint32
}

// EventType identifies a handle lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRemoved
	EventTaken
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventRemoved:
		return "removed"
	case EventTaken:
		return "taken"
	default:
		return "unknown"
	}
}

// Event represents a handle lifecycle event.
type Event struct {
	Value    any
	Category Category
	Handle   Handle
	Type     EventType
}

// Observer receives notifications about handle lifecycle events.
// Observers are called after the table lock is released.
type Observer interface {
	OnHandleEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnHandleEvent(e Event) { f(e) }

// Dropper is optionally implemented by values that need cleanup when
// their handle is removed. Take hands the value back instead of dropping it.
type Dropper interface {
	Drop()
}

package input

import (
	"fmt"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/memory"
	"github.com/wippyai/hostbridge/transcoder"
)

// Stride is the fixed distance in bytes between flushed records, so the
// guest can index record i at offset+i*Stride.
const Stride = 12

// EventType is the wire tag stored in byte 0 of every record.
type EventType uint8

const (
	EventPointerMove EventType = 0
	EventPointerDown EventType = 1
	EventPointerUp   EventType = 2
	EventKeyDown     EventType = 3
	EventKeyUp       EventType = 4
)

func (t EventType) String() string {
	switch t {
	case EventPointerMove:
		return "pointer_move"
	case EventPointerDown:
		return "pointer_down"
	case EventPointerUp:
		return "pointer_up"
	case EventKeyDown:
		return "key_down"
	case EventKeyUp:
		return "key_up"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Button identifies a pointer button the way browsers number them.
type Button uint8

const (
	ButtonLeft   Button = 0
	ButtonMiddle Button = 1
	ButtonRight  Button = 2
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return "unknown"
	}
}

// Event is one pending input record.
// X and Y are set for pointer events, Key for key events.
type Event struct {
	Type   EventType
	Button Button
	X, Y   int32
	Key    int32
}

// Wire formats, one per variant. All fit in Stride.
var (
	PointerMoveFormat = transcoder.MustDefineFormat("pointer_move",
		transcoder.Field{Name: "type_id", Kind: transcoder.KindU8, Offset: 0},
		transcoder.Field{Name: "x", Kind: transcoder.KindI32, Offset: 4},
		transcoder.Field{Name: "y", Kind: transcoder.KindI32, Offset: 8},
	)
	PointerButtonFormat = transcoder.MustDefineFormat("pointer_button",
		transcoder.Field{Name: "type_id", Kind: transcoder.KindU8, Offset: 0},
		transcoder.Field{Name: "button", Kind: transcoder.KindI8, Offset: 1},
		transcoder.Field{Name: "x", Kind: transcoder.KindI32, Offset: 4},
		transcoder.Field{Name: "y", Kind: transcoder.KindI32, Offset: 8},
	)
	KeyFormat = transcoder.MustDefineFormat("key",
		transcoder.Field{Name: "type_id", Kind: transcoder.KindU8, Offset: 0},
		transcoder.Field{Name: "key", Kind: transcoder.KindI32, Offset: 4},
	)
)

func (e Event) format() (*transcoder.Format, transcoder.Record, error) {
	switch e.Type {
	case EventPointerMove:
		return PointerMoveFormat, transcoder.Record{"type_id": uint8(e.Type), "x": e.X, "y": e.Y}, nil
	case EventPointerDown, EventPointerUp:
		return PointerButtonFormat, transcoder.Record{"type_id": uint8(e.Type), "button": uint8(e.Button), "x": e.X, "y": e.Y}, nil
	case EventKeyDown, EventKeyUp:
		return KeyFormat, transcoder.Record{"type_id": uint8(e.Type), "key": e.Key}, nil
	default:
		return nil, nil, errors.InvalidInput(errors.PhaseInput, "unknown event type "+e.Type.String())
	}
}

// encode binds e to its variant format.
func (e Event) encode() (transcoder.Value, error) {
	f, rec, err := e.format()
	if err != nil {
		return transcoder.Value{}, err
	}
	return f.Encode(rec)
}

// Decode reads count records written by Flush at offset.
func Decode(mem memory.Memory, offset uint32, count int) ([]Event, error) {
	if count < 0 {
		return nil, errors.InvalidInput(errors.PhaseInput, "negative record count")
	}
	if err := memory.CheckRange(mem, offset, uint64(count)*Stride); err != nil {
		return nil, err
	}

	events := make([]Event, 0, count)
	for i := 0; i < count; i++ {
		at := offset + uint32(i)*Stride
		tag, err := mem.ReadU8(at)
		if err != nil {
			return nil, err
		}
		e := Event{Type: EventType(tag)}
		var f *transcoder.Format
		switch e.Type {
		case EventPointerMove:
			f = PointerMoveFormat
		case EventPointerDown, EventPointerUp:
			f = PointerButtonFormat
		case EventKeyDown, EventKeyUp:
			f = KeyFormat
		default:
			return nil, errors.New(errors.PhaseInput, errors.KindInvalidInput).
				Value(tag).
				Detail("record %d has unknown type tag %d", i, tag).
				Build()
		}
		rec, err := f.Decode(mem, at)
		if err != nil {
			return nil, err
		}
		if v, ok := rec["x"].(int64); ok {
			e.X = int32(v)
		}
		if v, ok := rec["y"].(int64); ok {
			e.Y = int32(v)
		}
		if v, ok := rec["key"].(int64); ok {
			e.Key = int32(v)
		}
		if v, ok := rec["button"].(int64); ok {
			e.Button = Button(uint8(v))
		}
		events = append(events, e)
	}
	return events, nil
}

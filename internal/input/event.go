// Package input locates, exclusively grabs, and reads local input
// devices, turning raw evdev events into normalized key, button, and
// motion events for the report encoder.
package input

// Linux input event types and values we care about. Matches
// linux/input-event-codes.h.
const (
	evKey = 0x01
	evRel = 0x02

	valRelease = 0
	valPress   = 1
	valRepeat  = 2

	relX     = 0x00
	relY     = 0x01
	relWheel = 0x08

	// BTN_MOUSE..BTN_TASK: the pointer button block.
	btnMouseFirst = 0x110
	btnMouseLast  = 0x117
)

// RawEvent is one unprocessed evdev event.
type RawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// EventKind classifies a normalized event.
type EventKind int

const (
	KeyPress EventKind = iota
	KeyRelease
	KeyRepeat
	ButtonPress
	ButtonRelease
	Motion
)

// MotionAxis identifies the axis of a Motion event.
type MotionAxis int

const (
	MotionX MotionAxis = iota
	MotionY
	MotionWheel
)

// Event is a normalized input event. Code is set for key and button
// events; Axis and Delta for motion events.
type Event struct {
	Kind  EventKind
	Code  uint16
	Axis  MotionAxis
	Delta int32
}

// normalize converts a raw evdev event into a normalized one. The second
// return value is false for event types we do not forward (sync, misc,
// unknown axes, key values outside press/release/repeat).
func normalize(raw RawEvent) (Event, bool) {
	switch raw.Type {
	case evKey:
		var kind EventKind
		button := raw.Code >= btnMouseFirst && raw.Code <= btnMouseLast
		switch raw.Value {
		case valPress:
			kind = KeyPress
			if button {
				kind = ButtonPress
			}
		case valRelease:
			kind = KeyRelease
			if button {
				kind = ButtonRelease
			}
		case valRepeat:
			if button {
				return Event{}, false
			}
			kind = KeyRepeat
		default:
			return Event{}, false
		}
		return Event{Kind: kind, Code: raw.Code}, true

	case evRel:
		var axis MotionAxis
		switch raw.Code {
		case relX:
			axis = MotionX
		case relY:
			axis = MotionY
		case relWheel:
			axis = MotionWheel
		default:
			// REL_HWHEEL and friends have no slot in the 4-byte report.
			return Event{}, false
		}
		return Event{Kind: Motion, Axis: axis, Delta: raw.Value}, true
	}

	return Event{}, false
}

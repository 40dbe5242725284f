// Package hid turns normalized input events into Bluetooth HID reports.
//
// The encoder owns the canonical key/button/motion state. It is not safe
// for concurrent use; a single goroutine (the session's event pump) feeds
// it and hands the resulting reports off as immutable byte arrays.
package hid

import "log/slog"

// Report sizes on the wire.
const (
	KeyboardReportSize = 8 // [modifier][reserved][key1..key6]
	PointerReportSize  = 4 // [buttons][dx][dy][dwheel]
	maxKeySlots        = 6
)

// KeyboardReport is an encoded 8-byte keyboard report.
type KeyboardReport [KeyboardReportSize]byte

// PointerReport is an encoded 4-byte pointer report.
type PointerReport [PointerReportSize]byte

// Axis identifies one relative-motion axis of the pointer.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisWheel
)

// Encoder holds input state and produces HID reports from it.
type Encoder struct {
	keys    map[ScanCode]struct{} // currently-down scan codes
	buttons uint8
	dx      int32
	dy      int32
	dwheel  int32
}

// NewEncoder returns an Encoder with all state zeroed.
func NewEncoder() *Encoder {
	return &Encoder{keys: make(map[ScanCode]struct{})}
}

// Reset zeroes all state. Call at session start and stop so no stale
// modifier or delta leaks into the first report of the next session.
func (e *Encoder) Reset() {
	clear(e.keys)
	e.buttons = 0
	e.dx, e.dy, e.dwheel = 0, 0, 0
}

// EncodeKey applies a key press or release and returns the resulting
// keyboard report. Releasing a key that is not down is a no-op, as is
// pressing one that already is (auto-repeat), so re-encoding unchanged
// state yields an identical report.
func (e *Encoder) EncodeKey(code ScanCode, pressed bool) KeyboardReport {
	if pressed {
		e.keys[code] = struct{}{}
	} else {
		delete(e.keys, code)
	}
	return e.encodeKeyboard()
}

// EncodeButton applies a pointer button press or release and returns the
// resulting pointer report. Unknown button codes leave the mask unchanged
// but still produce a report.
func (e *Encoder) EncodeButton(code ScanCode, pressed bool) PointerReport {
	bit := ButtonBit(code)
	if bit == 0 {
		slog.Debug("[hid] ignoring unknown pointer button", "code", code)
	} else if pressed {
		e.buttons |= bit
	} else {
		e.buttons &^= bit
	}
	return e.encodePointer()
}

// EncodeMotion applies a single-axis relative delta and returns the
// resulting pointer report. The delta is one-shot: it is encoded into
// exactly this report and then zeroed, so a pointer report always means
// "movement since the previous report".
func (e *Encoder) EncodeMotion(axis Axis, delta int32) PointerReport {
	switch axis {
	case AxisX:
		e.dx = delta
	case AxisY:
		e.dy = delta
	case AxisWheel:
		e.dwheel = delta
	}
	return e.encodePointer()
}

// EncodeKeyboardState re-encodes the current keyboard state without
// applying any event. Used to emit the final all-clear report at stop.
func (e *Encoder) EncodeKeyboardState() KeyboardReport {
	return e.encodeKeyboard()
}

// EncodePointerState re-encodes the current pointer state (consuming any
// pending deltas) without applying any event.
func (e *Encoder) EncodePointerState() PointerReport {
	return e.encodePointer()
}

func (e *Encoder) encodeKeyboard() KeyboardReport {
	var report KeyboardReport

	// The modifier byte is recomputed in full from the key set every
	// time, so it can never drift from it.
	for code := range e.keys {
		report[0] |= modifierBit(code)
	}

	// Up to 6 keycode slots. Map iteration order decides which keys
	// survive past six; that choice is deliberately unspecified.
	slot := 2
	for code := range e.keys {
		if slot >= 2+maxKeySlots {
			break
		}
		if modifierBit(code) != 0 {
			continue
		}
		usage, ok := UsageFor(code)
		if !ok {
			slog.Debug("[hid] no usage for scan code", "code", code)
			continue
		}
		if duplicateUsage(report[2:slot], usage) {
			continue
		}
		report[slot] = byte(usage)
		slot++
	}

	return report
}

func (e *Encoder) encodePointer() PointerReport {
	var report PointerReport
	report[0] = e.buttons
	report[1] = byte(clampDelta(e.dx))
	report[2] = byte(clampDelta(e.dy))
	report[3] = byte(clampDelta(e.dwheel))

	// Deltas are consumed by encoding.
	e.dx, e.dy, e.dwheel = 0, 0, 0
	return report
}

func duplicateUsage(filled []byte, usage Usage) bool {
	for _, b := range filled {
		if b == byte(usage) {
			return true
		}
	}
	return false
}

// clampDelta saturates a delta to the signed 8-bit range of the report.
func clampDelta(v int32) int8 {
	if v > 127 {
		return 127
	}
	if v < -127 {
		return -127
	}
	return int8(v)
}
